// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package flowdocs

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

// integrationRule describes one detectable client library: the import
// that reveals it, call-site patterns confirming actual usage, and the
// service name to report.
type integrationRule struct {
	importName   string
	callPatterns []*regexp.Regexp
	serviceName  string
}

func rule(importName, serviceName string, calls ...string) integrationRule {
	compiled := make([]*regexp.Regexp, 0, len(calls))
	for _, c := range calls {
		compiled = append(compiled, regexp.MustCompile(c))
	}
	return integrationRule{importName: importName, callPatterns: compiled, serviceName: serviceName}
}

// integrationRules indexes detection rules by integration type, then by
// language. Both the import and at least one call pattern must match
// before an integration is reported.
var integrationRules = map[string]map[string][]integrationRule{
	canonical.IntegrationHTTP: {
		"python": {
			rule("requests", "requests", `requests\.(get|post|put|delete|patch|head)`),
			rule("httpx", "httpx", `httpx\.(get|post|put|delete|patch|AsyncClient)`),
			rule("aiohttp", "aiohttp", `aiohttp\.ClientSession`),
			rule("urllib", "urllib", `urllib\.request\.urlopen`),
		},
		"javascript": {
			rule("axios", "axios", `axios\.(get|post|put|delete|patch)`),
			rule("fetch", "fetch", `fetch\s*\(`),
			rule("node-fetch", "node-fetch", `fetch\s*\(`),
			rule("got", "got", `got\.(get|post|put|delete|patch)`),
		},
		"go": {
			rule("net/http", "net/http", `http\.(Get|Post|NewRequest)`),
		},
	},
	canonical.IntegrationDatabase: {
		"python": {
			rule("sqlalchemy", "sqlalchemy", `session\.(query|execute|add|delete)`, `create_engine`),
			rule("django", "django-orm", `\.objects\.(filter|get|create|all)`, `models\.`),
			rule("psycopg2", "postgresql", `psycopg2\.connect`),
			rule("pymongo", "mongodb", `pymongo\.MongoClient`, `\.find\(`, `\.insert`),
			rule("motor", "mongodb-async", `motor\.motor_asyncio`),
			rule("asyncpg", "postgresql-async", `asyncpg\.connect`),
			rule("sqlite3", "sqlite", `sqlite3\.connect`),
		},
		"javascript": {
			rule("prisma", "prisma", `prisma\.\w+\.(find|create|update|delete)`),
			rule("mongoose", "mongoose", `mongoose\.(connect|model)`, `\.find\(`),
			rule("sequelize", "sequelize", `sequelize\.define`, `\.findAll\(`),
			rule("knex", "knex", `knex\(`, `\.select\(`),
			rule("typeorm", "typeorm", `@Entity`, `getRepository`),
		},
		"go": {
			rule("database/sql", "database/sql", `sql\.(Open|Query|Exec)`),
			rule("gorm", "gorm", `gorm\.Open`, `db\.(Find|Create|Save)`),
		},
	},
	canonical.IntegrationQueue: {
		"python": {
			rule("boto3.*sqs", "aws-sqs", `sqs\.send_message`, `sqs\.receive_message`),
			rule("kafka", "kafka", `KafkaProducer`, `KafkaConsumer`, `\.produce\(`),
			rule("pika", "rabbitmq", `pika\.BlockingConnection`, `channel\.basic_publish`),
			rule("celery", "celery", `@celery\.task`, `\.delay\(`),
			rule("rq", "redis-queue", `rq\.Queue`, `\.enqueue\(`),
		},
		"javascript": {
			rule("amqplib", "rabbitmq", `amqp\.connect`, `channel\.sendToQueue`),
			rule("kafkajs", "kafka", `Kafka\(`, `producer\.send`),
			rule("bull", "bull-queue", `new Queue\(`, `\.add\(`),
			rule("@aws-sdk/client-sqs", "aws-sqs", `SQSClient`, `SendMessageCommand`),
		},
	},
	canonical.IntegrationCache: {
		"python": {
			rule("redis", "redis", `redis\.Redis`, `\.get\(`, `\.set\(`, `\.hget\(`),
			rule("aiocache", "aiocache", `@cached`, `Cache\.from_url`),
			rule("pymemcache", "memcached", `pymemcache\.Client`),
			rule("cachetools", "cachetools", `@cached`, `TTLCache`),
		},
		"javascript": {
			rule("redis", "redis", `createClient\(`, `\.get\(`, `\.set\(`),
			rule("ioredis", "redis", `new Redis\(`, `\.get\(`, `\.set\(`),
			rule("memcached", "memcached", `Memcached\(`),
		},
	},
	canonical.IntegrationStorage: {
		"python": {
			rule("boto3.*s3", "aws-s3", `s3\.upload_file`, `s3\.download_file`, `s3\.put_object`),
			rule("google.cloud.storage", "gcs", `storage\.Client`, `bucket\.blob`),
			rule("azure.storage", "azure-blob", `BlobServiceClient`),
		},
		"javascript": {
			rule("@aws-sdk/client-s3", "aws-s3", `S3Client`, `PutObjectCommand`, `GetObjectCommand`),
			rule("@google-cloud/storage", "gcs", `Storage\(`, `bucket\(`),
		},
	},
	canonical.IntegrationLLM: {
		"python": {
			rule("litellm", "litellm", `litellm\.completion`, `litellm\.acompletion`),
			rule("openai", "openai", `openai\.ChatCompletion`, `OpenAI\(`),
			rule("anthropic", "anthropic", `anthropic\.Anthropic`, `\.messages\.create`),
			rule("boto3.*bedrock", "aws-bedrock", `bedrock-runtime`, `invoke_model`),
			rule("langchain", "langchain", `ChatOpenAI`, `ChatAnthropic`, `LLMChain`),
			rule("google.generativeai", "google-gemini", `genai\.GenerativeModel`),
		},
		"javascript": {
			rule("openai", "openai", `OpenAI\(`, `chat\.completions`),
			rule("@anthropic-ai/sdk", "anthropic", `Anthropic\(`, `\.messages\.create`),
			rule("@aws-sdk/client-bedrock-runtime", "aws-bedrock", `BedrockRuntimeClient`, `InvokeModelCommand`),
			rule("langchain", "langchain", `ChatOpenAI`, `ChatAnthropic`),
		},
	},
}

// integrationLanguage collapses file extensions to the language keys the
// rule table uses. TypeScript shares the JavaScript rules.
func integrationLanguage(ext string) string {
	switch ext {
	case ".py":
		return "python"
	case ".js", ".mjs", ".cjs", ".ts", ".tsx":
		return "javascript"
	case ".go":
		return "go"
	case ".java":
		return "java"
	}
	return ""
}

// IntegrationDetector scans source files for external service usage:
// databases, HTTP clients, queues, caches, object storage, and model
// APIs.
type IntegrationDetector struct {
	repoPath string
	logger   *logging.Logger
}

// NewIntegrationDetector returns a detector rooted at repoPath.
func NewIntegrationDetector(repoPath string, logger *logging.Logger) *IntegrationDetector {
	if logger == nil {
		logger = logging.Default()
	}
	return &IntegrationDetector{repoPath: repoPath, logger: logger}
}

// Detect returns the repository's external integrations. One entry is
// produced per (service, type, library) with the sorted file locations
// where it was seen; results are ordered for stable output.
func (d *IntegrationDetector) Detect() []canonical.ExternalIntegration {
	type key struct {
		name    string
		intType string
		library string
	}
	found := make(map[key]map[string]struct{})

	for _, rel := range findSourceFiles(d.repoPath) {
		content, err := os.ReadFile(filepath.Join(d.repoPath, filepath.FromSlash(rel)))
		if err != nil {
			d.logger.Debug("skipping unreadable file", "path", rel, "error", err)
			continue
		}
		text := string(content)

		language := integrationLanguage(strings.ToLower(filepath.Ext(rel)))
		if language == "" {
			continue
		}

		for intType, byLanguage := range integrationRules {
			for _, r := range byLanguage[language] {
				if !importPresent(text, r.importName, language) {
					continue
				}
				for _, call := range r.callPatterns {
					if call.MatchString(text) {
						k := key{
							name:    r.serviceName,
							intType: intType,
							library: strings.SplitN(r.importName, ".", 2)[0],
						}
						if found[k] == nil {
							found[k] = make(map[string]struct{})
						}
						found[k][rel] = struct{}{}
						break
					}
				}
			}
		}
	}

	result := make([]canonical.ExternalIntegration, 0, len(found))
	for k, locations := range found {
		locs := make([]string, 0, len(locations))
		for loc := range locations {
			locs = append(locs, loc)
		}
		sort.Strings(locs)
		result = append(result, canonical.ExternalIntegration{
			Name:      k.name,
			Type:      k.intType,
			Library:   k.library,
			Locations: locs,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Type != result[j].Type {
			return result[i].Type < result[j].Type
		}
		return result[i].Name < result[j].Name
	})

	d.logger.Info("detected external integrations", "count", len(result))
	return result
}

// importPresent reports whether a file imports the given library.
func importPresent(content, importName, language string) bool {
	pattern := strings.ReplaceAll(regexp.QuoteMeta(importName), `\*`, ".*")
	switch language {
	case "python":
		re := regexp.MustCompile(`(?:import|from)\s+` + pattern)
		return re.MatchString(content)
	case "javascript":
		re := regexp.MustCompile(`(?:require\s*\(["']|from\s+["'])` + pattern)
		return re.MatchString(content)
	case "go":
		// Go imports are quoted paths, possibly inside a block.
		re := regexp.MustCompile(`"` + pattern + `"`)
		return re.MatchString(content)
	}
	return false
}
