// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package manifest parses dependency manifests to extract a repository's
// technology stack.
//
// Supported manifests: package.json (npm), requirements.txt and
// pyproject.toml (pypi), go.mod (go), pom.xml and build.gradle (maven).
// Parsing is lenient: a malformed manifest is logged and skipped, never
// fatal, because documentation for the rest of the repository is still
// worth producing.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/repodoc/pkg/logging"
)

// Dependency is a single declared dependency from a manifest file.
type Dependency struct {
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	Ecosystem  string `json:"ecosystem"`
	SourceFile string `json:"source_file"`

	// License is backfilled from the SBOM scan; manifests rarely declare
	// one.
	License string `json:"license,omitempty"`
}

// Framework is a recognized web or application framework.
type Framework struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Language string `json:"language"`
}

// LanguageInfo is a detected language with its declared version, when the
// manifest states one.
type LanguageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`

	// FileCount is filled from the structure parse, not the manifest.
	FileCount int `json:"file_count,omitempty"`
}

// TechStack aggregates everything the manifest scan learned about a
// repository.
type TechStack struct {
	Languages       []LanguageInfo `json:"languages"`
	Dependencies    []Dependency   `json:"dependencies"`
	DevDependencies []Dependency   `json:"dev_dependencies"`
	Frameworks      []Framework    `json:"frameworks"`
}

// knownFrameworks maps ecosystem to package name (or package prefix for go
// and maven) to display name.
var knownFrameworks = map[string]map[string]string{
	"npm": {
		"express":      "Express.js",
		"fastify":      "Fastify",
		"koa":          "Koa",
		"next":         "Next.js",
		"react":        "React",
		"vue":          "Vue.js",
		"angular":      "Angular",
		"svelte":       "Svelte",
		"nestjs":       "NestJS",
		"@nestjs/core": "NestJS",
	},
	"pypi": {
		"fastapi":   "FastAPI",
		"flask":     "Flask",
		"django":    "Django",
		"starlette": "Starlette",
		"tornado":   "Tornado",
		"pyramid":   "Pyramid",
		"aiohttp":   "aiohttp",
	},
}

// frameworkPrefix associates a package path or group prefix with a display
// name. Ordered most specific first so overlapping prefixes match
// deterministically.
type frameworkPrefix struct {
	prefix  string
	display string
}

var goFrameworkPrefixes = []frameworkPrefix{
	{"github.com/gin-gonic/gin", "Gin"},
	{"github.com/labstack/echo", "Echo"},
	{"github.com/gofiber/fiber", "Fiber"},
	{"github.com/gorilla/mux", "Gorilla Mux"},
}

var mavenFrameworkPrefixes = []frameworkPrefix{
	{"org.springframework.boot", "Spring Boot"},
	{"org.springframework", "Spring Framework"},
	{"io.quarkus", "Quarkus"},
	{"io.micronaut", "Micronaut"},
}

// fileResult is what each per-manifest parser returns.
type fileResult struct {
	deps       []Dependency
	devDeps    []Dependency
	language   *LanguageInfo
	frameworks []Framework
}

// Parser scans a directory for dependency manifests.
type Parser struct {
	logger *logging.Logger
}

// NewParser returns a parser logging through the given logger, or the
// package default when nil.
func NewParser(logger *logging.Logger) *Parser {
	if logger == nil {
		logger = logging.Default()
	}
	return &Parser{logger: logger}
}

// ParseDirectory parses every recognized manifest at the repository root,
// plus nested package.json files for monorepo layouts. Results accumulate
// across manifests; languages deduplicate by name with the first sighting
// winning.
func (p *Parser) ParseDirectory(dir string) *TechStack {
	stack := &TechStack{}
	languages := make(map[string]LanguageInfo)
	var languageOrder []string

	parsers := []struct {
		filename string
		parse    func(path string) (*fileResult, error)
	}{
		{"package.json", p.parsePackageJSON},
		{"requirements.txt", p.parseRequirementsTxt},
		{"pyproject.toml", p.parsePyprojectToml},
		{"go.mod", p.parseGoMod},
		{"pom.xml", p.parsePomXML},
		{"build.gradle", p.parseBuildGradle},
	}

	for _, entry := range parsers {
		path := filepath.Join(dir, entry.filename)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		res, err := entry.parse(path)
		if err != nil {
			p.logger.Warn("failed to parse manifest", "path", path, "error", err)
			continue
		}
		stack.Dependencies = append(stack.Dependencies, res.deps...)
		stack.DevDependencies = append(stack.DevDependencies, res.devDeps...)
		stack.Frameworks = append(stack.Frameworks, res.frameworks...)
		if res.language != nil {
			if _, seen := languages[res.language.Name]; !seen {
				languages[res.language.Name] = *res.language
				languageOrder = append(languageOrder, res.language.Name)
			}
		}
		p.logger.Debug("parsed manifest", "path", path,
			"deps", len(res.deps), "dev_deps", len(res.devDeps))
	}

	for _, nested := range findNestedPackageJSON(dir) {
		res, err := p.parsePackageJSON(nested)
		if err != nil {
			p.logger.Debug("failed to parse nested package.json", "path", nested, "error", err)
			continue
		}
		stack.Dependencies = append(stack.Dependencies, res.deps...)
		stack.DevDependencies = append(stack.DevDependencies, res.devDeps...)
		stack.Frameworks = append(stack.Frameworks, res.frameworks...)
	}

	for _, name := range languageOrder {
		stack.Languages = append(stack.Languages, languages[name])
	}
	return stack
}

// findNestedPackageJSON walks the tree for package.json files below the
// root, skipping anything under node_modules.
func findNestedPackageJSON(dir string) []string {
	var found []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "package.json" && filepath.Dir(path) != dir {
			found = append(found, path)
		}
		return nil
	})
	return found
}

// cleanVersion strips semver range operators so stored versions are plain.
func cleanVersion(version string) string {
	version = strings.TrimSpace(version)
	switch {
	case strings.HasPrefix(version, "^"), strings.HasPrefix(version, "~"):
		version = version[1:]
	}
	switch {
	case strings.HasPrefix(version, ">="), strings.HasPrefix(version, "<="):
		version = version[2:]
	case strings.HasPrefix(version, ">"), strings.HasPrefix(version, "<"),
		strings.HasPrefix(version, "="):
		version = version[1:]
	}
	return version
}
