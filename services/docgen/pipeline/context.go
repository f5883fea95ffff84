// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/repodoc/pkg/logging"
)

// contextFiles are read in priority order for the holistic call. They
// tell the model what documentation and configuration claim the system
// does, alongside what the code shows.
var contextFiles = []string{
	"README.md",
	"README.rst",
	"README.txt",
	"README",
	"pyproject.toml",
	"setup.py",
	"setup.cfg",
	"package.json",
	"go.mod",
	"docker-compose.yml",
	"docker-compose.yaml",
	"Dockerfile",
	".github/workflows/ci.yml",
	".github/workflows/ci.yaml",
	".gitlab-ci.yml",
	".env.example",
	".env.template",
	"main.tf",
	"terraform/main.tf",
	"infra/main.tf",
}

const (
	// maxContextFileSize skips individual files larger than 50KB.
	maxContextFileSize = 50_000

	// maxContextTotalSize stops collection once 200KB is gathered.
	maxContextTotalSize = 200_000
)

var documentationSuffixes = []string{".md", ".rst", ".txt", "README"}

var configSuffixes = []string{
	".yaml", ".yml", ".json", ".toml", ".cfg", ".tf", ".py", "Dockerfile", "go.mod",
}

func fileTypeLabel(name string) string {
	for _, s := range documentationSuffixes {
		if strings.HasSuffix(name, s) {
			return "REFERENCE - may be outdated"
		}
	}
	for _, s := range configSuffixes {
		if strings.HasSuffix(name, s) {
			return "AUTHORITATIVE CONFIG"
		}
	}
	return "CONTEXT"
}

// CollectConfigContext gathers key documentation and configuration files
// into a labeled context block for the holistic overview. Returns an
// empty string when nothing useful exists.
func CollectConfigContext(repoPath string, logger *logging.Logger) string {
	if logger == nil {
		logger = logging.Default()
	}

	type collected struct {
		name    string
		content string
	}
	var files []collected
	totalSize := 0

	for _, rel := range contextFiles {
		path := filepath.Join(repoPath, rel)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Debug("skipping unreadable context file", "file", rel, "error", err)
			continue
		}
		if len(data) > maxContextFileSize {
			logger.Debug("skipping oversized context file", "file", rel, "bytes", len(data))
			continue
		}
		if totalSize+len(data) > maxContextTotalSize {
			logger.Debug("context size limit reached, stopping collection")
			break
		}
		files = append(files, collected{name: rel, content: string(data)})
		totalSize += len(data)
	}

	if len(files) == 0 {
		return ""
	}

	var b strings.Builder
	divider := strings.Repeat("=", 80)
	b.WriteString("\n" + divider + "\n")
	b.WriteString("CONFIGURATION AND DOCUMENTATION CONTEXT\n")
	b.WriteString(divider + "\n\n")
	b.WriteString("The following files provide additional context about this project.\n\n")
	b.WriteString("SOURCE OF TRUTH PRECEDENCE (use this when analyzing):\n")
	b.WriteString("1. Code analysis (structure, imports) - highest authority\n")
	b.WriteString("2. Structured config (YAML, JSON, TOML) - authoritative for runtime behavior\n")
	b.WriteString("3. Documentation (README.md, *.md) - reference only, may be outdated\n\n")
	b.WriteString("IMPORTANT: Markdown documentation files may contain aspirational or outdated\n")
	b.WriteString("descriptions. When there is a conflict between what a .md file says vs what\n")
	b.WriteString("config files (YAML, JSON, TOML) or code shows, trust the config/code.\n\n")

	fileDivider := strings.Repeat("-", 40)
	for _, f := range files {
		b.WriteString(fileDivider + "\n")
		b.WriteString("File: " + f.name + " [" + fileTypeLabel(f.name) + "]\n")
		b.WriteString(fileDivider + "\n")
		b.WriteString(strings.TrimSpace(f.content) + "\n\n")
	}

	logger.Info("collected config context", "files", len(files), "bytes", totalSize)
	return strings.TrimRight(b.String(), "\n")
}
