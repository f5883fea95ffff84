// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package repomix wraps the Repomix CLI as a compression adapter.
//
// Repomix packs a codebase into a single AI-friendly document; with
// --compress it keeps tree-sitter signature skeletons and drops function
// bodies, cutting tokens by roughly two thirds while preserving structure
// for holistic analysis.
package repomix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/adapter"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/shell"
	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

const (
	toolName = "repomix"

	compressTimeout = 5 * time.Minute
	versionTimeout  = 10 * time.Second
)

// DefaultExcludePatterns keeps non-source trees out of the compressed
// output.
var DefaultExcludePatterns = []string{
	"tests/*",
	"test/*",
	"spec/*",
	"specs/*",
	"__tests__/*",
	"node_modules/*",
	"dist/*",
	"build/*",
	"coverage/*",
	"__pycache__/*",
	".venv/*",
	"venv/*",
	"vendor/*",
	".git/*",
	".tox/*",
	".mypy_cache/*",
	".pytest_cache/*",
	"*.egg-info/*",
	".eggs/*",
}

var (
	numberRe      = regexp.MustCompile(`([\d,]+)`)
	semverRe      = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)
)

// lookPath is swappable in tests.
var lookPath = exec.LookPath

// Adapter invokes repomix and produces compressed codebases.
type Adapter struct {
	logger          *logging.Logger
	excludePatterns []string
	run             shell.RunFunc
	clock           func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithExcludePatterns replaces the default exclude list.
func WithExcludePatterns(patterns []string) Option {
	return func(a *Adapter) { a.excludePatterns = patterns }
}

// AddExcludePatterns appends run-specific patterns to the exclude list.
func (a *Adapter) AddExcludePatterns(patterns ...string) {
	a.excludePatterns = append(a.excludePatterns, patterns...)
}

// New returns a ready adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		logger:          logging.Default(),
		excludePatterns: append([]string(nil), DefaultExcludePatterns...),
		run:             shell.Run,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register installs the adapter factory into a registry.
func Register(r *adapter.Registry, isDefault bool, opts ...Option) {
	r.Register(adapter.CapabilityCompression, toolName, func() adapter.Tool {
		return New(opts...)
	}, isDefault)
}

// Name implements adapter.Tool.
func (a *Adapter) Name() string { return toolName }

// Capability implements adapter.Tool.
func (a *Adapter) Capability() adapter.Capability { return adapter.CapabilityCompression }

// command resolves how to invoke repomix: a global install when present,
// falling back to npx.
func (a *Adapter) command() ([]string, error) {
	if _, err := lookPath("repomix"); err == nil {
		return []string{"repomix"}, nil
	}
	if _, err := lookPath("npx"); err == nil {
		return []string{"npx", "repomix"}, nil
	}
	return nil, &adapter.NotAvailableError{
		ToolName: toolName,
		Reason:   "install via: npm install -g repomix",
	}
}

// CheckAvailable reports whether repomix is reachable directly or through
// npx.
func (a *Adapter) CheckAvailable(ctx context.Context) bool {
	_, err := a.command()
	return err == nil
}

// Version runs `repomix --version`.
func (a *Adapter) Version(ctx context.Context) string {
	cmd, err := a.command()
	if err != nil {
		return ""
	}
	res, err := a.run(ctx, versionTimeout, "", cmd[0], append(cmd[1:], "--version")...)
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	return strings.SplitN(strings.TrimSpace(res.Stdout), "\n", 2)[0]
}

// Execute compresses repoPath and returns the canonical result. The
// packed document is written to a temp file, read back, and removed.
func (a *Adapter) Execute(ctx context.Context, repoPath string) (*canonical.CompressedCodebase, error) {
	cmd, err := a.command()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(repoPath); err != nil {
		return nil, fmt.Errorf("repository path does not exist: %s", repoPath)
	}

	tempDir, err := os.MkdirTemp("", "repomix_")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)
	outputPath := filepath.Join(tempDir, "repomix-output.txt")

	args := append(cmd[1:], "--compress", "--output", outputPath)
	for _, pattern := range a.excludePatterns {
		args = append(args, "--ignore", pattern)
	}

	a.logger.Info("running repomix compression", "path", repoPath)
	res, err := a.run(ctx, compressTimeout, repoPath, cmd[0], args...)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  fmt.Sprintf("compression timed out after %s", compressTimeout),
			ExitCode: -1,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}
	if err != nil || res.ExitCode != 0 {
		return nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  "compression failed",
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  fmt.Sprintf("output file not found: %s", outputPath),
			Err:      err,
		}
	}

	compressed := &canonical.CompressedCodebase{
		Content:          string(content),
		TokenCount:       extractTokenCount(res.Stdout),
		FileCount:        extractFileCount(res.Stdout),
		ExcludedPatterns: append([]string(nil), a.excludePatterns...),
		SourcePath:       repoPath,
		Timestamp:        a.clock().UTC(),
		ToolVersion:      extractVersion(res.Stdout),
	}

	a.logger.Info("repomix compression complete",
		"tokens", compressed.TokenCount,
		"files", compressed.FileCount)
	return compressed, nil
}

// extractTokenCount scrapes the token total from repomix's progress
// output.
func extractTokenCount(stdout string) int {
	for _, line := range strings.Split(stdout, "\n") {
		if strings.Contains(strings.ToLower(line), "token") {
			if n, ok := firstNumber(line); ok {
				return n
			}
		}
	}
	return 0
}

// extractFileCount scrapes the processed-file total.
func extractFileCount(stdout string) int {
	for _, line := range strings.Split(stdout, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "file") &&
			(strings.Contains(lower, "processed") || strings.Contains(lower, "packed")) {
			if n, ok := firstNumber(line); ok {
				return n
			}
		}
	}
	return 0
}

// extractVersion scrapes a semver token from any line mentioning repomix.
func extractVersion(stdout string) string {
	for _, line := range strings.Split(stdout, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "repomix") &&
			(strings.Contains(lower, "v") || strings.Contains(lower, "version")) {
			if m := semverRe.FindStringSubmatch(line); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

func firstNumber(line string) (int, bool) {
	m := numberRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
