// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package treesitter parses source code into the canonical structure
// report using tree-sitter grammars.
//
// Supported languages: Python, JavaScript, TypeScript, Go, and Java.
// Extraction is deterministic: the same tree always produces the same
// report. Individual file parse failures are counted and skipped; they
// never abort a scan.
package treesitter

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/adapter"
	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

const toolName = "tree-sitter"

// maxSnippetLines bounds the source excerpt kept per function for
// narration context.
const maxSnippetLines = 5

// maxFileSize guards against pathological inputs.
const maxFileSize = 10 * 1024 * 1024

// extensionToLanguage maps file extensions to language names.
var extensionToLanguage = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".java": "java",
}

// defaultExcludedDirs are never descended into during a directory scan.
var defaultExcludedDirs = map[string]struct{}{
	"node_modules": {},
	".venv":        {},
	"venv":         {},
	"__pycache__":  {},
	"dist":         {},
	"build":        {},
	".git":         {},
	"vendor":       {},
	"target":       {},
}

// languageGrammar returns the tree-sitter grammar for a language name.
func languageGrammar(language string) *sitter.Language {
	switch language {
	case "python":
		return python.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	case "go":
		return golang.GetLanguage()
	case "java":
		return java.GetLanguage()
	default:
		return nil
	}
}

// Adapter parses repositories with tree-sitter.
type Adapter struct {
	logger          *logging.Logger
	excludePatterns []string
	clock           func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithExcludePatterns sets path globs excluded from the scan, on top of
// the built-in directory exclusions.
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
		logger: logging.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register installs the adapter factory into a registry.
func Register(r *adapter.Registry, isDefault bool, opts ...Option) {
	r.Register(adapter.CapabilityStructure, toolName, func() adapter.Tool {
		return New(opts...)
	}, isDefault)
}

// Name implements adapter.Tool.
func (a *Adapter) Name() string { return toolName }

// Capability implements adapter.Tool.
func (a *Adapter) Capability() adapter.Capability { return adapter.CapabilityStructure }

// CheckAvailable reports whether the bundled grammars load. The grammars
// are compiled in, so this exercises a trivial parse rather than probing
// an external binary.
func (a *Adapter) CheckAvailable(ctx context.Context) bool {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, []byte("package x"))
	if err != nil {
		return false
	}
	tree.Close()
	return true
}

// Version reports the binding identity; the grammars carry no runtime
// version string.
func (a *Adapter) Version(ctx context.Context) string { return "embedded" }

// SupportedLanguages returns the sorted language names this adapter
// handles.
func SupportedLanguages() []string {
	seen := make(map[string]struct{})
	for _, lang := range extensionToLanguage {
		seen[lang] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for lang := range seen {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Execute parses every supported source file under repoPath and
// aggregates the canonical structure report. Files iterate in sorted
// order so output is reproducible.
func (a *Adapter) Execute(ctx context.Context, repoPath string) (*canonical.Structure, error) {
	structure := &canonical.Structure{}
	filesParsed := 0
	filesFailed := 0
	languagesSeen := make(map[string]struct{})

	for _, path := range findSourceFiles(repoPath, a.excludePatterns) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		language := extensionToLanguage[strings.ToLower(filepath.Ext(path))]
		content, err := os.ReadFile(path)
		if err != nil || int64(len(content)) > maxFileSize || !utf8.Valid(content) {
			a.logger.Debug("skipping unreadable file", "path", path)
			filesFailed++
			continue
		}

		rel, err := filepath.Rel(repoPath, path)
		if err != nil {
			rel = path
		}

		result, err := parseFile(ctx, rel, language, content)
		if err != nil {
			a.logger.Debug("parse failed", "path", path, "error", err)
			filesFailed++
			continue
		}

		filesParsed++
		languagesSeen[language] = struct{}{}
		structure.AddModule(result.module)
		for _, c := range result.classes {
			structure.AddClass(c)
		}
		for _, f := range result.functions {
			structure.AddFunction(f)
		}
		for _, e := range result.entryPoints {
			structure.AddEntryPoint(e)
		}
	}

	languages := make([]string, 0, len(languagesSeen))
	for lang := range languagesSeen {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	structure.Source = &canonical.StructureSource{
		Tool:        toolName,
		Languages:   languages,
		FilesParsed: filesParsed,
		FilesFailed: filesFailed,
		ParsedAt:    a.clock().UTC(),
	}

	a.logger.Info("structure parse complete",
		"files_parsed", filesParsed,
		"files_failed", filesFailed,
		"languages", languages)
	return structure, nil
}

// splitExcludePatterns separates caller patterns into directory names and
// file globs. A pattern containing "**" names directories to prune (e.g.
// "generated/**" excludes any directory called "generated"); anything
// else matches file names.
func splitExcludePatterns(patterns []string) (map[string]struct{}, []string) {
	dirs := make(map[string]struct{}, len(patterns))
	var fileGlobs []string
	for _, pattern := range patterns {
		if !strings.Contains(pattern, "**") {
			fileGlobs = append(fileGlobs, pattern)
			continue
		}
		trimmed := strings.ReplaceAll(pattern, "**/", "")
		trimmed = strings.ReplaceAll(trimmed, "/**", "")
		for _, part := range strings.Split(strings.Trim(trimmed, "/"), "/") {
			if part != "" && !strings.HasPrefix(part, "*") {
				dirs[part] = struct{}{}
			}
		}
	}
	return dirs, fileGlobs
}

// findSourceFiles walks repoPath collecting supported source files in
// sorted order, skipping excluded directories and caller-excluded paths.
func findSourceFiles(repoPath string, excludePatterns []string) []string {
	excludedDirs, fileGlobs := splitExcludePatterns(excludePatterns)

	var files []string
	_ = filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if _, excluded := defaultExcludedDirs[d.Name()]; excluded {
				return filepath.SkipDir
			}
			if _, excluded := excludedDirs[d.Name()]; excluded {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := extensionToLanguage[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		for _, glob := range fileGlobs {
			if matched, _ := filepath.Match(glob, d.Name()); matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files
}

// fileResult holds the extraction output for one file.
type fileResult struct {
	module      canonical.StructureModule
	classes     []canonical.Class
	functions   []canonical.Function
	entryPoints []canonical.StructureEntryPoint
}

// parseFile parses one file and dispatches to the language extractor.
func parseFile(ctx context.Context, relPath, language string, content []byte) (*fileResult, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(languageGrammar(language))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	ex := &extractor{
		path:    relPath,
		content: content,
	}

	root := tree.RootNode()
	switch language {
	case "python":
		ex.visitPython(root)
	case "javascript", "typescript":
		ex.visitJavaScript(root)
	case "go":
		ex.visitGo(root)
	case "java":
		ex.visitJava(root)
	}

	if language == "python" {
		ex.detectPythonMainGuard()
	}

	name := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	return &fileResult{
		module: canonical.StructureModule{
			Name:     name,
			Path:     relPath,
			Language: language,
			Imports:  ex.imports,
		},
		classes:     ex.classes,
		functions:   ex.functions,
		entryPoints: ex.entryPoints,
	}, nil
}
