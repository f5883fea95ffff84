// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package flowdocs derives flow-based documentation inputs from a
// repository: detected modules, the internal import graph, entry points,
// external service integrations, and a mermaid flowchart of module
// relationships.
//
// Documentation is organized around modules and the flows between them
// rather than function-by-function listings.
package flowdocs

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

// languageByExtension maps source file extensions to language names.
var languageByExtension = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".java": "java",
}

// skipDirNames are directories excluded from all flow scans: tests,
// version control, virtual environments, and build outputs.
var skipDirNames = map[string]struct{}{
	"tests":         {},
	"test":          {},
	"spec":          {},
	"specs":         {},
	"__tests__":     {},
	".git":          {},
	".venv":         {},
	"venv":          {},
	"vendor":        {},
	"node_modules":  {},
	"__pycache__":   {},
	".pytest_cache": {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".eggs":         {},
	".tox":          {},
	".nox":          {},
	"dist":          {},
	"build":         {},
	"coverage":      {},
	"htmlcov":       {},
	".idea":         {},
	".vscode":       {},
}

// namePrefixesToSkip are path components dropped when deriving module
// display names.
var namePrefixesToSkip = map[string]struct{}{
	"src":      {},
	"lib":      {},
	"pkg":      {},
	"app":      {},
	"internal": {},
}

// skippablePath reports whether any component of a relative path is an
// excluded directory.
func skippablePath(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if _, skip := skipDirNames[part]; skip {
			return true
		}
		if strings.HasSuffix(part, ".egg-info") {
			return true
		}
	}
	return false
}

// findSourceFiles returns the repository's source files relative to
// repoPath, sorted, with excluded directories pruned.
func findSourceFiles(repoPath string) []string {
	var files []string
	_ = filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if _, skip := skipDirNames[d.Name()]; skip {
				return filepath.SkipDir
			}
			if strings.HasSuffix(d.Name(), ".egg-info") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := languageByExtension[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(repoPath, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files
}

// ModuleDetector finds modules by grouping source files per directory.
//
// Detection rules per language:
//   - Python: a directory with __init__.py, or any standalone .py file.
//   - JavaScript/TypeScript: any directory with source files.
//   - Go: any directory with .go files (a package).
//   - Java: any directory with .java files.
type ModuleDetector struct {
	repoPath string
	logger   *logging.Logger
}

// NewModuleDetector returns a detector rooted at repoPath.
func NewModuleDetector(repoPath string, logger *logging.Logger) *ModuleDetector {
	if logger == nil {
		logger = logging.Default()
	}
	return &ModuleDetector{repoPath: repoPath, logger: logger}
}

// Detect scans the repository and returns its modules sorted by path.
// When a structure report is supplied, modules are enriched with the
// class and function names declared in their files, and with imports.
func (d *ModuleDetector) Detect(structure *canonical.Structure) []canonical.Module {
	groups := make(map[string][]string)
	for _, rel := range findSourceFiles(d.repoPath) {
		dir := filepath.ToSlash(filepath.Dir(rel))
		groups[dir] = append(groups[dir], rel)
	}

	dirs := make([]string, 0, len(groups))
	for dir := range groups {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var modules []canonical.Module
	for _, dir := range dirs {
		files := groups[dir]
		language := primaryLanguage(files)
		if language == "" {
			continue
		}
		modules = append(modules, canonical.Module{
			Name:     deriveModuleName(dir),
			Path:     dir,
			Files:    files,
			Language: language,
		})
	}

	if structure != nil {
		enrichModules(modules, structure)
	}

	d.logger.Info("detected modules", "count", len(modules))
	return modules
}

// primaryLanguage picks the language with the most files in a group.
// Ties break lexicographically so results are stable.
func primaryLanguage(files []string) string {
	counts := make(map[string]int)
	for _, f := range files {
		if lang, ok := languageByExtension[strings.ToLower(filepath.Ext(f))]; ok {
			counts[lang]++
		}
	}
	best := ""
	bestCount := 0
	langs := make([]string, 0, len(counts))
	for lang := range counts {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if counts[lang] > bestCount {
			best = lang
			bestCount = counts[lang]
		}
	}
	return best
}

// deriveModuleName turns a directory path into a display name, dropping
// generic prefixes like src and pkg. The repository root becomes "root".
func deriveModuleName(dir string) string {
	if dir == "." || dir == "" {
		return "root"
	}
	parts := strings.Split(dir, "/")
	filtered := make([]string, 0, len(parts))
	for _, p := range parts {
		if _, skip := namePrefixesToSkip[p]; !skip {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		filtered = parts
	}
	return strings.Join(filtered, "/")
}

// enrichModules attaches structure-derived class, function, and import
// names to the modules that contain their files.
func enrichModules(modules []canonical.Module, structure *canonical.Structure) {
	fileToModule := make(map[string]*canonical.Module)
	for i := range modules {
		for _, f := range modules[i].Files {
			fileToModule[f] = &modules[i]
		}
	}

	for _, cls := range structure.Classes {
		if m, ok := fileToModule[filepath.ToSlash(cls.File)]; ok && !contains(m.Classes, cls.Name) {
			m.Classes = append(m.Classes, cls.Name)
		}
	}
	for _, fn := range structure.Functions {
		if m, ok := fileToModule[filepath.ToSlash(fn.File)]; ok && !contains(m.Functions, fn.Name) {
			m.Functions = append(m.Functions, fn.Name)
		}
	}
	for _, sm := range structure.Modules {
		if m, ok := fileToModule[filepath.ToSlash(sm.Path)]; ok {
			m.Imports = append(m.Imports, sm.Imports...)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// maxKeyMembers caps the class and function names carried into a module
// summary.
const maxKeyMembers = 5

// SummarizeModules converts detected modules into summaries ready for
// narration. Responsibility is left empty; the narration stage or a
// placeholder fills it.
func SummarizeModules(modules []canonical.Module) []canonical.ModuleSummary {
	summaries := make([]canonical.ModuleSummary, 0, len(modules))
	for _, m := range modules {
		summaries = append(summaries, canonical.ModuleSummary{
			Name:         m.Name,
			Path:         m.Path,
			Language:     m.Language,
			KeyClasses:   capList(m.Classes, maxKeyMembers),
			KeyFunctions: capList(m.Functions, maxKeyMembers),
			FileCount:    len(m.Files),
		})
	}
	return summaries
}

func capList(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}
