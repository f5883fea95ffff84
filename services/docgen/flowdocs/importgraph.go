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
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

var (
	pythonFromRe   = regexp.MustCompile(`^from\s+([\w.]+)\s+import`)
	pythonImportRe = regexp.MustCompile(`^import\s+([\w.]+)`)
	jsFromRe       = regexp.MustCompile(`from\s+['"]([^'"]+)['"]`)
	jsRequireRe    = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	goQuotedRe     = regexp.MustCompile(`"([^"]+)"`)
	javaImportRe   = regexp.MustCompile(`^import\s+(?:static\s+)?([\w.]+);?`)
)

// sourceExtensions are stripped when normalizing a file path to a module
// name.
var sourceExtensions = map[string]struct{}{
	".py": {}, ".js": {}, ".mjs": {}, ".cjs": {},
	".ts": {}, ".tsx": {}, ".go": {}, ".java": {},
}

// GraphBuilder constructs the directed graph of internal module imports.
//
// The known-module set is derived from the structure report's file paths
// plus the detected module list; imports resolving outside that set are
// external packages and never appear in the graph.
type GraphBuilder struct {
	logger *logging.Logger
}

// NewGraphBuilder returns a builder.
func NewGraphBuilder(logger *logging.Logger) *GraphBuilder {
	if logger == nil {
		logger = logging.Default()
	}
	return &GraphBuilder{logger: logger}
}

// Build produces the import graph for a parsed repository. Nodes are
// sorted and edges deduplicated, so output is stable for a fixed input.
func (b *GraphBuilder) Build(structure *canonical.Structure, modules []canonical.Module) canonical.ImportGraph {
	internal := internalModuleSet(structure, modules)

	nodes := make(map[string]struct{})
	edgeSet := make(map[canonical.ImportEdge]struct{})

	for _, sm := range structure.Modules {
		moduleName := normalizeModulePath(sm.Path)
		if moduleName == "" {
			continue
		}
		nodes[moduleName] = struct{}{}

		for _, stmt := range sm.Imports {
			for _, imported := range parseImportStatement(stmt, sm.Language) {
				normalized := normalizeImportedName(imported)
				if normalized == "" {
					continue
				}
				if _, ok := internal[normalized]; !ok {
					continue
				}
				nodes[normalized] = struct{}{}
				edgeSet[canonical.ImportEdge{From: moduleName, To: normalized}] = struct{}{}
			}
		}
	}

	sortedNodes := make([]string, 0, len(nodes))
	for n := range nodes {
		sortedNodes = append(sortedNodes, n)
	}
	sort.Strings(sortedNodes)

	edges := make([]canonical.ImportEdge, 0, len(edgeSet))
	for e := range edgeSet {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	b.logger.Info("built import graph", "nodes", len(sortedNodes), "edges", len(edges))
	return canonical.ImportGraph{Nodes: sortedNodes, Edges: edges}
}

// internalModuleSet collects every name an internal import may resolve
// to: normalized file paths, their parent packages, and detected module
// names and paths.
func internalModuleSet(structure *canonical.Structure, modules []canonical.Module) map[string]struct{} {
	internal := make(map[string]struct{})

	add := func(name string) {
		if name != "" {
			internal[name] = struct{}{}
		}
	}

	for _, sm := range structure.Modules {
		name := normalizeModulePath(sm.Path)
		if name == "" {
			continue
		}
		add(name)
		parts := strings.Split(name, "/")
		for i := 1; i < len(parts); i++ {
			add(strings.Join(parts[:i], "/"))
		}
	}

	for _, m := range modules {
		add(m.Name)
		add(normalizeModulePath(m.Path))
	}

	return internal
}

// normalizeModulePath converts a repository-relative file path into a
// module name: extension stripped, __init__ collapsed to its package,
// generic source-root prefixes removed.
func normalizeModulePath(path string) string {
	if path == "" {
		return ""
	}
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")

	if ext := strings.ToLower(filepath.Ext(path)); ext != "" {
		if _, ok := sourceExtensions[ext]; ok {
			path = strings.TrimSuffix(path, filepath.Ext(path))
		}
	}

	path = strings.TrimSuffix(path, "/__init__")

	for _, prefix := range []string{"src/", "lib/", "pkg/", "app/", "internal/"} {
		if strings.HasPrefix(path, prefix) {
			path = path[len(prefix):]
			break
		}
	}
	return path
}

// parseImportStatement extracts imported module names from a raw import
// statement for the given language. External-looking imports are kept
// here; filtering against the internal set happens in Build.
func parseImportStatement(stmt, language string) []string {
	switch language {
	case "python":
		return parsePythonImport(stmt)
	case "javascript", "typescript":
		return parseJSImport(stmt)
	case "go":
		return parseGoImport(stmt)
	case "java":
		return parseJavaImport(stmt)
	}
	return nil
}

func parsePythonImport(stmt string) []string {
	stmt = strings.TrimSpace(stmt)
	if m := pythonFromRe.FindStringSubmatch(stmt); m != nil {
		// Relative imports are resolved by the caller's package, skip.
		if strings.HasPrefix(m[1], ".") {
			return nil
		}
		return []string{strings.ReplaceAll(m[1], ".", "/")}
	}
	if m := pythonImportRe.FindStringSubmatch(stmt); m != nil {
		return []string{strings.ReplaceAll(m[1], ".", "/")}
	}
	return nil
}

func parseJSImport(stmt string) []string {
	stmt = strings.TrimSpace(stmt)
	if m := jsFromRe.FindStringSubmatch(stmt); m != nil {
		// Bare specifiers are external packages; only relative paths can
		// be internal.
		if strings.HasPrefix(m[1], ".") {
			return []string{strings.TrimLeft(m[1], "./")}
		}
		return nil
	}
	if m := jsRequireRe.FindStringSubmatch(stmt); m != nil {
		if strings.HasPrefix(m[1], ".") {
			return []string{strings.TrimLeft(m[1], "./")}
		}
	}
	return nil
}

func parseGoImport(stmt string) []string {
	var out []string
	for _, m := range goQuotedRe.FindAllStringSubmatch(stmt, -1) {
		// Paths whose first segment contains a dot are remote modules.
		first := strings.SplitN(m[1], "/", 2)[0]
		if !strings.Contains(first, ".") {
			out = append(out, m[1])
		}
	}
	return out
}

func parseJavaImport(stmt string) []string {
	stmt = strings.TrimSpace(stmt)
	m := javaImportRe.FindStringSubmatch(stmt)
	if m == nil {
		return nil
	}
	parts := strings.Split(m[1], ".")
	if len(parts) < 2 {
		return nil
	}
	// The trailing segment is the class; the package is what imports.
	return []string{strings.Join(parts[:len(parts)-1], "/")}
}

// normalizeImportedName prepares an imported name for comparison against
// the internal set. Parent-relative imports cannot be resolved reliably
// and are dropped.
func normalizeImportedName(imported string) string {
	if imported == "" {
		return ""
	}
	imported = filepath.ToSlash(imported)
	if strings.HasPrefix(imported, "../") {
		return ""
	}
	return strings.TrimPrefix(imported, "./")
}
