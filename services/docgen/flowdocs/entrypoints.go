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
	"strings"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

// decoratorPattern pairs a source regex with the entry point it reveals.
type decoratorPattern struct {
	re        *regexp.Regexp
	entryType string
	framework string
}

// pythonDecoratorPatterns cover Typer/Click CLI commands and
// FastAPI/Flask routes.
var pythonDecoratorPatterns = []decoratorPattern{
	{regexp.MustCompile(`@app\.command\s*\(\s*["']?(\w*)["']?\s*\)`), canonical.EntryTypeCLICommand, "typer"},
	{regexp.MustCompile(`@cli\.command\s*\(\s*["']?(\w*)["']?\s*\)`), canonical.EntryTypeCLICommand, "typer"},
	{regexp.MustCompile(`@click\.command\s*\(\s*["']?(\w*)["']?\s*\)`), canonical.EntryTypeCLICommand, "click"},
	{regexp.MustCompile(`@app\.(get|post|put|delete|patch)\s*\(\s*["']([^"']+)["']`), canonical.EntryTypeAPIEndpoint, "fastapi"},
	{regexp.MustCompile(`@router\.(get|post|put|delete|patch)\s*\(\s*["']([^"']+)["']`), canonical.EntryTypeAPIEndpoint, "fastapi"},
	{regexp.MustCompile(`@app\.route\s*\(\s*["']([^"']+)["']`), canonical.EntryTypeAPIEndpoint, "flask"},
	{regexp.MustCompile(`@bp\.route\s*\(\s*["']([^"']+)["']`), canonical.EntryTypeAPIEndpoint, "flask"},
	{regexp.MustCompile(`@blueprint\.route\s*\(\s*["']([^"']+)["']`), canonical.EntryTypeAPIEndpoint, "flask"},
}

// jsRoutePatterns cover Express-style route registrations.
var jsRoutePatterns = []decoratorPattern{
	{regexp.MustCompile(`app\.(get|post|put|delete|patch)\s*\(\s*["']([^"']+)["']`), canonical.EntryTypeAPIEndpoint, "express"},
	{regexp.MustCompile(`router\.(get|post|put|delete|patch)\s*\(\s*["']([^"']+)["']`), canonical.EntryTypeAPIEndpoint, "express"},
}

var (
	pythonDefRe     = regexp.MustCompile(`^(?:async\s+)?def\s+(\w+)\s*\(`)
	goMainRe        = regexp.MustCompile(`^\s*func\s+main\s*\(\s*\)`)
	goHandleFuncRe  = regexp.MustCompile(`http\.HandleFunc\s*\(\s*["']([^"']+)["']`)
	springMappingRe = regexp.MustCompile(`@(GetMapping|PostMapping|PutMapping|DeleteMapping|RequestMapping)\s*\(\s*["']?([^"')\s]*)`)
)

// springMethods maps Spring mapping annotations to HTTP verbs.
var springMethods = map[string]string{
	"GetMapping":    "GET",
	"PostMapping":   "POST",
	"PutMapping":    "PUT",
	"DeleteMapping": "DELETE",
}

// EntryPointDetector finds public entry surfaces: CLI commands, API
// routes, main functions, and cloud function handlers.
type EntryPointDetector struct {
	repoPath string
	logger   *logging.Logger
}

// NewEntryPointDetector returns a detector rooted at repoPath.
func NewEntryPointDetector(repoPath string, logger *logging.Logger) *EntryPointDetector {
	if logger == nil {
		logger = logging.Default()
	}
	return &EntryPointDetector{repoPath: repoPath, logger: logger}
}

// Detect scans the repository's source files for entry points. Results
// are deduplicated by (name, file, line); distinct routes declared on
// one line survive because their names differ.
func (d *EntryPointDetector) Detect() []canonical.EntryPoint {
	var all []canonical.EntryPoint

	for _, rel := range findSourceFiles(d.repoPath) {
		content, err := os.ReadFile(filepath.Join(d.repoPath, filepath.FromSlash(rel)))
		if err != nil {
			d.logger.Debug("skipping unreadable file", "path", rel, "error", err)
			continue
		}
		lines := strings.Split(string(content), "\n")

		switch strings.ToLower(filepath.Ext(rel)) {
		case ".py":
			all = append(all, detectPythonEntryPoints(rel, lines)...)
		case ".js", ".mjs", ".cjs", ".ts", ".tsx":
			all = append(all, detectJSEntryPoints(rel, lines)...)
		case ".go":
			all = append(all, detectGoEntryPoints(rel, lines)...)
		case ".java":
			all = append(all, detectJavaEntryPoints(rel, lines)...)
		}
	}

	type key struct {
		name string
		file string
		line int
	}
	seen := make(map[key]struct{})
	unique := make([]canonical.EntryPoint, 0, len(all))
	for _, ep := range all {
		k := key{ep.Name, ep.File, ep.Line}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, ep)
	}

	d.logger.Info("detected entry points", "count", len(unique))
	return unique
}

func detectPythonEntryPoints(file string, lines []string) []canonical.EntryPoint {
	var out []canonical.EntryPoint

	for i, raw := range lines {
		stripped := strings.TrimSpace(raw)

		for _, p := range pythonDecoratorPatterns {
			m := p.re.FindStringSubmatch(stripped)
			if m == nil {
				continue
			}
			funcName, funcLine, docstring := findDecoratedFunction(lines, i)
			if funcName == "" {
				continue
			}
			ep := canonical.EntryPoint{
				Type:        p.entryType,
				File:        file,
				Line:        funcLine,
				Description: docstring,
			}
			if p.entryType == canonical.EntryTypeAPIEndpoint {
				if len(m) >= 3 {
					ep.Method = strings.ToUpper(m[1])
					ep.Name = ep.Method + " " + m[2]
				} else {
					ep.Name = m[1]
				}
			} else {
				ep.Name = m[1]
				if ep.Name == "" {
					ep.Name = funcName
				}
			}
			out = append(out, ep)
		}

		if strings.Contains(stripped, "__name__") && strings.Contains(stripped, "__main__") {
			out = append(out, canonical.EntryPoint{
				Name:        "__main__",
				Type:        canonical.EntryTypeMain,
				File:        file,
				Line:        i + 1,
				Description: "Main entry point",
			})
		}
	}
	return out
}

// findDecoratedFunction locates the def following a decorator line,
// returning its name, 1-based line, and first docstring line.
func findDecoratedFunction(lines []string, decoratorIdx int) (string, int, string) {
	limit := decoratorIdx + 10
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := decoratorIdx + 1; i < limit; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "@") {
			continue
		}
		if m := pythonDefRe.FindStringSubmatch(trimmed); m != nil {
			return m[1], i + 1, extractPythonDocstringLine(lines, i)
		}
	}
	return "", 0, ""
}

// extractPythonDocstringLine returns the first line of a function's
// docstring, if one directly follows the definition.
func extractPythonDocstringLine(lines []string, defIdx int) string {
	limit := defIdx + 5
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := defIdx + 1; i < limit; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''") {
			return strings.TrimSpace(strings.Trim(trimmed, `"'`))
		}
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			break
		}
	}
	return ""
}

func detectJSEntryPoints(file string, lines []string) []canonical.EntryPoint {
	var out []canonical.EntryPoint

	for i, raw := range lines {
		for _, p := range jsRoutePatterns {
			m := p.re.FindStringSubmatch(raw)
			if m == nil {
				continue
			}
			method := strings.ToUpper(m[1])
			out = append(out, canonical.EntryPoint{
				Name:   method + " " + m[2],
				Type:   canonical.EntryTypeAPIEndpoint,
				File:   file,
				Line:   i + 1,
				Method: method,
			})
		}
	}

	// Lambda-style handlers: first export wins.
	for i, raw := range lines {
		if strings.Contains(raw, "exports.handler") || strings.Contains(raw, "export const handler") {
			out = append(out, canonical.EntryPoint{
				Name:        "handler",
				Type:        canonical.EntryTypeHandler,
				File:        file,
				Line:        i + 1,
				Description: "Lambda/Cloud function handler",
			})
			break
		}
	}
	return out
}

func detectGoEntryPoints(file string, lines []string) []canonical.EntryPoint {
	var out []canonical.EntryPoint
	for i, raw := range lines {
		if goMainRe.MatchString(raw) {
			out = append(out, canonical.EntryPoint{
				Name: "main",
				Type: canonical.EntryTypeMain,
				File: file,
				Line: i + 1,
			})
		}
		if m := goHandleFuncRe.FindStringSubmatch(raw); m != nil {
			out = append(out, canonical.EntryPoint{
				Name: m[1],
				Type: canonical.EntryTypeAPIEndpoint,
				File: file,
				Line: i + 1,
			})
		}
	}
	return out
}

func detectJavaEntryPoints(file string, lines []string) []canonical.EntryPoint {
	var out []canonical.EntryPoint
	for i, raw := range lines {
		if strings.Contains(raw, "public static void main") {
			out = append(out, canonical.EntryPoint{
				Name: "main",
				Type: canonical.EntryTypeMain,
				File: file,
				Line: i + 1,
			})
		}
		if m := springMappingRe.FindStringSubmatch(raw); m != nil {
			method := springMethods[m[1]]
			path := m[2]
			if path == "" {
				path = "/"
			}
			name := path
			if method != "" {
				name = method + " " + path
			}
			out = append(out, canonical.EntryPoint{
				Name:   name,
				Type:   canonical.EntryTypeAPIEndpoint,
				File:   file,
				Line:   i + 1,
				Method: method,
			})
		}
	}
	return out
}
