// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/AleutianAI/repodoc/pkg/logging"
)

var (
	directNameRe = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)`)

	mavenCoordRe = regexp.MustCompile(`(?s)<dependency>\s*<groupId>([^<]+)</groupId>\s*<artifactId>([^<]+)</artifactId>`)

	gradleAnyDepRe = regexp.MustCompile(`(?:implementation|compile|testImplementation)\s+['"]([^'"]+)['"]`)
)

// DirectResolver collects the names declared in manifest files so SBOM
// adapters can mark packages as direct rather than transitive.
//
// Matching rules differ per ecosystem:
//   - npm: exact name match, including the @scope/ prefix
//   - pypi: case-insensitive with hyphen, underscore, and dot equivalent
//   - go: exact module path
//   - maven: exact group:artifact coordinate
type DirectResolver struct {
	logger *logging.Logger
	direct map[string]map[string]struct{}
}

// NewDirectResolver returns a resolver with empty ecosystem sets.
func NewDirectResolver(logger *logging.Logger) *DirectResolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectResolver{
		logger: logger,
		direct: map[string]map[string]struct{}{
			"npm":   {},
			"pypi":  {},
			"go":    {},
			"maven": {},
		},
	}
}

// ResolveFromDirectory scans the repository root (and nested package.json
// files outside node_modules) and records every declared dependency name.
// Malformed manifests are skipped.
func (r *DirectResolver) ResolveFromDirectory(dir string) {
	r.collectPackageJSON(filepath.Join(dir, "package.json"))
	r.collectRequirements(filepath.Join(dir, "requirements.txt"))
	r.collectPyproject(filepath.Join(dir, "pyproject.toml"))
	r.collectGoMod(filepath.Join(dir, "go.mod"))
	r.collectPom(filepath.Join(dir, "pom.xml"))
	r.collectGradle(filepath.Join(dir, "build.gradle"))

	for _, nested := range findNestedPackageJSON(dir) {
		r.collectPackageJSON(nested)
	}

	r.logger.Debug("direct dependencies resolved",
		"npm", len(r.direct["npm"]),
		"pypi", len(r.direct["pypi"]),
		"go", len(r.direct["go"]),
		"maven", len(r.direct["maven"]))
}

// IsDirect reports whether a package name is declared in a manifest for
// the given ecosystem.
func (r *DirectResolver) IsDirect(name, ecosystem string) bool {
	names, ok := r.direct[ecosystem]
	if !ok {
		return false
	}
	if _, found := names[name]; found {
		return true
	}
	if ecosystem == "pypi" {
		normalized := normalizePyPIName(name)
		for declared := range names {
			if normalizePyPIName(declared) == normalized {
				return true
			}
		}
	}
	return false
}

// DirectNames returns the declared names for an ecosystem.
func (r *DirectResolver) DirectNames(ecosystem string) []string {
	names := make([]string, 0, len(r.direct[ecosystem]))
	for name := range r.direct[ecosystem] {
		names = append(names, name)
	}
	return names
}

// normalizePyPIName lowercases and folds hyphen, underscore, and dot,
// which pypi treats as equivalent.
func normalizePyPIName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, ".", "_")
	return name
}

func (r *DirectResolver) add(ecosystem, name string) {
	r.direct[ecosystem][name] = struct{}{}
}

func (r *DirectResolver) collectPackageJSON(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		r.logger.Debug("skipping unparseable package.json", "path", path, "error", err)
		return
	}
	for name := range pkg.Dependencies {
		r.add("npm", name)
	}
	for name := range pkg.DevDependencies {
		r.add("npm", name)
	}
}

func (r *DirectResolver) collectRequirements(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := directNameRe.FindStringSubmatch(line); m != nil {
			r.add("pypi", strings.ToLower(m[1]))
		}
	}
}

func (r *DirectResolver) collectPyproject(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	content := string(data)
	for _, re := range []*regexp.Regexp{projectDepsRe, optionalDevRe} {
		m := re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		for _, entry := range tomlArrayEntries(m[1]) {
			if nm := directNameRe.FindStringSubmatch(entry); nm != nil {
				r.add("pypi", strings.ToLower(nm[1]))
			}
		}
	}
}

func (r *DirectResolver) collectGoMod(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	mod, err := modfile.Parse(path, data, nil)
	if err != nil {
		r.logger.Debug("skipping unparseable go.mod", "path", path, "error", err)
		return
	}
	for _, req := range mod.Require {
		if !req.Indirect {
			r.add("go", req.Mod.Path)
		}
	}
}

func (r *DirectResolver) collectPom(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, m := range mavenCoordRe.FindAllStringSubmatch(string(data), -1) {
		r.add("maven", m[1]+":"+m[2])
	}
}

func (r *DirectResolver) collectGradle(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, m := range gradleAnyDepRe.FindAllStringSubmatch(string(data), -1) {
		if name, _, ok := splitGradleCoordinate(m[1]); ok {
			r.add("maven", name)
		}
	}
}
