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
	"os"
	"regexp"
	"strings"
)

var (
	// requirementRe splits "package==1.2" style lines into name and
	// version. The version group is optional.
	requirementRe = regexp.MustCompile(`^([a-zA-Z0-9_-]+)(?:[<>=!]+(.+))?`)

	requiresPythonRe = regexp.MustCompile(`requires-python\s*=\s*"([^"]+)"`)
	projectDepsRe    = regexp.MustCompile(`(?s)\[project\].*?dependencies\s*=\s*\[(.*?)\]`)
	optionalDevRe    = regexp.MustCompile(`(?s)\[project\.optional-dependencies\].*?dev\s*=\s*\[(.*?)\]`)
)

// parseRequirementsTxt reads a pip requirements file. Comment and blank
// lines are skipped; names are lowercased per pypi convention.
func (p *Parser) parseRequirementsTxt(path string) (*fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	res := &fileResult{language: &LanguageInfo{Name: "Python"}}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := requirementRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.ToLower(m[1])
		version := m[2]
		res.deps = append(res.deps, Dependency{
			Name:       name,
			Version:    version,
			Ecosystem:  "pypi",
			SourceFile: path,
		})
		if display, ok := knownFrameworks["pypi"][name]; ok {
			res.frameworks = append(res.frameworks, Framework{
				Name:     display,
				Version:  version,
				Language: "Python",
			})
		}
	}

	return res, nil
}

// parsePyprojectToml reads PEP 621 metadata with targeted patterns rather
// than a full TOML parse: the [project] dependencies array, the dev group
// of optional-dependencies, and requires-python.
func (p *Parser) parsePyprojectToml(path string) (*fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)

	lang := &LanguageInfo{Name: "Python"}
	if m := requiresPythonRe.FindStringSubmatch(content); m != nil {
		lang.Version = m[1]
	}
	res := &fileResult{language: lang}

	if m := projectDepsRe.FindStringSubmatch(content); m != nil {
		for _, entry := range tomlArrayEntries(m[1]) {
			if dep, ok := parseRequirement(entry, path); ok {
				res.deps = append(res.deps, dep)
				if display, found := knownFrameworks["pypi"][dep.Name]; found {
					res.frameworks = append(res.frameworks, Framework{
						Name:     display,
						Version:  dep.Version,
						Language: "Python",
					})
				}
			}
		}
	}

	if m := optionalDevRe.FindStringSubmatch(content); m != nil {
		for _, entry := range tomlArrayEntries(m[1]) {
			if dep, ok := parseRequirement(entry, path); ok {
				res.devDeps = append(res.devDeps, dep)
			}
		}
	}

	return res, nil
}

// tomlArrayEntries strips quotes and trailing commas from the lines of an
// inline TOML string array.
func tomlArrayEntries(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, ",")
		line = strings.Trim(line, `"'`)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseRequirement parses a single PEP 508 style requirement string.
func parseRequirement(entry, sourceFile string) (Dependency, bool) {
	m := requirementRe.FindStringSubmatch(entry)
	if m == nil {
		return Dependency{}, false
	}
	return Dependency{
		Name:       strings.ToLower(m[1]),
		Version:    m[2],
		Ecosystem:  "pypi",
		SourceFile: sourceFile,
	}, true
}
