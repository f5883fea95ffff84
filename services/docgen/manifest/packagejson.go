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
)

// packageJSON is the subset of package.json this parser reads.
type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// parsePackageJSON reads an npm manifest. The language is reported as
// TypeScript when typescript appears in either dependency block or a
// tsconfig.json sits next to the manifest, JavaScript otherwise.
func (p *Parser) parsePackageJSON(path string) (*fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}

	hasTypescript := false
	if _, ok := pkg.Dependencies["typescript"]; ok {
		hasTypescript = true
	}
	if _, ok := pkg.DevDependencies["typescript"]; ok {
		hasTypescript = true
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "tsconfig.json")); err == nil {
		hasTypescript = true
	}

	langName := "JavaScript"
	if hasTypescript {
		langName = "TypeScript"
	}

	res := &fileResult{language: &LanguageInfo{Name: langName}}

	for name, version := range pkg.Dependencies {
		cleaned := cleanVersion(version)
		res.deps = append(res.deps, Dependency{
			Name:       name,
			Version:    cleaned,
			Ecosystem:  "npm",
			SourceFile: path,
		})
		if display, ok := knownFrameworks["npm"][name]; ok {
			res.frameworks = append(res.frameworks, Framework{
				Name:     display,
				Version:  cleaned,
				Language: langName,
			})
		}
	}

	for name, version := range pkg.DevDependencies {
		res.devDeps = append(res.devDeps, Dependency{
			Name:       name,
			Version:    cleanVersion(version),
			Ecosystem:  "npm",
			SourceFile: path,
		})
	}

	return res, nil
}
