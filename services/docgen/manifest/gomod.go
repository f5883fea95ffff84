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
	"strings"

	"golang.org/x/mod/modfile"
)

// parseGoMod reads a go.mod using the official modfile parser. Indirect
// requirements are excluded; the Go directive supplies the language
// version.
func (p *Parser) parseGoMod(path string) (*fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mod, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, err
	}

	lang := &LanguageInfo{Name: "Go"}
	if mod.Go != nil {
		lang.Version = mod.Go.Version
	}
	res := &fileResult{language: lang}

	for _, req := range mod.Require {
		if req.Indirect {
			continue
		}
		res.deps = append(res.deps, Dependency{
			Name:       req.Mod.Path,
			Version:    req.Mod.Version,
			Ecosystem:  "go",
			SourceFile: path,
		})
		for _, fw := range goFrameworkPrefixes {
			if strings.Contains(req.Mod.Path, fw.prefix) {
				res.frameworks = append(res.frameworks, Framework{
					Name:     fw.display,
					Version:  req.Mod.Version,
					Language: "Go",
				})
				break
			}
		}
	}

	return res, nil
}
