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
	javaVersionRe     = regexp.MustCompile(`<java\.version>([^<]+)</java\.version>`)
	compilerSourceRe  = regexp.MustCompile(`<maven\.compiler\.source>([^<]+)</maven\.compiler\.source>`)
	mavenDependencyRe = regexp.MustCompile(`(?s)<dependency>\s*<groupId>([^<]+)</groupId>\s*<artifactId>([^<]+)</artifactId>\s*(?:<version>([^<]+)</version>)?\s*(?:<scope>([^<]+)</scope>)?`)

	gradleDepRe     = regexp.MustCompile(`(?:implementation|compile)\s+['"]([^'"]+)['"]`)
	gradleTestDepRe = regexp.MustCompile(`testImplementation\s+['"]([^'"]+)['"]`)
)

// parsePomXML reads a Maven POM with targeted patterns. Dependencies with
// test scope are tracked as dev dependencies.
func (p *Parser) parsePomXML(path string) (*fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)

	lang := &LanguageInfo{Name: "Java"}
	if m := javaVersionRe.FindStringSubmatch(content); m != nil {
		lang.Version = m[1]
	} else if m := compilerSourceRe.FindStringSubmatch(content); m != nil {
		lang.Version = m[1]
	}
	res := &fileResult{language: lang}

	for _, m := range mavenDependencyRe.FindAllStringSubmatch(content, -1) {
		groupID, artifactID, version, scope := m[1], m[2], m[3], m[4]
		dep := Dependency{
			Name:       groupID + ":" + artifactID,
			Version:    version,
			Ecosystem:  "maven",
			SourceFile: path,
		}
		if scope == "test" {
			res.devDeps = append(res.devDeps, dep)
			continue
		}
		res.deps = append(res.deps, dep)
		res.frameworks = appendMavenFramework(res.frameworks, groupID, version)
	}

	return res, nil
}

// parseBuildGradle reads Groovy-DSL Gradle dependency declarations.
func (p *Parser) parseBuildGradle(path string) (*fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)

	res := &fileResult{language: &LanguageInfo{Name: "Java"}}

	for _, m := range gradleDepRe.FindAllStringSubmatch(content, -1) {
		name, version, ok := splitGradleCoordinate(m[1])
		if !ok {
			continue
		}
		res.deps = append(res.deps, Dependency{
			Name:       name,
			Version:    version,
			Ecosystem:  "maven",
			SourceFile: path,
		})
		group := strings.SplitN(name, ":", 2)[0]
		res.frameworks = appendMavenFramework(res.frameworks, group, version)
	}

	for _, m := range gradleTestDepRe.FindAllStringSubmatch(content, -1) {
		name, version, ok := splitGradleCoordinate(m[1])
		if !ok {
			continue
		}
		res.devDeps = append(res.devDeps, Dependency{
			Name:       name,
			Version:    version,
			Ecosystem:  "maven",
			SourceFile: path,
		})
	}

	return res, nil
}

// splitGradleCoordinate parses "group:artifact[:version]" strings.
func splitGradleCoordinate(coord string) (name, version string, ok bool) {
	parts := strings.Split(coord, ":")
	if len(parts) < 2 {
		return "", "", false
	}
	name = parts[0] + ":" + parts[1]
	if len(parts) > 2 {
		version = parts[2]
	}
	return name, version, true
}

// appendMavenFramework adds a framework when the group ID matches a known
// prefix, deduplicating by display name.
func appendMavenFramework(frameworks []Framework, groupID, version string) []Framework {
	for _, fw := range mavenFrameworkPrefixes {
		if !strings.Contains(groupID, fw.prefix) {
			continue
		}
		for _, f := range frameworks {
			if f.Name == fw.display {
				return frameworks
			}
		}
		return append(frameworks, Framework{
			Name:     fw.display,
			Version:  version,
			Language: "Java",
		})
	}
	return frameworks
}
