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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParsePackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
		"dependencies": {"express": "^4.18.2", "accepts": "~1.3.8"},
		"devDependencies": {"jest": "^29.0.0"}
	}`)

	stack := NewParser(nil).ParseDirectory(dir)

	require.Len(t, stack.Dependencies, 2)
	byName := make(map[string]Dependency)
	for _, d := range stack.Dependencies {
		byName[d.Name] = d
	}
	assert.Equal(t, "4.18.2", byName["express"].Version)
	assert.Equal(t, "1.3.8", byName["accepts"].Version)
	assert.Equal(t, "npm", byName["express"].Ecosystem)

	require.Len(t, stack.DevDependencies, 1)
	assert.Equal(t, "jest", stack.DevDependencies[0].Name)

	require.Len(t, stack.Frameworks, 1)
	assert.Equal(t, "Express.js", stack.Frameworks[0].Name)
	assert.Equal(t, "JavaScript", stack.Frameworks[0].Language)

	require.Len(t, stack.Languages, 1)
	assert.Equal(t, "JavaScript", stack.Languages[0].Name)
}

func TestPackageJSONTypeScriptDetection(t *testing.T) {
	t.Run("via devDependency", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "package.json", `{"devDependencies": {"typescript": "^5.0.0"}}`)

		stack := NewParser(nil).ParseDirectory(dir)
		require.Len(t, stack.Languages, 1)
		assert.Equal(t, "TypeScript", stack.Languages[0].Name)
	})

	t.Run("via tsconfig", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "package.json", `{"dependencies": {"react": "^18.0.0"}}`)
		writeFile(t, dir, "tsconfig.json", `{}`)

		stack := NewParser(nil).ParseDirectory(dir)
		require.Len(t, stack.Languages, 1)
		assert.Equal(t, "TypeScript", stack.Languages[0].Name)
	})
}

func TestNestedPackageJSONMonorepo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"dependencies": {"lerna": "^7.0.0"}}`)
	writeFile(t, dir, "packages/web/package.json", `{"dependencies": {"react": "^18.2.0"}}`)
	writeFile(t, dir, "node_modules/evil/package.json", `{"dependencies": {"ignored": "1.0.0"}}`)

	stack := NewParser(nil).ParseDirectory(dir)

	names := make(map[string]bool)
	for _, d := range stack.Dependencies {
		names[d.Name] = true
	}
	assert.True(t, names["lerna"])
	assert.True(t, names["react"])
	assert.False(t, names["ignored"], "node_modules must be skipped")
}

func TestParseRequirementsTxt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", `# web stack
FastAPI==0.110.0
requests>=2.31

uvicorn
`)

	stack := NewParser(nil).ParseDirectory(dir)

	require.Len(t, stack.Dependencies, 3)
	byName := make(map[string]Dependency)
	for _, d := range stack.Dependencies {
		byName[d.Name] = d
	}
	// Names lowercase per pypi convention.
	assert.Equal(t, "0.110.0", byName["fastapi"].Version)
	assert.Equal(t, "2.31", byName["requests"].Version)
	assert.Equal(t, "", byName["uvicorn"].Version)

	require.Len(t, stack.Frameworks, 1)
	assert.Equal(t, "FastAPI", stack.Frameworks[0].Name)
}

func TestParsePyprojectToml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", `[project]
name = "demo"
requires-python = ">=3.11"
dependencies = [
    "flask>=3.0",
    "sqlalchemy==2.0.27",
]

[project.optional-dependencies]
dev = [
    "pytest>=8.0",
]
`)

	stack := NewParser(nil).ParseDirectory(dir)

	require.Len(t, stack.Languages, 1)
	assert.Equal(t, "Python", stack.Languages[0].Name)
	assert.Equal(t, ">=3.11", stack.Languages[0].Version)

	require.Len(t, stack.Dependencies, 2)
	require.Len(t, stack.DevDependencies, 1)
	assert.Equal(t, "pytest", stack.DevDependencies[0].Name)

	require.Len(t, stack.Frameworks, 1)
	assert.Equal(t, "Flask", stack.Frameworks[0].Name)
}

func TestParseGoMod(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", `module example.com/demo

go 1.22

require (
	github.com/gin-gonic/gin v1.9.1
	github.com/google/uuid v1.6.0
)

require github.com/bytedance/sonic v1.9.1 // indirect
`)

	stack := NewParser(nil).ParseDirectory(dir)

	require.Len(t, stack.Languages, 1)
	assert.Equal(t, "Go", stack.Languages[0].Name)
	assert.Equal(t, "1.22", stack.Languages[0].Version)

	require.Len(t, stack.Dependencies, 2, "indirect requirements excluded")

	require.Len(t, stack.Frameworks, 1)
	assert.Equal(t, "Gin", stack.Frameworks[0].Name)
	assert.Equal(t, "v1.9.1", stack.Frameworks[0].Version)
}

func TestParsePomXML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pom.xml", `<project>
  <properties><java.version>21</java.version></properties>
  <dependencies>
    <dependency>
      <groupId>org.springframework.boot</groupId>
      <artifactId>spring-boot-starter-web</artifactId>
      <version>3.2.0</version>
    </dependency>
    <dependency>
      <groupId>org.junit.jupiter</groupId>
      <artifactId>junit-jupiter</artifactId>
      <version>5.10.0</version>
      <scope>test</scope>
    </dependency>
  </dependencies>
</project>`)

	stack := NewParser(nil).ParseDirectory(dir)

	require.Len(t, stack.Languages, 1)
	assert.Equal(t, "21", stack.Languages[0].Version)

	require.Len(t, stack.Dependencies, 1)
	assert.Equal(t, "org.springframework.boot:spring-boot-starter-web", stack.Dependencies[0].Name)

	require.Len(t, stack.DevDependencies, 1)

	require.Len(t, stack.Frameworks, 1)
	assert.Equal(t, "Spring Boot", stack.Frameworks[0].Name, "most specific prefix wins")
}

func TestParseBuildGradle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build.gradle", `dependencies {
    implementation 'io.quarkus:quarkus-core:3.6.0'
    testImplementation 'org.mockito:mockito-core:5.8.0'
}`)

	stack := NewParser(nil).ParseDirectory(dir)

	require.Len(t, stack.Dependencies, 1)
	assert.Equal(t, "io.quarkus:quarkus-core", stack.Dependencies[0].Name)
	assert.Equal(t, "3.6.0", stack.Dependencies[0].Version)

	require.Len(t, stack.DevDependencies, 1)
	assert.Equal(t, "org.mockito:mockito-core", stack.DevDependencies[0].Name)

	require.Len(t, stack.Frameworks, 1)
	assert.Equal(t, "Quarkus", stack.Frameworks[0].Name)
}

func TestCleanVersion(t *testing.T) {
	cases := map[string]string{
		"^4.18.2": "4.18.2",
		"~1.3.8":  "1.3.8",
		">=2.0":   "2.0",
		"<=1.0":   "1.0",
		"=3.1":    "3.1",
		"1.2.3":   "1.2.3",
		"":        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, cleanVersion(in), "input %q", in)
	}
}

func TestDirectResolver(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
		"dependencies": {"express": "^4.18.2", "@aws-sdk/client-s3": "^3.500.0"},
		"devDependencies": {"jest": "^29.0.0"}
	}`)
	writeFile(t, dir, "requirements.txt", "Flask-Login==0.6.3\n")
	writeFile(t, dir, "go.mod", "module example.com/x\n\ngo 1.22\n\nrequire github.com/spf13/cobra v1.8.0\n")

	r := NewDirectResolver(nil)
	r.ResolveFromDirectory(dir)

	t.Run("npm exact match including scope", func(t *testing.T) {
		assert.True(t, r.IsDirect("express", "npm"))
		assert.True(t, r.IsDirect("@aws-sdk/client-s3", "npm"))
		assert.True(t, r.IsDirect("jest", "npm"), "devDependencies are direct")
		assert.False(t, r.IsDirect("accepts", "npm"), "transitive dependency is not direct")
	})

	t.Run("pypi normalization", func(t *testing.T) {
		assert.True(t, r.IsDirect("flask-login", "pypi"))
		assert.True(t, r.IsDirect("Flask_Login", "pypi"))
		assert.True(t, r.IsDirect("flask.login", "pypi"))
	})

	t.Run("go exact path", func(t *testing.T) {
		assert.True(t, r.IsDirect("github.com/spf13/cobra", "go"))
		assert.False(t, r.IsDirect("github.com/spf13/pflag", "go"))
	})

	t.Run("unknown ecosystem", func(t *testing.T) {
		assert.False(t, r.IsDirect("anything", "cargo"))
	})
}
