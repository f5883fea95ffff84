// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syft

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/repodoc/services/docgen/adapter"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/shell"
	"github.com/AleutianAI/repodoc/services/docgen/manifest"
)

const sampleOutput = `{
	"artifacts": [
		{
			"name": "express",
			"type": "npm",
			"version": "4.18.2",
			"purl": "pkg:npm/express@4.18.2",
			"licenses": [{"value": "MIT"}],
			"locations": [{"path": "package.json"}]
		},
		{
			"name": "accepts",
			"type": "npm",
			"version": "1.3.8",
			"licenses": ["MIT", "Apache-2.0"],
			"locations": ["node_modules/accepts/package.json"]
		},
		{
			"name": "requests",
			"type": "python",
			"version": "2.31.0"
		},
		{
			"name": "",
			"type": "npm"
		},
		{
			"name": "mystery",
			"type": "frobnicator",
			"version": "0.1.0"
		}
	]
}`

// fakeRun returns canned responses keyed by the first argument.
func fakeRun(versionOut, scanOut string, scanCode int) shell.RunFunc {
	return func(_ context.Context, _ time.Duration, _, _ string, args ...string) (shell.Result, error) {
		if len(args) > 0 && args[0] == "version" {
			return shell.Result{Stdout: versionOut}, nil
		}
		var err error
		if scanCode != 0 {
			err = errors.New("exit status")
		}
		return shell.Result{Stdout: scanOut, Stderr: "scan stderr", ExitCode: scanCode}, err
	}
}

func TestExecuteTransformsArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies": {"express": "^4.18.2"}}`), 0o644))

	resolver := manifest.NewDirectResolver(nil)
	a := New(WithResolver(resolver))
	a.run = fakeRun("syft 1.0.0", sampleOutput, 0)

	sbom, err := a.Execute(context.Background(), dir)
	require.NoError(t, err)

	// Empty-name artifact dropped.
	require.Equal(t, 4, sbom.PackageCount())

	byName := make(map[string]struct {
		eco, license, src, purl string
		direct                  bool
	})
	for _, p := range sbom.Packages {
		byName[p.Name] = struct {
			eco, license, src, purl string
			direct                  bool
		}{p.Ecosystem, p.License, p.SourceFile, p.PURL, p.IsDirect}
	}

	express := byName["express"]
	assert.Equal(t, "npm", express.eco)
	assert.Equal(t, "MIT", express.license)
	assert.Equal(t, "package.json", express.src)
	assert.Equal(t, "pkg:npm/express@4.18.2", express.purl)
	assert.True(t, express.direct, "declared in package.json")

	accepts := byName["accepts"]
	assert.Equal(t, "MIT AND Apache-2.0", accepts.license, "multiple licenses join with AND")
	assert.Equal(t, "node_modules/accepts/package.json", accepts.src, "string locations accepted")
	assert.False(t, accepts.direct)

	assert.Equal(t, "pypi", byName["requests"].eco, "python type maps to pypi")
	assert.Equal(t, "frobnicator", byName["mystery"].eco, "unknown types pass through")

	require.NotNil(t, sbom.Source)
	assert.Equal(t, "syft", sbom.Source.Tool)
	assert.Equal(t, "1.0.0", sbom.Source.ToolVersion)
	assert.Equal(t, dir, sbom.Source.Target)
}

func TestExecuteNotAvailable(t *testing.T) {
	a := New()
	a.run = func(context.Context, time.Duration, string, string, ...string) (shell.Result, error) {
		return shell.Result{ExitCode: -1}, errors.New("executable file not found")
	}

	_, err := a.Execute(context.Background(), t.TempDir())
	assert.True(t, adapter.IsNotAvailable(err))
}

func TestExecuteScanFailure(t *testing.T) {
	a := New()
	a.run = fakeRun("syft 1.0.0", "", 2)

	_, err := a.Execute(context.Background(), t.TempDir())

	var execErr *adapter.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 2, execErr.ExitCode)
	assert.Equal(t, "scan stderr", execErr.Stderr)
}

func TestExecuteUnparseableOutput(t *testing.T) {
	a := New()
	a.run = fakeRun("syft 1.0.0", "this is not json", 0)

	_, err := a.Execute(context.Background(), t.TempDir())

	var execErr *adapter.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Message, "unparseable JSON")
}

func TestParseVersion(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   string
	}{
		{"simple", "syft 1.0.0", "1.0.0"},
		{"labelled", "Application: syft\nVersion: 1.4.1", "1.4.1"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseVersion(tc.output))
		})
	}
}
