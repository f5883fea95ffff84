// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "docs/SYSTEM.md", cfg.Output.Path)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, "syft", cfg.Tools.SBOM)
	assert.Equal(t, "terravision", cfg.Tools.Diagram)
	assert.Equal(t, "tree-sitter", cfg.Tools.Structure)
	assert.Equal(t, "repomix", cfg.Tools.Compression)
	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repodoc.yaml")
	yamlBody := `
output:
  path: README-SYSTEM.md
  format: json
llm:
  enabled: false
analysis:
  exclude_patterns:
    - "vendor/**"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "README-SYSTEM.md", cfg.Output.Path)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, []string{"vendor/**"}, cfg.Analysis.ExcludePatterns)
	// Untouched sections keep their defaults.
	assert.Equal(t, "syft", cfg.Tools.SBOM)
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("REPODOC_TEST_KEY", "sk-12345")
	dir := t.TempDir()
	path := filepath.Join(dir, "repodoc.yaml")
	yamlBody := `
llm:
  provider: openai
  api_key: ${REPODOC_TEST_KEY}
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-12345", cfg.LLM.APIKey)
}

func TestLoadUnsetEnvVarFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repodoc.yaml")
	yamlBody := `
llm:
  api_key: ${REPODOC_DEFINITELY_UNSET_VAR}
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPODOC_DEFINITELY_UNSET_VAR")
}

func TestLoadRejectsBadFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repodoc.yaml")
	yamlBody := `
output:
  format: html
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateOpenAIRequiresKey(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestValidateDisabledLLMSkipsProviderChecks(t *testing.T) {
	cfg := Default()
	cfg.LLM.Enabled = false
	cfg.LLM.Provider = ""
	cfg.LLM.APIBase = ""
	assert.NoError(t, cfg.Validate())
}

func TestFindDiscoveryOrder(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", Find(dir))

	rootCfg := filepath.Join(dir, "repodoc.yaml")
	require.NoError(t, os.WriteFile(rootCfg, []byte("{}"), 0o644))
	assert.Equal(t, rootCfg, Find(dir))

	require.NoError(t, os.Mkdir(filepath.Join(dir, ".repodoc"), 0o755))
	hiddenCfg := filepath.Join(dir, ".repodoc", "config.yaml")
	require.NoError(t, os.WriteFile(hiddenCfg, []byte("{}"), 0o644))
	assert.Equal(t, hiddenCfg, Find(dir))
}
