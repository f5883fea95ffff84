// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the repodoc configuration file.
//
// Discovery order: ./.repodoc/config.yaml, then ./repodoc.yaml. Values
// support ${VAR} environment substitution so credentials stay out of
// checked-in files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// OutputConfig controls where the rendered document goes.
type OutputConfig struct {
	Path   string `yaml:"path" validate:"required"`
	Format string `yaml:"format" validate:"oneof=markdown json"`
}

// ToolsConfig selects the tool per capability. Names must match a
// registered adapter.
type ToolsConfig struct {
	SBOM        string `yaml:"sbom" validate:"required"`
	Diagram     string `yaml:"diagram" validate:"required"`
	Structure   string `yaml:"structure" validate:"required"`
	Compression string `yaml:"compression" validate:"required"`
}

// LLMConfig configures the narration backend.
type LLMConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Provider  string `yaml:"provider" validate:"omitempty,oneof=openai ollama"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	APIBase   string `yaml:"api_base"`
	MaxTokens int    `yaml:"max_tokens" validate:"gte=0,lte=32768"`
}

// AnalysisConfig tunes the deterministic stages.
type AnalysisConfig struct {
	// ExcludePatterns are path globs withheld from compression and
	// structure analysis, on top of the built-in exclusions.
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Config is the root configuration.
type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Tools    ToolsConfig    `yaml:"tools"`
	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

var configValidate = validator.New()

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Path:   "docs/SYSTEM.md",
			Format: "markdown",
		},
		Tools: ToolsConfig{
			SBOM:        "syft",
			Diagram:     "terravision",
			Structure:   "tree-sitter",
			Compression: "repomix",
		},
		LLM: LLMConfig{
			Enabled:   true,
			Provider:  "ollama",
			Model:     "llama3.1",
			APIBase:   "http://localhost:11434",
			MaxTokens: 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Find searches startDir for a configuration file, returning an empty
// string when none exists.
func Find(startDir string) string {
	candidates := []string{
		filepath.Join(startDir, ".repodoc", "config.yaml"),
		filepath.Join(startDir, "repodoc.yaml"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Load reads a configuration file, applies environment substitution,
// overlays it on the defaults, and validates the result. An empty path
// returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	substituted, err := substituteEnv(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(substituted, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return err
	}
	if c.LLM.Enabled && c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required when llm.enabled is true")
	}
	if c.LLM.Enabled && c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for the openai provider")
	}
	if c.LLM.Enabled && c.LLM.Provider == "ollama" && c.LLM.APIBase == "" {
		return fmt.Errorf("llm.api_base is required for the ollama provider")
	}
	return nil
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnv replaces ${VAR} references with environment values. An
// unset variable is an error, not an empty string: a silently blank
// credential fails much later and much more confusingly.
func substituteEnv(data []byte) ([]byte, error) {
	var missing []string
	out := envVarRe.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(envVarRe.FindSubmatch(match)[1])
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
			return match
		}
		return []byte(value)
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("environment variable not set: %s", missing[0])
	}
	return out, nil
}
