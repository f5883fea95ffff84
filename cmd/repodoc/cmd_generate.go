// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/repodoc/config"
	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/adapter"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/repomix"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/syft"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/terravision"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/treesitter"
	"github.com/AleutianAI/repodoc/services/docgen/llm"
	"github.com/AleutianAI/repodoc/services/docgen/manifest"
	"github.com/AleutianAI/repodoc/services/docgen/pipeline"
	"github.com/AleutianAI/repodoc/services/docgen/preflight"
	"github.com/AleutianAI/repodoc/services/docgen/repo"
	"github.com/AleutianAI/repodoc/services/docgen/telemetry"
)

// loadConfig resolves the --config flag or falls back to discovery in the
// working directory. A missing config file is not an error: defaults apply.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.Find(".")
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) *logging.Logger {
	logger, err := logging.New(logging.Config{
		Level: logging.ParseLevel(cfg.Logging.Level),
		JSON:  cfg.Logging.Format == "json",
	})
	if err != nil {
		return logging.Default()
	}
	return logger
}

// buildNarrator constructs the narration client, or nil when narration is
// disabled. A misconfigured enabled backend is an error: narration must
// never silently degrade to placeholders when the operator asked for it.
func buildNarrator(cfg *config.Config, logger *logging.Logger) (*llm.Narrator, error) {
	if skipLLM || !cfg.LLM.Enabled {
		return nil, nil
	}
	client, err := llm.NewClient(llm.Config{
		Enabled:   true,
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		APIBase:   cfg.LLM.APIBase,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring narration backend: %w", err)
	}
	return llm.NewNarrator(client, nil), nil
}

// buildRegistry registers every adapter with its configuration applied.
func buildRegistry(cfg *config.Config, logger *logging.Logger) *adapter.Registry {
	registry := adapter.NewRegistry()
	syft.Register(registry, true,
		syft.WithLogger(logger),
		syft.WithResolver(manifest.NewDirectResolver(logger)),
	)
	terravision.Register(registry, true, terravision.WithLogger(logger))
	repomix.Register(registry, true,
		repomix.WithLogger(logger),
		repomix.WithExcludePatterns(cfg.Analysis.ExcludePatterns),
	)
	treesitter.Register(registry, true,
		treesitter.WithLogger(logger),
		treesitter.WithExcludePatterns(cfg.Analysis.ExcludePatterns),
	)
	return registry
}

func toolSelection(cfg *config.Config) map[adapter.Capability]string {
	return map[adapter.Capability]string{
		adapter.CapabilitySBOM:        cfg.Tools.SBOM,
		adapter.CapabilityDiagram:     cfg.Tools.Diagram,
		adapter.CapabilityStructure:   cfg.Tools.Structure,
		adapter.CapabilityCompression: cfg.Tools.Compression,
	}
}

func runGenerate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	repository, err := repo.FromPath(repoPath, repoName)
	if err != nil {
		logger.Error("invalid repository", "error", err)
		os.Exit(1)
	}
	warnings, err := repository.Validate()
	if err != nil {
		logger.Error("invalid repository", "path", repository.Path, "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		logger.Warn("repository", "warning", w)
	}
	logger.Info("analyzing repository", "path", repository.Path, "name", repository.Name)

	narrator, err := buildNarrator(cfg, logger)
	if err != nil {
		logger.Error("narration setup failed", "error", err)
		os.Exit(1)
	}

	// The preflight gate runs before any stage: a missing required tool
	// fails the whole run up front rather than partway through.
	checker := preflight.NewChecker(logger)
	pre := checker.CheckAll(ctx, preflight.Config{
		SkipSBOM:           skipSBOM,
		SkipInfrastructure: skipDiagrams,
		SkipCompression:    skipCompression,
		SkipNarration:      narrator == nil,
		Narrator:           narrator,
	})
	if !pre.Success {
		for _, e := range pre.Errors {
			logger.Error("preflight", "error", e)
		}
		fmt.Fprintln(os.Stderr, "Preflight checks failed; run 'repodoc check' for details.")
		os.Exit(1)
	}

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		logger.Warn("metrics registration failed", "error", err)
	}

	p := pipeline.New(buildRegistry(cfg, logger),
		pipeline.WithLogger(logger),
		pipeline.WithNarrator(narrator),
		pipeline.WithToolSelection(toolSelection(cfg)),
		pipeline.WithMetrics(metrics),
	)
	result, err := p.Run(ctx, repository, pipeline.Options{
		SkipSBOM:           skipSBOM,
		SkipInfrastructure: skipDiagrams,
		SkipStructure:      skipStructure,
		SkipCompression:    skipCompression,
		SkipNarration:      narrator == nil,
		SkipFlowDocs:       skipFlowDocs,
		SkipDependencies:   skipDependencies,
		FailFast:           failFast,
		ExcludePatterns:    cfg.Analysis.ExcludePatterns,
	})
	if err != nil {
		logger.Error("pipeline failed", "error", err)
		os.Exit(1)
	}

	logger.Info("analysis finished", "status", result.Status, "errors", len(result.Errors))
	for _, e := range result.Errors {
		logger.Warn("analysis error", "component", e.Component, "message", e.Message)
	}

	document, err := renderDocument(result, resolveFormat(cfg))
	if err != nil {
		logger.Error("rendering failed", "error", err)
		os.Exit(1)
	}

	if dryRun {
		fmt.Println(document)
	} else {
		target := outputPath
		if target == "" {
			target = cfg.Output.Path
		}
		if err := writeDocument(target, document); err != nil {
			logger.Error("writing output failed", "path", target, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Documentation written to: %s\n", target)
	}

	switch {
	case result.HasFatalErrors():
		os.Exit(1)
	case result.HasErrors():
		os.Exit(2)
	}
}

func resolveFormat(cfg *config.Config) string {
	if outputFormat != "" {
		return outputFormat
	}
	return cfg.Output.Format
}

func renderDocument(result *pipeline.AnalysisResult, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling result: %w", err)
		}
		return string(data), nil
	case "markdown", "":
		return renderMarkdown(result), nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func writeDocument(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	return os.WriteFile(path, []byte(content+"\n"), 0o644)
}
