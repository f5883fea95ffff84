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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath   string // --config override for discovery
	repoPath     string // repository to analyze
	repoName     string // display name override
	outputPath   string // --output override for config output.path
	outputFormat string // --format override: markdown or json

	skipSBOM         bool
	skipDiagrams     bool
	skipStructure    bool
	skipCompression  bool
	skipLLM          bool
	skipFlowDocs     bool
	skipDependencies bool
	failFast         bool
	dryRun           bool

	checkJSONOutput bool // check --json for scripting

	rootCmd = &cobra.Command{
		Use:   "repodoc",
		Short: "Generate living system documentation from a repository",
		Long: `Repodoc analyzes a repository with deterministic tools (tree-sitter,
syft, terravision, repomix) and renders a single system document. A
configured LLM narrates each section from the extracted facts; without
one, placeholder text keeps every section present.`,
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Analyze a repository and write the system document",
		Long: `Runs deterministic analysis first (structure parse, SBOM, architecture
diagrams, codebase compression), then narrates sections from the
extracted facts.

Exit codes:
  0: documentation generated successfully
  1: fatal analysis or rendering error
  2: generated with recoverable warnings`,
		Run: runGenerate, // Defined in cmd_generate.go
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Verify required external tools and the narration backend",
		Run:   runCheck, // Defined in cmd_check.go
	}

	toolsCmd = &cobra.Command{
		Use:   "tools",
		Short: "List registered adapters per capability",
		Run:   runTools, // Defined in cmd_tools.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default: ./.repodoc/config.yaml, then ./repodoc.yaml)")

	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&repoPath, "repo", "r", ".", "Repository path to analyze")
	generateCmd.Flags().StringVar(&repoName, "name", "", "Repository display name (default: directory name)")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (overrides config)")
	generateCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format: markdown or json (overrides config)")
	generateCmd.Flags().BoolVar(&skipSBOM, "skip-sbom", false, "Skip SBOM generation")
	generateCmd.Flags().BoolVar(&skipDiagrams, "skip-architecture", false, "Skip architecture diagram generation")
	generateCmd.Flags().BoolVar(&skipStructure, "skip-structure", false, "Skip source structure parsing (and flow documentation)")
	generateCmd.Flags().BoolVar(&skipCompression, "skip-compression", false, "Skip codebase compression (and the holistic overview)")
	generateCmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Skip LLM narration (use placeholder text instead)")
	generateCmd.Flags().BoolVar(&skipFlowDocs, "skip-flow", false, "Skip module flow documentation (modules, entry points, diagram)")
	generateCmd.Flags().BoolVar(&skipDependencies, "skip-dependencies", false, "Skip the dependency manifest scan")
	generateCmd.Flags().BoolVar(&failFast, "fail-fast", false, "Halt on the first stage error instead of continuing")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the document to stdout without writing files")

	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&repoPath, "repo", "r", ".", "Repository path the checks apply to")
	checkCmd.Flags().BoolVar(&checkJSONOutput, "json", false, "Output as JSON for scripting")
	checkCmd.Flags().BoolVar(&skipSBOM, "skip-sbom", false, "Skip the SBOM tool check")
	checkCmd.Flags().BoolVar(&skipDiagrams, "skip-architecture", false, "Skip the diagram tool checks")
	checkCmd.Flags().BoolVar(&skipCompression, "skip-compression", false, "Skip the compression tool check")
	checkCmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Skip the narration backend check")

	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolVar(&checkJSONOutput, "json", false, "Output as JSON for scripting")
}
