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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/repodoc/services/docgen/preflight"
)

// runCheck surfaces the same preflight gate that generate runs, as a
// standalone diagnostic.
//
// Exit codes:
//
//	0: all checks passed
//	1: a required tool is missing
//	2: passed with warnings (optional tools missing)
func runCheck(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	narrator, err := buildNarrator(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	checker := preflight.NewChecker(logger)
	result := checker.CheckAll(ctx, preflight.Config{
		SkipSBOM:           skipSBOM,
		SkipInfrastructure: skipDiagrams,
		SkipCompression:    skipCompression,
		SkipNarration:      narrator == nil,
		Narrator:           narrator,
	})

	if checkJSONOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	} else {
		printCheckResult(result)
	}

	switch {
	case !result.Success:
		os.Exit(1)
	case len(result.Warnings) > 0:
		os.Exit(2)
	}
}

func printCheckResult(result *preflight.Result) {
	fmt.Println("\nPreflight Check Results")
	fmt.Println()
	for _, c := range result.Checks {
		status := "FAIL"
		if c.Available {
			status = " OK "
		}
		line := fmt.Sprintf("  [%s] %s", status, c.Name)
		if c.Version != "" {
			line += " (" + c.Version + ")"
		}
		if !c.Required {
			line += " [optional]"
		}
		fmt.Println(line)
		if c.Path != "" {
			fmt.Printf("         %s\n", c.Path)
		}
		if c.Message != "" {
			fmt.Printf("         %s\n", c.Message)
		}
	}
	fmt.Println()

	switch {
	case !result.Success:
		fmt.Println("Preflight check FAILED")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	case len(result.Warnings) > 0:
		fmt.Println("Preflight check passed with WARNINGS")
		for _, w := range result.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	default:
		fmt.Println("All preflight checks passed")
	}
}
