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
)

// runTools lists every registered adapter grouped by capability, with a
// live availability probe and the configured default marked.
func runTools(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	registry := buildRegistry(cfg, logger)
	availability := registry.CheckAvailability(ctx)

	if checkJSONOutput {
		data, err := json.MarshalIndent(availability, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Println("\nRegistered Tools")
	fmt.Println()
	for _, capability := range registry.Capabilities() {
		fmt.Printf("  %s:\n", capability)
		defaultName := registry.DefaultName(capability)
		for _, name := range registry.List(capability) {
			status := "unavailable"
			if availability[capability][name] {
				status = "available"
			}
			marker := " "
			if name == defaultName {
				marker = "*"
			}
			fmt.Printf("   %s %-14s %s\n", marker, name, status)
		}
	}
	fmt.Println("\n  * = default for capability")
}
