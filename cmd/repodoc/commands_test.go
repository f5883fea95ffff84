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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every pipeline stage toggle must be reachable from the binary.
func TestGenerateCommandStageFlags(t *testing.T) {
	for _, flag := range []string{
		"skip-sbom",
		"skip-architecture",
		"skip-structure",
		"skip-compression",
		"skip-llm",
		"skip-flow",
		"skip-dependencies",
		"fail-fast",
		"dry-run",
	} {
		assert.NotNil(t, generateCmd.Flags().Lookup(flag), "missing flag --%s", flag)
	}
}

func TestGenerateCommandFlagsBind(t *testing.T) {
	require.NoError(t, generateCmd.Flags().Set("skip-flow", "true"))
	require.NoError(t, generateCmd.Flags().Set("skip-dependencies", "true"))
	t.Cleanup(func() {
		_ = generateCmd.Flags().Set("skip-flow", "false")
		_ = generateCmd.Flags().Set("skip-dependencies", "false")
		skipFlowDocs = false
		skipDependencies = false
	})

	assert.True(t, skipFlowDocs)
	assert.True(t, skipDependencies)
}
