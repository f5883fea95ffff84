// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package preflight

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/repodoc/services/docgen/llm"
)

// stubLookPath replaces the PATH probe for the duration of a test.
func stubLookPath(t *testing.T, found map[string]string) {
	t.Helper()
	orig := lookPath
	lookPath = func(cmd string) (string, error) {
		if p, ok := found[cmd]; ok {
			return p, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestAddCheckRequiredFailureFlipsSuccess(t *testing.T) {
	r := &Result{Success: true}
	r.AddCheck(ToolCheck{Name: "syft", Available: true, Required: true})
	assert.True(t, r.Success)

	r.AddCheck(ToolCheck{Name: "terravision", Available: false, Required: true})
	assert.False(t, r.Success)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "terravision")
}

func TestAddCheckOptionalFailureOnlyWarns(t *testing.T) {
	r := &Result{Success: true}
	r.AddCheck(ToolCheck{Name: "graphviz", Available: false, Required: false})
	assert.True(t, r.Success)
	assert.Empty(t, r.Errors)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "graphviz")
}

func TestCheckCommandMissing(t *testing.T) {
	stubLookPath(t, nil)
	c := NewChecker(nil)

	check := c.CheckSyft(context.Background(), true)
	assert.False(t, check.Available)
	assert.True(t, check.Required)
	assert.Contains(t, check.Message, "anchore/syft")
}

func TestCheckRepomixMissingEverywhere(t *testing.T) {
	stubLookPath(t, nil)
	c := NewChecker(nil)

	check := c.CheckRepomix(context.Background(), true)
	assert.False(t, check.Available)
	assert.Contains(t, check.Message, "npm install -g repomix")
}

func TestCheckNarrationNilNarrator(t *testing.T) {
	c := NewChecker(nil)
	check := c.CheckNarration(context.Background(), nil)
	assert.False(t, check.Available)
	assert.True(t, check.Required)
	assert.Contains(t, check.Message, "no provider configured")
}

func TestCheckNarrationUnavailableBackend(t *testing.T) {
	c := NewChecker(nil)
	narrator := llm.NewNarrator(llm.NewFailingFake(errors.New("refused")), nil)

	check := c.CheckNarration(context.Background(), narrator)
	assert.False(t, check.Available)
	assert.Contains(t, check.Message, "not reachable")
}

func TestCheckNarrationAvailableBackend(t *testing.T) {
	c := NewChecker(nil)
	narrator := llm.NewNarrator(llm.NewFake("ok"), nil)

	check := c.CheckNarration(context.Background(), narrator)
	assert.True(t, check.Available)
	assert.Equal(t, "fake", check.Version)
}

func TestCheckAllGatesOnRequiredTools(t *testing.T) {
	stubLookPath(t, nil)
	c := NewChecker(nil)

	result := c.CheckAll(context.Background(), Config{
		SkipInfrastructure: true,
		SkipNarration:      true,
	})

	assert.False(t, result.Success, "missing git, syft, and repomix must fail the gate")
	assert.NotEmpty(t, result.Errors)

	names := make([]string, 0, len(result.Checks))
	for _, ck := range result.Checks {
		names = append(names, ck.Name)
	}
	assert.Contains(t, names, "git")
	assert.Contains(t, names, "syft")
	assert.Contains(t, names, "repomix")
	assert.NotContains(t, names, "terravision")
}

func TestCheckAllSkipsEverything(t *testing.T) {
	stubLookPath(t, map[string]string{"git": "/usr/bin/git"})
	c := NewChecker(nil)

	result := c.CheckAll(context.Background(), Config{
		SkipSBOM:           true,
		SkipInfrastructure: true,
		SkipCompression:    true,
		SkipNarration:      true,
	})

	assert.True(t, result.Success)
	require.Len(t, result.Checks, 1)
	assert.Equal(t, "git", result.Checks[0].Name)
}
