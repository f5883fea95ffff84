// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repomix

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/repodoc/services/docgen/adapter"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/shell"
)

func stubLookPath(t *testing.T, available map[string]bool) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { lookPath = orig })
}

// outputArg finds the value following --output.
func outputArg(args []string) string {
	for i, arg := range args {
		if arg == "--output" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestExecuteCompresses(t *testing.T) {
	stubLookPath(t, map[string]bool{"repomix": true})

	const stdout = `Repomix v2.1.0
📦 52 files packed
Token count: 18,432 tokens
`
	a := New()
	a.run = func(_ context.Context, _ time.Duration, dir, name string, args ...string) (shell.Result, error) {
		assert.Equal(t, "repomix", name)
		assert.Contains(t, args, "--compress")
		assert.Contains(t, args, "--ignore")
		out := outputArg(args)
		require.NotEmpty(t, out)
		require.NoError(t, os.WriteFile(out, []byte("skeleton content"), 0o644))
		return shell.Result{Stdout: stdout}, nil
	}

	compressed, err := a.Execute(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "skeleton content", compressed.Content)
	assert.Equal(t, 18432, compressed.TokenCount)
	assert.Equal(t, 52, compressed.FileCount)
	assert.Equal(t, "2.1.0", compressed.ToolVersion)
	assert.Equal(t, DefaultExcludePatterns, compressed.ExcludedPatterns)
}

func TestExecuteFailure(t *testing.T) {
	stubLookPath(t, map[string]bool{"repomix": true})

	a := New()
	a.run = func(context.Context, time.Duration, string, string, ...string) (shell.Result, error) {
		return shell.Result{Stderr: "boom", ExitCode: 1}, errors.New("exit status 1")
	}

	_, err := a.Execute(context.Background(), t.TempDir())

	var execErr *adapter.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.ExitCode)
	assert.Equal(t, "boom", execErr.Stderr)
}

func TestExecuteMissingOutputFile(t *testing.T) {
	stubLookPath(t, map[string]bool{"repomix": true})

	a := New()
	a.run = func(context.Context, time.Duration, string, string, ...string) (shell.Result, error) {
		// Succeed without writing the output file.
		return shell.Result{}, nil
	}

	_, err := a.Execute(context.Background(), t.TempDir())

	var execErr *adapter.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Message, "output file not found")
}

func TestCommandResolution(t *testing.T) {
	t.Run("global install preferred", func(t *testing.T) {
		stubLookPath(t, map[string]bool{"repomix": true, "npx": true})
		cmd, err := New().command()
		require.NoError(t, err)
		assert.Equal(t, []string{"repomix"}, cmd)
	})

	t.Run("npx fallback", func(t *testing.T) {
		stubLookPath(t, map[string]bool{"npx": true})
		cmd, err := New().command()
		require.NoError(t, err)
		assert.Equal(t, []string{"npx", "repomix"}, cmd)
	})

	t.Run("neither available", func(t *testing.T) {
		stubLookPath(t, map[string]bool{})
		a := New()
		assert.False(t, a.CheckAvailable(context.Background()))
		_, err := a.Execute(context.Background(), t.TempDir())
		assert.True(t, adapter.IsNotAvailable(err))
	})
}

func TestStdoutScraping(t *testing.T) {
	assert.Equal(t, 0, extractTokenCount("no relevant lines"))
	assert.Equal(t, 120, extractFileCount("Processed 120 files"))
	assert.Equal(t, "", extractVersion("nothing here"))
}
