// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPath(t *testing.T) {
	t.Run("name defaults to directory", func(t *testing.T) {
		dir := t.TempDir()
		r, err := FromPath(dir, "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Base(dir), r.Name)
		assert.True(t, filepath.IsAbs(r.Path))
	})

	t.Run("explicit name wins", func(t *testing.T) {
		r, err := FromPath(t.TempDir(), "my-service")
		require.NoError(t, err)
		assert.Equal(t, "my-service", r.Name)
	})
}

func TestValidate(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		r, err := FromPath(filepath.Join(t.TempDir(), "nope"), "")
		require.NoError(t, err)
		_, err = r.Validate()
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "plain.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		r, err := FromPath(file, "")
		require.NoError(t, err)
		_, err = r.Validate()
		assert.ErrorIs(t, err, ErrPathNotDir)
	})

	t.Run("non-git tree warns but passes", func(t *testing.T) {
		r, err := FromPath(t.TempDir(), "")
		require.NoError(t, err)

		warnings, err := r.Validate()
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "not a git repository")
	})

	t.Run("git tree passes clean", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))

		r, err := FromPath(dir, "")
		require.NoError(t, err)

		warnings, err := r.Validate()
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.True(t, r.IsGitRepo())
	})
}
