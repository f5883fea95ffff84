// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package repo models the source repository under analysis.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// gitTimeout bounds every git subprocess. Version lookups must never make
// a run hang.
const gitTimeout = 10 * time.Second

// Validation errors returned by Repository.Validate.
var (
	ErrPathNotFound  = errors.New("repository path does not exist")
	ErrPathNotDir    = errors.New("repository path is not a directory")
)

// Repository is the source repository being documented.
type Repository struct {
	// Path is the absolute repository root.
	Path string `json:"path"`

	// Name is the display name, derived from the directory name unless
	// overridden.
	Name string `json:"name"`

	// GitRef is the HEAD commit SHA, empty for non-git trees.
	GitRef string `json:"git_ref,omitempty"`

	// DetectedLanguages is populated during analysis.
	DetectedLanguages []string `json:"detected_languages,omitempty"`
}

// FromPath builds a Repository rooted at path. Name defaults to the
// directory name when empty. The path is made absolute but not validated;
// call Validate before use.
func FromPath(path, name string) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving repository path: %w", err)
	}
	if name == "" {
		name = filepath.Base(abs)
	}
	return &Repository{Path: abs, Name: name}, nil
}

// Validate checks the repository path. A missing or non-directory path is
// an error; a missing .git directory only produces a warning, since plain
// source trees are still documentable.
func (r *Repository) Validate() ([]string, error) {
	info, err := os.Stat(r.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, r.Path)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrPathNotDir, r.Path)
	}

	var warnings []string
	if !r.IsGitRepo() {
		warnings = append(warnings, fmt.Sprintf("not a git repository (no .git directory): %s", r.Path))
	}
	return warnings, nil
}

// IsGitRepo reports whether the path contains a .git directory.
func (r *Repository) IsGitRepo() bool {
	_, err := os.Stat(filepath.Join(r.Path, ".git"))
	return err == nil
}

// GitRevision returns the HEAD commit SHA, or an empty string when the
// tree is not a git repository or git is unavailable. Failures are never
// fatal: the revision is provenance metadata, not analysis input.
func GitRevision(ctx context.Context, repoPath string) string {
	return runGit(ctx, repoPath, "rev-parse", "HEAD")
}

// GitBranch returns the current branch name, empty on failure or detached
// HEAD resolution problems.
func GitBranch(ctx context.Context, repoPath string) string {
	return runGit(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
}

func runGit(ctx context.Context, repoPath string, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
