// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package shell runs external tool processes with enforced timeouts.
// Every adapter that shells out goes through this package so timeout and
// exit-code handling stay uniform.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result captures a finished process.
type Result struct {
	Stdout string
	Stderr string

	// ExitCode is -1 when the process never produced one (timeout,
	// signal, start failure).
	ExitCode int
}

// RunFunc is the execution signature adapters hold. Tests substitute a
// fake; production code uses Run.
type RunFunc func(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (Result, error)

// Run executes a command with a hard timeout. On deadline expiry the
// returned error wraps context.DeadlineExceeded so callers can report
// timeouts distinctly from tool failures. dir sets the working directory
// when non-empty.
func Run(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	res := Result{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		ExitCode: 0,
	}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
	}
	return res, err
}
