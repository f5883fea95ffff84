// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adapter

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry lookups. Callers match with errors.Is.
var (
	// ErrNoToolConfigured indicates a capability has no default tool and
	// none was named explicitly.
	ErrNoToolConfigured = errors.New("no tool configured for capability")

	// ErrToolNotRegistered indicates the named tool has no registered
	// factory for the requested capability.
	ErrToolNotRegistered = errors.New("tool not registered")
)

// NotAvailableError indicates a tool is not installed or not runnable.
// Distinct from ExecutionError: the tool never started.
type NotAvailableError struct {
	// ToolName is the tool that was requested.
	ToolName string

	// Reason adds detail when the default message is insufficient.
	Reason string
}

func (e *NotAvailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("tool not available: %s: %s", e.ToolName, e.Reason)
	}
	return fmt.Sprintf("tool not available: %s", e.ToolName)
}

// ExecutionError indicates a tool started but failed: nonzero exit, timeout,
// or unparseable output.
type ExecutionError struct {
	ToolName string
	Message  string

	// ExitCode is the process exit status, -1 when the process never
	// returned one (timeout, signal).
	ExitCode int

	// Stderr carries the tool's error output for diagnostics.
	Stderr string

	// Err is the underlying cause, when one exists.
	Err error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("tool execution failed: %s: %s", e.ToolName, e.Message)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsNotAvailable reports whether err is a tool-availability failure.
func IsNotAvailable(err error) bool {
	var na *NotAvailableError
	return errors.As(err, &na)
}
