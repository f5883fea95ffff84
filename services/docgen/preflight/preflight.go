// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package preflight validates external tool and credential availability
// before the pipeline starts. A missing required tool must stop the run
// up front, never mid-analysis: no fallbacks, no degraded output.
package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/llm"
)

// lookPath is swappable in tests.
var lookPath = exec.LookPath

const defaultCheckTimeout = 10 * time.Second

// ToolCheck is the outcome of probing a single tool.
type ToolCheck struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Required  bool   `json:"required"`
	Path      string `json:"path,omitempty"`

	// Message is human-readable context: what the tool is for when
	// available, how to install it when not.
	Message string `json:"message,omitempty"`
}

// Result aggregates all preflight checks. Success is false iff any
// required tool is missing.
type Result struct {
	Success  bool        `json:"success"`
	Checks   []ToolCheck `json:"checks"`
	Errors   []string    `json:"errors,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// AddCheck records a check and updates the aggregate verdict.
func (r *Result) AddCheck(c ToolCheck) {
	r.Checks = append(r.Checks, c)
	if c.Available {
		return
	}
	if c.Required {
		r.Success = false
		r.Errors = append(r.Errors, "Required tool not found: "+c.Name)
	} else {
		r.Warnings = append(r.Warnings, "Optional tool not found: "+c.Name)
	}
}

// Config selects which checks CheckAll runs. The structure parser has no
// entry here: its grammars are compiled in, so there is nothing to probe.
type Config struct {
	SkipSBOM           bool
	SkipInfrastructure bool
	SkipCompression    bool
	SkipNarration      bool

	// Narrator is probed when narration is enabled. Nil with narration
	// enabled fails the narration check.
	Narrator *llm.Narrator
}

// Checker probes tools in PATH.
type Checker struct {
	timeout time.Duration
	logger  *logging.Logger
}

// NewChecker builds a checker. A nil logger falls back to the default.
func NewChecker(logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Checker{timeout: defaultCheckTimeout, logger: logger}
}

// CheckAll runs every check relevant to the configured stages.
func (c *Checker) CheckAll(ctx context.Context, cfg Config) *Result {
	result := &Result{Success: true}

	result.AddCheck(c.CheckGit(ctx, true))

	if !cfg.SkipSBOM {
		result.AddCheck(c.CheckSyft(ctx, true))
	}
	if !cfg.SkipCompression {
		result.AddCheck(c.CheckRepomix(ctx, true))
	}
	if !cfg.SkipInfrastructure {
		result.AddCheck(c.CheckTerravision(ctx, true))
		result.AddCheck(c.CheckGraphviz(ctx, false))
	}
	if !cfg.SkipNarration {
		result.AddCheck(c.CheckNarration(ctx, cfg.Narrator))
	}

	for _, e := range result.Errors {
		c.logger.Error("preflight failure", "error", e)
	}
	for _, w := range result.Warnings {
		c.logger.Warn("preflight warning", "warning", w)
	}
	return result
}

// CheckGit probes the git binary.
func (c *Checker) CheckGit(ctx context.Context, required bool) ToolCheck {
	return c.checkCommand(ctx, "git", []string{"--version"}, required,
		"Version control",
		"Install from: https://git-scm.com")
}

// CheckSyft probes the syft binary.
func (c *Checker) CheckSyft(ctx context.Context, required bool) ToolCheck {
	return c.checkCommand(ctx, "syft", []string{"version"}, required,
		"SBOM generator",
		"Install from: https://github.com/anchore/syft")
}

// CheckTerravision probes the terravision binary.
func (c *Checker) CheckTerravision(ctx context.Context, required bool) ToolCheck {
	return c.checkCommand(ctx, "terravision", []string{"--version"}, required,
		"Terraform diagram generator",
		"Install from: https://github.com/patrickchugh/terravision")
}

// CheckGraphviz probes the dot binary, needed for diagram rendering.
func (c *Checker) CheckGraphviz(ctx context.Context, required bool) ToolCheck {
	check := c.checkCommand(ctx, "dot", []string{"-V"}, required,
		"Diagram rendering engine",
		"Required for diagram rendering. Install from: https://graphviz.org")
	check.Name = "graphviz"
	return check
}

// CheckRepomix probes for repomix, falling back to npx when no global
// install exists.
func (c *Checker) CheckRepomix(ctx context.Context, required bool) ToolCheck {
	check := c.checkCommand(ctx, "repomix", []string{"--version"}, required,
		"Codebase compression tool for holistic analysis",
		"")
	if check.Available {
		return check
	}

	if npxPath, err := lookPath("npx"); err == nil {
		if version := c.commandVersion(ctx, "npx", "repomix", "--version"); version != "" {
			return ToolCheck{
				Name:      "repomix",
				Available: true,
				Version:   version,
				Required:  required,
				Path:      npxPath + " repomix",
				Message:   "Codebase compression tool (via npx)",
			}
		}
	}

	return ToolCheck{
		Name:     "repomix",
		Required: required,
		Message:  "Install via: npm install -g repomix (or use npx repomix)",
	}
}

// CheckNarration probes the narration backend with a live call. Always
// required: narration is never best-effort once enabled.
func (c *Checker) CheckNarration(ctx context.Context, narrator *llm.Narrator) ToolCheck {
	if narrator == nil {
		return ToolCheck{
			Name:     "llm",
			Required: true,
			Message:  "Narration enabled but no provider configured. Set llm.provider in the config file.",
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if !narrator.CheckAvailable(probeCtx) {
		return ToolCheck{
			Name:     "llm",
			Required: true,
			Message: fmt.Sprintf(
				"Model %q is not reachable. Verify the provider is running and credentials are valid.",
				narrator.Model()),
		}
	}

	return ToolCheck{
		Name:      "llm",
		Available: true,
		Required:  true,
		Version:   narrator.Model(),
		Message:   "Narration backend verified",
	}
}

// checkCommand probes one binary in PATH and reads its version.
func (c *Checker) checkCommand(ctx context.Context, command string, versionArgs []string, required bool, purpose, installHint string) ToolCheck {
	path, err := lookPath(command)
	if err != nil {
		return ToolCheck{
			Name:     command,
			Required: required,
			Message:  installHint,
		}
	}
	return ToolCheck{
		Name:      command,
		Available: true,
		Version:   c.commandVersion(ctx, command, versionArgs...),
		Required:  required,
		Path:      path,
		Message:   purpose,
	}
}

// commandVersion runs a version probe and returns the first output line,
// empty on any failure.
func (c *Checker) commandVersion(ctx context.Context, command string, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, command, args...).CombinedOutput()
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return ""
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
