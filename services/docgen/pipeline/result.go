// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/repodoc/services/docgen/canonical"
	"github.com/AleutianAI/repodoc/services/docgen/manifest"
)

// Status is the analysis run state machine: Pending -> Running ->
// {Completed, Failed}. Terminal states are never left.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AnalysisError is a pipeline-level error record. Recoverable errors let
// the run continue to later stages; a single non-recoverable error makes
// the run fail.
type AnalysisError struct {
	// Component names the stage or subsystem that produced the error.
	Component string `json:"component"`

	Message string `json:"message"`

	// File is the offending path, when the error is file-specific.
	File string `json:"file,omitempty"`

	Recoverable bool `json:"recoverable"`
}

// AnalysisResult is the aggregate produced by one pipeline run. It is
// created at run start, mutated only by the orchestrator one stage at a
// time, and read-only once Status is terminal.
type AnalysisResult struct {
	// RunID uniquely identifies this analysis run.
	RunID string `json:"run_id"`

	RepositoryPath string `json:"repository_path"`
	RepositoryName string `json:"repository_name"`

	// GitRef is the HEAD commit SHA captured at run start, empty for
	// non-git trees.
	GitRef string `json:"git_ref,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`

	Errors []AnalysisError `json:"errors,omitempty"`

	// TechStack aggregates the manifest scan, enriched by the structure
	// parse and the SBOM merge.
	TechStack *manifest.TechStack `json:"technology_stack,omitempty"`

	// Structure is the parsed source tree.
	Structure *canonical.Structure `json:"source_analysis,omitempty"`

	SBOM           *canonical.SBOM           `json:"sbom,omitempty"`
	Infrastructure *canonical.Infrastructure `json:"architecture,omitempty"`

	// Flow documentation.
	Modules      []canonical.ModuleSummary      `json:"modules,omitempty"`
	EntryPoints  []canonical.EntryPoint         `json:"entry_points,omitempty"`
	Integrations []canonical.ExternalIntegration `json:"external_integrations,omitempty"`
	ImportGraph  *canonical.ImportGraph         `json:"import_graph,omitempty"`
	FlowDiagram  *canonical.FlowDiagram         `json:"module_flow_diagram,omitempty"`

	Compressed *canonical.CompressedCodebase `json:"compressed_codebase,omitempty"`

	// Narration holds generated (or placeholder) prose keyed by section
	// name.
	Narration map[string]string `json:"llm_summaries,omitempty"`

	Holistic *canonical.HolisticOverview `json:"holistic_overview,omitempty"`

	// ToolVersions records the version of every executed adapter, keyed
	// by capability, for reproducibility.
	ToolVersions map[string]string `json:"tool_versions,omitempty"`
}

// NewAnalysisResult initializes a pending result for a repository.
func NewAnalysisResult(repoPath, repoName string) *AnalysisResult {
	return &AnalysisResult{
		RunID:          uuid.NewString(),
		RepositoryPath: repoPath,
		RepositoryName: repoName,
		Timestamp:      time.Now().UTC(),
		Status:         StatusPending,
		Narration:      make(map[string]string),
		ToolVersions:   make(map[string]string),
	}
}

// AddError appends an error record.
func (r *AnalysisResult) AddError(e AnalysisError) {
	r.Errors = append(r.Errors, e)
}

// HasErrors reports whether any error was recorded.
func (r *AnalysisResult) HasErrors() bool { return len(r.Errors) > 0 }

// HasFatalErrors reports whether any recorded error is non-recoverable.
func (r *AnalysisResult) HasFatalErrors() bool {
	for _, e := range r.Errors {
		if !e.Recoverable {
			return true
		}
	}
	return false
}
