// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package canonical

import (
	"strings"
	"time"
)

// CompressedCodebase is a skeletonized rendering of a repository: function
// signatures without bodies, small enough to fit a whole codebase into a
// single model context window.
type CompressedCodebase struct {
	// Content is the compressed codebase text.
	Content string `json:"compressed_content"`

	// TokenCount is the compressor's estimate of Content's size in tokens.
	TokenCount int `json:"token_count"`

	// FileCount is how many source files were processed.
	FileCount int `json:"file_count"`

	// ExcludedPatterns lists glob patterns withheld from compression.
	ExcludedPatterns []string `json:"excluded_patterns"`

	// SourcePath is the repository that was compressed.
	SourcePath string `json:"source_path,omitempty"`

	Timestamp   time.Time `json:"timestamp,omitzero"`
	ToolVersion string    `json:"tool_version,omitempty"`
}

// IntegrationInfo is an external integration named by the holistic overview.
type IntegrationInfo struct {
	// Name is the service or library, e.g. "PostgreSQL".
	Name string `json:"name"`

	// Type is the integration category: Database, Cache, Queue, LLM,
	// HTTP API, Storage, Cloud.
	Type string `json:"type"`

	// Purpose is a short description of how it is used.
	Purpose string `json:"purpose,omitempty"`
}

// HolisticOverview is the system-wide summary produced from the compressed
// codebase in a single generation call.
type HolisticOverview struct {
	Purpose              string            `json:"purpose"`
	ArchitectureStyle    string            `json:"architecture_style"`
	CoreComponents       []string          `json:"core_components"`
	DataFlow             string            `json:"data_flow"`
	DesignPatterns       []string          `json:"design_patterns"`
	ExternalIntegrations []IntegrationInfo `json:"external_integrations"`
	EntryPoints          []string          `json:"entry_points"`

	// RawResponse preserves the unparsed generation output. It is never
	// rendered into documentation.
	RawResponse string `json:"-"`
}

// negativePatterns are substrings that indicate a section failed to extract
// anything and is asserting absence rather than describing the system.
var negativePatterns = []string{
	"not found",
	"not detected",
	"not determinable",
	"unable to determine",
	"none identified",
	"cannot be determined",
	"from the provided",
	"from the analysis",
	"from the available",
}

// hedgingPatterns are substrings that indicate speculation. Generated
// documentation states facts or stays silent.
var hedgingPatterns = []string{
	"appears to",
	"seems to",
	"likely",
	"probably",
	"possibly",
	"may be",
	"might be",
	"could be",
}

// isValidContent reports whether text is a positive, non-hedged statement
// worth including in rendered output.
func isValidContent(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range negativePatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	for _, p := range hedgingPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// Markdown renders the overview for documentation output. Sections whose
// content is empty, hedged, or a negative assertion are dropped entirely.
func (h *HolisticOverview) Markdown() string {
	var lines []string

	if isValidContent(h.Purpose) {
		lines = append(lines, "**Purpose**: "+h.Purpose, "")
	}
	if isValidContent(h.ArchitectureStyle) {
		lines = append(lines, "**Architecture**: "+h.ArchitectureStyle, "")
	}

	var components []string
	for _, c := range h.CoreComponents {
		if isValidContent(c) {
			components = append(components, c)
		}
	}
	if len(components) > 0 {
		lines = append(lines, "**Core Components**:")
		for _, c := range components {
			lines = append(lines, "- "+c)
		}
		lines = append(lines, "")
	}

	if isValidContent(h.DataFlow) {
		lines = append(lines, "**Data Flow**: "+h.DataFlow, "")
	}

	var patterns []string
	for _, p := range h.DesignPatterns {
		if isValidContent(p) {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) > 0 {
		lines = append(lines, "**Design Patterns**: "+strings.Join(patterns, ", "), "")
	}

	var entries []string
	for _, e := range h.EntryPoints {
		if isValidContent(e) {
			entries = append(entries, e)
		}
	}
	if len(entries) > 0 {
		lines = append(lines, "**Entry Points**: "+strings.Join(entries, ", "), "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
