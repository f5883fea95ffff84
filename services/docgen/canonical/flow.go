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

// Module is a code module detected by directory scanning, the unit of
// flow-based documentation. Documentation is organized around modules and
// the flows between them, not around individual functions.
type Module struct {
	// Name is the module's display name, e.g. "analyzers".
	Name string `json:"name"`

	// Path is the module directory relative to the repository root.
	Path string `json:"path"`

	Files     []string `json:"files"`
	Classes   []string `json:"classes"`
	Functions []string `json:"functions"`

	// Imports lists internal modules this module imports. External
	// imports never appear here.
	Imports []string `json:"imports"`

	// Language is the module's primary language, "unknown" when the scan
	// could not decide.
	Language string `json:"language"`
}

// ModuleSummary pairs a module with its generated responsibility statement
// for documentation output.
type ModuleSummary struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Language string `json:"language"`

	// Responsibility is a 1-2 sentence summary of what the module does.
	Responsibility string `json:"responsibility"`

	// KeyClasses and KeyFunctions hold the most important members, at
	// most five each.
	KeyClasses   []string `json:"key_classes"`
	KeyFunctions []string `json:"key_functions"`

	FileCount int `json:"file_count"`
}

// EntryPoint is a public entry surface found during flow analysis.
type EntryPoint struct {
	// Name is the entry point identifier, e.g. "serve" or "/api/users".
	Name string `json:"name"`

	// Type is one of the EntryType constants.
	Type string `json:"type"`

	File string `json:"file"`
	Line int    `json:"line"`

	// Description is extracted from a docstring or annotation, when found.
	Description string `json:"description,omitempty"`

	// Method is the HTTP verb for api_endpoint entries.
	Method string `json:"method,omitempty"`
}

// Integration type values used by external-integration detection.
const (
	IntegrationDatabase = "database"
	IntegrationHTTP     = "http"
	IntegrationQueue    = "queue"
	IntegrationCache    = "cache"
	IntegrationStorage  = "storage"
	IntegrationLLM      = "llm"
)

// ExternalIntegration is a detected dependency on an external service.
type ExternalIntegration struct {
	// Name is the service, e.g. "PostgreSQL" or "Redis".
	Name string `json:"name"`

	// Type is one of the Integration constants.
	Type string `json:"type"`

	// Library is the client library that revealed the integration.
	Library string `json:"library"`

	// Locations lists the files where the integration appears.
	Locations []string `json:"locations"`
}

// ImportEdge is a directed import relationship between two modules.
type ImportEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ImportGraph is the directed graph of internal module imports. Nodes are
// module names; edges point from the importer to the imported module.
type ImportGraph struct {
	Nodes []string     `json:"nodes"`
	Edges []ImportEdge `json:"edges"`
}

// FlowDiagram is a generated Mermaid flowchart of module relationships.
type FlowDiagram struct {
	// Mermaid is the flowchart source text.
	Mermaid string `json:"mermaid"`

	// NodeCount is the number of nodes rendered, after any grouping.
	NodeCount int `json:"node_count"`

	// Simplified is true when sub-modules were collapsed to keep the
	// diagram readable.
	Simplified bool `json:"simplified"`

	Title string `json:"title"`
}
