// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package adapter defines the pluggable tool contract and the registry that
// resolves capability names to adapter implementations.
//
// Every external analysis tool is wrapped in an adapter that invokes the
// tool, parses its native output, and transforms it into the canonical
// model. Adding a new tool means implementing one of the capability
// interfaces and registering a factory; nothing outside the adapter's own
// package changes.
package adapter

import (
	"context"

	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

// Capability identifies a class of analysis an adapter can provide. Tools
// are selected per capability in configuration, never hardcoded by name at
// call sites.
type Capability string

const (
	// CapabilitySBOM produces a software bill of materials.
	CapabilitySBOM Capability = "sbom"

	// CapabilityDiagram extracts infrastructure topology from IaC files.
	CapabilityDiagram Capability = "diagram"

	// CapabilityStructure parses source code into the canonical structure
	// report.
	CapabilityStructure Capability = "structure"

	// CapabilityCompression produces a skeletonized codebase rendering.
	CapabilityCompression Capability = "compression"
)

// Tool is the base contract every adapter implements.
//
// CheckAvailable must be cheap and side-effect free; the preflight gate and
// the registry call it before any execution. Version is best effort and may
// return an empty string when the tool does not report one.
type Tool interface {
	// Name returns the tool identifier, e.g. "syft".
	Name() string

	// Capability returns the capability this adapter provides.
	Capability() Capability

	// CheckAvailable reports whether the underlying tool is installed and
	// runnable in the current environment.
	CheckAvailable(ctx context.Context) bool

	// Version returns the tool's version string, empty when unknown.
	Version(ctx context.Context) string
}

// SBOMAdapter produces a canonical SBOM for a repository path.
type SBOMAdapter interface {
	Tool
	Execute(ctx context.Context, repoPath string) (*canonical.SBOM, error)
}

// DiagramAdapter extracts canonical infrastructure topology from a
// repository path.
type DiagramAdapter interface {
	Tool
	Execute(ctx context.Context, repoPath string) (*canonical.Infrastructure, error)
}

// StructureAdapter parses a repository's source into the canonical
// structure report.
type StructureAdapter interface {
	Tool
	Execute(ctx context.Context, repoPath string) (*canonical.Structure, error)
}

// CompressionAdapter produces a compressed codebase rendering.
type CompressionAdapter interface {
	Tool
	Execute(ctx context.Context, repoPath string) (*canonical.CompressedCodebase, error)
}
