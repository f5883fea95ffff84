// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package canonical defines the tool-agnostic data model shared by all
// analysis adapters.
//
// Every external tool (syft, repomix, terravision, the tree-sitter parsers)
// transforms its native output into these types before any other package sees
// it. Downstream consumers - the pipeline, the narration layer, the renderers -
// depend only on this package, never on tool-specific formats, so tools can be
// swapped without touching the rest of the codebase.
//
// Design principles:
//   - Concrete types only, no map[string]interface{} payloads
//   - Deterministic accessors: anything that returns a derived list sorts it
//   - Optional fields carry omitempty so serialized output stays minimal
package canonical

import (
	"sort"
	"time"
)

// SBOMSource records provenance for a dependency scan.
type SBOMSource struct {
	// Tool is the scanner that produced the SBOM (e.g. "syft").
	Tool string `json:"tool"`

	// ToolVersion is the scanner's reported version string.
	ToolVersion string `json:"tool_version"`

	// ScannedAt is when the scan ran, always UTC.
	ScannedAt time.Time `json:"scanned_at"`

	// Target is what was scanned, typically the repository path.
	Target string `json:"target"`
}

// Package is a single dependency normalized across ecosystems.
type Package struct {
	// Name is the package name as declared in its ecosystem.
	Name string `json:"name"`

	// Ecosystem identifies the package universe: npm, pypi, go, maven, cargo.
	Ecosystem string `json:"ecosystem"`

	// Version is the resolved version string, empty when unknown.
	Version string `json:"version,omitempty"`

	// License is an SPDX identifier when the scanner could determine one.
	// Multiple detected licenses are joined with " AND ".
	License string `json:"license,omitempty"`

	// SourceFile is the manifest that declared the dependency, when known.
	SourceFile string `json:"source_file,omitempty"`

	// PURL is the package URL identifier, when the scanner emits one.
	PURL string `json:"purl,omitempty"`

	// IsDirect is true when the package is declared in a manifest file
	// rather than pulled in transitively.
	IsDirect bool `json:"is_direct,omitempty"`
}

// SBOM is the canonical software bill of materials for a repository.
type SBOM struct {
	Packages []Package   `json:"packages"`
	Source   *SBOMSource `json:"source,omitempty"`
}

// AddPackage appends a package to the SBOM.
func (s *SBOM) AddPackage(pkg Package) {
	s.Packages = append(s.Packages, pkg)
}

// PackagesByEcosystem returns all packages belonging to the given ecosystem.
func (s *SBOM) PackagesByEcosystem(ecosystem string) []Package {
	var out []Package
	for _, p := range s.Packages {
		if p.Ecosystem == ecosystem {
			out = append(out, p)
		}
	}
	return out
}

// Ecosystems returns the sorted set of unique ecosystems present.
func (s *SBOM) Ecosystems() []string {
	seen := make(map[string]struct{})
	for _, p := range s.Packages {
		seen[p.Ecosystem] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for eco := range seen {
		out = append(out, eco)
	}
	sort.Strings(out)
	return out
}

// DirectPackages returns only dependencies declared in manifest files.
func (s *SBOM) DirectPackages() []Package {
	var out []Package
	for _, p := range s.Packages {
		if p.IsDirect {
			out = append(out, p)
		}
	}
	return out
}

// TransitivePackages returns only dependencies pulled in automatically.
func (s *SBOM) TransitivePackages() []Package {
	var out []Package
	for _, p := range s.Packages {
		if !p.IsDirect {
			out = append(out, p)
		}
	}
	return out
}

// PackageCount returns the total number of packages.
func (s *SBOM) PackageCount() int { return len(s.Packages) }

// DirectPackageCount returns how many packages are direct dependencies.
func (s *SBOM) DirectPackageCount() int { return len(s.DirectPackages()) }
