// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package syft wraps Anchore Syft as an SBOM adapter.
//
// Syft scans filesystems and images across many package ecosystems and
// emits JSON. This adapter invokes `syft <path> -o json --quiet`, parses
// the artifact list, cross-references the direct-dependency resolver, and
// transforms everything into the canonical SBOM.
package syft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/adapter"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/shell"
	"github.com/AleutianAI/repodoc/services/docgen/canonical"
	"github.com/AleutianAI/repodoc/services/docgen/manifest"
)

const (
	toolName = "syft"

	// scanTimeout bounds a full repository scan. Large monorepos can take
	// minutes.
	scanTimeout = 5 * time.Minute

	versionTimeout = 10 * time.Second
)

// typeToEcosystem maps Syft package types to canonical ecosystem names.
// Unlisted types pass through unchanged.
var typeToEcosystem = map[string]string{
	"npm":          "npm",
	"python":       "pypi",
	"pip":          "pypi",
	"go-module":    "go",
	"gomod":        "go",
	"java-archive": "maven",
	"maven":        "maven",
	"gem":          "rubygems",
	"cargo":        "cargo",
	"rust-crate":   "cargo",
	"nuget":        "nuget",
	"dotnet":       "nuget",
	"deb":          "deb",
	"rpm":          "rpm",
	"apk":          "apk",
	"cocoapods":    "cocoapods",
	"swift":        "swift",
	"composer":     "composer",
	"php-composer": "composer",
	"hackage":      "hackage",
	"hex":          "hex",
	"pub":          "pub",
	"conan":        "conan",
	"cpan":         "cpan",
	"cran":         "cran",
}

// Adapter invokes syft and produces canonical SBOMs.
type Adapter struct {
	logger   *logging.Logger
	resolver *manifest.DirectResolver
	run      shell.RunFunc
	clock    func() time.Time

	cachedVersion string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithResolver sets the direct-dependency resolver used to mark packages
// as direct. Without one, every package is reported transitive.
func WithResolver(r *manifest.DirectResolver) Option {
	return func(a *Adapter) { a.resolver = r }
}

// New returns a ready adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		logger: logging.Default(),
		run:    shell.Run,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register installs the adapter factory into a registry.
func Register(r *adapter.Registry, isDefault bool, opts ...Option) {
	r.Register(adapter.CapabilitySBOM, toolName, func() adapter.Tool {
		return New(opts...)
	}, isDefault)
}

// Name implements adapter.Tool.
func (a *Adapter) Name() string { return toolName }

// Capability implements adapter.Tool.
func (a *Adapter) Capability() adapter.Capability { return adapter.CapabilitySBOM }

// CheckAvailable runs `syft version` and reports whether it succeeds.
func (a *Adapter) CheckAvailable(ctx context.Context) bool {
	res, err := a.run(ctx, versionTimeout, "", toolName, "version")
	return err == nil && res.ExitCode == 0
}

// Version extracts the version from `syft version` output, cached after
// the first successful call.
func (a *Adapter) Version(ctx context.Context) string {
	if a.cachedVersion != "" {
		return a.cachedVersion
	}
	res, err := a.run(ctx, versionTimeout, "", toolName, "version")
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	a.cachedVersion = parseVersion(res.Stdout)
	return a.cachedVersion
}

// parseVersion pulls a version token out of syft's multi-line version
// report.
func parseVersion(output string) string {
	output = strings.TrimSpace(output)
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "version") || strings.HasPrefix(strings.TrimSpace(line), "syft") {
			parts := strings.Fields(line)
			if len(parts) >= 2 {
				return parts[len(parts)-1]
			}
		}
	}
	if output != "" {
		return strings.SplitN(output, "\n", 2)[0]
	}
	return ""
}

// syftDocument is the subset of syft JSON output this adapter reads.
type syftDocument struct {
	Artifacts []syftArtifact `json:"artifacts"`
}

type syftArtifact struct {
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Version   string         `json:"version"`
	PURL      string         `json:"purl"`
	Licenses  []syftLicense  `json:"licenses"`
	Locations []syftLocation `json:"locations"`
}

// syftLicense accepts both the object form {"value": "MIT"} and a bare
// string, which older syft releases emitted.
type syftLicense struct {
	Value string
}

func (l *syftLicense) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		l.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Value = obj.Value
	return nil
}

// syftLocation accepts the object form {"path": "..."} and a bare string.
type syftLocation struct {
	Path string
}

func (l *syftLocation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		l.Path = s
		return nil
	}
	var obj struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Path = obj.Path
	return nil
}

// Execute scans repoPath and returns the canonical SBOM.
func (a *Adapter) Execute(ctx context.Context, repoPath string) (*canonical.SBOM, error) {
	if !a.CheckAvailable(ctx) {
		return nil, &adapter.NotAvailableError{
			ToolName: toolName,
			Reason: "install with: curl -sSfL " +
				"https://raw.githubusercontent.com/anchore/syft/main/install.sh | sh -s",
		}
	}

	a.logger.Info("running syft scan", "path", repoPath)
	res, err := a.run(ctx, scanTimeout, "", toolName, repoPath, "-o", "json", "--quiet")
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  fmt.Sprintf("scan of %s timed out after %s", repoPath, scanTimeout),
			ExitCode: -1,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}
	if err != nil || res.ExitCode != 0 {
		return nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  "scan failed",
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}

	var doc syftDocument
	if err := json.Unmarshal([]byte(res.Stdout), &doc); err != nil {
		return nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  fmt.Sprintf("unparseable JSON output: %v", err),
			Stderr:   res.Stderr,
			Err:      err,
		}
	}

	if a.resolver != nil {
		a.resolver.ResolveFromDirectory(repoPath)
	}

	sbom := a.transform(ctx, &doc, repoPath)
	a.logger.Info("syft scan complete",
		"packages", sbom.PackageCount(),
		"direct", sbom.DirectPackageCount(),
		"ecosystems", len(sbom.Ecosystems()))
	return sbom, nil
}

// transform converts parsed syft output into the canonical SBOM.
func (a *Adapter) transform(ctx context.Context, doc *syftDocument, repoPath string) *canonical.SBOM {
	version := a.Version(ctx)
	if version == "" {
		version = "unknown"
	}
	sbom := &canonical.SBOM{
		Source: &canonical.SBOMSource{
			Tool:        toolName,
			ToolVersion: version,
			ScannedAt:   a.clock().UTC(),
			Target:      repoPath,
		},
	}

	for _, artifact := range doc.Artifacts {
		if pkg, ok := a.transformArtifact(artifact); ok {
			sbom.AddPackage(pkg)
		}
	}
	return sbom
}

func (a *Adapter) transformArtifact(artifact syftArtifact) (canonical.Package, bool) {
	if artifact.Name == "" {
		return canonical.Package{}, false
	}

	pkgType := strings.ToLower(artifact.Type)
	ecosystem, ok := typeToEcosystem[pkgType]
	if !ok {
		ecosystem = pkgType
	}
	if ecosystem == "" {
		a.logger.Debug("artifact without package type", "name", artifact.Name)
		ecosystem = "unknown"
	}

	var licenseParts []string
	for _, lic := range artifact.Licenses {
		if lic.Value != "" {
			licenseParts = append(licenseParts, lic.Value)
		}
	}

	var sourceFile string
	if len(artifact.Locations) > 0 {
		sourceFile = artifact.Locations[0].Path
	}

	isDirect := false
	if a.resolver != nil {
		isDirect = a.resolver.IsDirect(artifact.Name, ecosystem)
	}

	return canonical.Package{
		Name:       artifact.Name,
		Ecosystem:  ecosystem,
		Version:    artifact.Version,
		License:    strings.Join(licenseParts, " AND "),
		SourceFile: sourceFile,
		PURL:       artifact.PURL,
		IsDirect:   isDirect,
	}, true
}
