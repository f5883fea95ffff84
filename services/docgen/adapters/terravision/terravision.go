// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package terravision wraps Terravision as an infrastructure diagram
// adapter.
//
// Terravision parses Terraform configuration and emits an adjacency list
// of resources plus an optional rendered PNG. A repository without any
// .tf files yields an empty topology, not an error.
package terravision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/adapter"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/shell"
	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

const (
	toolName = "terravision"

	// drawTimeout covers debug mode, which runs terraform plan under the
	// hood.
	drawTimeout    = 3 * time.Minute
	versionTimeout = 10 * time.Second
)

// prefixToProvider maps Terraform resource type prefixes to providers.
// Ordered most specific first is unnecessary here; prefixes are disjoint.
var prefixToProvider = map[string]string{
	"aws_":          "aws",
	"google_":       "gcp",
	"azurerm_":      "azure",
	"azuread_":      "azure",
	"kubernetes_":   "kubernetes",
	"helm_":         "kubernetes",
	"null_":         "null",
	"local_":        "local",
	"random_":       "random",
	"tls_":          "tls",
	"archive_":      "archive",
	"time_":         "time",
	"external_":     "external",
	"oci_":          "oci",
	"digitalocean_": "digitalocean",
	"alicloud_":     "alicloud",
	"vsphere_":      "vsphere",
	"openstack_":    "openstack",
	"cloudflare_":   "cloudflare",
}

// Working files terravision leaves in the source directory.
var scratchFiles = []string{"architecture.dot.png", "architecture.json", "tfdata.json"}

// Adapter invokes terravision and produces canonical infrastructure.
type Adapter struct {
	logger *logging.Logger
	run    shell.RunFunc
	clock  func() time.Time

	// debug runs terravision with --debug so tfdata.json carries resource
	// metadata from the plan.
	debug bool

	cachedVersion string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithoutDebug disables --debug, skipping the terraform plan step and its
// metadata.
func WithoutDebug() Option {
	return func(a *Adapter) { a.debug = false }
}

// New returns a ready adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		logger: logging.Default(),
		run:    shell.Run,
		clock:  time.Now,
		debug:  true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register installs the adapter factory into a registry.
func Register(r *adapter.Registry, isDefault bool, opts ...Option) {
	r.Register(adapter.CapabilityDiagram, toolName, func() adapter.Tool {
		return New(opts...)
	}, isDefault)
}

// Name implements adapter.Tool.
func (a *Adapter) Name() string { return toolName }

// Capability implements adapter.Tool.
func (a *Adapter) Capability() adapter.Capability { return adapter.CapabilityDiagram }

// CheckAvailable runs `terravision --version`.
func (a *Adapter) CheckAvailable(ctx context.Context) bool {
	res, err := a.run(ctx, versionTimeout, "", toolName, "--version")
	return err == nil && res.ExitCode == 0
}

// Version returns the first line of `terravision --version` output.
func (a *Adapter) Version(ctx context.Context) string {
	if a.cachedVersion != "" {
		return a.cachedVersion
	}
	res, err := a.run(ctx, versionTimeout, "", toolName, "--version")
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	a.cachedVersion = strings.TrimSpace(strings.SplitN(res.Stdout, "\n", 2)[0])
	return a.cachedVersion
}

// tfData is the subset of tfdata.json this adapter reads.
type tfData struct {
	GraphDict map[string][]string               `json:"graphdict"`
	MetaData  map[string]map[string]json.RawMessage `json:"meta_data"`
	PlanData  struct {
		Variables map[string]struct {
			Value json.RawMessage `json:"value"`
		} `json:"variables"`
	} `json:"plandata"`
}

// Execute runs terravision over repoPath. When the tree holds no
// Terraform files an empty topology is returned immediately.
func (a *Adapter) Execute(ctx context.Context, repoPath string) (*canonical.Infrastructure, error) {
	tfFiles := findTerraformFiles(repoPath)
	if len(tfFiles) == 0 {
		a.logger.Warn("no terraform files found", "path", repoPath)
		return &canonical.Infrastructure{
			Graph:  canonical.NewInfraGraph(),
			Source: a.source(ctx, nil),
		}, nil
	}

	if !a.CheckAvailable(ctx) {
		return nil, &adapter.NotAvailableError{
			ToolName: toolName,
			Reason:   "install from: https://github.com/patrickchugh/terravision",
		}
	}

	defer a.cleanup(repoPath)

	args := []string{"draw", "--source", repoPath, "--format", "png"}
	if a.debug {
		args = append(args, "--debug")
	}

	a.logger.Info("running terravision", "path", repoPath, "tf_files", len(tfFiles))
	res, err := a.run(ctx, drawTimeout, repoPath, toolName, args...)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  fmt.Sprintf("timed out after %s processing %s", drawTimeout, repoPath),
			ExitCode: -1,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}
	if err != nil || res.ExitCode != 0 {
		return nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  "draw failed",
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}

	data, adjacency, err := a.readOutputs(repoPath)
	if err != nil {
		return nil, err
	}

	imagePath := a.persistDiagram(repoPath)

	infra := a.transform(ctx, adjacency, data, repoPath, tfFiles, imagePath)
	a.logger.Info("terravision complete",
		"nodes", infra.Graph.NodeCount(),
		"connections", infra.Graph.ConnectionCount(),
		"providers", infra.Graph.CloudProviders)
	return infra, nil
}

// readOutputs loads the graph: tfdata.json when debug mode produced one,
// else architecture.json.
func (a *Adapter) readOutputs(repoPath string) (*tfData, map[string][]string, error) {
	var data tfData
	if a.debug {
		if raw, err := os.ReadFile(filepath.Join(repoPath, "tfdata.json")); err == nil {
			if err := json.Unmarshal(raw, &data); err != nil {
				a.logger.Warn("unparseable tfdata.json", "error", err)
			} else if len(data.GraphDict) > 0 {
				return &data, data.GraphDict, nil
			}
		}
	}

	raw, err := os.ReadFile(filepath.Join(repoPath, "architecture.json"))
	if err != nil {
		return nil, nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  "no graph output produced",
			Err:      err,
		}
	}
	var adjacency map[string][]string
	if err := json.Unmarshal(raw, &adjacency); err != nil {
		return nil, nil, &adapter.ExecutionError{
			ToolName: toolName,
			Message:  fmt.Sprintf("unparseable graph output: %v", err),
			Err:      err,
		}
	}
	return &data, adjacency, nil
}

// persistDiagram moves the rendered PNG into docs/architecture.png before
// cleanup removes the scratch copy. Returns the destination path, empty
// when no diagram was rendered.
func (a *Adapter) persistDiagram(repoPath string) string {
	src := filepath.Join(repoPath, "architecture.dot.png")
	raw, err := os.ReadFile(src)
	if err != nil {
		return ""
	}
	docsDir := filepath.Join(repoPath, "docs")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return ""
	}
	dest := filepath.Join(docsDir, "architecture.png")
	if err := os.WriteFile(dest, raw, 0o644); err != nil {
		return ""
	}
	a.logger.Info("architecture diagram saved", "path", dest)
	return dest
}

func (a *Adapter) cleanup(repoPath string) {
	for _, name := range scratchFiles {
		_ = os.Remove(filepath.Join(repoPath, name))
	}
}

func (a *Adapter) source(ctx context.Context, sourceFiles []string) *canonical.InfraSource {
	version := a.Version(ctx)
	if version == "" {
		version = "unknown"
	}
	return &canonical.InfraSource{
		Tool:        toolName,
		ToolVersion: version,
		GeneratedAt: a.clock().UTC(),
		SourceFiles: sourceFiles,
		SourceType:  "terraform",
	}
}

// transform converts the adjacency list into the canonical graph. Node
// IDs iterate sorted so output is deterministic.
func (a *Adapter) transform(
	ctx context.Context,
	adjacency map[string][]string,
	data *tfData,
	repoPath string,
	tfFiles []string,
	imagePath string,
) *canonical.Infrastructure {
	graph := canonical.NewInfraGraph()

	nodeIDs := make([]string, 0, len(adjacency))
	for id := range adjacency {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	for _, nodeID := range nodeIDs {
		resourceType, resourceName := splitNodeID(nodeID)
		graph.AddNode(nodeID, canonical.NodeMetadata{
			Type:       resourceType,
			Provider:   providerFor(resourceType),
			Name:       resourceName,
			Attributes: extractAttributes(nodeID, data),
		})
		for _, target := range adjacency[nodeID] {
			if target != "" {
				graph.AddConnection(nodeID, target)
			}
		}
	}

	infra := &canonical.Infrastructure{
		Graph:  graph,
		Source: a.source(ctx, tfFiles),
	}
	if imagePath != "" {
		infra.RenderedImage = &canonical.RenderedImage{Format: "png", Path: imagePath}
	}

	if data != nil && len(data.PlanData.Variables) > 0 {
		vars := make(map[string]string, len(data.PlanData.Variables))
		for name, v := range data.PlanData.Variables {
			vars["terraform_variable."+name] = rawToString(v.Value)
		}
		infra.Source.Metadata = vars
	}
	return infra
}

// splitNodeID parses "aws_lambda_function.proxy" into type and name.
func splitNodeID(nodeID string) (resourceType, resourceName string) {
	parts := strings.SplitN(nodeID, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "unknown", nodeID
}

// providerFor maps a resource type to its cloud provider by prefix.
func providerFor(resourceType string) string {
	for prefix, provider := range prefixToProvider {
		if strings.HasPrefix(resourceType, prefix) {
			return provider
		}
	}
	return "unknown"
}

// Attribute keys that never carry documentation value.
var excludedAttrKeys = map[string]struct{}{
	"module":   {},
	"id":       {},
	"arn":      {},
	"tags_all": {},
}

// extractAttributes filters plan metadata for a node: internal fields,
// computed placeholders (bare true), nulls, and empty collections drop
// out.
func extractAttributes(nodeID string, data *tfData) map[string]string {
	if data == nil {
		return nil
	}
	raw, ok := data.MetaData[nodeID]
	if !ok || len(raw) == 0 {
		return nil
	}

	attrs := make(map[string]string)
	for key, value := range raw {
		if _, excluded := excludedAttrKeys[key]; excluded {
			continue
		}
		s := strings.TrimSpace(string(value))
		switch s {
		case "true", "null", "[]", "{}", "":
			continue
		}
		attrs[key] = rawToString(value)
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// rawToString renders a JSON value as a plain string: quoted strings are
// unwrapped, everything else keeps its JSON encoding.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// findTerraformFiles walks repoPath for .tf files, skipping .terraform
// caches. Paths are relative to the repository root and sorted.
func findTerraformFiles(repoPath string) []string {
	var files []string
	_ = filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".terraform" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".tf" {
			rel, relErr := filepath.Rel(repoPath, path)
			if relErr == nil {
				files = append(files, rel)
			}
		}
		return nil
	})
	sort.Strings(files)
	return files
}
