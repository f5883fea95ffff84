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

import "time"

// NodeMetadata describes a single resource node in an infrastructure graph.
type NodeMetadata struct {
	// Type is the resource type, e.g. "aws_s3_bucket".
	Type string `json:"type"`

	// Provider is the cloud provider: "aws", "gcp", or "azure".
	Provider string `json:"provider"`

	// Name is a human-readable label, when available.
	Name string `json:"name,omitempty"`

	// Attributes carries key resource properties (region, size).
	Attributes map[string]string `json:"attributes,omitempty"`
}

// InfraGraph is a hybrid structure: an adjacency list for connections plus a
// metadata map keyed by node ID.
type InfraGraph struct {
	Nodes          map[string]NodeMetadata `json:"nodes"`
	Connections    map[string][]string     `json:"connections"`
	CloudProviders []string                `json:"cloud_providers"`
}

// NewInfraGraph returns an empty graph with initialized maps.
func NewInfraGraph() *InfraGraph {
	return &InfraGraph{
		Nodes:       make(map[string]NodeMetadata),
		Connections: make(map[string][]string),
	}
}

// AddNode registers a node and tracks its provider.
func (g *InfraGraph) AddNode(id string, meta NodeMetadata) {
	g.Nodes[id] = meta
	for _, p := range g.CloudProviders {
		if p == meta.Provider {
			return
		}
	}
	g.CloudProviders = append(g.CloudProviders, meta.Provider)
}

// AddConnection records a directed edge. Duplicate edges are ignored.
func (g *InfraGraph) AddConnection(from, to string) {
	for _, existing := range g.Connections[from] {
		if existing == to {
			return
		}
	}
	g.Connections[from] = append(g.Connections[from], to)
}

// ConnectionsFrom returns the nodes reachable in one hop from the given node.
func (g *InfraGraph) ConnectionsFrom(id string) []string {
	return g.Connections[id]
}

// NodeCount returns the total number of nodes.
func (g *InfraGraph) NodeCount() int { return len(g.Nodes) }

// ConnectionCount returns the total number of edges.
func (g *InfraGraph) ConnectionCount() int {
	n := 0
	for _, conns := range g.Connections {
		n += len(conns)
	}
	return n
}

// RenderedImage is an optional pre-rendered visualization of the graph.
type RenderedImage struct {
	// Format is the image format: "png" or "svg".
	Format string `json:"format"`

	// Path is where the image was written. Raw bytes are never embedded in
	// serialized output.
	Path string `json:"path,omitempty"`

	Data []byte `json:"-"`
}

// InfraSource records provenance for an infrastructure extraction.
type InfraSource struct {
	Tool        string    `json:"tool"`
	ToolVersion string    `json:"tool_version"`
	GeneratedAt time.Time `json:"generated_at"`

	// SourceFiles lists the infrastructure definitions that were read.
	SourceFiles []string `json:"source_files"`

	// SourceType is the definition format: "terraform", "cloudformation",
	// "pulumi", or "manual".
	SourceType string `json:"source_type"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Infrastructure is the canonical infrastructure topology produced by
// diagram tool adapters.
type Infrastructure struct {
	Graph         *InfraGraph    `json:"graph"`
	RenderedImage *RenderedImage `json:"rendered_image,omitempty"`
	Source        *InfraSource   `json:"source,omitempty"`
}

// HasImage reports whether a rendered image is attached.
func (i *Infrastructure) HasImage() bool { return i.RenderedImage != nil }

// CloudProviders returns the providers present in the graph.
func (i *Infrastructure) CloudProviders() []string {
	if i.Graph == nil {
		return nil
	}
	return i.Graph.CloudProviders
}
