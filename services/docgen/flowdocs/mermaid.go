// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package flowdocs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

// Node-count thresholds for diagram simplification. Up to
// maxNodesFullDetail nodes render as-is; up to maxNodesModuleLevel
// sub-modules are grouped; beyond that only package-level structure
// remains.
const (
	maxNodesFullDetail  = 15
	maxNodesModuleLevel = 30
)

// DefaultDiagramTitle is used when the caller supplies no title.
const DefaultDiagramTitle = "Module Dependencies"

// testPackageNames are excluded entirely from collapsed diagrams.
var testPackageNames = map[string]struct{}{
	"tests":     {},
	"test":      {},
	"spec":      {},
	"specs":     {},
	"__tests__": {},
}

// GenerateFlowchart renders an import graph as a mermaid flowchart,
// simplifying large graphs so the diagram stays readable. Output is
// byte-stable for a fixed graph.
func GenerateFlowchart(graph canonical.ImportGraph, title string) canonical.FlowDiagram {
	if title == "" {
		title = DefaultDiagramTitle
	}

	if len(graph.Nodes) == 0 {
		return canonical.FlowDiagram{
			Mermaid:   "flowchart TD\n    empty[No modules detected]",
			NodeCount: 0,
			Title:     title,
		}
	}

	nodes := graph.Nodes
	edges := graph.Edges
	simplified := false

	switch {
	case len(nodes) > maxNodesModuleLevel:
		nodes, edges = collapseToTopLevel(nodes, edges)
		simplified = true
	case len(nodes) > maxNodesFullDetail:
		nodes, edges = groupSubmodules(nodes, edges)
		simplified = true
	}

	return canonical.FlowDiagram{
		Mermaid:    renderMermaid(nodes, edges, title),
		NodeCount:  len(nodes),
		Simplified: simplified,
		Title:      title,
	}
}

// collapseToTopLevel reduces a large graph to package-level structure.
// Test packages are dropped. Packages with at least three members keep
// two path levels so internal structure stays visible; smaller packages
// collapse to their top level.
func collapseToTopLevel(nodes []string, edges []canonical.ImportEdge) ([]string, []canonical.ImportEdge) {
	packageCounts := make(map[string]int)
	for _, node := range nodes {
		packageCounts[topLevel(node)]++
	}

	mainPackages := make(map[string]struct{})
	for pkg, count := range packageCounts {
		if _, isTest := testPackageNames[pkg]; !isTest && count >= 3 {
			mainPackages[pkg] = struct{}{}
		}
	}

	mapping := make(map[string]string)
	collapsedSet := make(map[string]struct{})
	for _, node := range nodes {
		parts := strings.Split(node, "/")
		top := parts[0]
		if _, isTest := testPackageNames[top]; isTest {
			continue
		}
		collapsed := top
		if _, isMain := mainPackages[top]; isMain && len(parts) >= 2 {
			collapsed = strings.Join(parts[:2], "/")
		}
		mapping[node] = collapsed
		collapsedSet[collapsed] = struct{}{}
	}

	edgeSet := make(map[canonical.ImportEdge]struct{})
	for _, e := range edges {
		if _, isTest := testPackageNames[topLevel(e.From)]; isTest {
			continue
		}
		if _, isTest := testPackageNames[topLevel(e.To)]; isTest {
			continue
		}
		from, okFrom := mapping[e.From]
		to, okTo := mapping[e.To]
		if okFrom && okTo && from != to {
			edgeSet[canonical.ImportEdge{From: from, To: to}] = struct{}{}
		}
	}

	return sortedNodeSet(collapsedSet), sortedEdgeSet(edgeSet)
}

// groupSubmodules collapses nodes deeper than two levels to their first
// two path segments, dropping self-loops that collapsing creates.
func groupSubmodules(nodes []string, edges []canonical.ImportEdge) ([]string, []canonical.ImportEdge) {
	mapping := make(map[string]string)
	groupedSet := make(map[string]struct{})
	for _, node := range nodes {
		parts := strings.Split(node, "/")
		grouped := node
		if len(parts) > 2 {
			grouped = strings.Join(parts[:2], "/")
		}
		mapping[node] = grouped
		groupedSet[grouped] = struct{}{}
	}

	edgeSet := make(map[canonical.ImportEdge]struct{})
	for _, e := range edges {
		from := mapping[e.From]
		to := mapping[e.To]
		if from != to {
			edgeSet[canonical.ImportEdge{From: from, To: to}] = struct{}{}
		}
	}

	return sortedNodeSet(groupedSet), sortedEdgeSet(edgeSet)
}

func topLevel(node string) string {
	return strings.SplitN(node, "/", 2)[0]
}

func sortedNodeSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func sortedEdgeSet(set map[canonical.ImportEdge]struct{}) []canonical.ImportEdge {
	out := make([]canonical.ImportEdge, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// renderMermaid emits flowchart syntax: node definitions with shapes
// keyed on the module's role, then edges.
func renderMermaid(nodes []string, edges []canonical.ImportEdge, title string) string {
	lines := []string{
		"%%{init: {'flowchart': {'curve': 'linear'}}}%%",
		"flowchart TD",
		"    %% " + title,
		"",
	}

	valid := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if strings.TrimSpace(n) != "" {
			valid = append(valid, n)
		}
	}

	ids := make(map[string]string, len(valid))
	for i, node := range valid {
		ids[node] = sanitizeNodeID(node, i)
	}

	for _, node := range valid {
		display := displayName(node)
		lines = append(lines, "    "+ids[node]+nodeShape(node, display))
	}

	lines = append(lines, "")

	for _, e := range edges {
		fromID, okFrom := ids[e.From]
		toID, okTo := ids[e.To]
		if !okFrom || !okTo {
			continue
		}
		lines = append(lines, "    "+fromID+" --> "+toID)
	}

	return strings.Join(lines, "\n")
}

// sanitizeNodeID makes a module name usable as a mermaid node ID.
func sanitizeNodeID(node string, index int) string {
	replacer := strings.NewReplacer("/", "_", "-", "_", ".", "_")
	sanitized := replacer.Replace(node)
	if sanitized == "" {
		return fmt.Sprintf("m%d", index)
	}
	first := rune(sanitized[0])
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		sanitized = fmt.Sprintf("m%d_%s", index, sanitized)
	}
	return sanitized
}

// displayName picks the last path segment as the node label and escapes
// characters that break mermaid labels.
func displayName(node string) string {
	parts := strings.Split(node, "/")
	name := parts[len(parts)-1]
	if strings.TrimSpace(name) == "" {
		name = parts[0]
	}
	if strings.TrimSpace(name) == "" {
		return "unnamed"
	}
	replacer := strings.NewReplacer(`"`, "'", "[", "(", "]", ")")
	return replacer.Replace(name)
}

// nodeShape picks a mermaid shape by module role: hexagons for CLI,
// stadiums for API surfaces, subroutines for models, rounded boxes for
// utilities, rectangles otherwise.
func nodeShape(node, display string) string {
	lower := strings.ToLower(node)
	switch {
	case strings.Contains(lower, "cli") || strings.Contains(lower, "command"):
		return `{{"` + display + `"}}`
	case strings.Contains(lower, "api") || strings.Contains(lower, "endpoint") || strings.Contains(lower, "route"):
		return `(["` + display + `"])`
	case strings.Contains(lower, "model") || strings.Contains(lower, "schema") || strings.Contains(lower, "entity"):
		return `[["` + display + `"]]`
	case strings.Contains(lower, "util") || strings.Contains(lower, "helper") || strings.Contains(lower, "common"):
		return `("` + display + `")`
	default:
		return `["` + display + `"]`
	}
}
