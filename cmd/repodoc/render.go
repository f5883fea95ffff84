// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/repodoc/services/docgen/llm"
	"github.com/AleutianAI/repodoc/services/docgen/pipeline"
)

// renderMarkdown produces the system document. Output is deterministic
// for a fixed result: iteration over maps is always sorted.
func renderMarkdown(result *pipeline.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s — System Documentation\n\n", result.RepositoryName)
	fmt.Fprintf(&b, "> Generated by repodoc on %s. Regenerate instead of editing by hand.\n\n",
		result.Timestamp.Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "**Status**: %s", result.Status)
	if result.GitRef != "" {
		fmt.Fprintf(&b, " | **Git ref**: `%s`", shortRef(result.GitRef))
	}
	fmt.Fprintf(&b, " | **Run**: `%s`\n", result.RunID)

	renderOverview(&b, result)
	renderTechStack(&b, result)
	renderArchitecture(&b, result)
	renderModules(&b, result)
	renderEntryPoints(&b, result)
	renderIntegrations(&b, result)
	renderDependencies(&b, result)
	renderAnalysisDetails(&b, result)

	return strings.TrimRight(b.String(), "\n")
}

func shortRef(ref string) string {
	if len(ref) > 12 {
		return ref[:12]
	}
	return ref
}

func narration(result *pipeline.AnalysisResult, section string) string {
	if text, ok := result.Narration[section]; ok && text != "" {
		return text
	}
	return llm.Placeholder(section)
}

func renderOverview(b *strings.Builder, result *pipeline.AnalysisResult) {
	fmt.Fprintf(b, "\n## Overview\n\n%s\n", narration(result, llm.SectionOverview))

	if result.Holistic != nil {
		if md := result.Holistic.Markdown(); md != "" {
			fmt.Fprintf(b, "\n### System Analysis\n\n%s\n", md)
		}
	}
}

func renderTechStack(b *strings.Builder, result *pipeline.AnalysisResult) {
	fmt.Fprintf(b, "\n## Technology Stack\n\n%s\n", narration(result, llm.SectionTechStack))

	ts := result.TechStack
	if ts == nil {
		return
	}

	if len(ts.Languages) > 0 {
		fmt.Fprintf(b, "\n### Languages\n\n")
		fmt.Fprintf(b, "| Language | Version | Files |\n|---|---|---|\n")
		for _, lang := range ts.Languages {
			version := lang.Version
			if version == "" {
				version = "—"
			}
			files := "—"
			if lang.FileCount > 0 {
				files = fmt.Sprintf("%d", lang.FileCount)
			}
			fmt.Fprintf(b, "| %s | %s | %s |\n", lang.Name, version, files)
		}
	}

	if len(ts.Frameworks) > 0 {
		fmt.Fprintf(b, "\n### Frameworks\n\n")
		for _, f := range ts.Frameworks {
			line := "- " + f.Name
			if f.Version != "" {
				line += " " + f.Version
			}
			if f.Language != "" {
				line += " (" + f.Language + ")"
			}
			fmt.Fprintln(b, line)
		}
	}
}

func renderArchitecture(b *strings.Builder, result *pipeline.AnalysisResult) {
	fmt.Fprintf(b, "\n## Architecture\n\n%s\n", narration(result, llm.SectionArchitecture))

	infra := result.Infrastructure
	if infra == nil || infra.Graph == nil {
		return
	}

	if providers := infra.CloudProviders(); len(providers) > 0 {
		fmt.Fprintf(b, "\n**Cloud providers**: %s\n", strings.Join(providers, ", "))
	}
	fmt.Fprintf(b, "\n**Resources**: %d, **connections**: %d\n",
		infra.Graph.NodeCount(), infra.Graph.ConnectionCount())

	if infra.HasImage() && infra.RenderedImage.Path != "" {
		fmt.Fprintf(b, "\n![Infrastructure diagram](%s)\n", infra.RenderedImage.Path)
	}
}

func renderModules(b *strings.Builder, result *pipeline.AnalysisResult) {
	if len(result.Modules) == 0 && result.FlowDiagram == nil {
		return
	}
	fmt.Fprintf(b, "\n## Modules\n")

	if len(result.Modules) > 0 {
		fmt.Fprintf(b, "\n| Module | Language | Files | Responsibility |\n|---|---|---|---|\n")
		for _, m := range result.Modules {
			fmt.Fprintf(b, "| `%s` | %s | %d | %s |\n",
				m.Name, m.Language, m.FileCount, m.Responsibility)
		}
	}

	if result.FlowDiagram != nil && result.FlowDiagram.Mermaid != "" {
		fmt.Fprintf(b, "\n### Module Flow\n\n")
		if result.FlowDiagram.Simplified {
			fmt.Fprintf(b, "Sub-modules are collapsed to top-level groups for readability.\n\n")
		}
		fmt.Fprintf(b, "```mermaid\n%s\n```\n",
			strings.TrimRight(result.FlowDiagram.Mermaid, "\n"))
	}
}

func renderEntryPoints(b *strings.Builder, result *pipeline.AnalysisResult) {
	if len(result.EntryPoints) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## Entry Points\n\n")
	fmt.Fprintf(b, "| Name | Type | Location |\n|---|---|---|\n")
	for _, ep := range result.EntryPoints {
		name := ep.Name
		if ep.Method != "" {
			name = ep.Method + " " + name
		}
		fmt.Fprintf(b, "| `%s` | %s | %s:%d |\n", name, ep.Type, ep.File, ep.Line)
	}
}

func renderIntegrations(b *strings.Builder, result *pipeline.AnalysisResult) {
	if len(result.Integrations) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## External Integrations\n\n")
	for _, integ := range result.Integrations {
		line := fmt.Sprintf("- **%s** (%s)", integ.Name, integ.Type)
		if integ.Library != "" {
			line += " via `" + integ.Library + "`"
		}
		fmt.Fprintln(b, line)
	}
}

func renderDependencies(b *strings.Builder, result *pipeline.AnalysisResult) {
	fmt.Fprintf(b, "\n## Dependencies\n\n%s\n", narration(result, llm.SectionDependencies))

	if result.SBOM != nil && result.SBOM.PackageCount() > 0 {
		fmt.Fprintf(b, "\n**Packages**: %d total, %d direct. **Ecosystems**: %s\n",
			result.SBOM.PackageCount(),
			result.SBOM.DirectPackageCount(),
			strings.Join(result.SBOM.Ecosystems(), ", "))
	}

	if result.TechStack != nil && len(result.TechStack.Dependencies) > 0 {
		fmt.Fprintf(b, "\n### Direct Dependencies\n\n")
		fmt.Fprintf(b, "| Package | Version | Ecosystem | License |\n|---|---|---|---|\n")
		for _, d := range result.TechStack.Dependencies {
			version := d.Version
			if version == "" {
				version = "—"
			}
			license := d.License
			if license == "" {
				license = "—"
			}
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n", d.Name, version, d.Ecosystem, license)
		}
	}
}

func renderAnalysisDetails(b *strings.Builder, result *pipeline.AnalysisResult) {
	fmt.Fprintf(b, "\n## Analysis Details\n")

	if len(result.ToolVersions) > 0 {
		fmt.Fprintf(b, "\n### Tool Versions\n\n")
		fmt.Fprintf(b, "| Capability | Version |\n|---|---|\n")
		capabilities := make([]string, 0, len(result.ToolVersions))
		for c := range result.ToolVersions {
			capabilities = append(capabilities, c)
		}
		sort.Strings(capabilities)
		for _, c := range capabilities {
			fmt.Fprintf(b, "| %s | %s |\n", c, result.ToolVersions[c])
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(b, "\n### Analysis Warnings\n\n")
		for _, e := range result.Errors {
			severity := "recoverable"
			if !e.Recoverable {
				severity = "fatal"
			}
			line := fmt.Sprintf("- [%s] %s: %s", severity, e.Component, e.Message)
			if e.File != "" {
				line += " (" + e.File + ")"
			}
			fmt.Fprintln(b, line)
		}
	}
}
