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
	"github.com/AleutianAI/repodoc/services/docgen/llm"
)

// maxFactDeps bounds how many dependencies a fact struct carries into a
// prompt.
const maxFactDeps = 20

// buildOverviewFacts extracts the overview section's facts from the
// aggregate.
func buildOverviewFacts(result *AnalysisResult) llm.OverviewFacts {
	facts := llm.OverviewFacts{
		RepositoryName: result.RepositoryName,
	}

	if result.TechStack != nil {
		for _, l := range result.TechStack.Languages {
			facts.Languages = append(facts.Languages, l.Name)
		}
		for _, f := range result.TechStack.Frameworks {
			facts.Frameworks = append(facts.Frameworks, f.Name)
		}
	}

	if result.SBOM != nil {
		facts.DirectDeps = result.SBOM.DirectPackageCount()
		facts.TotalPackages = result.SBOM.PackageCount()
		facts.Ecosystems = result.SBOM.Ecosystems()
	}

	if result.Infrastructure != nil && result.Infrastructure.Graph != nil {
		facts.InfraResources = result.Infrastructure.Graph.NodeCount()
		facts.CloudProviders = result.Infrastructure.CloudProviders()
	}

	if result.Structure != nil {
		facts.ModuleCount = len(result.Structure.Modules)
		facts.ClassCount = len(result.Structure.Classes)
		facts.FunctionCount = len(result.Structure.Functions)
	}

	return facts
}

// buildTechStackFacts extracts the tech-stack section's facts.
func buildTechStackFacts(result *AnalysisResult) llm.TechStackFacts {
	var facts llm.TechStackFacts
	if result.TechStack == nil {
		return facts
	}

	for _, l := range result.TechStack.Languages {
		facts.Languages = append(facts.Languages,
			llm.LanguageFact{Name: l.Name, Version: l.Version})
	}
	for _, f := range result.TechStack.Frameworks {
		facts.Frameworks = append(facts.Frameworks,
			llm.LanguageFact{Name: f.Name, Version: f.Version})
	}
	for i, d := range result.TechStack.Dependencies {
		if i >= maxFactDeps {
			break
		}
		facts.Dependencies = append(facts.Dependencies,
			llm.DependencyFact{Name: d.Name, Version: d.Version, Ecosystem: d.Ecosystem})
	}
	facts.TotalDeps = len(result.TechStack.Dependencies)
	return facts
}

// buildArchitectureFacts extracts the architecture section's facts.
func buildArchitectureFacts(result *AnalysisResult) llm.ArchitectureFacts {
	var facts llm.ArchitectureFacts
	infra := result.Infrastructure
	if infra == nil || infra.Graph == nil || infra.Graph.NodeCount() == 0 {
		return facts
	}

	facts.HasArchitecture = true
	facts.Providers = infra.Graph.CloudProviders
	facts.NodeCount = infra.Graph.NodeCount()
	facts.ConnectionCount = infra.Graph.ConnectionCount()

	facts.ResourcesByType = make(map[string][]string)
	for _, node := range infra.Graph.Nodes {
		facts.ResourcesByType[node.Type] = append(facts.ResourcesByType[node.Type], node.Name)
	}

	if infra.Source != nil && len(infra.Source.Metadata) > 0 {
		facts.TerraformVariables = infra.Source.Metadata
	}

	return facts
}

// buildDependencyFacts extracts the dependencies section's facts.
func buildDependencyFacts(result *AnalysisResult) llm.DependencyFacts {
	var facts llm.DependencyFacts
	if result.SBOM == nil {
		return facts
	}

	facts.HasSBOM = true
	facts.TotalPackages = result.SBOM.PackageCount()
	facts.DirectCount = result.SBOM.DirectPackageCount()
	facts.Ecosystems = result.SBOM.Ecosystems()

	for i, pkg := range result.SBOM.DirectPackages() {
		if i >= maxFactDeps {
			break
		}
		facts.DirectDeps = append(facts.DirectDeps,
			llm.DependencyFact{Name: pkg.Name, Version: pkg.Version, Ecosystem: pkg.Ecosystem})
	}

	return facts
}
