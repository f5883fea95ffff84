// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline orchestrates the analysis stages in a fixed order:
// every deterministic stage runs and its results are merged into one
// aggregate before any generative call is made.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/repodoc/pkg/logging"
	"github.com/AleutianAI/repodoc/services/docgen/adapter"
	"github.com/AleutianAI/repodoc/services/docgen/canonical"
	"github.com/AleutianAI/repodoc/services/docgen/flowdocs"
	"github.com/AleutianAI/repodoc/services/docgen/llm"
	"github.com/AleutianAI/repodoc/services/docgen/manifest"
	"github.com/AleutianAI/repodoc/services/docgen/repo"
	"github.com/AleutianAI/repodoc/services/docgen/telemetry"
)

// Per-tool execution timeouts. Diagram extraction gets a tighter bound
// than SBOM scanning because terravision renders graphs; syft walks the
// whole dependency closure.
const (
	sbomTimeout        = 5 * time.Minute
	diagramTimeout     = 2 * time.Minute
	compressionTimeout = 3 * time.Minute
)

// Pipeline runs the staged analysis. Stages execute synchronously in a
// fixed order; the only shared mutable state is the AnalysisResult, which
// only the orchestrator touches.
type Pipeline struct {
	registry  *adapter.Registry
	toolNames map[adapter.Capability]string
	narrator  *llm.Narrator
	logger    *logging.Logger
	metrics   *telemetry.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithNarrator injects the generative narration client. Without one,
// narration stages emit placeholder text.
func WithNarrator(n *llm.Narrator) Option {
	return func(p *Pipeline) { p.narrator = n }
}

// WithToolSelection overrides the registry default tool per capability.
func WithToolSelection(selection map[adapter.Capability]string) Option {
	return func(p *Pipeline) {
		for cap, name := range selection {
			p.toolNames[cap] = name
		}
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New builds a pipeline over the given adapter registry. A nil registry
// uses the process-wide default.
func New(registry *adapter.Registry, opts ...Option) *Pipeline {
	if registry == nil {
		registry = adapter.Default()
	}
	p := &Pipeline{
		registry:  registry,
		toolNames: make(map[adapter.Capability]string),
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full analysis over a repository. The returned result
// is always non-nil and terminal; the error return covers only
// repository validation, which prevents the run from starting at all.
func (p *Pipeline) Run(ctx context.Context, repository *repo.Repository, opts Options) (*AnalysisResult, error) {
	warnings, err := repository.Validate()
	if err != nil {
		return nil, fmt.Errorf("repository validation: %w", err)
	}
	for _, w := range warnings {
		p.logger.Warn("repository warning", "warning", w)
	}

	result := NewAnalysisResult(repository.Path, repository.Name)
	result.Status = StatusRunning
	result.GitRef = repo.GitRevision(ctx, repository.Path)

	p.logger.Info("starting analysis pipeline",
		"repository", repository.Name, "run_id", result.RunID)

	if err := p.runStages(ctx, repository, result, opts); err != nil {
		p.logger.Error("pipeline halted", "error", err)
		if !result.HasFatalErrors() {
			result.AddError(AnalysisError{
				Component:   "pipeline",
				Message:     err.Error(),
				Recoverable: false,
			})
			p.metrics.RecordError("pipeline", false)
		}
	}

	if result.HasFatalErrors() {
		result.Status = StatusFailed
	} else {
		result.Status = StatusCompleted
	}

	p.logger.Info("analysis complete",
		"status", string(result.Status), "errors", len(result.Errors))
	return result, nil
}

// runStages executes the stage sequence. A returned error halts the run;
// recoverable failures are recorded on the result and return nil.
func (p *Pipeline) runStages(ctx context.Context, repository *repo.Repository, result *AnalysisResult, opts Options) error {
	if !opts.SkipDependencies {
		if err := p.stage("dependency", result, func() error {
			return p.runManifestScan(repository, result)
		}); err != nil {
			return err
		}
	}

	if !opts.SkipCompression {
		if err := p.stage("compression", result, func() error {
			return p.runCompression(ctx, repository, result, opts)
		}); err != nil {
			return err
		}
	}

	if !opts.SkipStructure {
		if err := p.stage("structure", result, func() error {
			return p.runStructureParse(ctx, repository, result, opts)
		}); err != nil {
			return err
		}
	}

	if !opts.SkipFlowDocs && result.Structure != nil {
		if err := p.stage("flow_docs", result, func() error {
			p.runFlowDocumentation(repository, result)
			return nil
		}); err != nil {
			return err
		}
	}

	if !opts.SkipSBOM {
		if err := p.stage("sbom", result, func() error {
			return p.runSBOMScan(ctx, repository, result, opts)
		}); err != nil {
			return err
		}
	}

	if !opts.SkipInfrastructure {
		if err := p.stage("architecture", result, func() error {
			return p.runInfrastructureScan(ctx, repository, result, opts)
		}); err != nil {
			return err
		}
	}

	// Deterministic analysis is complete past this point; only now may
	// generative calls happen.
	if opts.SkipNarration {
		p.logger.Info("narration skipped, applying placeholder summaries")
		p.applyPlaceholders(result)
	} else {
		if err := p.stage("narration", result, func() error {
			return p.runNarration(ctx, result, opts)
		}); err != nil {
			return err
		}
	}

	if !opts.SkipCompression && !opts.SkipNarration && result.Compressed != nil {
		if err := p.stage("holistic_overview", result, func() error {
			return p.runHolisticOverview(ctx, repository, result)
		}); err != nil {
			return err
		}
	}

	return nil
}

// stage wraps one stage execution with timing and metrics.
func (p *Pipeline) stage(name string, result *AnalysisResult, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.ObserveStage(name, time.Since(start), err == nil)
	return err
}

// recordError appends an analysis error and counts it.
func (p *Pipeline) recordError(result *AnalysisResult, component, message string, recoverable bool) {
	result.AddError(AnalysisError{
		Component:   component,
		Message:     message,
		Recoverable: recoverable,
	})
	p.metrics.RecordError(component, recoverable)
}

func (p *Pipeline) runManifestScan(repository *repo.Repository, result *AnalysisResult) error {
	p.logger.Info("stage: parsing dependency manifests")

	stack := manifest.NewParser(p.logger).ParseDirectory(repository.Path)
	result.TechStack = stack

	p.logger.Info("manifest scan complete",
		"languages", len(stack.Languages),
		"frameworks", len(stack.Frameworks),
		"dependencies", len(stack.Dependencies))
	return nil
}

func (p *Pipeline) runCompression(ctx context.Context, repository *repo.Repository, result *AnalysisResult, opts Options) error {
	p.logger.Info("stage: compressing codebase")

	tool, err := p.getAdapter(adapter.CapabilityCompression)
	if err != nil {
		p.recordError(result, "compression", err.Error(), true)
		return nil
	}
	comp, ok := tool.(adapter.CompressionAdapter)
	if !ok {
		p.recordError(result, "compression",
			fmt.Sprintf("tool %s does not implement compression", tool.Name()), true)
		return nil
	}
	if ex, ok := tool.(interface{ AddExcludePatterns(...string) }); ok && len(opts.ExcludePatterns) > 0 {
		ex.AddExcludePatterns(opts.ExcludePatterns...)
	}

	result.ToolVersions[string(adapter.CapabilityCompression)] = versionOrUnknown(ctx, tool)

	execCtx, cancel := context.WithTimeout(ctx, compressionTimeout)
	defer cancel()
	compressed, err := comp.Execute(execCtx, repository.Path)
	p.metrics.RecordToolInvocation(tool.Name(), err == nil)
	if err != nil {
		// Compression is best-effort even under fail-fast: later stages
		// do not depend on it and the holistic overview degrades cleanly.
		p.recordError(result, "compression",
			fmt.Sprintf("codebase compression failed: %v", err), true)
		return nil
	}

	result.Compressed = compressed
	p.logger.Info("codebase compressed",
		"files", compressed.FileCount,
		"tokens", compressed.TokenCount,
		"chars", len(compressed.Content))
	return nil
}

func (p *Pipeline) runStructureParse(ctx context.Context, repository *repo.Repository, result *AnalysisResult, opts Options) error {
	p.logger.Info("stage: parsing source structure")

	tool, err := p.getAdapter(adapter.CapabilityStructure)
	if err != nil {
		p.recordError(result, "structure", err.Error(), true)
		return nil
	}
	parser, ok := tool.(adapter.StructureAdapter)
	if !ok {
		p.recordError(result, "structure",
			fmt.Sprintf("tool %s does not implement structure parsing", tool.Name()), true)
		return nil
	}
	if ex, ok := tool.(interface{ AddExcludePatterns(...string) }); ok && len(opts.ExcludePatterns) > 0 {
		ex.AddExcludePatterns(opts.ExcludePatterns...)
	}

	result.ToolVersions[string(adapter.CapabilityStructure)] = versionOrUnknown(ctx, tool)

	structure, err := parser.Execute(ctx, repository.Path)
	p.metrics.RecordToolInvocation(tool.Name(), err == nil)
	if err != nil {
		p.recordError(result, "structure",
			fmt.Sprintf("structure parsing failed: %v", err), true)
		if opts.FailFast {
			return fmt.Errorf("structure parsing failed: %w", err)
		}
		return nil
	}

	result.Structure = structure
	p.mergeLanguageCounts(result, structure)

	p.logger.Info("structure parsed",
		"modules", len(structure.Modules),
		"classes", len(structure.Classes),
		"functions", len(structure.Functions))
	return nil
}

// runFlowDocumentation derives modules, the import graph, entry points,
// integrations, and the rendered diagram from the structure parse. All
// detectors are pure over already-loaded data, so there is nothing to
// fail recoverably here.
func (p *Pipeline) runFlowDocumentation(repository *repo.Repository, result *AnalysisResult) {
	p.logger.Info("stage: generating flow documentation")

	modules := flowdocs.NewModuleDetector(repository.Path, p.logger).Detect(result.Structure)
	p.logger.Info("modules detected", "count", len(modules))

	graph := flowdocs.NewGraphBuilder(p.logger).Build(result.Structure, modules)
	result.ImportGraph = &graph
	p.logger.Info("import graph built",
		"nodes", len(graph.Nodes), "edges", len(graph.Edges))

	result.EntryPoints = flowdocs.NewEntryPointDetector(repository.Path, p.logger).Detect()
	p.logger.Info("entry points detected", "count", len(result.EntryPoints))

	result.Integrations = flowdocs.NewIntegrationDetector(repository.Path, p.logger).Detect()
	p.logger.Info("external integrations detected", "count", len(result.Integrations))

	diagram := flowdocs.GenerateFlowchart(graph, repository.Name+" Module Dependencies")
	result.FlowDiagram = &diagram
	p.logger.Info("module flowchart generated",
		"nodes", diagram.NodeCount, "simplified", diagram.Simplified)

	result.Modules = flowdocs.SummarizeModules(modules)
}

func (p *Pipeline) runSBOMScan(ctx context.Context, repository *repo.Repository, result *AnalysisResult, opts Options) error {
	p.logger.Info("stage: generating SBOM")

	tool, err := p.getAdapter(adapter.CapabilitySBOM)
	if err != nil {
		p.recordError(result, "sbom", err.Error(), true)
		return nil
	}
	scanner, ok := tool.(adapter.SBOMAdapter)
	if !ok {
		p.recordError(result, "sbom",
			fmt.Sprintf("tool %s does not implement SBOM scanning", tool.Name()), true)
		return nil
	}

	result.ToolVersions[string(adapter.CapabilitySBOM)] = versionOrUnknown(ctx, tool)

	execCtx, cancel := context.WithTimeout(ctx, sbomTimeout)
	defer cancel()
	sbom, err := scanner.Execute(execCtx, repository.Path)
	p.metrics.RecordToolInvocation(tool.Name(), err == nil)
	if err != nil {
		p.recordError(result, "sbom",
			fmt.Sprintf("SBOM generation failed: %v", err), true)
		if opts.FailFast && !adapter.IsNotAvailable(err) {
			return fmt.Errorf("SBOM generation failed: %w", err)
		}
		return nil
	}

	result.SBOM = sbom
	p.mergeSBOM(result, sbom)

	p.logger.Info("SBOM generated",
		"packages", sbom.PackageCount(),
		"direct", sbom.DirectPackageCount(),
		"ecosystems", sbom.Ecosystems())
	return nil
}

func (p *Pipeline) runInfrastructureScan(ctx context.Context, repository *repo.Repository, result *AnalysisResult, opts Options) error {
	p.logger.Info("stage: extracting infrastructure")

	tool, err := p.getAdapter(adapter.CapabilityDiagram)
	if err != nil {
		p.recordError(result, "architecture", err.Error(), true)
		return nil
	}
	extractor, ok := tool.(adapter.DiagramAdapter)
	if !ok {
		p.recordError(result, "architecture",
			fmt.Sprintf("tool %s does not implement diagram extraction", tool.Name()), true)
		return nil
	}

	result.ToolVersions[string(adapter.CapabilityDiagram)] = versionOrUnknown(ctx, tool)

	execCtx, cancel := context.WithTimeout(ctx, diagramTimeout)
	defer cancel()
	infra, err := extractor.Execute(execCtx, repository.Path)
	p.metrics.RecordToolInvocation(tool.Name(), err == nil)
	if err != nil {
		p.recordError(result, "architecture",
			fmt.Sprintf("infrastructure extraction failed: %v", err), true)
		if opts.FailFast && !adapter.IsNotAvailable(err) {
			return fmt.Errorf("infrastructure extraction failed: %w", err)
		}
		return nil
	}

	result.Infrastructure = infra
	p.logger.Info("infrastructure extracted",
		"nodes", infra.Graph.NodeCount(),
		"connections", infra.Graph.ConnectionCount(),
		"providers", infra.CloudProviders())
	return nil
}

// runNarration generates prose for every section. Narration is a
// required capability once requested: an unreachable backend is a fatal
// error, never a silent downgrade to placeholders.
func (p *Pipeline) runNarration(ctx context.Context, result *AnalysisResult, opts Options) error {
	p.logger.Info("stage: generating narration")

	if p.narrator == nil {
		p.logger.Info("no narration client configured, applying placeholder summaries")
		p.applyPlaceholders(result)
		return nil
	}

	if !p.narrator.CheckAvailable(ctx) {
		msg := fmt.Sprintf("narration model %q is not reachable; narration is required when enabled",
			p.narrator.Model())
		p.recordError(result, "llm", msg, false)
		return fmt.Errorf("narration unavailable: model %q", p.narrator.Model())
	}

	generators := []struct {
		section  string
		generate func() (string, error)
	}{
		{llm.SectionOverview, func() (string, error) {
			return p.narrator.GenerateOverview(ctx, buildOverviewFacts(result))
		}},
		{llm.SectionTechStack, func() (string, error) {
			return p.narrator.GenerateTechStack(ctx, buildTechStackFacts(result))
		}},
		{llm.SectionArchitecture, func() (string, error) {
			return p.narrator.GenerateArchitecture(ctx, buildArchitectureFacts(result))
		}},
		{llm.SectionDependencies, func() (string, error) {
			return p.narrator.GenerateDependencies(ctx, buildDependencyFacts(result))
		}},
	}

	generated := 0
	for _, g := range generators {
		text, err := g.generate()
		if err != nil {
			// GenerateSection already substituted the placeholder; a
			// transient per-section failure is not fatal to the run.
			p.logger.Warn("section narration failed, using placeholder",
				"section", g.section, "error", err)
		} else {
			generated++
		}
		result.Narration[g.section] = text
		if opts.VerboseNarration {
			p.logger.Debug("section narrated", "section", g.section, "text", text)
		}
	}

	p.logger.Info("narration complete",
		"generated", generated, "sections", len(generators))
	return nil
}

func (p *Pipeline) runHolisticOverview(ctx context.Context, repository *repo.Repository, result *AnalysisResult) error {
	p.logger.Info("stage: generating holistic overview")

	if p.narrator == nil {
		p.logger.Info("no narration client configured, skipping holistic overview")
		return nil
	}

	var languages []string
	if result.TechStack != nil {
		for _, l := range result.TechStack.Languages {
			languages = append(languages, l.Name)
		}
	}

	content := result.Compressed.Content
	if configContext := CollectConfigContext(repository.Path, p.logger); configContext != "" {
		content = content + "\n" + configContext
	}

	overview, err := p.narrator.GenerateHolisticOverview(
		ctx, result.RepositoryName, content, languages, result.Compressed.FileCount)
	result.Holistic = overview
	if err != nil {
		p.recordError(result, "holistic_overview",
			fmt.Sprintf("holistic overview generation failed: %v", err), true)
		return nil
	}

	p.logger.Info("holistic overview generated",
		"purpose_chars", len(overview.Purpose),
		"components", len(overview.CoreComponents))
	return nil
}

// applyPlaceholders fills every narration section so the rendered
// document is never missing one.
func (p *Pipeline) applyPlaceholders(result *AnalysisResult) {
	for _, section := range llm.Sections {
		result.Narration[section] = llm.Placeholder(section)
	}
}

// mergeLanguageCounts folds per-language file counts from the structure
// parse into the manifest scan's language list.
func (p *Pipeline) mergeLanguageCounts(result *AnalysisResult, structure *canonical.Structure) {
	if result.TechStack == nil {
		result.TechStack = &manifest.TechStack{}
	}

	counts := make(map[string]int)
	for _, m := range structure.Modules {
		counts[m.Language]++
	}

	for i := range result.TechStack.Languages {
		if n, ok := counts[result.TechStack.Languages[i].Name]; ok {
			result.TechStack.Languages[i].FileCount = n
			delete(counts, result.TechStack.Languages[i].Name)
		}
	}
	for _, lang := range structure.Languages() {
		if n, ok := counts[lang]; ok {
			result.TechStack.Languages = append(result.TechStack.Languages,
				manifest.LanguageInfo{Name: lang, FileCount: n})
		}
	}
}

// mergeSBOM folds scanned packages into the technology stack. A package
// already known from a manifest only gains a license, and only when the
// manifest did not state one; unknown packages are appended.
func (p *Pipeline) mergeSBOM(result *AnalysisResult, sbom *canonical.SBOM) {
	if result.TechStack == nil {
		result.TechStack = &manifest.TechStack{}
	}

	type depKey struct{ name, ecosystem string }
	existing := make(map[depKey]int, len(result.TechStack.Dependencies))
	for i, d := range result.TechStack.Dependencies {
		existing[depKey{d.Name, d.Ecosystem}] = i
	}

	for _, pkg := range sbom.Packages {
		if i, ok := existing[depKey{pkg.Name, pkg.Ecosystem}]; ok {
			if pkg.License != "" && result.TechStack.Dependencies[i].License == "" {
				result.TechStack.Dependencies[i].License = pkg.License
			}
			continue
		}
		sourceFile := pkg.SourceFile
		if sourceFile == "" {
			sourceFile = "SBOM"
		}
		result.TechStack.Dependencies = append(result.TechStack.Dependencies,
			manifest.Dependency{
				Name:       pkg.Name,
				Ecosystem:  pkg.Ecosystem,
				Version:    pkg.Version,
				License:    pkg.License,
				SourceFile: sourceFile,
			})
	}
}

// getAdapter resolves the configured tool for a capability.
func (p *Pipeline) getAdapter(capability adapter.Capability) (adapter.Tool, error) {
	return p.registry.Get(capability, p.toolNames[capability])
}

func versionOrUnknown(ctx context.Context, tool adapter.Tool) string {
	if v := tool.Version(ctx); v != "" {
		return v
	}
	return "unknown"
}
