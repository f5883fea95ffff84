package llm

import (
	"fmt"
	"sort"
	"strings"
)

// Documentation section names.
const (
	SectionOverview     = "overview"
	SectionTechStack    = "tech_stack"
	SectionArchitecture = "architecture"
	SectionDependencies = "dependencies"
)

// Sections lists every narrated section in document order.
var Sections = []string{
	SectionOverview,
	SectionTechStack,
	SectionArchitecture,
	SectionDependencies,
}

// commonRules bans hedging and vague filler so narration states detected
// facts definitively.
const commonRules = `
CRITICAL WRITING RULES - YOU MUST FOLLOW THESE:

1. NEVER use hedging language. These phrases are BANNED:
   - "appears to be", "seems to", "likely", "probably", "possibly"
   - "may be used for", "could be", "might", "presumably"

2. State detected facts DEFINITIVELY:
   WRONG: "The system appears to use AWS Lambda"
   RIGHT: "The system uses AWS Lambda"

3. If you cannot determine something from the provided data, DO NOT GUESS.

4. NEVER use vague filler phrases:
   BANNED: "various purposes", "multiple functions", "and more", "etc."

5. Use SPECIFIC names, counts, and values from the data provided.
`

// negativeAssertionRules forbids narrating absences; the reader should
// only see what exists.
const negativeAssertionRules = `
CRITICAL: NO NEGATIVE ASSERTIONS

Do NOT include statements about what is NOT present or NOT detected:
- Do NOT say "not found", "not detected", "unable to determine"
- Do NOT say "none identified", "not determinable", "no X detected"

If a section has no relevant content, simply output: N/A

The reader should only see what EXISTS, not what doesn't exist.
`

var systemPrompts = map[string]string{
	SectionOverview: "Write a 2-3 paragraph system overview for enterprise IT documentation.\n" +
		commonRules + negativeAssertionRules +
		"\nSTRUCTURE:\n" +
		"Paragraph 1: What the system IS (technologies, architecture pattern)\n" +
		"Paragraph 2: Key components and their roles\n" +
		"Paragraph 3 (if needed): Notable configurations or characteristics\n",
	SectionTechStack: "Document the detected technology stack.\n" +
		commonRules + negativeAssertionRules +
		"\nINCLUDE:\n" +
		"- Languages with exact file counts\n" +
		"- Frameworks with versions (if detected)\n" +
		"- Key dependencies by exact name\n",
	SectionArchitecture: "Document the cloud infrastructure architecture.\n" +
		commonRules + negativeAssertionRules +
		"\nINCLUDE:\n" +
		"- Each resource by its infrastructure name\n" +
		"- Specific configurations (memory, timeout, region)\n" +
		"- The architectural pattern\n",
	SectionDependencies: "Document the system dependencies from SBOM.\n" +
		commonRules + negativeAssertionRules +
		"\nINCLUDE:\n" +
		"- Direct dependency count (declared in manifest files)\n" +
		"- Total package count including transitive dependencies\n" +
		"- Ecosystem breakdown\n" +
		"- Key direct dependencies by exact name\n",
}

// SystemPrompt returns the writing instructions for a section.
func SystemPrompt(section string) string {
	if p, ok := systemPrompts[section]; ok {
		return p
	}
	return systemPrompts[SectionOverview]
}

var placeholders = map[string]string{
	SectionOverview:     "*Overview summary will be generated when LLM is configured.*",
	SectionTechStack:    "*Technology stack summary will be generated when LLM is configured.*",
	SectionArchitecture: "*Architecture summary will be generated when LLM is configured.*",
	SectionDependencies: "*Dependencies summary will be generated when LLM is configured.*",
}

// Placeholder returns the text substituted for a section when narration
// is skipped or fails, so output documents never have empty sections.
func Placeholder(section string) string {
	if p, ok := placeholders[section]; ok {
		return p
	}
	words := strings.Split(section, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return fmt.Sprintf("*%s summary pending LLM configuration.*", strings.Join(words, " "))
}

// OverviewFacts feeds the overview section prompt.
type OverviewFacts struct {
	RepositoryName string
	Languages      []string
	Frameworks     []string
	DirectDeps     int
	TotalPackages  int
	Ecosystems     []string
	InfraResources int
	CloudProviders []string
	ModuleCount    int
	ClassCount     int
	FunctionCount  int
}

// LanguageFact records one detected language for narration.
type LanguageFact struct {
	Name    string
	Version string
}

// DependencyFact records one package for narration.
type DependencyFact struct {
	Name      string
	Version   string
	Ecosystem string
}

// TechStackFacts feeds the tech-stack section prompt.
type TechStackFacts struct {
	Languages    []LanguageFact
	Frameworks   []LanguageFact
	Dependencies []DependencyFact
	TotalDeps    int
}

// ArchitectureFacts feeds the architecture section prompt.
type ArchitectureFacts struct {
	HasArchitecture    bool
	Providers          []string
	NodeCount          int
	ConnectionCount    int
	ResourcesByType    map[string][]string
	TerraformVariables map[string]string
}

// DependencyFacts feeds the dependencies section prompt.
type DependencyFacts struct {
	HasSBOM       bool
	TotalPackages int
	DirectCount   int
	Ecosystems    []string
	DirectDeps    []DependencyFact
}

const (
	overviewMaxWords     = 250
	techStackMaxWords    = 150
	architectureMaxWords = 200
	dependenciesMaxWords = 150

	// maxListedDeps bounds how many packages a prompt enumerates.
	maxListedDeps = 15
)

// BuildOverviewPrompt renders the overview prompt from typed facts.
func BuildOverviewPrompt(f OverviewFacts) string {
	var facts []string
	facts = append(facts, "Repository: "+f.RepositoryName)
	if len(f.Languages) > 0 {
		facts = append(facts, "Languages: "+strings.Join(f.Languages, ", "))
	}
	if len(f.Frameworks) > 0 {
		facts = append(facts, "Frameworks: "+strings.Join(f.Frameworks, ", "))
	}
	if f.DirectDeps > 0 {
		facts = append(facts, fmt.Sprintf("Direct dependencies: %d", f.DirectDeps))
	}
	if f.TotalPackages > 0 {
		facts = append(facts, fmt.Sprintf("Total packages (SBOM): %d", f.TotalPackages))
	}
	if len(f.Ecosystems) > 0 {
		facts = append(facts, "Package ecosystems: "+strings.Join(f.Ecosystems, ", "))
	}
	if f.InfraResources > 0 {
		facts = append(facts, fmt.Sprintf("Infrastructure resources: %d", f.InfraResources))
	}
	if len(f.CloudProviders) > 0 {
		facts = append(facts, "Cloud providers: "+strings.Join(f.CloudProviders, ", "))
	}
	if f.ModuleCount > 0 {
		facts = append(facts, fmt.Sprintf("Source modules: %d", f.ModuleCount))
		facts = append(facts, fmt.Sprintf("Classes: %d", f.ClassCount))
		facts = append(facts, fmt.Sprintf("Functions: %d", f.FunctionCount))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following analysis of '%s', write a system overview in approximately %d words:\n\nKey Facts:\n",
		f.RepositoryName, overviewMaxWords)
	for _, fact := range facts {
		b.WriteString("- " + fact + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildTechStackPrompt renders the tech-stack prompt from typed facts.
func BuildTechStackPrompt(f TechStackFacts) string {
	langs := "None detected"
	if len(f.Languages) > 0 {
		names := make([]string, 0, len(f.Languages))
		for _, l := range f.Languages {
			names = append(names, l.Name)
		}
		langs = strings.Join(names, ", ")
	}
	frameworks := "None detected"
	if len(f.Frameworks) > 0 {
		names := make([]string, 0, len(f.Frameworks))
		for _, fw := range f.Frameworks {
			names = append(names, fw.Name)
		}
		frameworks = strings.Join(names, ", ")
	}
	deps := "None detected"
	if len(f.Dependencies) > 0 {
		names := make([]string, 0, len(f.Dependencies))
		for i, d := range f.Dependencies {
			if i >= 10 {
				break
			}
			names = append(names, d.Name)
		}
		deps = strings.Join(names, ", ")
	}

	return fmt.Sprintf(
		"Summarize the technology stack in approximately %d words:\n\n"+
			"Languages: %s\nFrameworks: %s\nKey dependencies: %s\nTotal dependencies: %d",
		techStackMaxWords, langs, frameworks, deps, f.TotalDeps)
}

// BuildArchitecturePrompt renders the architecture prompt from typed
// facts. Resource types iterate sorted so prompts are reproducible.
func BuildArchitecturePrompt(f ArchitectureFacts) string {
	if !f.HasArchitecture {
		return "No infrastructure-as-code detected in this repository."
	}

	providers := "Unknown"
	if len(f.Providers) > 0 {
		providers = strings.Join(f.Providers, ", ")
	}

	types := make([]string, 0, len(f.ResourcesByType))
	for t := range f.ResourcesByType {
		types = append(types, t)
	}
	sort.Strings(types)
	var resources strings.Builder
	for _, t := range types {
		fmt.Fprintf(&resources, "- %s: %d resources\n", t, len(f.ResourcesByType[t]))
	}

	var b strings.Builder
	fmt.Fprintf(&b,
		"Describe the cloud architecture in approximately %d words:\n\n"+
			"Cloud Providers: %s\nTotal Resources: %d\nConnections: %d\nResources by Type:\n%s",
		architectureMaxWords, providers, f.NodeCount, f.ConnectionCount, resources.String())

	if len(f.TerraformVariables) > 0 {
		keys := make([]string, 0, len(f.TerraformVariables))
		for k := range f.TerraformVariables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 5 {
			keys = keys[:5]
		}
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+f.TerraformVariables[k])
		}
		b.WriteString("Configuration: " + strings.Join(pairs, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildDependenciesPrompt renders the dependencies prompt from typed
// facts.
func BuildDependenciesPrompt(f DependencyFacts) string {
	if !f.HasSBOM {
		return "No SBOM data available."
	}

	ecosystems := "None"
	if len(f.Ecosystems) > 0 {
		ecosystems = strings.Join(f.Ecosystems, ", ")
	}

	var deps strings.Builder
	for i, d := range f.DirectDeps {
		if i >= maxListedDeps {
			break
		}
		fmt.Fprintf(&deps, "- %s (%s)\n", d.Name, d.Ecosystem)
	}

	return strings.TrimRight(fmt.Sprintf(
		"Summarize the dependencies in approximately %d words:\n\n"+
			"Direct Dependencies: %d\nTotal Packages (incl. transitive): %d\n"+
			"Ecosystems: %s\nDirect Dependencies:\n%s",
		dependenciesMaxWords, f.DirectCount, f.TotalPackages, ecosystems, deps.String()), "\n")
}

// holisticSystemPrompt instructs the model analyzing a compressed
// codebase: definitive statements only, empty values for unknowns.
const holisticSystemPrompt = `You are analyzing a compressed codebase for enterprise IT architecture documentation.

The codebase has been compressed using tree-sitter skeleton extraction, showing function signatures without implementation bodies. This allows you to understand the system's structure holistically.

Your analysis must be:
- SPECIFIC: Use actual class names, function names, and module names from the code
- DEFINITIVE: State facts with certainty. Code either IS something or it ISN'T
- CONCISE: Brief descriptions only, no filler

ABSOLUTELY BANNED - Never use these words/phrases:
- "appears to", "seems to", "likely", "probably", "possibly", "may", "might", "could"
- "not found", "not detected", "not determinable", "unable to determine", "none identified"
- "from the provided information", "from the analysis", "based on the code"

CRITICAL RULE FOR MISSING INFORMATION:
- If you cannot determine something, use an EMPTY string or EMPTY array
- NEVER explain why something is missing

Focus on WHAT EXISTS:
1. What does this system DO? (purpose)
2. What pattern does it follow? (architecture_style - or empty if unclear)
3. What are the main modules/classes? (core_components)
4. How does data flow? (data_flow - or empty if unclear)
5. What patterns are used? (design_patterns - or empty array)
6. What external services/APIs does this connect to? (external_integrations)
7. How do users interact? (entry_points)
`

// maxHolisticContent bounds the compressed codebase included in the
// holistic prompt.
const maxHolisticContent = 50000

// BuildHolisticPrompt renders the single-call holistic overview prompt.
// Oversized compressed content is truncated with an explicit marker.
func BuildHolisticPrompt(repositoryName, compressedContent string, languages []string, fileCount int) string {
	languagesStr := "Not detected"
	if len(languages) > 0 {
		languagesStr = strings.Join(languages, ", ")
	}

	if len(compressedContent) > maxHolisticContent {
		omitted := len(compressedContent) - maxHolisticContent
		compressedContent = compressedContent[:maxHolisticContent] +
			fmt.Sprintf("\n\n... [truncated, %d chars omitted]", omitted)
	}

	return fmt.Sprintf(`Analyze the following compressed codebase and provide a holistic overview.

Repository: %s
Languages: %s
Total Files: %d

=== COMPRESSED CODEBASE (Function Signatures) ===
%s
=== END CODEBASE ===

Provide your analysis in the following EXACT JSON format:
{
    "purpose": "1-2 sentence description of what this system does",
    "architecture_style": "CLI Tool, Monolith, Microservices, Serverless, Event-Driven, or empty string if unclear",
    "core_components": [
        "ModuleName: what it does",
        "ClassName: what it does"
    ],
    "data_flow": "1-2 sentence description of how data flows, or empty string",
    "design_patterns": ["Pattern1", "Pattern2"],
    "external_integrations": [
        {"name": "ServiceName", "type": "Database|Cache|Queue|LLM|HTTP API|Storage|Cloud", "purpose": "brief purpose"}
    ],
    "entry_points": ["cli.main()", "handler()"]
}

RULES:
- Use ACTUAL names from the code
- For external_integrations, identify databases, caches, queues, LLM providers, HTTP clients, cloud services
- Use EMPTY string "" or EMPTY array [] for anything you cannot determine
- NEVER explain what is missing or why`,
		repositoryName, languagesStr, fileCount, compressedContent)
}
