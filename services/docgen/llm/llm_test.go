package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDisabled(t *testing.T) {
	_, err := NewClient(Config{Enabled: false, Provider: "openai"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(Config{Enabled: true, Provider: "bedrock"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bedrock")
}

func TestNewClientOpenAIRequiresKey(t *testing.T) {
	_, err := NewClient(Config{Enabled: true, Provider: "openai"})
	require.Error(t, err)
}

func TestNewClientOllamaRequiresBase(t *testing.T) {
	_, err := NewClient(Config{Enabled: true, Provider: "ollama"})
	require.Error(t, err)
}

func TestPlaceholderKnownSections(t *testing.T) {
	assert.Equal(t,
		"*Overview summary will be generated when LLM is configured.*",
		Placeholder(SectionOverview))
	assert.Equal(t,
		"*Technology stack summary will be generated when LLM is configured.*",
		Placeholder(SectionTechStack))
	assert.Equal(t,
		"*Architecture summary will be generated when LLM is configured.*",
		Placeholder(SectionArchitecture))
	assert.Equal(t,
		"*Dependencies summary will be generated when LLM is configured.*",
		Placeholder(SectionDependencies))
}

func TestPlaceholderUnknownSection(t *testing.T) {
	assert.Equal(t,
		"*Security Review summary pending LLM configuration.*",
		Placeholder("security_review"))
}

func TestGenerateSectionRecordsPrompts(t *testing.T) {
	fake := NewFake("The system is a billing service.")
	n := NewNarrator(fake, nil)

	text, err := n.GenerateOverview(context.Background(), OverviewFacts{
		RepositoryName: "billing",
		Languages:      []string{"go", "python"},
		ModuleCount:    4,
		ClassCount:     12,
		FunctionCount:  40,
	})
	require.NoError(t, err)
	assert.Equal(t, "The system is a billing service.", text)

	require.Len(t, fake.Requests, 1)
	req := fake.Requests[0]
	assert.Contains(t, req.Prompt, "Repository: billing")
	assert.Contains(t, req.Prompt, "Languages: go, python")
	assert.Contains(t, req.Prompt, "Source modules: 4")
	assert.Contains(t, req.SystemPrompt, "NEVER use hedging language")
}

func TestGenerateSectionFailureReturnsPlaceholder(t *testing.T) {
	fake := NewFailingFake(errors.New("connection refused"))
	n := NewNarrator(fake, nil)

	text, err := n.GenerateSection(context.Background(), SectionTechStack, "facts")
	require.Error(t, err)
	assert.Equal(t, Placeholder(SectionTechStack), text)
}

func TestGenerateArchitectureSkipsWithoutInfra(t *testing.T) {
	fake := NewFake("should never be used")
	n := NewNarrator(fake, nil)

	text, err := n.GenerateArchitecture(context.Background(), ArchitectureFacts{HasArchitecture: false})
	require.NoError(t, err)
	assert.Equal(t, "No infrastructure-as-code detected in this repository.", text)
	assert.Empty(t, fake.Requests)
}

func TestGenerateDependenciesSkipsWithoutSBOM(t *testing.T) {
	fake := NewFake("should never be used")
	n := NewNarrator(fake, nil)

	text, err := n.GenerateDependencies(context.Background(), DependencyFacts{HasSBOM: false})
	require.NoError(t, err)
	assert.Equal(t, "No SBOM data available.", text)
	assert.Empty(t, fake.Requests)
}

func TestBuildTechStackPromptFallbacks(t *testing.T) {
	prompt := BuildTechStackPrompt(TechStackFacts{})
	assert.Contains(t, prompt, "Languages: None detected")
	assert.Contains(t, prompt, "Frameworks: None detected")
	assert.Contains(t, prompt, "Key dependencies: None detected")
}

func TestBuildArchitecturePromptSortsResources(t *testing.T) {
	prompt := BuildArchitecturePrompt(ArchitectureFacts{
		HasArchitecture: true,
		Providers:       []string{"aws"},
		NodeCount:       3,
		ConnectionCount: 2,
		ResourcesByType: map[string][]string{
			"lambda": {"fn_a", "fn_b"},
			"dynamo": {"orders"},
		},
	})
	assert.Contains(t, prompt, "Cloud Providers: aws")
	dynamoIdx := strings.Index(prompt, "- dynamo: 1 resources")
	lambdaIdx := strings.Index(prompt, "- lambda: 2 resources")
	require.NotEqual(t, -1, dynamoIdx)
	require.NotEqual(t, -1, lambdaIdx)
	assert.Less(t, dynamoIdx, lambdaIdx)
}

func TestBuildDependenciesPromptListsDirect(t *testing.T) {
	prompt := BuildDependenciesPrompt(DependencyFacts{
		HasSBOM:       true,
		TotalPackages: 120,
		DirectCount:   8,
		Ecosystems:    []string{"go", "npm"},
		DirectDeps: []DependencyFact{
			{Name: "cobra", Ecosystem: "go"},
			{Name: "express", Ecosystem: "npm"},
		},
	})
	assert.Contains(t, prompt, "Direct Dependencies: 8")
	assert.Contains(t, prompt, "Total Packages (incl. transitive): 120")
	assert.Contains(t, prompt, "- cobra (go)")
	assert.Contains(t, prompt, "- express (npm)")
}

func TestBuildHolisticPromptTruncation(t *testing.T) {
	content := strings.Repeat("x", maxHolisticContent+1234)
	prompt := BuildHolisticPrompt("big-repo", content, []string{"go"}, 900)

	assert.Contains(t, prompt, "Repository: big-repo")
	assert.Contains(t, prompt, "... [truncated, 1234 chars omitted]")
	assert.NotContains(t, prompt, strings.Repeat("x", maxHolisticContent+1))
}

func TestParseHolisticResponseFencedJSON(t *testing.T) {
	raw := "Here is the analysis:\n```json\n" + `{
  "purpose": "Processes customer orders.",
  "architecture_style": "Monolith",
  "core_components": ["OrderService: manages orders"],
  "data_flow": "HTTP requests flow to the service layer.",
  "design_patterns": ["Repository"],
  "external_integrations": [
    {"name": "PostgreSQL", "type": "Database", "purpose": "order storage"},
    "Redis"
  ],
  "entry_points": ["main()"]
}` + "\n```\nDone."

	overview := ParseHolisticResponse(raw)
	assert.Equal(t, "Processes customer orders.", overview.Purpose)
	assert.Equal(t, "Monolith", overview.ArchitectureStyle)
	assert.Equal(t, []string{"OrderService: manages orders"}, overview.CoreComponents)
	require.Len(t, overview.ExternalIntegrations, 2)
	assert.Equal(t, "PostgreSQL", overview.ExternalIntegrations[0].Name)
	assert.Equal(t, "Database", overview.ExternalIntegrations[0].Type)
	assert.Equal(t, "Redis", overview.ExternalIntegrations[1].Name)
	assert.Equal(t, raw, overview.RawResponse)
}

func TestParseHolisticResponseBareJSON(t *testing.T) {
	raw := `{"purpose": "A CLI tool.", "entry_points": ["cli.main()"]}`
	overview := ParseHolisticResponse(raw)
	assert.Equal(t, "A CLI tool.", overview.Purpose)
	assert.Equal(t, []string{"cli.main()"}, overview.EntryPoints)
}

func TestParseHolisticResponseInvalidFallsBack(t *testing.T) {
	raw := strings.Repeat("The model rambled instead of emitting JSON. ", 20)
	overview := ParseHolisticResponse(raw)
	assert.Len(t, overview.Purpose, 500)
	assert.Equal(t, raw, overview.RawResponse)
	assert.Empty(t, overview.ExternalIntegrations)
}

func TestGenerateHolisticOverviewError(t *testing.T) {
	fake := NewFailingFake(errors.New("timeout"))
	n := NewNarrator(fake, nil)

	overview, err := n.GenerateHolisticOverview(context.Background(), "repo", "content", nil, 1)
	require.Error(t, err)
	require.NotNil(t, overview)
	assert.Equal(t, "Error: timeout", overview.RawResponse)
	assert.Empty(t, overview.Purpose)
}

func TestFakeConsumesResponsesInOrder(t *testing.T) {
	fake := NewFake("first", "second")
	ctx := context.Background()

	r1, err := fake.Complete(ctx, Request{Prompt: "a"})
	require.NoError(t, err)
	r2, err := fake.Complete(ctx, Request{Prompt: "b"})
	require.NoError(t, err)
	r3, err := fake.Complete(ctx, Request{Prompt: "c"})
	require.NoError(t, err)

	assert.Equal(t, "first", r1.Content)
	assert.Equal(t, "second", r2.Content)
	assert.Equal(t, "second", r3.Content)
}
