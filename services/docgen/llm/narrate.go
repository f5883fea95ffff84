package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

// holisticMaxTokens gives the holistic overview more room than regular
// sections since it returns structured JSON.
const holisticMaxTokens = 2000

// Narrator turns extracted facts into prose sections. It is the only
// component that calls the generation client; everything upstream of it
// is deterministic.
type Narrator struct {
	client Client
	logger *slog.Logger
}

// NewNarrator builds a narrator over the given client. A nil logger
// falls back to slog.Default.
func NewNarrator(client Client, logger *slog.Logger) *Narrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Narrator{client: client, logger: logger}
}

// Model reports the backing model identifier.
func (n *Narrator) Model() string {
	return n.client.Model()
}

// CheckAvailable probes the backing client.
func (n *Narrator) CheckAvailable(ctx context.Context) bool {
	return n.client.CheckAvailable(ctx)
}

// GenerateSection produces prose for one documentation section. On
// failure it returns the section placeholder alongside the error so
// callers can still emit a complete document.
func (n *Narrator) GenerateSection(ctx context.Context, section, prompt string) (string, error) {
	resp, err := n.client.Complete(ctx, Request{
		Prompt:       prompt,
		SystemPrompt: SystemPrompt(section),
	})
	if err != nil {
		n.logger.Warn("section generation failed",
			slog.String("section", section),
			slog.String("error", err.Error()))
		return Placeholder(section), fmt.Errorf("generate %s: %w", section, err)
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return Placeholder(section), fmt.Errorf("generate %s: %w", section, ErrNoContent)
	}
	return content, nil
}

// GenerateOverview narrates the overview section.
func (n *Narrator) GenerateOverview(ctx context.Context, facts OverviewFacts) (string, error) {
	return n.GenerateSection(ctx, SectionOverview, BuildOverviewPrompt(facts))
}

// GenerateTechStack narrates the tech-stack section.
func (n *Narrator) GenerateTechStack(ctx context.Context, facts TechStackFacts) (string, error) {
	return n.GenerateSection(ctx, SectionTechStack, BuildTechStackPrompt(facts))
}

// GenerateArchitecture narrates the architecture section. Repositories
// with no infrastructure-as-code short-circuit without a generation
// call.
func (n *Narrator) GenerateArchitecture(ctx context.Context, facts ArchitectureFacts) (string, error) {
	if !facts.HasArchitecture {
		return "No infrastructure-as-code detected in this repository.", nil
	}
	return n.GenerateSection(ctx, SectionArchitecture, BuildArchitecturePrompt(facts))
}

// GenerateDependencies narrates the dependencies section. Repositories
// with no SBOM short-circuit without a generation call.
func (n *Narrator) GenerateDependencies(ctx context.Context, facts DependencyFacts) (string, error) {
	if !facts.HasSBOM {
		return "No SBOM data available.", nil
	}
	return n.GenerateSection(ctx, SectionDependencies, BuildDependenciesPrompt(facts))
}

// GenerateHolisticOverview analyzes the compressed codebase in a single
// call and parses the structured response. It never returns a nil
// overview: on failure the overview carries the error in RawResponse
// and renders nothing.
func (n *Narrator) GenerateHolisticOverview(ctx context.Context, repositoryName, compressedContent string, languages []string, fileCount int) (*canonical.HolisticOverview, error) {
	prompt := BuildHolisticPrompt(repositoryName, compressedContent, languages, fileCount)
	resp, err := n.client.Complete(ctx, Request{
		Prompt:       prompt,
		SystemPrompt: holisticSystemPrompt,
		MaxTokens:    holisticMaxTokens,
	})
	if err != nil {
		n.logger.Warn("holistic overview generation failed",
			slog.String("repository", repositoryName),
			slog.String("error", err.Error()))
		return &canonical.HolisticOverview{RawResponse: "Error: " + err.Error()},
			fmt.Errorf("holistic overview: %w", err)
	}
	return ParseHolisticResponse(resp.Content), nil
}

var (
	fencedJSONRe = regexp.MustCompile("```json\\s*([\\s\\S]*?)```")
	bareJSONRe   = regexp.MustCompile(`\{[\s\S]*\}`)
)

// holisticPayload mirrors HolisticOverview but tolerates
// external_integrations items that are bare strings instead of objects.
type holisticPayload struct {
	Purpose              string            `json:"purpose"`
	ArchitectureStyle    string            `json:"architecture_style"`
	CoreComponents       []string          `json:"core_components"`
	DataFlow             string            `json:"data_flow"`
	DesignPatterns       []string          `json:"design_patterns"`
	ExternalIntegrations []json.RawMessage `json:"external_integrations"`
	EntryPoints          []string          `json:"entry_points"`
}

// ParseHolisticResponse extracts the JSON analysis from raw model
// output. It tries a fenced json block first, then any bare object.
// Unparseable responses degrade to a purpose-only overview so a
// malformed generation never loses the whole analysis.
func ParseHolisticResponse(raw string) *canonical.HolisticOverview {
	candidate := ""
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	} else if m := bareJSONRe.FindString(raw); m != "" {
		candidate = m
	}

	if candidate != "" {
		var payload holisticPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil {
			overview := &canonical.HolisticOverview{
				Purpose:           strings.TrimSpace(payload.Purpose),
				ArchitectureStyle: strings.TrimSpace(payload.ArchitectureStyle),
				CoreComponents:    payload.CoreComponents,
				DataFlow:          strings.TrimSpace(payload.DataFlow),
				DesignPatterns:    payload.DesignPatterns,
				EntryPoints:       payload.EntryPoints,
				RawResponse:       raw,
			}
			for _, item := range payload.ExternalIntegrations {
				if info, ok := parseIntegrationItem(item); ok {
					overview.ExternalIntegrations = append(overview.ExternalIntegrations, info)
				}
			}
			return overview
		}
	}

	// Fall back to treating the leading text as the purpose.
	purpose := strings.TrimSpace(raw)
	if len(purpose) > 500 {
		purpose = purpose[:500]
	}
	return &canonical.HolisticOverview{
		Purpose:     purpose,
		RawResponse: raw,
	}
}

func parseIntegrationItem(item json.RawMessage) (canonical.IntegrationInfo, bool) {
	var info canonical.IntegrationInfo
	if err := json.Unmarshal(item, &info); err == nil && info.Name != "" {
		return info, true
	}
	var name string
	if err := json.Unmarshal(item, &name); err == nil && name != "" {
		return canonical.IntegrationInfo{Name: name}, true
	}
	return canonical.IntegrationInfo{}, false
}
