// Package llm is the generative narration boundary. Deterministic
// analysis never depends on it; the pipeline injects a Client only for
// the final narration stages.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxTokens bounds completion length when the caller does not
// override it.
const DefaultMaxTokens = 1024

var (
	// ErrDisabled is returned by NewClient when narration is disabled in
	// configuration.
	ErrDisabled = errors.New("llm: narration disabled")

	// ErrNoContent is returned when a backend answers with no choices.
	ErrNoContent = errors.New("llm: no content in response")
)

// Request is a single completion request. Sampling is always
// deterministic: temperature 0, top_k 1 where the backend supports it.
type Request struct {
	Prompt       string
	SystemPrompt string

	// MaxTokens overrides the client default when positive.
	MaxTokens int
}

// Response is a completion result.
type Response struct {
	Content     string
	Model       string
	TotalTokens int
}

// Client is the completion interface the narration stages depend on.
type Client interface {
	// Complete generates text for a request.
	Complete(ctx context.Context, req Request) (*Response, error)

	// CheckAvailable reports whether the backend is reachable with the
	// configured credentials.
	CheckAvailable(ctx context.Context) bool

	// Model returns the configured model identifier.
	Model() string
}

// Config selects and configures a narration backend.
type Config struct {
	// Enabled gates narration entirely. When false NewClient returns
	// ErrDisabled and the pipeline substitutes placeholder text.
	Enabled bool

	// Provider is "openai" or "ollama".
	Provider string

	Model  string
	APIKey string

	// APIBase is the server URL for ollama, or an OpenAI-compatible
	// endpoint override.
	APIBase string

	MaxTokens int
}

// NewClient builds the backend selected by cfg.
func NewClient(cfg Config) (Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg)
	case "ollama":
		return NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
