// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// Backend abstracts the language-model API so tests can supply a mock. Each
// call sends one rendered prompt and returns the model's raw text reply.
type Backend interface {
	Assess(ctx context.Context, prompt string) (string, error)
	Name() string
	Model() string
}

// temperature keeps replies close to deterministic across providers.
const temperature = 0.3

// Default model per provider.
const (
	DefaultGeminiModel = "gemini-2.5-pro"
	DefaultClaudeModel = "claude-sonnet-4-5-20250929"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// DefaultModel returns the model used when none is configured.
func DefaultModel(p types.Provider) string {
	switch p {
	case types.ProviderClaude:
		return DefaultClaudeModel
	case types.ProviderOpenAI:
		return DefaultOpenAIModel
	default:
		return DefaultGeminiModel
	}
}

// NewBackend builds the backend named by cfg.Provider. An empty provider
// selects Gemini. httpClient is used by the Gemini and OpenAI backends and
// may be nil.
func NewBackend(cfg types.AIConfig, httpClient *http.Client) (Backend, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = types.ProviderGemini
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(provider)
	}

	switch provider {
	case types.ProviderGemini:
		if cfg.APIKey == "" {
			slog.Warn("no Google API key set, Gemini requests will fail",
				slog.String("hint", "set GOOGLE_API_KEY or .secrets/google-api-key"))
		}
		return &GeminiBackend{APIKey: cfg.APIKey, ModelID: model, Client: httpClient}, nil
	case types.ProviderClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude backend requires an Anthropic API key")
		}
		return NewClaudeBackend(cfg.APIKey, model), nil
	case types.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai backend requires an OpenAI API key")
		}
		return NewOpenAIBackend(cfg.APIKey, model, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini, claude, or openai)", cfg.Provider)
	}
}
