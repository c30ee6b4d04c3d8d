// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/fourp-digest/internal/resilience/retry"
)

const claudeMaxTokens = 1024

// ClaudeBackend calls the Anthropic Messages API through the official SDK.
// The SDK's own retries are disabled so attempts are counted in one place.
type ClaudeBackend struct {
	client  anthropic.Client
	modelID string
}

// NewClaudeBackend creates a backend for model. Extra request options (for
// example option.WithBaseURL in tests) are appended after the defaults.
func NewClaudeBackend(apiKey, model string, opts ...option.RequestOption) *ClaudeBackend {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &ClaudeBackend{
		client:  anthropic.NewClient(append(base, opts...)...),
		modelID: model,
	}
}

// Name implements Backend.
func (c *ClaudeBackend) Name() string { return "claude" }

// Model implements Backend.
func (c *ClaudeBackend) Model() string { return c.modelID }

// Assess implements Backend.
func (c *ClaudeBackend) Assess(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.modelID),
		MaxTokens:   claudeMaxTokens,
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &retry.HTTPError{StatusCode: apiErr.StatusCode, Message: "Claude API: " + apiErr.Error()}
		}
		return "", fmt.Errorf("calling Claude API: %w", err)
	}

	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			return tb.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content in Claude response", ErrMalformedReply)
}
