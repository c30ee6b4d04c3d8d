// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/fourp-digest/internal/resilience/retry"
)

// OpenAIBackend calls the chat completions API in JSON-object mode.
type OpenAIBackend struct {
	client  *openai.Client
	modelID string
}

// NewOpenAIBackend creates a backend for model. httpClient may be nil.
func NewOpenAIBackend(apiKey, model string, httpClient *http.Client) *OpenAIBackend {
	return newOpenAIBackend(openai.DefaultConfig(apiKey), model, httpClient)
}

func newOpenAIBackend(cfg openai.ClientConfig, model string, httpClient *http.Client) *OpenAIBackend {
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIBackend{
		client:  openai.NewClientWithConfig(cfg),
		modelID: model,
	}
}

// Name implements Backend.
func (o *OpenAIBackend) Name() string { return "openai" }

// Model implements Backend.
func (o *OpenAIBackend) Model() string { return o.modelID }

// Assess implements Backend.
func (o *OpenAIBackend) Assess(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.modelID,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &retry.HTTPError{StatusCode: apiErr.HTTPStatusCode, Message: "OpenAI API: " + apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return "", &retry.HTTPError{StatusCode: reqErr.HTTPStatusCode, Message: "OpenAI API: " + reqErr.Error()}
		}
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in OpenAI response", ErrMalformedReply)
	}
	return resp.Choices[0].Message.Content, nil
}
