// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/fourp-digest/internal/resilience/retry"
)

// geminiAPIBase is the Generative Language API model root. Package-level var
// for test substitution.
var geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models/"

// Sampling settings sent with every Gemini request.
const (
	geminiTopP = 0.8
	geminiTopK = 40
)

// GeminiBackend calls the Gemini generateContent endpoint.
type GeminiBackend struct {
	APIKey  string
	ModelID string
	Client  *http.Client
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	TopK        int     `json:"topK"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Name implements Backend.
func (g *GeminiBackend) Name() string { return "gemini" }

// Model implements Backend.
func (g *GeminiBackend) Model() string { return g.ModelID }

// Assess sends prompt to generateContent and returns the first candidate's
// text. Non-200 replies are returned as *retry.HTTPError.
func (g *GeminiBackend) Assess(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature: temperature,
			TopP:        geminiTopP,
			TopK:        geminiTopK,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := geminiAPIBase + url.PathEscape(g.ModelID) + ":generateContent?key=" + url.QueryEscape(g.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", redactKey(err, g.APIKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    "Gemini API: " + strings.TrimSpace(string(snippet)),
		}
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decoding Gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		if gr.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", ErrMalformedReply, gr.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: no candidates", ErrMalformedReply)
	}
	parts := gr.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: candidate has no content parts", ErrMalformedReply)
	}
	return parts[0].Text, nil
}

// redactKey keeps the API key out of transport errors, which embed the
// request URL.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	if ue, ok := err.(*url.Error); ok {
		return &url.Error{
			Op:  ue.Op,
			URL: strings.ReplaceAll(ue.URL, url.QueryEscape(key), "REDACTED"),
			Err: ue.Err,
		}
	}
	return err
}
