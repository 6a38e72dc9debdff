// Package openai talks to the OpenAI chat completions API and to
// OpenAI-compatible servers such as vLLM.
package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kiranshivaraju/triage/internal/ai"
)

// Provider implements ai.Completer using /chat/completions.
type Provider struct {
	client *ai.JSONClient
	// jsonMode requests response_format json_object.
	jsonMode bool
}

// NewProvider creates a Provider. apiKey may be empty for servers that do not
// authenticate, e.g. a local vLLM.
func NewProvider(baseURL, apiKey string, jsonMode bool) *Provider {
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}
	return &Provider{client: ai.NewJSONClient(baseURL, header), jsonMode: jsonMode}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *Provider) Complete(ctx context.Context, model string, prompt ai.Prompt) (string, error) {
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
	}
	if p.jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	if err := p.client.Post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ai.ErrInvalidResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

var _ ai.Completer = (*Provider)(nil)
