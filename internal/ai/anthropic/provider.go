package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/triage/internal/ai"
)

const (
	apiVersion = "2023-06-01"
	maxTokens  = 4096
)

// Provider implements ai.Completer using the Anthropic Messages API.
type Provider struct {
	client *ai.JSONClient
}

func NewProvider(baseURL, apiKey string) *Provider {
	header := http.Header{}
	header.Set("x-api-key", apiKey)
	header.Set("anthropic-version", apiVersion)
	return &Provider{client: ai.NewJSONClient(baseURL, header)}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete has no JSON mode to rely on, so the system prompt carries the
// JSON-only instruction.
func (p *Provider) Complete(ctx context.Context, model string, prompt ai.Prompt) (string, error) {
	req := messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    prompt.System,
		Messages:  []message{{Role: "user", Content: prompt.User}},
	}

	var resp messagesResponse
	if err := p.client.Post(ctx, "/v1/messages", req, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no text content in response", ai.ErrInvalidResponse)
	}
	return b.String(), nil
}

var _ ai.Completer = (*Provider)(nil)
