package ollama

import (
	"context"

	"github.com/kiranshivaraju/triage/internal/ai"
)

// Provider implements ai.Completer using Ollama's /api/chat endpoint.
type Provider struct {
	client *ai.JSONClient
}

func NewProvider(baseURL string) *Provider {
	return &Provider{client: ai.NewJSONClient(baseURL, nil)}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Format   string        `json:"format"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func (p *Provider) Complete(ctx context.Context, model string, prompt ai.Prompt) (string, error) {
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Format: "json",
		Stream: false,
	}

	var resp chatResponse
	if err := p.client.Post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

var _ ai.Completer = (*Provider)(nil)
