package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/kiranshivaraju/triage/internal/ai"
)

// Provider implements ai.Completer using the Gemini API.
type Provider struct {
	client *genai.Client
}

// NewProvider creates a Gemini client. baseURL is optional and only needed
// to reach a proxy or a test server.
func NewProvider(ctx context.Context, apiKey, baseURL string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is required", ai.ErrMissingCredentials)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Complete(ctx context.Context, model string, prompt ai.Prompt) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt.User, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}

// classify maps genai API errors onto the shared sentinel errors.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ai.ClassifyStatus(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return ai.ClassifyStatus(apiErrPtr.Code, apiErrPtr.Message)
	}
	return ai.ClassifyError(err)
}

var _ ai.Completer = (*Provider)(nil)
