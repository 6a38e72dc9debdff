// Package provider builds the configured generation backend.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/triage/internal/ai"
	"github.com/kiranshivaraju/triage/internal/ai/anthropic"
	"github.com/kiranshivaraju/triage/internal/ai/gemini"
	"github.com/kiranshivaraju/triage/internal/ai/ollama"
	"github.com/kiranshivaraju/triage/internal/ai/openai"
	"github.com/kiranshivaraju/triage/internal/config"
	"github.com/kiranshivaraju/triage/pkg/models"
)

// New constructs the generator named by cfg.Provider.
// Called once at startup; missing credentials fail here, before any run.
func New(ctx context.Context, cfg config.AIConfig) (models.Generator, error) {
	var (
		completer ai.Completer
		model     string
	)

	switch cfg.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is required", ai.ErrMissingCredentials)
		}
		completer, model = openai.NewProvider(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, true), cfg.OpenAI.Model
	case "vllm":
		completer, model = openai.NewProvider(cfg.VLLM.BaseURL, cfg.VLLM.APIKey, true), cfg.VLLM.Model
	case "ollama":
		completer, model = ollama.NewProvider(cfg.Ollama.BaseURL), cfg.Ollama.Model
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is required", ai.ErrMissingCredentials)
		}
		completer, model = anthropic.NewProvider(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey), cfg.Anthropic.Model
	case "gemini":
		p, err := gemini.NewProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.BaseURL)
		if err != nil {
			return nil, err
		}
		completer, model = p, cfg.Gemini.Model
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of %s", cfg.Provider, strings.Join(config.Providers, ", "))
	}

	return ai.NewPromptGenerator(cfg.Provider, model, completer, cfg.InferenceTimeout), nil
}
