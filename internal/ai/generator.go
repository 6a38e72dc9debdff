package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// Completer sends one prompt to a model and returns the text of its reply.
// Provider adapters implement it; PromptGenerator turns it into a models.Generator.
type Completer interface {
	Complete(ctx context.Context, model string, p Prompt) (string, error)
}

// PromptGenerator implements models.Generator on top of a Completer.
type PromptGenerator struct {
	name      string
	model     string
	completer Completer
	timeout   time.Duration
}

// NewPromptGenerator wraps c. A zero timeout means calls are bounded only by
// the caller's context.
func NewPromptGenerator(name, defaultModel string, c Completer, timeout time.Duration) *PromptGenerator {
	return &PromptGenerator{name: name, model: defaultModel, completer: c, timeout: timeout}
}

func (g *PromptGenerator) Name() string { return g.name }

func (g *PromptGenerator) DefaultModel() string { return g.model }

func (g *PromptGenerator) Generate(ctx context.Context, req models.GenerateRequest) (string, error) {
	return g.complete(ctx, req.Model, GeneratePrompt(req), "generate")
}

func (g *PromptGenerator) Repair(ctx context.Context, req models.RepairRequest) (string, error) {
	return g.complete(ctx, req.Model, RepairPrompt(req), "repair")
}

func (g *PromptGenerator) complete(ctx context.Context, model string, p Prompt, op string) (string, error) {
	if model == "" {
		model = g.model
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.completer.Complete(ctx, model, p)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", g.name, op, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s %s: %w: no content in response", g.name, op, ErrInvalidResponse)
	}
	return text, nil
}

var _ models.Generator = (*PromptGenerator)(nil)
