package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/triage/internal/ai"
	"github.com/kiranshivaraju/triage/pkg/models"
)

// SampleTriageJSON is a schema-valid triage record about a stuck payment.
const SampleTriageJSON = `{
  "title": "Payment submission stuck on checkout",
  "ticketType": "bug",
  "severity": "sev1",
  "summary": "Payment submissions hang and never complete for some customers.",
  "userImpact": "Affected customers cannot complete purchases.",
  "reproSteps": [],
  "observedBehavior": "The spinner never stops after clicking Pay.",
  "expectedBehavior": "Payment completes and a receipt is shown.",
  "suspectedComponent": "payments-api",
  "questionsToAsk": [
    {"question": "Which payment methods are affected?", "why": "Narrows down the processor integration."}
  ],
  "investigationChecklist": [
    {"item": "Check payments-api logs for processor timeouts", "status": "todo"}
  ],
  "proposedFixPlan": [],
  "acceptanceCriteria": [],
  "requesterReply": {
    "subject": "Re: Payment stuck on checkout",
    "body": "Thanks for the report. We are investigating the payment timeouts."
  },
  "confidence": {"classification": 0.8, "investigationPlan": 0.7, "responseDraft": 0.8},
  "meta": {"source": "ticket", "generatedAt": "2025-01-15T12:00:00.000Z"}
}`

// Generator satisfies models.Generator for testing. It counts calls so tests
// can assert how often the pipeline reached the model.
type Generator struct {
	Name_        string
	Model        string
	GenerateFunc func(ctx context.Context, req models.GenerateRequest) (string, error)
	RepairFunc   func(ctx context.Context, req models.RepairRequest) (string, error)

	mu             sync.Mutex
	generateCalls  int
	repairCalls    int
	repairRequests []models.RepairRequest
}

func (g *Generator) Name() string { return g.Name_ }

func (g *Generator) DefaultModel() string {
	if g.Model == "" {
		return "mock-v1"
	}
	return g.Model
}

func (g *Generator) Generate(ctx context.Context, req models.GenerateRequest) (string, error) {
	g.mu.Lock()
	g.generateCalls++
	g.mu.Unlock()
	if g.GenerateFunc != nil {
		return g.GenerateFunc(ctx, req)
	}
	return SampleTriageJSON, nil
}

func (g *Generator) Repair(ctx context.Context, req models.RepairRequest) (string, error) {
	g.mu.Lock()
	g.repairCalls++
	g.repairRequests = append(g.repairRequests, req)
	g.mu.Unlock()
	if g.RepairFunc != nil {
		return g.RepairFunc(ctx, req)
	}
	return SampleTriageJSON, nil
}

// GenerateCalls returns how many times Generate was invoked.
func (g *Generator) GenerateCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateCalls
}

// RepairCalls returns how many times Repair was invoked.
func (g *Generator) RepairCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.repairCalls
}

// RepairRequests returns a copy of every repair request received.
func (g *Generator) RepairRequests() []models.RepairRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.RepairRequest(nil), g.repairRequests...)
}

// NewGenerator returns a Generator that always produces SampleTriageJSON.
func NewGenerator() *Generator {
	return &Generator{Name_: "mock"}
}

// NewScriptedGenerator returns a Generator replaying fixed raw and repaired text.
func NewScriptedGenerator(raw, repaired string) *Generator {
	return &Generator{
		Name_: "mock-scripted",
		GenerateFunc: func(_ context.Context, _ models.GenerateRequest) (string, error) {
			return raw, nil
		},
		RepairFunc: func(_ context.Context, _ models.RepairRequest) (string, error) {
			return repaired, nil
		},
	}
}

// NewFailingGenerator returns a Generator that always returns the given error.
func NewFailingGenerator(err error) *Generator {
	return &Generator{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _ models.GenerateRequest) (string, error) {
			return "", err
		},
		RepairFunc: func(_ context.Context, _ models.RepairRequest) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutGenerator returns a Generator that blocks until context is cancelled.
func NewTimeoutGenerator() *Generator {
	return &Generator{
		Name_: "mock-timeout",
		GenerateFunc: func(ctx context.Context, _ models.GenerateRequest) (string, error) {
			<-ctx.Done()
			return "", ai.ErrInferenceTimeout
		},
		RepairFunc: func(ctx context.Context, _ models.RepairRequest) (string, error) {
			<-ctx.Done()
			return "", ai.ErrInferenceTimeout
		},
	}
}

// Compile-time check that Generator implements models.Generator.
var _ models.Generator = (*Generator)(nil)
