package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// Request holds the inputs of a single triage run.
type Request struct {
	TicketText string
	Title      string
	Source     models.Source
	Tone       models.Tone
	// Model overrides the generator's default model when set.
	Model string
}

// Normalize fills defaults and rejects requests no model call should be made for.
func (r *Request) Normalize() error {
	if strings.TrimSpace(r.TicketText) == "" {
		return fmt.Errorf("%w: ticket text is required", ErrInvalidRequest)
	}
	if r.Title == "" {
		r.Title = "Ticket"
	}
	if r.Source == "" {
		r.Source = models.SourceTicket
	}
	if r.Tone == "" {
		r.Tone = models.ToneNeutral
	}
	if !oneOf(r.Source, models.Sources) {
		return fmt.Errorf("%w: source must be one of ticket, email", ErrInvalidRequest)
	}
	if !oneOf(r.Tone, models.Tones) {
		return fmt.Errorf("%w: tone must be one of neutral, direct", ErrInvalidRequest)
	}
	return nil
}

// Result is the output of a successful run.
type Result struct {
	RunID    string
	Record   models.TriageRecord
	Markdown string
	Trace    models.RunTrace
	RawText  string
	// RepairedText is nil unless the repair round-trip ran.
	RepairedText *string
}

// Service runs the generate, validate, repair, guardrail pipeline.
// It holds no per-run state and is safe for concurrent use.
type Service struct {
	generator  models.Generator
	guardrails Guardrails
	logger     *slog.Logger
	now        func() time.Time
	newRunID   func(time.Time) string
}

// Option configures a Service.
type Option func(*Service)

// WithGuardrails overrides the default guardrail settings.
func WithGuardrails(g Guardrails) Option {
	return func(s *Service) { s.guardrails = g }
}

// WithLogger sets the logger used for state transitions and run outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now, for deterministic traces in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRunIDFunc replaces NewRunID, so tests can pin run ids.
func WithRunIDFunc(fn func(time.Time) string) Option {
	return func(s *Service) { s.newRunID = fn }
}

// NewService creates a Service around the given generator.
func NewService(gen models.Generator, opts ...Option) *Service {
	s := &Service{
		generator:  gen,
		guardrails: Guardrails{ReproThreshold: DefaultReproThreshold},
		logger:     slog.Default(),
		now:        time.Now,
		newRunID:   NewRunID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the name of the underlying generator.
func (s *Service) Provider() string {
	return s.generator.Name()
}

// Run executes one triage run.
//
// Transport errors from the generator are returned wrapped and carry no trace.
// Output that still fails validation after the single repair attempt is
// reported as a *ValidationError holding the complete trace.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	model := req.Model
	if model == "" {
		model = s.generator.DefaultModel()
	}

	runID := s.newRunID(s.now())
	rec := newRecorder(runID, model, utf8.RuneCountInString(req.TicketText), s.now, s.logger)

	raw, err := s.generator.Generate(ctx, models.GenerateRequest{
		Model:      model,
		TicketText: req.TicketText,
		Title:      req.Title,
		Source:     req.Source,
		Tone:       req.Tone,
	})
	if err != nil {
		return nil, fmt.Errorf("generate triage %s: %w", runID, err)
	}
	rec.transition(StateGenerated)

	first := Check(raw)
	record := first.Record
	var repaired *string

	switch first.Outcome {
	case OutcomeValid:
		rec.transition(StateValid)
	case OutcomeInvalid, OutcomeParseFailure:
		if first.Outcome == OutcomeParseFailure {
			rec.transition(StateParseFailed)
		} else {
			rec.transition(StateInvalid)
		}
		rec.flag(models.FlagValidationFailed)
		s.logger.Info("triage output failed validation, attempting repair",
			slog.String("run_id", runID),
			slog.String("outcome", first.Outcome.String()),
			slog.Int("violations", len(first.Violations)),
		)

		rec.transition(StateRepairing)
		text, err := s.generator.Repair(ctx, models.RepairRequest{
			Model:      model,
			RawText:    raw,
			Violations: first.Violations,
		})
		if err != nil {
			return nil, fmt.Errorf("repair triage %s: %w", runID, err)
		}
		repaired = &text

		second := Check(text)
		if second.Outcome != OutcomeValid {
			rec.transition(StateRepairFailed)
			rec.flag(models.FlagRepairFailed)
			violations := second.Violations
			message := repairFailureMessage(violations)
			if second.Outcome == OutcomeParseFailure {
				violations = []string{MsgRepairedInvalidJSON}
				message = "Repair failed: repaired output is not valid JSON"
			}
			trace, err := rec.fail(violations)
			if err != nil {
				return nil, err
			}
			s.logger.Warn("triage repair failed",
				slog.String("run_id", runID),
				slog.String("outcome", second.Outcome.String()),
				slog.Int("violations", len(violations)),
			)
			return nil, &ValidationError{
				Message:      message,
				Violations:   violations,
				Trace:        trace,
				RunID:        runID,
				RawText:      raw,
				RepairedText: text,
			}
		}
		rec.transition(StateRepaired)
		rec.flag(models.FlagRepairedOutput)
		record = second.Record
	default:
		return nil, fmt.Errorf("unexpected check outcome %s", first.Outcome)
	}

	record.Meta.GeneratedAt = FormatTimestamp(s.now())
	rec.flag(s.guardrails.Evaluate(record, req.TicketText)...)
	markdown := RenderMarkdown(record)

	trace, err := rec.finalize(record)
	if err != nil {
		return nil, err
	}
	s.logger.Info("triage run finished",
		slog.String("run_id", runID),
		slog.String("model", model),
		slog.Any("flags", trace.Flags),
		slog.Duration("duration", trace.FinishedAt.Sub(trace.StartedAt)),
	)

	return &Result{
		RunID:        runID,
		Record:       record,
		Markdown:     markdown,
		Trace:        trace,
		RawText:      raw,
		RepairedText: repaired,
	}, nil
}

// repairFailureMessage summarises at most three violations.
func repairFailureMessage(violations []string) string {
	shown := violations
	if len(shown) > 3 {
		shown = shown[:3]
	}
	msg := "Repair failed: " + strings.Join(shown, "; ")
	if len(violations) > 3 {
		msg += "..."
	}
	return msg
}

func oneOf[T comparable](v T, allowed []T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
