// Package handler holds the HTTP handlers of the triage API.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiranshivaraju/triage/internal/ai"
	"github.com/kiranshivaraju/triage/internal/api/response"
	"github.com/kiranshivaraju/triage/internal/cache"
	"github.com/kiranshivaraju/triage/internal/fingerprint"
	"github.com/kiranshivaraju/triage/internal/store"
	"github.com/kiranshivaraju/triage/internal/triage"
	"github.com/kiranshivaraju/triage/pkg/models"
)

const (
	maxTriageBody = 1 << 20
	// retryAfterSeconds is advertised on transient provider failures.
	retryAfterSeconds = "5"
)

// Triager defines the interface the triage handler depends on.
type Triager interface {
	Run(ctx context.Context, req triage.Request) (*triage.Result, error)
	Provider() string
}

type triageRequest struct {
	TicketText string  `json:"ticketText"`
	Title      *string `json:"title"`
	Source     string  `json:"source"`
	Tone       string  `json:"tone"`
	Model      string  `json:"model"`
}

type triageResponse struct {
	RunID    string              `json:"runId"`
	Result   models.TriageRecord `json:"result"`
	Markdown string              `json:"markdown"`
	Trace    models.RunTrace     `json:"trace"`
}

type validationDetails struct {
	RunID      string          `json:"runId"`
	Violations []string        `json:"violations"`
	Trace      models.RunTrace `json:"trace"`
}

// NewTriageHandler returns an http.HandlerFunc for POST /api/v1/triage.
// Every run that reaches the model is persisted and cached, failed ones
// included, so GET /api/v1/runs/{runID} can always explain a 422.
func NewTriageHandler(svc Triager, s store.Store, c cache.Cache, cacheTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body triageRequest
		if !response.Decode(w, r, maxTriageBody, &body) {
			return
		}

		// An omitted title takes the default; an explicit empty one is an error.
		if body.Title != nil && *body.Title == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "title must not be empty", nil)
			return
		}
		req := triage.Request{
			TicketText: body.TicketText,
			Title:      deref(body.Title),
			Source:     models.Source(body.Source),
			Tone:       models.Tone(body.Tone),
			Model:      body.Model,
		}
		if err := req.Normalize(); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		res, err := svc.Run(r.Context(), req)
		if err != nil {
			var verr *triage.ValidationError
			if errors.As(err, &verr) {
				persistRun(r.Context(), s, c, cacheTTL, failedRunRecord(req, svc.Provider(), verr))
				response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", verr.Message,
					validationDetails{RunID: verr.RunID, Violations: verr.Violations, Trace: verr.Trace})
				return
			}
			writeRunError(w, err)
			return
		}

		persistRun(r.Context(), s, c, cacheTTL, successRunRecord(req, svc.Provider(), res))
		response.JSON(w, triageResponse{
			RunID:    res.RunID,
			Result:   res.Record,
			Markdown: res.Markdown,
			Trace:    res.Trace,
		})
	}
}

func writeRunError(w http.ResponseWriter, err error) {
	if ai.Retryable(err) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	switch {
	case errors.Is(err, triage.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, ai.ErrInferenceTimeout):
		response.Error(w, http.StatusGatewayTimeout, "AI_INFERENCE_TIMEOUT",
			"AI triage took too long and was cancelled", nil)
	case errors.Is(err, ai.ErrProviderUnavailable):
		response.Error(w, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE",
			"The AI provider is not available", nil)
	case errors.Is(err, ai.ErrUnauthorized), errors.Is(err, ai.ErrInvalidResponse):
		slog.Error("AI provider call failed", "error", err)
		response.Error(w, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE",
			"The AI provider rejected the request", nil)
	default:
		slog.Error("triage run failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

// persistRun stores the run and warms the cache. Failures are logged, not
// returned: the caller already paid for the model call and gets its result.
func persistRun(ctx context.Context, s store.Store, c cache.Cache, ttl time.Duration, run *models.RunRecord) {
	// The run outlives a client that disconnects mid-response.
	ctx = context.WithoutCancel(ctx)
	if err := s.CreateRun(ctx, run); err != nil {
		slog.Error("persist triage run", "run_id", run.RunID, "error", err)
	}
	if err := c.SetRun(ctx, run, ttl); err != nil {
		slog.Warn("cache triage run", "run_id", run.RunID, "error", err)
	}
}

func successRunRecord(req triage.Request, provider string, res *triage.Result) *models.RunRecord {
	record := res.Record
	markdown := res.Markdown
	return &models.RunRecord{
		RunID:        res.RunID,
		Title:        req.Title,
		Source:       req.Source,
		Provider:     provider,
		Fingerprint:  fingerprint.Of(req.TicketText),
		Trace:        res.Trace,
		Result:       &record,
		Markdown:     &markdown,
		RawText:      res.RawText,
		RepairedText: res.RepairedText,
		CreatedAt:    res.Trace.FinishedAt,
	}
}

func failedRunRecord(req triage.Request, provider string, verr *triage.ValidationError) *models.RunRecord {
	repaired := verr.RepairedText
	return &models.RunRecord{
		RunID:        verr.RunID,
		Title:        req.Title,
		Source:       req.Source,
		Provider:     provider,
		Fingerprint:  fingerprint.Of(req.TicketText),
		Trace:        verr.Trace,
		RawText:      verr.RawText,
		RepairedText: &repaired,
		CreatedAt:    verr.Trace.FinishedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
