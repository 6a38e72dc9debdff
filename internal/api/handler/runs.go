package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/triage/internal/api/response"
	"github.com/kiranshivaraju/triage/internal/cache"
	"github.com/kiranshivaraju/triage/internal/store"
	"github.com/kiranshivaraju/triage/pkg/models"
)

type runSummary struct {
	RunID       string    `json:"runId"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Fingerprint string    `json:"fingerprint"`
	Flags       []string  `json:"flags"`
	Failed      bool      `json:"failed"`
	CreatedAt   time.Time `json:"createdAt"`
}

func summarize(run *models.RunRecord) runSummary {
	flags := run.Trace.Flags
	if flags == nil {
		flags = []string{}
	}
	return runSummary{
		RunID:       run.RunID,
		Title:       run.Title,
		Source:      string(run.Source),
		Provider:    run.Provider,
		Model:       run.Trace.Model,
		Fingerprint: run.Fingerprint,
		Flags:       flags,
		Failed:      run.Result == nil,
		CreatedAt:   run.CreatedAt,
	}
}

// NewListRunsHandler returns an http.HandlerFunc for GET /api/v1/runs.
// Query params: page, limit, provider, fingerprint, flag, failed, since (RFC3339).
func NewListRunsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, err := intParam(q.Get("page"), 1)
		if err != nil || page < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer", nil)
			return
		}
		limit, err := intParam(q.Get("limit"), 20)
		if err != nil || limit < 1 || limit > 100 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 100", nil)
			return
		}

		var opts []store.RunFilterOption
		if v := q.Get("provider"); v != "" {
			opts = append(opts, store.WithProvider(v))
		}
		if v := q.Get("fingerprint"); v != "" {
			opts = append(opts, store.WithFingerprint(v))
		}
		if v := q.Get("flag"); v != "" {
			opts = append(opts, store.WithFlag(v))
		}
		if v := q.Get("failed"); v != "" {
			failed, err := strconv.ParseBool(v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "failed must be true or false", nil)
				return
			}
			opts = append(opts, store.WithFailed(failed))
		}
		if v := q.Get("since"); v != "" {
			since, err := time.Parse(time.RFC3339, v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "since must be a valid RFC3339 timestamp", nil)
				return
			}
			opts = append(opts, store.WithSince(since))
		}

		runs, total, err := s.ListRuns(r.Context(), store.NewRunFilter(page, limit, opts...))
		if err != nil {
			slog.Error("list runs", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		items := make([]runSummary, 0, len(runs))
		for _, run := range runs {
			items = append(items, summarize(run))
		}
		response.Collection(w, items, response.NewPaginationMeta(page, limit, total))
	}
}

// NewGetRunHandler returns an http.HandlerFunc for GET /api/v1/runs/{runID}.
// Recent runs are served from the cache; misses fall back to Postgres and
// repopulate the cache.
func NewGetRunHandler(s store.Store, c cache.Cache, cacheTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		if runID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "runID is required", nil)
			return
		}

		run, ok, err := c.GetRun(r.Context(), runID)
		if err != nil {
			slog.Warn("cache lookup failed", "run_id", runID, "error", err)
		}
		if ok {
			response.JSON(w, run)
			return
		}

		run, err = s.GetRun(r.Context(), runID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Run not found", nil)
			return
		}
		if err != nil {
			slog.Error("get run", "run_id", runID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		if err := c.SetRun(r.Context(), run, cacheTTL); err != nil {
			slog.Warn("cache triage run", "run_id", runID, "error", err)
		}
		response.JSON(w, run)
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
