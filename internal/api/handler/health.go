package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/triage/internal/api/response"
)

// Pinger is satisfied by both the store and the cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health that
// checks database and cache connectivity.
func NewHealthHandler(db, cache Pinger, provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := cache.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":      "ok",
			"services":    checks,
			"ai_provider": provider,
		})
	}
}
