package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/kiranshivaraju/triage/internal/api/middleware"
	"github.com/kiranshivaraju/triage/internal/api/response"
	"github.com/kiranshivaraju/triage/internal/store"
	"github.com/kiranshivaraju/triage/pkg/models"
)

const maxKeyBody = 4 << 10

type createKeyResponse struct {
	Key    string         `json:"key"`
	APIKey *models.APIKey `json:"api_key"`
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
// The raw key appears only in this response.
func NewCreateKeyHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name   string   `json:"name"`
			Scopes []string `json:"scopes"`
		}
		if !response.Decode(w, r, maxKeyBody, &req) {
			return
		}

		raw, key, err := mw.NewAPIKey(req.Name, req.Scopes, time.Now())
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		if err := s.CreateAPIKey(r.Context(), key); err != nil {
			slog.Error("create api key", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		slog.Info("api key created", "api_key_id", key.ID, "key_prefix", key.KeyPrefix, "scopes", key.Scopes)
		response.Created(w, createKeyResponse{Key: raw, APIKey: key})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys.
func NewListKeysHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := s.ListAPIKeys(r.Context())
		if err != nil {
			slog.Error("list api keys", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		if keys == nil {
			keys = []*models.APIKey{}
		}
		response.JSON(w, keys)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/admin/keys/{keyID}.
func NewRevokeKeyHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "keyID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "keyID must be a UUID", nil)
			return
		}

		if callerID, ok := mw.GetAPIKeyID(r); ok && callerID == id {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "An API key cannot revoke itself", nil)
			return
		}

		err = s.RevokeAPIKey(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "API key not found", nil)
			return
		}
		if err != nil {
			slog.Error("revoke api key", "api_key_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		response.NoContent(w)
	}
}
