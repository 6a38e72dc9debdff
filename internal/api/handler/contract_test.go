package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/triage/internal/ai/mock"
	"github.com/kiranshivaraju/triage/internal/api"
	"github.com/kiranshivaraju/triage/internal/api/handler"
	mw "github.com/kiranshivaraju/triage/internal/api/middleware"
	"github.com/kiranshivaraju/triage/pkg/models"
)

// ─── test harness ────────────────────────────────────────────────────────────

type testServer struct {
	server *httptest.Server
	store  *memStore
	cache  *memCache
	gen    *mock.Generator
	rawKey string
}

// newTestServer wires the real router and handlers over in-memory
// infrastructure. The seeded key holds the admin scope.
func newTestServer(t *testing.T, gen *mock.Generator) *testServer {
	t.Helper()

	ms, mc := newMemStore(), newMemCache()
	raw, key, err := mw.NewAPIKey("contract", []string{mw.ScopeAdmin}, time.Now())
	require.NoError(t, err)
	require.NoError(t, ms.CreateAPIKey(t.Context(), key))

	svc := newService(gen)
	router := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(ms),
		RateLimit: mw.NewRateLimit(mc, 5), // low limit for rate-limit tests

		HealthHandler:    handler.NewHealthHandler(ms, mc, svc.Provider()),
		TriageHandler:    handler.NewTriageHandler(svc, ms, mc, time.Minute),
		ListRunsHandler:  handler.NewListRunsHandler(ms),
		GetRunHandler:    handler.NewGetRunHandler(ms, mc, time.Minute),
		CreateKeyHandler: handler.NewCreateKeyHandler(ms),
		ListKeysHandler:  handler.NewListKeysHandler(ms),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(ms),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{server: srv, store: ms, cache: mc, gen: gen, rawKey: raw}
}

func (ts *testServer) do(t *testing.T, method, path, rawKey string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	if rawKey != "" {
		req.Header.Set("Authorization", "Bearer "+rawKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var parsed map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	}
	return resp, parsed
}

// ─── contract tests ──────────────────────────────────────────────────────────

func TestContract_TriageThenFetch(t *testing.T) {
	ts := newTestServer(t, mock.NewGenerator())

	resp, body := ts.do(t, http.MethodPost, "/api/v1/triage", ts.rawKey,
		map[string]string{"ticketText": ticketText, "tone": "direct"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runID := body["data"].(map[string]any)["runId"].(string)

	resp, body = ts.do(t, http.MethodGet, "/api/v1/runs/"+runID, ts.rawKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, runID, data["runId"])
	assert.Equal(t, "mock", data["provider"])
	assert.NotNil(t, data["result"])

	resp, body = ts.do(t, http.MethodGet, "/api/v1/runs", ts.rawKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 1)
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["total"])
}

func TestContract_FailedRunIsFetchable(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedGenerator(`{"severity":"sev9"}`, `{"severity":"sev9"}`))

	resp, body := ts.do(t, http.MethodPost, "/api/v1/triage", ts.rawKey, map[string]string{"ticketText": ticketText})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	runID := details["runId"].(string)

	resp, body = ts.do(t, http.MethodGet, "/api/v1/runs/"+runID, ts.rawKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	trace := body["data"].(map[string]any)["trace"].(map[string]any)
	assert.Contains(t, trace["flags"], models.FlagRepairFailed)
	assert.Equal(t, 1, ts.gen.RepairCalls())
}

func TestContract_KeyLifecycle(t *testing.T) {
	ts := newTestServer(t, mock.NewGenerator())

	resp, body := ts.do(t, http.MethodPost, "/api/v1/admin/keys", ts.rawKey,
		map[string]any{"name": "reader", "scopes": []string{mw.ScopeRuns}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	readerKey := data["key"].(string)
	readerID := data["api_key"].(map[string]any)["id"].(string)
	assert.NotContains(t, data["api_key"], "key_hash")

	// The new key reads runs but cannot triage.
	resp, _ = ts.do(t, http.MethodGet, "/api/v1/runs", readerKey, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPost, "/api/v1/triage", readerKey, map[string]string{"ticketText": ticketText})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = ts.do(t, http.MethodGet, "/api/v1/admin/keys", ts.rawKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 2)

	resp, _ = ts.do(t, http.MethodDelete, "/api/v1/admin/keys/"+readerID, ts.rawKey, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/v1/runs", readerKey, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "revoked key is rejected")

	resp, _ = ts.do(t, http.MethodDelete, "/api/v1/admin/keys/"+readerID, ts.rawKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/v1/admin/keys/not-a-uuid", ts.rawKey, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContract_CannotRevokeOwnKey(t *testing.T) {
	ts := newTestServer(t, mock.NewGenerator())

	keys, err := ts.store.ListAPIKeys(t.Context())
	require.NoError(t, err)
	require.Len(t, keys, 1)

	resp, _ := ts.do(t, http.MethodDelete, "/api/v1/admin/keys/"+keys[0].ID.String(), ts.rawKey, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContract_CreateKeyValidation(t *testing.T) {
	ts := newTestServer(t, mock.NewGenerator())

	resp, _ := ts.do(t, http.MethodPost, "/api/v1/admin/keys", ts.rawKey, map[string]any{"scopes": []string{mw.ScopeRuns}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/admin/keys", ts.rawKey, map[string]any{"name": "x", "scopes": []string{"root"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContract_RateLimit(t *testing.T) {
	ts := newTestServer(t, mock.NewGenerator())

	for i := 0; i < 5; i++ {
		resp, _ := ts.do(t, http.MethodGet, "/api/v1/runs", ts.rawKey, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := ts.do(t, http.MethodGet, "/api/v1/runs", ts.rawKey, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["error"].(map[string]any)["code"])
}

func TestContract_HealthIsPublic(t *testing.T) {
	ts := newTestServer(t, mock.NewGenerator())

	resp, body := ts.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["data"].(map[string]any)["status"])
}
