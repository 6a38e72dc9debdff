package handler_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/triage/internal/cache"
	"github.com/kiranshivaraju/triage/internal/store"
	"github.com/kiranshivaraju/triage/pkg/models"
)

// ─── in-memory store ─────────────────────────────────────────────────────────

type memStore struct {
	mu      sync.Mutex
	keys    []*models.APIKey
	runs    map[string]*models.RunRecord
	pingErr error
	runErr  error
}

func newMemStore() *memStore {
	return &memStore{runs: make(map[string]*models.RunRecord)}
}

func (s *memStore) Ping(_ context.Context) error { return s.pingErr }

func (s *memStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *memStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

func (s *memStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.ID == key.ID {
			return store.ErrDuplicateKey
		}
	}
	s.keys = append(s.keys, key)
	return nil
}

func (s *memStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.DeletedAt == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *memStore) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.ID == id && k.DeletedAt == nil {
			now := time.Now()
			k.DeletedAt = &now
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memStore) CreateRun(_ context.Context, run *models.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr != nil {
		return s.runErr
	}
	if _, ok := s.runs[run.RunID]; ok {
		return store.ErrDuplicateKey
	}
	s.runs[run.RunID] = run
	return nil
}

func (s *memStore) GetRun(_ context.Context, runID string) (*models.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr != nil {
		return nil, s.runErr
	}
	run, ok := s.runs[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return run, nil
}

func (s *memStore) ListRuns(_ context.Context, f store.RunFilter) ([]*models.RunRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr != nil {
		return nil, 0, s.runErr
	}
	var out []*models.RunRecord
	for _, r := range s.runs {
		if f.Provider != "" && r.Provider != f.Provider {
			continue
		}
		if f.Fingerprint != "" && r.Fingerprint != f.Fingerprint {
			continue
		}
		if f.Flag != "" && !r.Trace.HasFlag(f.Flag) {
			continue
		}
		if f.Failed != nil && (r.Result == nil) != *f.Failed {
			continue
		}
		if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := len(out)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (s *memStore) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

var _ store.Store = (*memStore)(nil)

// ─── in-memory cache ─────────────────────────────────────────────────────────

type memCache struct {
	mu       sync.Mutex
	runs     map[string]*models.RunRecord
	counters map[string]int64
	pingErr  error
	getErr   error
}

func newMemCache() *memCache {
	return &memCache{runs: make(map[string]*models.RunRecord), counters: make(map[string]int64)}
}

func (c *memCache) Ping(_ context.Context) error { return c.pingErr }

func (c *memCache) SetRun(_ context.Context, run *models.RunRecord, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[run.RunID] = run
	return nil
}

func (c *memCache) GetRun(_ context.Context, runID string) (*models.RunRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	run, ok := c.runs[runID]
	return run, ok, nil
}

func (c *memCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

func (c *memCache) cached(runID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.runs[runID]
	return ok
}

var _ cache.Cache = (*memCache)(nil)

var errDown = errors.New("connection refused")
