package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/triage/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	CreateRun(ctx context.Context, run *models.RunRecord) error
	GetRun(ctx context.Context, runID string) (*models.RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.RunRecord, int, error)
}

// RunFilter narrows ListRuns. Zero values mean "no constraint".
type RunFilter struct {
	Provider    string
	Fingerprint string
	Flag        string
	Failed      *bool
	Since       time.Time
	Page        int
	Limit       int
}

// RunFilterOption mutates a RunFilter; the API layer builds filters from query params.
type RunFilterOption func(*RunFilter)

func WithProvider(name string) RunFilterOption {
	return func(f *RunFilter) {
		f.Provider = name
	}
}

// WithFingerprint matches earlier runs of the same ticket text.
func WithFingerprint(fp string) RunFilterOption {
	return func(f *RunFilter) {
		f.Fingerprint = fp
	}
}

func WithFlag(flag string) RunFilterOption {
	return func(f *RunFilter) {
		f.Flag = flag
	}
}

func WithFailed(failed bool) RunFilterOption {
	return func(f *RunFilter) {
		f.Failed = &failed
	}
}

func WithSince(t time.Time) RunFilterOption {
	return func(f *RunFilter) {
		f.Since = t
	}
}

// NewRunFilter builds a filter for one page of results.
func NewRunFilter(page, limit int, opts ...RunFilterOption) RunFilter {
	f := RunFilter{Page: page, Limit: limit}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// normalize clamps pagination to 1-based pages of at most 100 rows.
func (f RunFilter) normalize() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
