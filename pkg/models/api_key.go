package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Scopes granted to API keys. ScopeAdmin implies every other scope.
const (
	ScopeTriage = "triage:write"
	ScopeRuns   = "runs:read"
	ScopeAdmin  = "admin"
)

// KnownScopes lists every scope a key may carry.
var KnownScopes = []string{ScopeTriage, ScopeRuns, ScopeAdmin}

// DefaultScopes are granted when a key is created without explicit scopes.
var DefaultScopes = []string{ScopeTriage, ScopeRuns}

// APIKey authenticates callers of the triage API.
// Raw keys are shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	Scopes     []string   `db:"scopes"       json:"scopes"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updated_at"`
}

// Allows reports whether the key may act under scope.
func (k *APIKey) Allows(scope string) bool {
	if k == nil {
		return false
	}
	return slices.Contains(k.Scopes, scope) || slices.Contains(k.Scopes, ScopeAdmin)
}

// Revoked reports whether the key has been soft-deleted.
func (k *APIKey) Revoked() bool {
	return k.DeletedAt != nil
}

// UnknownScope returns the first entry of scopes that is not a KnownScopes
// member, or "" when all are valid.
func UnknownScope(scopes []string) string {
	for _, s := range scopes {
		if !slices.Contains(KnownScopes, s) {
			return s
		}
	}
	return ""
}
