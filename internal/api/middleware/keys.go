package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// KeyPrefix starts every raw API key.
const KeyPrefix = "trk_"

// NewAPIKey mints a raw key and the record to persist for it. The raw key
// is returned once; only its bcrypt hash is stored.
func NewAPIKey(name string, scopes []string, now time.Time) (string, *models.APIKey, error) {
	if name == "" {
		return "", nil, fmt.Errorf("api key name is required")
	}
	if len(scopes) == 0 {
		scopes = slices.Clone(models.DefaultScopes)
	}
	if bad := models.UnknownScope(scopes); bad != "" {
		return "", nil, fmt.Errorf("unknown scope %q", bad)
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}
	raw := KeyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash api key: %w", err)
	}

	now = now.UTC()
	return raw, &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:keyPrefixLen],
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
