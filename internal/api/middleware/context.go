package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/triage/pkg/models"
)

type (
	apiKeyCtxKey     struct{}
	keyCaptureCtxKey struct{}
)

// keyCapture lets an outer middleware observe which key an inner Authenticate
// accepted.
type keyCapture struct {
	prefix string
}

func (c *keyCapture) attach(ctx context.Context) context.Context {
	return context.WithValue(ctx, keyCaptureCtxKey{}, c)
}

// WithAPIKey returns a copy of ctx carrying the authenticated key.
func WithAPIKey(ctx context.Context, key *models.APIKey) context.Context {
	if c, ok := ctx.Value(keyCaptureCtxKey{}).(*keyCapture); ok && key != nil {
		c.prefix = key.KeyPrefix
	}
	return context.WithValue(ctx, apiKeyCtxKey{}, key)
}

// APIKeyFrom returns the key that authenticated the request, if any.
func APIKeyFrom(r *http.Request) (*models.APIKey, bool) {
	key, ok := r.Context().Value(apiKeyCtxKey{}).(*models.APIKey)
	return key, ok && key != nil
}

// GetAPIKeyID returns the id of the key that authenticated the request.
func GetAPIKeyID(r *http.Request) (uuid.UUID, bool) {
	key, ok := APIKeyFrom(r)
	if !ok {
		return uuid.Nil, false
	}
	return key.ID, true
}
