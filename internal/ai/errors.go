package ai

import "errors"

// Provider failures are classified onto these sentinels so callers can map
// them to status codes without knowing which backend produced them.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
	ErrUnauthorized        = errors.New("ai provider rejected credentials")
	// ErrMissingCredentials is a configuration error raised before any run starts.
	ErrMissingCredentials = errors.New("ai provider credentials missing")
)

// Retryable reports whether err is a transient provider failure that may
// succeed if the same request is sent again later.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrInferenceTimeout)
}
