package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// JSONClient posts JSON to a provider's HTTP API.
type JSONClient struct {
	BaseURL string
	Header  http.Header
	HTTP    *http.Client
}

// NewJSONClient creates a JSONClient. A trailing slash on baseURL is ignored.
func NewJSONClient(baseURL string, header http.Header) *JSONClient {
	if header == nil {
		header = http.Header{}
	}
	return &JSONClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Header:  header,
		HTTP:    &http.Client{},
	}
}

// Post sends body to BaseURL+path and decodes a 2xx JSON response into out.
// Failures are mapped onto the package sentinel errors.
func (c *JSONClient) Post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return ClassifyStatus(resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// ClassifyError maps transport-level errors to sentinel errors.
func ClassifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// ClassifyStatus maps a non-2xx HTTP status to a sentinel error.
func ClassifyStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrUnauthorized, status, body)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, status, body)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrInvalidResponse, status, body)
	}
}
