// Package llmerr holds the error types shared by the text-generation clients,
// so callers can classify failures without knowing which provider ran.
package llmerr

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse means the provider answered but the payload could not
// be decoded or carried no text.
var ErrMalformedResponse = errors.New("malformed response")

// HTTPError is a non-2xx answer from a provider.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
