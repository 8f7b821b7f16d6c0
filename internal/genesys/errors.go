// Package genesys provides an HTTP client for the Genesys Cloud platform API
// with automatic retry, rate-limit tracking, and error classification.
package genesys

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, genesys.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("genesys: bad request")
	ErrUnauthorized = errors.New("genesys: unauthorized")
	ErrForbidden    = errors.New("genesys: forbidden")
	ErrNotFound     = errors.New("genesys: not found")
	ErrConflict     = errors.New("genesys: conflict")
	ErrThrottled    = errors.New("genesys: throttled")
	ErrServerError  = errors.New("genesys: server error")
)

// APIError wraps a sentinel error with the request method and path, HTTP
// status code, and the API error response body for diagnostics.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("genesys: %s %s failed (HTTP %d): %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
// The platform API documents 429 and all 5xx responses as transient.
func isRetryable(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}

	return code >= http.StatusInternalServerError && code <= 599
}
