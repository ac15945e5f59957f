package acculynx

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when no API key is configured
var ErrMissingCredentials = errors.New("acculynx: API key not configured")

// TransportError is a network-level failure: the request may not have reached AccuLynx
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("acculynx %s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response; Body keeps the raw response for diagnosis
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("acculynx %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("acculynx %s: status %d: %s", e.Op, e.StatusCode, truncate(e.Body, 500))
}

// InvalidResponseError is a 2xx response whose body could not be understood
type InvalidResponseError struct {
	Op     string
	Reason string
	Body   string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("acculynx %s: invalid response: %s", e.Op, e.Reason)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
