package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for adapter operations.
var (
	ErrNotConfigured = errors.New("ai not configured (set OPENAI_API_KEY or OLLAMA_BASE_URL)")
	ErrNoMessages    = errors.New("at least one message is required")
)

// BackendError is returned when a backend answers with a non-2xx status or
// cannot be reached at all (StatusCode 0).
type BackendError struct {
	Provider   Provider
	StatusCode int
	Body       string // first maxErrorBodyChars characters
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s backend unreachable: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s backend error %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when a backend does not answer in time. The
// in-flight request has already been aborted when it is returned.
type TimeoutError struct {
	Provider Provider
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s backend did not respond within %s", e.Provider, e.After)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// IsTimeout reports whether err is a backend timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// AsBackendError extracts a BackendError from err.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
