package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common errors used throughout the application.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotConfigured = errors.New("provider not configured")
)

// ProviderError reports a failed call to the email-marketing provider:
// transport failures, timeouts, unreadable bodies and unexpected statuses.
// A rejected credential is not a ProviderError.
type ProviderError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sender.net %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("sender.net %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call failed because a deadline expired.
func (e *ProviderError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
