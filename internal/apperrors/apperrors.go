package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidRequest = errors.New("invalid request body")
	ErrValidation     = errors.New("validation failed")

	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrParse             = errors.New("malformed model output")
	ErrPersistence       = errors.New("failed to persist report")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// TransportError describes a failed outbound call. StatusCode is zero when the
// request never produced an HTTP response.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: connection failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is a TransportError of any kind.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsConnectionError reports whether err is a TransportError without an HTTP status.
func IsConnectionError(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == 0
}

// RateLimitError is returned for 403/429 answers from the hosting API. Remaining
// carries the X-RateLimit-Remaining header; anything but "0" on a 403 usually means
// a permission problem that retrying will not fix.
type RateLimitError struct {
	Resource   string
	StatusCode int
	Remaining  string
	Reset      time.Time
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("rate limit exceeded for %s (status %d)", e.Resource, e.StatusCode)
	if !e.Reset.IsZero() {
		msg += ", resets at " + e.Reset.UTC().Format(time.RFC3339)
	}

	return msg
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// QuotaExhausted reports whether the hosting API said no requests remain.
func (e *RateLimitError) QuotaExhausted() bool { return e.Remaining == "0" }
