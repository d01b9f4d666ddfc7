package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput   = errors.New("session: invalid input")
	ErrNoTokens       = errors.New("session: no tokens stored")
	ErrRefreshBackoff = errors.New("session: refresh not allowed yet")
	ErrRefreshFailed  = errors.New("session: refresh failed")
	ErrNotFound       = errors.New("session: not found")
	ErrCorrupt        = errors.New("session: corrupt stored data")
	ErrUnexpected     = errors.New("session: unexpected failure")
)

// InvalidTokenSetError reports which field of a TokenSet was rejected.
type InvalidTokenSetError struct {
	Field  string
	Reason string
}

func (e *InvalidTokenSetError) Error() string {
	return fmt.Sprintf("session: invalid token set: %s %s", e.Field, e.Reason)
}

func (e *InvalidTokenSetError) Unwrap() error { return ErrInvalidInput }

// RefreshBackoffError is returned when a refresh is attempted inside the
// success cooldown or the failure backoff window.
type RefreshBackoffError struct {
	RetryAfter time.Duration
}

func (e *RefreshBackoffError) Error() string {
	return fmt.Sprintf("session: refresh not allowed for another %s", e.RetryAfter.Round(time.Second))
}

func (e *RefreshBackoffError) Unwrap() error { return ErrRefreshBackoff }

// RefreshFailedError wraps a credential provider failure.
type RefreshFailedError struct {
	Reason string
	Err    error
}

func (e *RefreshFailedError) Error() string {
	return "session: refresh failed: " + e.Reason
}

func (e *RefreshFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRefreshFailed}
	}
	return []error{ErrRefreshFailed, e.Err}
}
