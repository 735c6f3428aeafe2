// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrStateVersionMismatch is returned by a state backend when the persisted schema tag
// differs from the one this build writes.
var ErrStateVersionMismatch = errors.New("state: schema version mismatch")

// ErrInvalidRepoFormat is returned when a repository identifier is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// RateLimitError is returned when the API quota is exhausted and the client is configured
// to surface it instead of waiting for the reset.
type RateLimitError struct {
	Limit     int
	Remaining int
	Reset     time.Time // zero when the source sent no reset metadata
	Err       error
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return fmt.Sprintf("rate limited (remaining %d/%d)", e.Remaining, e.Limit)
	}
	return fmt.Sprintf("rate limited (remaining %d/%d, resets at %s)", e.Remaining, e.Limit, e.Reset.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransportError wraps any failed API call that is not a rate limit.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CorruptStateError is returned by a state backend whose persisted data cannot be decoded.
type CorruptStateError struct {
	Source string
	Err    error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state in %s: %v", e.Source, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }
