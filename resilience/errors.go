package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for resilience operations.
var (
	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// RateLimitError is returned when an operation's bucket lacks tokens.
// It matches ErrRateLimitExceeded under errors.Is.
type RateLimitError struct {
	Operation  string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("resilience: rate limit exceeded for %s, retry after %.2fs",
		e.Operation, e.RetryAfter.Seconds())
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}
