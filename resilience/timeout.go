package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/rxprice/tool"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration for the operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout wraps operations with a timeout.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	// Apply defaults
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Timeout{config: config}
}

type callResult struct {
	value any
	err   error
}

// Execute runs next with a deadline. Cancellation or an expired deadline on
// the caller's context is returned as that context's error; only expiry of
// the configured timeout becomes ErrTimeout.
func (t *Timeout) Execute(parent context.Context, call tool.Call, next tool.Func) (any, error) {
	ctx, cancel := context.WithTimeout(parent, t.config.Timeout)
	defer cancel()

	done := make(chan callResult, 1)

	go func() {
		v, err := next(ctx, call)
		done <- callResult{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return nil, err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
