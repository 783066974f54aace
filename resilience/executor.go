package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/rxprice/tool"
)

// RejectionRecorder is notified when the limiter rejects a call.
type RejectionRecorder interface {
	RateLimited(ctx context.Context, name string)
}

// Executor composes the limiter and timeout around an operation.
type Executor struct {
	limiter  *Limiter
	timeout  *Timeout
	recorder RejectionRecorder
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithLimiter adds per-operation rate limiting to the executor.
func WithLimiter(l *Limiter) ExecutorOption {
	return func(e *Executor) {
		e.limiter = l
	}
}

// WithTimeout adds timeout to the executor.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithTimeoutConfig adds timeout with custom config to the executor.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// WithRejectionRecorder reports limiter rejections to r.
func WithRejectionRecorder(r RejectionRecorder) ExecutorOption {
	return func(e *Executor) {
		e.recorder = r
	}
}

// Execute runs the operation through all configured resilience patterns.
//
// The execution order is:
// 1. Rate Limiter (if configured) - rejects before next is reached
// 2. Timeout (if configured) - limits execution time
//
// Errors from next are returned unchanged. Tokens are not refunded when
// next fails.
func (e *Executor) Execute(ctx context.Context, call tool.Call, next tool.Func) (any, error) {
	if e.limiter != nil {
		if err := e.limiter.Allow(call.Name); err != nil {
			if e.recorder != nil {
				e.recorder.RateLimited(ctx, call.Name)
			}
			return nil, err
		}
	}

	if e.timeout != nil {
		return e.timeout.Execute(ctx, call, next)
	}
	return next(ctx, call)
}

// Middleware returns the executor as a tool.Middleware.
func (e *Executor) Middleware() tool.Middleware {
	return func(next tool.Func) tool.Func {
		return func(ctx context.Context, call tool.Call) (any, error) {
			return e.Execute(ctx, call, next)
		}
	}
}

// RetryAfter extracts the retry-after hint from a rate-limit error.
func RetryAfter(err error) (time.Duration, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}
