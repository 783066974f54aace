package observe

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/rxprice/resilience"
	"github.com/jonwraymond/rxprice/tool"
)

// Middleware wraps operation calls with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe tool.Func.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Call arguments and results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	kind    string
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		kind:    "tool",
	}
}

// Metrics returns the metrics sink, for use as a cache or limiter recorder.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Middleware returns the wrapper as a tool.Middleware.
func (m *Middleware) Middleware() tool.Middleware {
	return m.Wrap
}

// Wrap wraps a tool.Func with tracing, metrics, and logging.
func (m *Middleware) Wrap(next tool.Func) tool.Func {
	return func(ctx context.Context, call tool.Call) (any, error) {
		meta := OperationMeta{Name: call.Name, Kind: m.kind}

		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := next(ctx, call)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, meta, duration, err)

		opLogger := m.logger.WithOperation(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		var rle *resilience.RateLimitError
		switch {
		case errors.As(err, &rle):
			fields = append(fields, Field{Key: "retry_after_s", Value: rle.RetryAfter.Seconds()})
			opLogger.Warn(ctx, "operation rate limited", fields...)
		case err != nil:
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			opLogger.Error(ctx, "operation failed", fields...)
		default:
			opLogger.Info(ctx, "operation completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
