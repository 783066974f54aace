package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records operation, cache and rate-limit metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records an operation call with duration and error status.
	RecordExecution(ctx context.Context, meta OperationMeta, duration time.Duration, err error)

	// CacheHit counts a result served from cache.
	CacheHit(ctx context.Context, name string)

	// CacheMiss counts a lookup that fell through to the operation.
	CacheMiss(ctx context.Context, name string)

	// RateLimited counts a call rejected by the limiter.
	RateLimited(ctx context.Context, name string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	calls        metric.Int64Counter
	errors       metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	rejections   metric.Int64Counter
}

// NewMetrics creates the instrument set on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	var err error

	if m.calls, err = meter.Int64Counter(
		"rxprice.op.calls",
		metric.WithDescription("Total number of operation calls"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.errors, err = meter.Int64Counter(
		"rxprice.op.errors",
		metric.WithDescription("Total number of failed operation calls"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.durationHist, err = meter.Float64Histogram(
		"rxprice.op.duration_ms",
		metric.WithDescription("Operation call duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.cacheHits, err = meter.Int64Counter(
		"rxprice.cache.hits",
		metric.WithDescription("Results served from cache"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, err
	}

	if m.cacheMisses, err = meter.Int64Counter(
		"rxprice.cache.misses",
		metric.WithDescription("Cache lookups that reached the operation"),
		metric.WithUnit("{miss}"),
	); err != nil {
		return nil, err
	}

	if m.rejections, err = meter.Int64Counter(
		"rxprice.ratelimit.rejections",
		metric.WithDescription("Calls rejected by the rate limiter"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordExecution records metrics for an operation call.
func (m *metricsImpl) RecordExecution(ctx context.Context, meta OperationMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	// Always increment total counter
	m.calls.Add(ctx, 1, opt)

	// Increment error counter on failure
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}

	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) CacheHit(ctx context.Context, name string) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("op.name", name)))
}

func (m *metricsImpl) CacheMiss(ctx context.Context, name string) {
	m.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("op.name", name)))
}

func (m *metricsImpl) RateLimited(ctx context.Context, name string) {
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("op.name", name)))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordExecution(context.Context, OperationMeta, time.Duration, error) {}
func (m *noopMetrics) CacheHit(context.Context, string)                                   {}
func (m *noopMetrics) CacheMiss(context.Context, string)                                  {}
func (m *noopMetrics) RateLimited(context.Context, string)                                {}
