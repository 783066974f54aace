package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*metricsImpl, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		return 0
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordExecution(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	meta := OperationMeta{Name: "search_medication_price", Kind: "tool"}

	m.RecordExecution(ctx, meta, 100*time.Millisecond, nil)
	m.RecordExecution(ctx, meta, 50*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	if got := counterValue(t, rm, "rxprice.op.calls"); got != 2 {
		t.Errorf("rxprice.op.calls = %d, want 2", got)
	}
	if got := counterValue(t, rm, "rxprice.op.errors"); got != 1 {
		t.Errorf("rxprice.op.errors = %d, want 1", got)
	}

	hist := findMetric(rm, "rxprice.op.duration_ms")
	if hist == nil {
		t.Fatal("rxprice.op.duration_ms not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(h.DataPoints) != 1 || h.DataPoints[0].Count != 2 {
		t.Errorf("duration histogram = %+v, want 2 samples", hist.Data)
	}
}

func TestMetrics_CacheAndRateLimitCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.CacheHit(ctx, "a")
	m.CacheHit(ctx, "b")
	m.CacheMiss(ctx, "a")
	m.RateLimited(ctx, "a")

	rm := collect(t, reader)
	if got := counterValue(t, rm, "rxprice.cache.hits"); got != 2 {
		t.Errorf("rxprice.cache.hits = %d, want 2", got)
	}
	if got := counterValue(t, rm, "rxprice.cache.misses"); got != 1 {
		t.Errorf("rxprice.cache.misses = %d, want 1", got)
	}
	if got := counterValue(t, rm, "rxprice.ratelimit.rejections"); got != 1 {
		t.Errorf("rxprice.ratelimit.rejections = %d, want 1", got)
	}
}
