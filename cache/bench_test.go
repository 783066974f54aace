package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonwraymond/rxprice/tool"
)

// BenchmarkMemoryCache_Get_Hit measures cache hit performance.
func BenchmarkMemoryCache_Get_Hit(b *testing.B) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()
	_ = c.Set(ctx, "key", "value", time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "key")
	}
}

// BenchmarkMemoryCache_Set measures write performance.
func BenchmarkMemoryCache_Set(b *testing.B) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i%1024), i, time.Hour)
	}
}

// BenchmarkComputeKey measures fingerprinting of a typical search call.
func BenchmarkComputeKey(b *testing.B) {
	kwargs := map[string]any{
		"medication_name": "atorvastatin",
		"dosage":          "20mg",
		"quantity":        30,
		"location":        "Denver, CO",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ComputeKey("search_medication_price", nil, kwargs)
	}
}

// BenchmarkMiddleware_Hit measures the wrapped hit path.
func BenchmarkMiddleware_Hit(b *testing.B) {
	mw := NewCacheMiddleware(NewMemoryCache(DefaultPolicy()), nil, DefaultPolicy())
	wrapped := mw.Wrap(func(context.Context, tool.Call) (any, error) { return "v", nil })
	call := tool.Call{Name: "op", Kwargs: map[string]any{"q": "x"}}
	ctx := context.Background()
	_, _ = wrapped(ctx, call)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = wrapped(ctx, call)
	}
}
