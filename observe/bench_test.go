package observe

import (
	"context"
	"io"
	"testing"

	"github.com/jonwraymond/rxprice/tool"
)

func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "operation completed", F("duration_ms", 1.0))
	}
}

func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "filtered")
	}
}

func BenchmarkMiddleware_Wrap(b *testing.B) {
	mw := NewMiddleware(nil, nil, NewLoggerWithWriter("info", io.Discard))
	wrapped := mw.Wrap(func(context.Context, tool.Call) (any, error) { return nil, nil })
	call := tool.Call{Name: "op"}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = wrapped(ctx, call)
	}
}
