package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/rxprice/cache"
	"github.com/jonwraymond/rxprice/tool"
)

type countingOp struct {
	calls atomic.Int32
	err   error
}

func (c *countingOp) execute(_ context.Context, call tool.Call) (any, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return "result:" + call.Kwarg("q").(string), nil
}

type rejectionLog struct {
	mu    sync.Mutex
	names []string
}

func (r *rejectionLog) RateLimited(_ context.Context, name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func q(name, v string) tool.Call {
	return tool.Call{Name: name, Kwargs: map[string]any{"q": v}}
}

func TestExecutor_NoPatterns(t *testing.T) {
	op := &countingOp{}
	got, err := NewExecutor().Execute(context.Background(), q("op", "a"), op.execute)
	if err != nil || got != "result:a" {
		t.Errorf("Execute() = (%v, %v)", got, err)
	}
}

func TestExecutor_RejectsWithoutCallingNext(t *testing.T) {
	clock := newFakeClock()
	rec := &rejectionLog{}
	l := NewLimiter(map[string]BucketConfig{"search": {Rate: 1, Capacity: 1}}, WithClock(clock.Now))
	e := NewExecutor(WithLimiter(l), WithRejectionRecorder(rec))
	op := &countingOp{}

	if _, err := e.Execute(context.Background(), q("search", "a"), op.execute); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	_, err := e.Execute(context.Background(), q("search", "b"), op.execute)
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("second call error = %v, want ErrRateLimitExceeded", err)
	}
	if n := op.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if len(rec.names) != 1 || rec.names[0] != "search" {
		t.Errorf("recorded rejections = %v, want [search]", rec.names)
	}
}

func TestExecutor_UpstreamErrorUnchangedAndTokenKept(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(map[string]BucketConfig{"search": {Rate: 1, Capacity: 2}}, WithClock(clock.Now))
	e := NewExecutor(WithLimiter(l))
	upstream := errors.New("search api down")
	op := &countingOp{err: upstream}

	_, err := e.Execute(context.Background(), q("search", "a"), op.execute)
	if err != upstream {
		t.Fatalf("error = %v, want upstream error unchanged", err)
	}
	if got := l.Bucket("search").Tokens(); got != 1 {
		t.Errorf("Tokens() = %v, want 1 (no refund on failure)", got)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	e := NewExecutor(WithTimeout(10 * time.Millisecond))
	_, err := e.Execute(context.Background(), q("op", "a"), func(ctx context.Context, _ tool.Call) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

// Cache outside limiter: hits never reach the bucket.
func newCachedLimited(clock *fakeClock, limits map[string]BucketConfig, op tool.Func) (tool.Func, *Limiter) {
	l := NewLimiter(limits, WithClock(clock.Now))
	policy := cache.DefaultPolicy()
	cmw := cache.NewCacheMiddleware(cache.NewMemoryCache(policy), nil, policy)
	wrapped := tool.Chain(
		cmw.Middleware(),
		NewExecutor(WithLimiter(l)).Middleware(),
	)(op)
	return wrapped, l
}

func TestComposition_CacheHitDoesNotConsumeToken(t *testing.T) {
	clock := newFakeClock()
	op := &countingOp{}
	wrapped, _ := newCachedLimited(clock, map[string]BucketConfig{"search": {Rate: 1, Capacity: 2}}, op.execute)
	ctx := context.Background()

	for _, v := range []string{"a", "b"} {
		if _, err := wrapped(ctx, q("search", v)); err != nil {
			t.Fatalf("call %s error = %v", v, err)
		}
	}

	// Same args: cache hit, limiter never consulted.
	if _, err := wrapped(ctx, q("search", "a")); err != nil {
		t.Fatalf("cached call error = %v", err)
	}
	// Different args: miss, bucket empty.
	_, err := wrapped(ctx, q("search", "c"))
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("miss error = %v, want ErrRateLimitExceeded", err)
	}
	if n := op.calls.Load(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestComposition_RejectionNotCached(t *testing.T) {
	clock := newFakeClock()
	op := &countingOp{}
	wrapped, _ := newCachedLimited(clock, map[string]BucketConfig{"search": {Rate: 1, Capacity: 1}}, op.execute)
	ctx := context.Background()

	_, _ = wrapped(ctx, q("search", "a"))
	if _, err := wrapped(ctx, q("search", "b")); err == nil {
		t.Fatal("expected rejection")
	}

	clock.Advance(time.Second)
	got, err := wrapped(ctx, q("search", "b"))
	if err != nil || got != "result:b" {
		t.Errorf("after refill got (%v, %v), want (result:b, nil)", got, err)
	}
}

func TestComposition_EndToEnd(t *testing.T) {
	clock := newFakeClock()
	op := &countingOp{}
	wrapped, l := newCachedLimited(clock, map[string]BucketConfig{"search": {Rate: 1, Capacity: 2}}, op.execute)
	ctx := context.Background()
	bucket := l.Bucket("search")

	// Three identical calls: one upstream call, one token.
	for i := 0; i < 3; i++ {
		got, err := wrapped(ctx, q("search", "same"))
		if err != nil {
			t.Fatalf("identical call %d error = %v", i, err)
		}
		if got != "result:same" {
			t.Fatalf("identical call %d = %v", i, got)
		}
	}
	if n := op.calls.Load(); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
	if got := bucket.Tokens(); got != 1 {
		t.Fatalf("tokens = %v, want 1", got)
	}

	// Three distinct calls.
	if _, err := wrapped(ctx, q("search", "d1")); err != nil {
		t.Fatalf("distinct call 1 error = %v", err)
	}
	if got := bucket.Tokens(); got != 0 {
		t.Fatalf("tokens = %v, want 0", got)
	}

	_, err := wrapped(ctx, q("search", "d2"))
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("distinct call 2 error = %v, want *RateLimitError", err)
	}
	if rle.Operation != "search" || rle.RetryAfter != time.Second {
		t.Errorf("RateLimitError = %+v, want search/1s", rle)
	}

	clock.Advance(time.Second)
	if _, err := wrapped(ctx, q("search", "d3")); err != nil {
		t.Fatalf("distinct call 3 error = %v", err)
	}
	if n := op.calls.Load(); n != 3 {
		t.Errorf("upstream calls = %d, want 3", n)
	}
}
