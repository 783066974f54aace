package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jonwraymond/rxprice/tool"
	"golang.org/x/sync/singleflight"
)

// SkipRule determines whether to skip caching for a given operation.
// Returns true if caching should be skipped.
type SkipRule func(name string) bool

// SkipOperations returns a SkipRule that skips the named operations.
func SkipOperations(names ...string) SkipRule {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := skip[name]
		return ok
	}
}

// Recorder receives hit/miss notifications from the middleware.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Must not block; called on the request path.
type Recorder interface {
	CacheHit(ctx context.Context, name string)
	CacheMiss(ctx context.Context, name string)
}

// OpStats holds per-operation hit/miss counts observed by the middleware.
type OpStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

type opCounters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

type bypassKey struct{}

// WithBypass marks ctx so the middleware skips the cache lookup. The fresh
// result is still stored.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

func bypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}

// MiddlewareOption configures a CacheMiddleware.
type MiddlewareOption func(*CacheMiddleware)

// WithRecorder attaches a hit/miss recorder.
func WithRecorder(r Recorder) MiddlewareOption {
	return func(m *CacheMiddleware) {
		m.recorder = r
	}
}

// WithSkipRule sets the rule deciding which operations bypass caching.
func WithSkipRule(rule SkipRule) MiddlewareOption {
	return func(m *CacheMiddleware) {
		m.skipRule = rule
	}
}

// CacheMiddleware wraps operation execution with caching.
type CacheMiddleware struct {
	cache    Cache
	keyer    Keyer
	policy   Policy
	skipRule SkipRule
	recorder Recorder
	group    singleflight.Group

	mu    sync.Mutex
	stats map[string]*opCounters
}

// NewCacheMiddleware creates a new cache middleware.
// If keyer is nil, DefaultKeyer is used.
func NewCacheMiddleware(cache Cache, keyer Keyer, policy Policy, opts ...MiddlewareOption) *CacheMiddleware {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	m := &CacheMiddleware{
		cache:  cache,
		keyer:  keyer,
		policy: policy,
		stats:  make(map[string]*opCounters),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Middleware returns the wrapper as a tool.Middleware.
func (m *CacheMiddleware) Middleware() tool.Middleware {
	return m.Wrap
}

// Wrap returns next decorated with caching.
// On cache hit, returns cached result without calling next.
// On cache miss, calls next and caches the result.
// Errors are NOT cached.
func (m *CacheMiddleware) Wrap(next tool.Func) tool.Func {
	return func(ctx context.Context, call tool.Call) (any, error) {
		if m.cache == nil || !m.policy.ShouldCache() {
			return next(ctx, call)
		}
		if m.skipRule != nil && m.skipRule(call.Name) {
			return next(ctx, call)
		}

		key, err := m.keyer.Key(call.Name, call.Args, call.Kwargs)
		if err != nil {
			// Key generation failed - execute without caching
			return next(ctx, call)
		}

		if !bypassed(ctx) {
			if cached, ok := m.cache.Get(ctx, key); ok {
				m.hit(ctx, call.Name)
				return cached, nil
			}
		}
		m.miss(ctx, call.Name)

		if !m.policy.Coalesce {
			return m.load(ctx, key, call, next)
		}

		// The shared load must outlive any single waiter, so it runs detached
		// from the caller's cancellation. Deadlines below the cache still bound it.
		loadCtx := context.WithoutCancel(ctx)
		ch := m.group.DoChan(key, func() (any, error) {
			return m.load(loadCtx, key, call, next)
		})
		select {
		case res := <-ch:
			return res.Val, res.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// load calls next and stores a successful result.
func (m *CacheMiddleware) load(ctx context.Context, key string, call tool.Call, next tool.Func) (any, error) {
	result, err := next(ctx, call)
	if err != nil {
		return result, err
	}
	_ = m.cache.Set(ctx, key, result, m.policy.TTLFor(call.Name))
	return result, nil
}

// Stats returns hit/miss counts for the named operation.
func (m *CacheMiddleware) Stats(name string) OpStats {
	m.mu.Lock()
	c, ok := m.stats[name]
	m.mu.Unlock()
	if !ok {
		return OpStats{}
	}
	return OpStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (m *CacheMiddleware) counters(name string) *opCounters {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.stats[name]
	if !ok {
		c = &opCounters{}
		m.stats[name] = c
	}
	return c
}

func (m *CacheMiddleware) hit(ctx context.Context, name string) {
	m.counters(name).hits.Add(1)
	if m.recorder != nil {
		m.recorder.CacheHit(ctx, name)
	}
}

func (m *CacheMiddleware) miss(ctx context.Context, name string) {
	m.counters(name).misses.Add(1)
	if m.recorder != nil {
		m.recorder.CacheMiss(ctx, name)
	}
}
