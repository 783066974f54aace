package resilience

import (
	"sort"
	"time"
)

// DefaultBucket names the shared fallback bucket in a limits table.
const DefaultBucket = "default"

// DefaultLimits returns the built-in per-operation limits.
func DefaultLimits() map[string]BucketConfig {
	return map[string]BucketConfig{
		"search_medication_price":   {Rate: 5, Capacity: 10},
		"find_generic_alternatives": {Rate: 2, Capacity: 5},
		"find_pharmacies":           {Rate: 2, Capacity: 5},
		"compare_prices":            {Rate: 1, Capacity: 3},
		DefaultBucket:               DefaultBucketConfig,
	}
}

// Limiter is a fixed registry of token buckets keyed by operation name.
//
// The table is built once. Unknown names resolve to the DefaultBucket entry;
// no bucket is ever created lazily.
type Limiter struct {
	buckets  map[string]*TokenBucket
	fallback *TokenBucket
}

// BucketStatus is a point-in-time view of one bucket.
type BucketStatus struct {
	Rate     float64 `json:"rate"`
	Capacity int     `json:"capacity"`
	Tokens   float64 `json:"tokens"`
}

// NewLimiter builds a limiter from a limits table. The DefaultBucket entry,
// if present, configures the fallback bucket; otherwise DefaultBucketConfig
// is used. Options apply to every bucket.
func NewLimiter(limits map[string]BucketConfig, opts ...BucketOption) *Limiter {
	fallbackCfg, ok := limits[DefaultBucket]
	if !ok {
		fallbackCfg = DefaultBucketConfig
	}

	l := &Limiter{
		buckets:  make(map[string]*TokenBucket, len(limits)),
		fallback: NewTokenBucket(fallbackCfg, opts...),
	}
	for name, cfg := range limits {
		if name == DefaultBucket {
			continue
		}
		l.buckets[name] = NewTokenBucket(cfg, opts...)
	}
	return l
}

// Bucket resolves name to its bucket, or the default bucket.
func (l *Limiter) Bucket(name string) *TokenBucket {
	if b, ok := l.buckets[name]; ok {
		return b
	}
	return l.fallback
}

// CheckRateLimit acquires cost tokens from the bucket for name.
func (l *Limiter) CheckRateLimit(name string, cost float64) bool {
	return l.Bucket(name).Acquire(cost)
}

// Allow returns nil if a token was acquired for name, otherwise a
// *RateLimitError carrying the bucket's retry-after hint.
func (l *Limiter) Allow(name string) error {
	b := l.Bucket(name)
	if b.Acquire(1) {
		return nil
	}
	return &RateLimitError{Operation: name, RetryAfter: b.RetryAfter()}
}

// RetryAfter returns the retry-after hint for name.
func (l *Limiter) RetryAfter(name string) time.Duration {
	return l.Bucket(name).RetryAfter()
}

// Names returns the explicitly configured operation names, sorted.
func (l *Limiter) Names() []string {
	names := make([]string, 0, len(l.buckets))
	for name := range l.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status reports the bucket that name resolves to.
func (l *Limiter) Status(name string) BucketStatus {
	b := l.Bucket(name)
	cfg := b.Config()
	return BucketStatus{Rate: cfg.Rate, Capacity: cfg.Capacity, Tokens: b.Tokens()}
}

// Snapshot reports every configured bucket plus the default.
func (l *Limiter) Snapshot() map[string]BucketStatus {
	out := make(map[string]BucketStatus, len(l.buckets)+1)
	for name := range l.buckets {
		out[name] = l.Status(name)
	}
	out[DefaultBucket] = l.Status(DefaultBucket)
	return out
}
