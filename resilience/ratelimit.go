package resilience

import (
	"fmt"
	"sync"
	"time"
)

// BucketConfig configures a token bucket.
type BucketConfig struct {
	// Rate is the number of tokens added per second.
	// Default: 10
	Rate float64 `yaml:"rate" json:"rate"`

	// Capacity is the maximum number of tokens the bucket holds.
	// Default: 20
	Capacity int `yaml:"capacity" json:"capacity"`
}

// DefaultBucketConfig is the shared bucket for operations without their own.
var DefaultBucketConfig = BucketConfig{Rate: 10, Capacity: 20}

// Validate reports whether the configuration is usable as-is.
func (c BucketConfig) Validate() error {
	if c.Rate <= 0 {
		return fmt.Errorf("resilience: rate must be positive, got %v", c.Rate)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("resilience: capacity must be positive, got %d", c.Capacity)
	}
	return nil
}

// RetryAfter is the time needed to refill one token.
func (c BucketConfig) RetryAfter() time.Duration {
	if c.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.Rate)
}

// TokenBucket implements a continuously refilled token bucket.
//
// Tokens are real-valued: 0.3s at 5 tokens/s adds 1.5 tokens. The balance
// never exceeds Capacity and never goes negative.
type TokenBucket struct {
	config BucketConfig
	now    func() time.Time

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// BucketOption configures a TokenBucket.
type BucketOption func(*TokenBucket)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) BucketOption {
	return func(b *TokenBucket) {
		if now != nil {
			b.now = now
		}
	}
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(config BucketConfig, opts ...BucketOption) *TokenBucket {
	// Apply defaults
	if config.Rate <= 0 {
		config.Rate = DefaultBucketConfig.Rate
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultBucketConfig.Capacity
	}

	b := &TokenBucket{
		config: config,
		now:    time.Now,
		tokens: float64(config.Capacity),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastRefill = b.now()
	return b
}

// Allow acquires a single token.
func (b *TokenBucket) Allow() bool {
	return b.Acquire(1)
}

// Acquire refills the bucket and then deducts cost if enough tokens are
// available. On failure nothing is deducted. A non-positive cost counts as 1.
func (b *TokenBucket) Acquire(cost float64) bool {
	if cost <= 0 {
		cost = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	if b.tokens >= cost {
		b.tokens -= cost
		return true
	}

	return false
}

func (b *TokenBucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	b.lastRefill = now

	// Add tokens based on elapsed time
	b.tokens += elapsed.Seconds() * b.config.Rate

	// Cap at capacity
	if b.tokens > float64(b.config.Capacity) {
		b.tokens = float64(b.config.Capacity)
	}
}

// Tokens returns the current number of available tokens.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}

// Reset resets the bucket to full capacity.
func (b *TokenBucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = float64(b.config.Capacity)
	b.lastRefill = b.now()
}

// Config returns the bucket configuration.
func (b *TokenBucket) Config() BucketConfig {
	return b.config
}

// RetryAfter returns the time needed to refill one token.
func (b *TokenBucket) RetryAfter() time.Duration {
	return b.config.RetryAfter()
}
