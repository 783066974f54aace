package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestTokenBucket_Defaults(t *testing.T) {
	b := NewTokenBucket(BucketConfig{})
	cfg := b.Config()
	if cfg.Rate != 10 || cfg.Capacity != 20 {
		t.Errorf("Config() = %+v, want rate=10 capacity=20", cfg)
	}
	if got := b.Tokens(); got > 20 || got < 19.99 {
		t.Errorf("Tokens() = %v, want full bucket", got)
	}
}

func TestTokenBucket_MonotonicCapacity(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(BucketConfig{Rate: 5, Capacity: 10}, WithClock(clock.Now))

	if !b.Acquire(10) {
		t.Fatal("Acquire(capacity) on a full bucket failed")
	}
	if b.Acquire(1) {
		t.Fatal("Acquire(1) on an empty bucket succeeded")
	}

	clock.Advance(200 * time.Millisecond) // 1/rate
	if !b.Acquire(1) {
		t.Fatal("Acquire(1) after 1/rate seconds failed")
	}
}

func TestTokenBucket_ContinuousRefill(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(BucketConfig{Rate: 5, Capacity: 10}, WithClock(clock.Now))
	b.Acquire(10)

	clock.Advance(300 * time.Millisecond)
	if got := b.Tokens(); !approx(got, 1.5) {
		t.Errorf("Tokens() = %v, want 1.5", got)
	}
}

func TestTokenBucket_CappedAtCapacity(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(BucketConfig{Rate: 100, Capacity: 3}, WithClock(clock.Now))

	clock.Advance(time.Hour)
	if got := b.Tokens(); got != 3 {
		t.Errorf("Tokens() = %v, want 3", got)
	}
}

func TestTokenBucket_FailedAcquireDeductsNothing(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(BucketConfig{Rate: 1, Capacity: 3}, WithClock(clock.Now))
	b.Acquire(2)

	if b.Acquire(2) {
		t.Fatal("Acquire(2) with 1 token succeeded")
	}
	if got := b.Tokens(); got != 1 {
		t.Errorf("Tokens() = %v after failed acquire, want 1", got)
	}
	if b.Acquire(4) {
		t.Error("Acquire above capacity succeeded")
	}
}

func TestTokenBucket_NonPositiveCost(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(BucketConfig{Rate: 1, Capacity: 2}, WithClock(clock.Now))
	b.Acquire(0)
	b.Acquire(-5)
	if got := b.Tokens(); got != 0 {
		t.Errorf("Tokens() = %v, want 0", got)
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(BucketConfig{Rate: 1, Capacity: 4}, WithClock(clock.Now))
	b.Acquire(4)
	b.Reset()
	if got := b.Tokens(); got != 4 {
		t.Errorf("Tokens() after Reset = %v, want 4", got)
	}
}

func TestTokenBucket_RetryAfter(t *testing.T) {
	tests := []struct {
		rate float64
		want time.Duration
	}{
		{1, time.Second},
		{2, 500 * time.Millisecond},
		{5, 200 * time.Millisecond},
	}
	for _, tt := range tests {
		b := NewTokenBucket(BucketConfig{Rate: tt.rate, Capacity: 1})
		if got := b.RetryAfter(); got != tt.want {
			t.Errorf("RetryAfter() at rate %v = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestTokenBucket_ConcurrentNeverOverdraws(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(BucketConfig{Rate: 1, Capacity: 25}, WithClock(clock.Now))

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Allow() {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got != 25 {
		t.Errorf("granted = %d, want 25", got)
	}
	if got := b.Tokens(); got != 0 {
		t.Errorf("Tokens() = %v, want 0", got)
	}
}

func TestBucketConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BucketConfig
		wantErr bool
	}{
		{"valid", BucketConfig{Rate: 1, Capacity: 1}, false},
		{"fractional rate", BucketConfig{Rate: 0.5, Capacity: 1}, false},
		{"zero rate", BucketConfig{Rate: 0, Capacity: 1}, true},
		{"zero capacity", BucketConfig{Rate: 1, Capacity: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
