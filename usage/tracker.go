package usage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonwraymond/rxprice/tool"
)

// DefaultRetention is the sample horizon used by the periodic prune.
const DefaultRetention = 24 * time.Hour

// Stats summarizes usage of one operation over a window.
type Stats struct {
	Count         int     `json:"count"`
	Rate          float64 `json:"rate"`
	WindowSeconds float64 `json:"window_seconds"`
}

// Tracker holds append-only invocation timestamps per operation.
type Tracker struct {
	mu      sync.Mutex
	samples map[string][]time.Time
	now     func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		samples: make(map[string][]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends the current time to name's samples.
func (t *Tracker) Record(name string) {
	t.mu.Lock()
	t.samples[name] = append(t.samples[name], t.now())
	t.mu.Unlock()
}

// Stats counts samples newer than now-window. Rate is count per second of
// window. A non-positive window reports a zero rate.
func (t *Tracker) Stats(name string, window time.Duration) Stats {
	cutoff := t.now().Add(-window)

	t.mu.Lock()
	samples := t.samples[name]
	// Samples are appended in time order, so the first newer one splits the slice.
	idx := sort.Search(len(samples), func(i int) bool {
		return samples[i].After(cutoff)
	})
	count := len(samples) - idx
	t.mu.Unlock()

	s := Stats{Count: count, WindowSeconds: window.Seconds()}
	if window > 0 {
		s.Rate = float64(count) / window.Seconds()
	}
	return s
}

// Snapshot reports Stats for every operation that has samples.
func (t *Tracker) Snapshot(window time.Duration) map[string]Stats {
	out := make(map[string]Stats)
	for _, name := range t.Names() {
		out[name] = t.Stats(name, window)
	}
	return out
}

// Names returns operations with recorded samples, sorted.
func (t *Tracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.samples))
	for name := range t.samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prune drops samples at or older than now-maxAge and returns how many were
// removed. A non-positive maxAge clears everything.
func (t *Tracker) Prune(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	if maxAge <= 0 {
		for _, s := range t.samples {
			removed += len(s)
		}
		t.samples = make(map[string][]time.Time)
		return removed
	}

	cutoff := t.now().Add(-maxAge)
	for name, samples := range t.samples {
		idx := sort.Search(len(samples), func(i int) bool {
			return samples[i].After(cutoff)
		})
		removed += idx
		if idx == len(samples) {
			delete(t.samples, name)
			continue
		}
		if idx > 0 {
			t.samples[name] = append([]time.Time(nil), samples[idx:]...)
		}
	}
	return removed
}

// Middleware records every invocation, including those served from cache
// or rejected further down the chain.
func (t *Tracker) Middleware() tool.Middleware {
	return func(next tool.Func) tool.Func {
		return func(ctx context.Context, call tool.Call) (any, error) {
			t.Record(call.Name)
			return next(ctx, call)
		}
	}
}
