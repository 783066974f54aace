package health

import (
	"context"

	"github.com/sony/gobreaker/v2"

	"github.com/jonwraymond/rxprice/search"
)

// SearchChecker reports the search provider's configuration and breaker state.
type SearchChecker struct {
	provider search.Provider
}

// NewSearchChecker creates a checker for provider. A *search.BreakerProvider
// contributes its circuit state.
func NewSearchChecker(provider search.Provider) *SearchChecker {
	return &SearchChecker{provider: provider}
}

// Name implements Checker.
func (c *SearchChecker) Name() string { return "search" }

type configuredProvider interface {
	Configured() bool
}

// Check implements Checker.
//
// An unconfigured provider or an open circuit is unhealthy; a half-open
// circuit is degraded.
func (c *SearchChecker) Check(_ context.Context) Result {
	if c.provider == nil {
		return Unhealthy("no search provider", nil)
	}

	details := map[string]any{"provider": c.provider.Name()}

	inner := c.provider
	breaker, hasBreaker := c.provider.(*search.BreakerProvider)
	if hasBreaker {
		inner = breaker.Inner()
	}

	configured := true
	if cp, ok := inner.(configuredProvider); ok {
		configured = cp.Configured()
	}
	details["configured"] = configured
	if !configured {
		return Unhealthy("search provider has no API key", search.ErrNotConfigured).WithDetails(details)
	}

	if !hasBreaker {
		return Healthy("search provider configured").WithDetails(details)
	}

	state := breaker.State()
	counts := breaker.Counts()
	details["circuit"] = state.String()
	details["consecutive_failures"] = counts.ConsecutiveFailures

	switch state {
	case gobreaker.StateOpen:
		return Unhealthy("search circuit open", ErrCircuitOpen).WithDetails(details)
	case gobreaker.StateHalfOpen:
		return Degraded("search circuit half-open").WithDetails(details)
	default:
		return Healthy("search provider available").WithDetails(details)
	}
}

// Sizer reports a number of stored entries.
type Sizer interface {
	Len() int
}

// CacheChecker reports the result cache size. It is always healthy.
type CacheChecker struct {
	cache Sizer
}

// NewCacheChecker creates a cache checker.
func NewCacheChecker(cache Sizer) *CacheChecker {
	return &CacheChecker{cache: cache}
}

// Name implements Checker.
func (c *CacheChecker) Name() string { return "cache" }

// Check implements Checker.
func (c *CacheChecker) Check(_ context.Context) Result {
	return Healthy("cache available").WithDetails(map[string]any{"entries": c.cache.Len()})
}

// Runner reports whether a background scheduler is running.
type Runner interface {
	IsRunning() bool
}

// SweeperChecker reports whether the sweepers are running. A stopped
// scheduler is degraded: requests still work but expired entries linger.
type SweeperChecker struct {
	runner Runner
}

// NewSweeperChecker creates a sweeper checker.
func NewSweeperChecker(runner Runner) *SweeperChecker {
	return &SweeperChecker{runner: runner}
}

// Name implements Checker.
func (c *SweeperChecker) Name() string { return "sweeper" }

// Check implements Checker.
func (c *SweeperChecker) Check(_ context.Context) Result {
	if c.runner.IsRunning() {
		return Healthy("sweepers running")
	}
	return Degraded("sweepers stopped")
}
