package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is matched by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

const minSweepInterval = time.Second

// Validate checks cfg after defaults have been applied. All problems are
// reported together.
func Validate(cfg *Config) error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...)))
	}

	if cfg.Server.Addr == "" {
		fail("server.addr", "must not be empty")
	}
	if cfg.Server.OperationTimeout < 0 {
		fail("server.operation_timeout", "must not be negative")
	}
	if cfg.Server.MaxBodyBytes < 0 {
		fail("server.max_body_bytes", "must not be negative")
	}

	switch cfg.Search.Provider {
	case ProviderTavily, ProviderStatic:
	default:
		fail("search.provider", "unknown provider %q", cfg.Search.Provider)
	}
	if cfg.Search.Timeout < 0 {
		fail("search.timeout", "must not be negative")
	}

	if cfg.Cache.DefaultTTL < 0 {
		fail("cache.default_ttl", "must not be negative")
	}
	if cfg.Cache.MaxTTL > 0 && cfg.Cache.DefaultTTL > cfg.Cache.MaxTTL {
		fail("cache.default_ttl", "exceeds max_ttl %s", cfg.Cache.MaxTTL)
	}
	for name, ttl := range cfg.Cache.TTLOverrides {
		if ttl < 0 {
			fail("cache.ttl_overrides."+name, "must not be negative")
		}
	}

	for name, bc := range cfg.RateLimits {
		if err := bc.Validate(); err != nil {
			fail("rate_limits."+name, "%v", err)
		}
	}

	if cfg.Usage.Window <= 0 {
		fail("usage.window", "must be positive")
	}
	if cfg.Usage.Retention <= 0 {
		fail("usage.retention", "must be positive")
	}
	if cfg.Sweep.CacheInterval < minSweepInterval {
		fail("sweep.cache_interval", "must be at least %s", minSweepInterval)
	}
	if cfg.Sweep.UsageInterval < minSweepInterval {
		fail("sweep.usage_interval", "must be at least %s", minSweepInterval)
	}

	obs := cfg.Observe.ObserverConfig("")
	if err := obs.Validate(); err != nil {
		fail("observe", "%v", err)
	}

	for i, origin := range cfg.CORS.AllowedOrigins {
		if origin == "" {
			fail(fmt.Sprintf("cors.allowed_origins[%d]", i), "must not be empty")
		}
	}

	return errors.Join(errs...)
}
