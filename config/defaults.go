package config

import (
	"time"

	"github.com/jonwraymond/rxprice/resilience"
	"github.com/jonwraymond/rxprice/search"
	"github.com/jonwraymond/rxprice/sweep"
	"github.com/jonwraymond/rxprice/usage"
)

// Default values.
const (
	DefaultAddr             = ":8000"
	DefaultReadTimeout      = 15 * time.Second
	DefaultWriteTimeout     = 60 * time.Second
	DefaultIdleTimeout      = 120 * time.Second
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultOperationTimeout = 30 * time.Second
	DefaultMaxBodyBytes     = 1 << 20
	DefaultSearchTimeout    = 15 * time.Second
	DefaultCacheTTL         = time.Hour
	DefaultCacheMaxTTL      = 24 * time.Hour
	DefaultUsageWindow      = 60 * time.Second
	DefaultServiceName      = "rxprice"
	DefaultLogLevel         = "info"
	DefaultAllowedOrigin    = "http://localhost:3000"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.OperationTimeout == 0 {
		s.OperationTimeout = DefaultOperationTimeout
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if cfg.Search.Provider == "" {
		cfg.Search.Provider = ProviderTavily
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = search.DefaultTavilyURL
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = DefaultSearchTimeout
	}

	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxTTL == 0 {
		cfg.Cache.MaxTTL = DefaultCacheMaxTTL
	}

	// File entries override individual defaults; unlisted operations keep theirs.
	limits := resilience.DefaultLimits()
	for name, bc := range cfg.RateLimits {
		limits[name] = bc
	}
	cfg.RateLimits = limits

	if cfg.Usage.Window == 0 {
		cfg.Usage.Window = DefaultUsageWindow
	}
	if cfg.Usage.Retention == 0 {
		cfg.Usage.Retention = usage.DefaultRetention
	}

	if cfg.Sweep.CacheInterval == 0 {
		cfg.Sweep.CacheInterval = sweep.DefaultCacheInterval
	}
	if cfg.Sweep.UsageInterval == 0 {
		cfg.Sweep.UsageInterval = sweep.DefaultUsageInterval
	}

	o := &cfg.Observe
	if o.ServiceName == "" {
		o.ServiceName = DefaultServiceName
	}
	if o.LogLevel == "" {
		o.LogLevel = DefaultLogLevel
	}
	if o.Tracing.Enabled && o.Tracing.Exporter == "" {
		o.Tracing.Exporter = "stdout"
	}
	if o.Tracing.Enabled && o.Tracing.SamplePct == 0 {
		o.Tracing.SamplePct = 1.0
	}
	if o.Metrics.Exporter == "" {
		o.Metrics.Enabled = true
		o.Metrics.Exporter = "prometheus"
	}

	if cfg.Breaker.MaxFailures == 0 {
		cfg.Breaker.MaxFailures = search.DefaultMaxFailures
	}
	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker.Timeout = search.DefaultOpenTimeout
	}
	if cfg.Breaker.Interval == 0 {
		cfg.Breaker.Interval = search.DefaultInterval
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{DefaultAllowedOrigin}
	}
}
