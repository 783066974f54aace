package config

import (
	"time"

	"github.com/jonwraymond/rxprice/cache"
	"github.com/jonwraymond/rxprice/observe"
	"github.com/jonwraymond/rxprice/resilience"
	"github.com/jonwraymond/rxprice/search"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig                       `yaml:"server"`
	Search     SearchConfig                       `yaml:"search"`
	Cache      CacheConfig                        `yaml:"cache"`
	RateLimits map[string]resilience.BucketConfig `yaml:"rate_limits"`
	Usage      UsageConfig                        `yaml:"usage"`
	Sweep      SweepConfig                        `yaml:"sweep"`
	Observe    ObserveConfig                      `yaml:"observe"`
	Breaker    search.BreakerConfig               `yaml:"breaker"`
	CORS       CORSConfig                         `yaml:"cors"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// OperationTimeout bounds a single operation call, upstream search included.
	OperationTimeout time.Duration `yaml:"operation_timeout"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
	// MCPDisabled turns off the /mcp endpoint.
	MCPDisabled bool `yaml:"mcp_disabled"`
}

// Search providers.
const (
	ProviderTavily = "tavily"
	ProviderStatic = "static"
)

// SearchConfig configures the search provider.
type SearchConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Disabled     bool                     `yaml:"disabled"`
	DefaultTTL   time.Duration            `yaml:"default_ttl"`
	MaxTTL       time.Duration            `yaml:"max_ttl"`
	TTLOverrides map[string]time.Duration `yaml:"ttl_overrides"`
	Coalesce     bool                     `yaml:"coalesce"`
}

// Policy converts the section into a cache.Policy.
func (c CacheConfig) Policy() cache.Policy {
	if c.Disabled {
		return cache.NoCachePolicy()
	}
	return cache.Policy{
		DefaultTTL: c.DefaultTTL,
		MaxTTL:     c.MaxTTL,
		Overrides:  c.TTLOverrides,
		Coalesce:   c.Coalesce,
	}
}

// UsageConfig configures usage statistics.
type UsageConfig struct {
	// Window is the default /stats window.
	Window    time.Duration `yaml:"window"`
	Retention time.Duration `yaml:"retention"`
}

// SweepConfig configures the background sweepers.
type SweepConfig struct {
	CacheInterval time.Duration `yaml:"cache_interval"`
	UsageInterval time.Duration `yaml:"usage_interval"`
}

// ObserveConfig configures logging, tracing and metrics.
type ObserveConfig struct {
	ServiceName string        `yaml:"service_name"`
	Environment string        `yaml:"environment"`
	LogLevel    string        `yaml:"log_level"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// TracingConfig configures tracing.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	Endpoint  string  `yaml:"endpoint"`
	SamplePct float64 `yaml:"sample_pct"`
}

// MetricsConfig configures metrics.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// ObserverConfig converts the section into an observe.Config.
func (c ObserveConfig) ObserverConfig(version string) observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     version,
		Environment: c.Environment,
		Tracing: observe.TracingConfig{
			Enabled:   c.Tracing.Enabled,
			Exporter:  c.Tracing.Exporter,
			Endpoint:  c.Tracing.Endpoint,
			SamplePct: c.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Metrics.Enabled,
			Exporter: c.Metrics.Exporter,
			Endpoint: c.Metrics.Endpoint,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.LogLevel,
		},
	}
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}
