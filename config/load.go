package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/rxprice/secret"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RXPRICE_"

// Load reads path (if non-empty), applies defaults and RXPRICE_* overrides,
// resolves secrets with resolver (nil uses secret.DefaultResolver) and
// validates the result.
func Load(ctx context.Context, path string, resolver *secret.Resolver) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if resolver == nil {
		resolver = secret.DefaultResolver()
	}
	if err := resolveSecrets(ctx, &cfg, resolver); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func resolveSecrets(ctx context.Context, cfg *Config, resolver *secret.Resolver) error {
	if cfg.Search.APIKey == "" {
		return nil
	}
	key, err := resolver.ResolveValue(ctx, cfg.Search.APIKey)
	if err != nil {
		return fmt.Errorf("resolve search.api_key: %w", err)
	}
	cfg.Search.APIKey = key
	return nil
}

type envLookup func(string) (string, bool)

// applyEnvOverrides applies RXPRICE_SECTION_FIELD variables. TAVILY_API_KEY
// and ALLOWED_ORIGINS are honored when the prefixed form is unset.
func applyEnvOverrides(cfg *Config, lookup envLookup) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = splitList(v)
		}
	}

	str("SERVER_ADDR", &cfg.Server.Addr)
	dur("SERVER_OPERATION_TIMEOUT", &cfg.Server.OperationTimeout)
	dur("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	boolean("SERVER_MCP_DISABLED", &cfg.Server.MCPDisabled)

	str("SEARCH_PROVIDER", &cfg.Search.Provider)
	str("SEARCH_BASE_URL", &cfg.Search.BaseURL)
	dur("SEARCH_TIMEOUT", &cfg.Search.Timeout)
	if v, ok := lookup("TAVILY_API_KEY"); ok && v != "" && cfg.Search.APIKey == "" {
		cfg.Search.APIKey = v
	}
	str("SEARCH_API_KEY", &cfg.Search.APIKey)

	boolean("CACHE_DISABLED", &cfg.Cache.Disabled)
	dur("CACHE_DEFAULT_TTL", &cfg.Cache.DefaultTTL)
	dur("CACHE_MAX_TTL", &cfg.Cache.MaxTTL)
	boolean("CACHE_COALESCE", &cfg.Cache.Coalesce)

	dur("USAGE_WINDOW", &cfg.Usage.Window)
	dur("USAGE_RETENTION", &cfg.Usage.Retention)
	dur("SWEEP_CACHE_INTERVAL", &cfg.Sweep.CacheInterval)
	dur("SWEEP_USAGE_INTERVAL", &cfg.Sweep.UsageInterval)

	str("OBSERVE_LOG_LEVEL", &cfg.Observe.LogLevel)
	str("OBSERVE_METRICS_EXPORTER", &cfg.Observe.Metrics.Exporter)
	str("OBSERVE_TRACING_EXPORTER", &cfg.Observe.Tracing.Exporter)
	boolean("OBSERVE_TRACING_ENABLED", &cfg.Observe.Tracing.Enabled)
	str("OBSERVE_TRACING_ENDPOINT", &cfg.Observe.Tracing.Endpoint)
	str("OBSERVE_METRICS_ENDPOINT", &cfg.Observe.Metrics.Endpoint)
	str("OBSERVE_ENVIRONMENT", &cfg.Observe.Environment)

	list("ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins)
	list(EnvPrefix+"CORS_ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
