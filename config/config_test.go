package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/rxprice/resilience"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rxprice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, ProviderTavily, cfg.Search.Provider)
	assert.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.CacheInterval)
	assert.Equal(t, time.Hour, cfg.Sweep.UsageInterval)
	assert.Equal(t, 24*time.Hour, cfg.Usage.Retention)
	assert.Equal(t, []string{DefaultAllowedOrigin}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, resilience.DefaultLimits(), cfg.RateLimits)
	assert.Equal(t, "prometheus", cfg.Observe.Metrics.Exporter)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
search:
  provider: static
cache:
  default_ttl: 30m
  coalesce: true
  ttl_overrides:
    find_pharmacies: 6h
rate_limits:
  search_medication_price: {rate: 1, capacity: 2}
  custom_op: {rate: 3, capacity: 4}
cors:
  allowed_origins: ["https://rx.example.com"]
`)

	cfg, err := Load(context.Background(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, ProviderStatic, cfg.Search.Provider)
	assert.True(t, cfg.Cache.Coalesce)

	policy := cfg.Cache.Policy()
	assert.Equal(t, 30*time.Minute, policy.DefaultTTL)
	assert.Equal(t, 6*time.Hour, policy.TTLFor("find_pharmacies"))

	assert.Equal(t, resilience.BucketConfig{Rate: 1, Capacity: 2}, cfg.RateLimits["search_medication_price"])
	assert.Equal(t, resilience.BucketConfig{Rate: 3, Capacity: 4}, cfg.RateLimits["custom_op"])
	assert.Equal(t, resilience.BucketConfig{Rate: 1, Capacity: 3}, cfg.RateLimits["compare_prices"])
	assert.Equal(t, resilience.DefaultBucketConfig, cfg.RateLimits[resilience.DefaultBucket])

	assert.Equal(t, []string{"https://rx.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RXPRICE_SERVER_ADDR", ":7000")
	t.Setenv("RXPRICE_CACHE_DEFAULT_TTL", "10m")
	t.Setenv("RXPRICE_CACHE_COALESCE", "true")
	t.Setenv("RXPRICE_OBSERVE_LOG_LEVEL", "debug")
	t.Setenv("RXPRICE_OBSERVE_METRICS_ENDPOINT", "http://collector:4317")
	t.Setenv("RXPRICE_OBSERVE_ENVIRONMENT", "staging")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(context.Background(), "", nil)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Cache.DefaultTTL)
	assert.True(t, cfg.Cache.Coalesce)
	assert.Equal(t, "debug", cfg.Observe.LogLevel)
	assert.Equal(t, "http://collector:4317", cfg.Observe.Metrics.Endpoint)
	assert.Equal(t, "staging", cfg.Observe.ObserverConfig("x").Environment)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("RXPRICE_CACHE_DEFAULT_TTL", "soon")
	_, err := Load(context.Background(), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RXPRICE_CACHE_DEFAULT_TTL")
}

func TestLoad_SecretRef(t *testing.T) {
	t.Setenv("RXPRICE_TEST_TAVILY_KEY", "tvly-secret")
	path := writeConfig(t, `
search:
  api_key: secretref:env:RXPRICE_TEST_TAVILY_KEY
`)

	cfg, err := Load(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "tvly-secret", cfg.Search.APIKey)
}

func TestLoad_TavilyKeyFallback(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "tvly-from-env")
	cfg, err := Load(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "tvly-from-env", cfg.Search.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(context.Background(), writeConfig(t, "server: [not, a, map"), nil)
	assert.ErrorContains(t, err, "failed to parse")

	_, err = Load(context.Background(), writeConfig(t, "search:\n  api_key: secretref:env:RXPRICE_TEST_UNSET_KEY\n"), nil)
	assert.ErrorContains(t, err, "search.api_key")
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Search.Provider = "bing"
	cfg.RateLimits["broken"] = resilience.BucketConfig{Rate: 0, Capacity: 1}
	cfg.Sweep.CacheInterval = time.Millisecond
	cfg.Observe.LogLevel = "loud"

	err := Validate(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, field := range []string{"search.provider", "rate_limits.broken", "sweep.cache_interval", "observe"} {
		assert.ErrorContains(t, err, field)
	}
}

func TestCacheConfig_Disabled(t *testing.T) {
	cfg := Default()
	cfg.Cache.Disabled = true
	assert.False(t, cfg.Cache.Policy().ShouldCache())
}

func TestObserverConfig(t *testing.T) {
	cfg := Default()
	oc := cfg.Observe.ObserverConfig("1.2.3")
	assert.Equal(t, DefaultServiceName, oc.ServiceName)
	assert.Equal(t, "1.2.3", oc.Version)
	assert.True(t, oc.Logging.Enabled)
	assert.Equal(t, DefaultLogLevel, oc.Logging.Level)
	require.NoError(t, oc.Validate())
}
