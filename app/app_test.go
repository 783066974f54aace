package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/rxprice/config"
	"github.com/jonwraymond/rxprice/observe"
	"github.com/jonwraymond/rxprice/pricing"
	"github.com/jonwraymond/rxprice/search"
	"github.com/jonwraymond/rxprice/tool"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) (*App, *search.StaticProvider) {
	t.Helper()
	cfg := config.Default()
	cfg.Search.Provider = config.ProviderStatic
	if mutate != nil {
		mutate(cfg)
	}

	provider := search.NewStaticProvider(
		search.Result{Title: "CVS Pharmacy", URL: "https://www.cvs.com/metformin", Content: "Metformin 500mg $12.50"},
	)
	a, err := New(context.Background(), cfg,
		WithProvider(provider),
		WithLogger(observe.NopLogger()),
		WithVersion("test"),
	)
	require.NoError(t, err)
	return a, provider
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNew_RegistersOperations(t *testing.T) {
	a, _ := newTestApp(t, nil)
	assert.Equal(t, []string{
		pricing.OpComparePrices,
		pricing.OpGenericAlternatives,
		pricing.OpFindPharmacies,
		pricing.OpSearchPrice,
	}, a.Registry.Names())
	assert.ElementsMatch(t, []string{"search", "cache", "sweeper"}, a.Health.CheckerNames())
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Search.Provider = "bing"
	_, err := New(context.Background(), cfg, WithLogger(observe.NopLogger()))
	require.Error(t, err)
}

func TestApp_CacheBeforeLimiter(t *testing.T) {
	a, provider := newTestApp(t, nil)
	h := a.Handler()
	body := `{"medication_name":"metformin"}`

	before := a.Limiter.Status(pricing.OpSearchPrice).Tokens
	for range 3 {
		w := post(h, "/tools/search_medication_price", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	after := a.Limiter.Status(pricing.OpSearchPrice).Tokens

	assert.Len(t, provider.Requests(), 1)
	assert.InDelta(t, before-1, after, 0.5)
	assert.Equal(t, 3, a.Tracker.Stats(pricing.OpSearchPrice, time.Minute).Count)
}

func TestApp_CacheDisabled(t *testing.T) {
	a, provider := newTestApp(t, func(cfg *config.Config) { cfg.Cache.Disabled = true })
	h := a.Handler()
	for range 2 {
		require.Equal(t, http.StatusOK, post(h, "/tools/search_medication_price", `{"medication_name":"metformin"}`).Code)
	}
	assert.Len(t, provider.Requests(), 2)
	assert.Equal(t, 0, a.Cache.Len())
}

func TestApp_Endpoints(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()

	require.Equal(t, http.StatusOK, post(h, "/tools/search_medication_price", `{"medication_name":"metformin"}`).Code)

	w := get(h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = get(h, "/mcp/status")
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, true, status["mcp_available"])
	assert.Equal(t, "/mcp", status["endpoint"])

	assert.Equal(t, http.StatusOK, get(h, "/healthz").Code)
}

func TestApp_MCPDisabled(t *testing.T) {
	a, _ := newTestApp(t, func(cfg *config.Config) { cfg.Server.MCPDisabled = true })
	w := get(a.Handler(), "/mcp/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mcp_available":false`)
}

func TestApp_ServeAndShutdown(t *testing.T) {
	a, _ := newTestApp(t, func(cfg *config.Config) { cfg.Server.ShutdownTimeout = 2 * time.Second })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, a.Scheduler.IsRunning())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.False(t, a.Scheduler.IsRunning())
}

func TestBuildRegistry_Order(t *testing.T) {
	var trace []string
	mw := func(label string) tool.Middleware {
		return func(next tool.Func) tool.Func {
			return func(ctx context.Context, call tool.Call) (any, error) {
				trace = append(trace, label)
				return next(ctx, call)
			}
		}
	}
	reg, err := buildRegistry(map[string]tool.Func{
		"op": func(context.Context, tool.Call) (any, error) { return "ok", nil },
	}, mw("outer"), mw("inner"))
	require.NoError(t, err)

	v, err := reg.Invoke(context.Background(), tool.Call{Name: "op"})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, []string{"outer", "inner"}, trace)
}
