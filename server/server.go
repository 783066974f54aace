package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jonwraymond/rxprice/cache"
	"github.com/jonwraymond/rxprice/health"
	"github.com/jonwraymond/rxprice/observe"
	"github.com/jonwraymond/rxprice/pricing"
	"github.com/jonwraymond/rxprice/resilience"
	"github.com/jonwraymond/rxprice/tool"
	"github.com/jonwraymond/rxprice/usage"
)

// DefaultStatsWindow is used when /stats has no window parameter.
const DefaultStatsWindow = 60 * time.Second

// DefaultMaxBodyBytes caps request bodies when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Config holds the HTTP-layer settings.
type Config struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	StatsWindow    time.Duration
}

// Deps are the collaborators the server reads from. Registry and Assistant
// are required; the rest are optional and their endpoints degrade to 404 or
// empty sections when nil.
type Deps struct {
	Registry  *tool.Registry
	Assistant *pricing.Assistant

	Cache           *cache.MemoryCache
	CacheMiddleware *cache.CacheMiddleware
	Tracker         *usage.Tracker
	Limiter         *resilience.Limiter
	Health          *health.Aggregator

	// Metrics serves /metrics.
	Metrics http.Handler
	// MCP serves /mcp.
	MCP http.Handler

	Logger observe.Logger
}

// Server routes HTTP requests to the operation registry.
type Server struct {
	cfg    Config
	deps   Deps
	logger observe.Logger
	mux    *http.ServeMux
}

// New creates a Server.
func New(cfg Config, deps Deps) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = DefaultStatsWindow
	}
	logger := deps.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	s := &Server{cfg: cfg, deps: deps, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("POST /search-medication", s.handleSearchMedication)
	s.mux.HandleFunc("POST /tools/{name}", s.handleTool)
	s.mux.HandleFunc("GET /tools", s.handleListTools)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("GET /stats/{name}", s.handleOperationStats)
	s.mux.HandleFunc("DELETE /cache", s.handleClearCache)
	s.mux.HandleFunc("GET /mcp/status", s.handleMCPStatus)

	if s.deps.Health != nil {
		health.RegisterHandlers(s.mux, s.deps.Health)
	}
	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics)
	}
	if s.deps.MCP != nil {
		s.mux.Handle("/mcp", s.deps.MCP)
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = withCORS(s.cfg.AllowedOrigins, h)
	h = withRecovery(s.logger, h)
	h = withAccessLog(s.logger, h)
	h = withRequestID(h)
	return h
}

// invoke runs an operation, bypassing cache lookups when the client sent
// Cache-Control: no-cache.
func (s *Server) invoke(r *http.Request, name string, kwargs map[string]any) (any, error) {
	ctx := r.Context()
	if noCache(r) {
		ctx = cache.WithBypass(ctx)
	}
	return s.deps.Registry.Invoke(ctx, tool.Call{Name: name, Kwargs: kwargs})
}

func noCache(r *http.Request) bool {
	for _, v := range r.Header.Values("Cache-Control") {
		if containsToken(v, "no-cache") || containsToken(v, "no-store") {
			return true
		}
	}
	return false
}

func (s *Server) logError(ctx context.Context, msg string, err error, apiErr *APIError) {
	fields := []observe.Field{
		observe.F("error", err.Error()),
		observe.F("type", apiErr.Kind),
		observe.F("status", apiErr.Status),
	}
	if apiErr.Status >= http.StatusInternalServerError {
		s.logger.Error(ctx, msg, fields...)
		return
	}
	s.logger.Debug(ctx, msg, fields...)
}
