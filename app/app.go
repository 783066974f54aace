// Package app assembles the rxprice service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jonwraymond/rxprice/cache"
	"github.com/jonwraymond/rxprice/config"
	"github.com/jonwraymond/rxprice/health"
	"github.com/jonwraymond/rxprice/mcpserver"
	"github.com/jonwraymond/rxprice/observe"
	"github.com/jonwraymond/rxprice/pricing"
	"github.com/jonwraymond/rxprice/resilience"
	"github.com/jonwraymond/rxprice/search"
	"github.com/jonwraymond/rxprice/server"
	"github.com/jonwraymond/rxprice/sweep"
	"github.com/jonwraymond/rxprice/tool"
	"github.com/jonwraymond/rxprice/usage"
)

// App is a fully wired service.
type App struct {
	cfg      *config.Config
	observer observe.Observer
	logger   observe.Logger

	Provider  search.Provider
	Cache     *cache.MemoryCache
	Limiter   *resilience.Limiter
	Tracker   *usage.Tracker
	Registry  *tool.Registry
	Scheduler *sweep.Scheduler
	Health    *health.Aggregator
	Server    *server.Server
}

// Option configures New.
type Option func(*options)

type options struct {
	version  string
	provider search.Provider
	logger   observe.Logger
}

// WithVersion sets the version reported to telemetry and MCP clients.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithProvider replaces the configured search provider. The breaker still
// wraps it.
func WithProvider(p search.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithLogger replaces the observer's logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds every component described by cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe.ObserverConfig(o.version))
	if err != nil {
		return nil, fmt.Errorf("app: observer: %w", err)
	}
	logger := o.logger
	if logger == nil {
		logger = obs.Logger()
	}

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}
	obsMW := observe.NewMiddleware(observe.NewTracer(obs.Tracer()), metrics, logger)

	provider := o.provider
	if provider == nil {
		provider, err = newProvider(cfg.Search, logger)
		if err != nil {
			return nil, err
		}
	}
	provider = search.NewBreakerProvider(provider, cfg.Breaker, logger)

	a := &App{
		cfg:      cfg,
		observer: obs,
		logger:   logger,
		Provider: provider,
		Tracker:  usage.NewTracker(),
		Limiter:  resilience.NewLimiter(cfg.RateLimits),
	}

	policy := cfg.Cache.Policy()
	a.Cache = cache.NewMemoryCache(policy)
	cacheMW := cache.NewCacheMiddleware(a.Cache, nil, policy, cache.WithRecorder(metrics))
	exec := resilience.NewExecutor(
		resilience.WithLimiter(a.Limiter),
		resilience.WithTimeout(cfg.Server.OperationTimeout),
		resilience.WithRejectionRecorder(metrics),
	)

	svc := pricing.NewService(provider, pricing.WithLogger(logger))
	a.Registry, err = buildRegistry(svc.Tools(),
		obsMW.Middleware(),
		a.Tracker.Middleware(),
		cacheMW.Middleware(),
		exec.Middleware(),
	)
	if err != nil {
		return nil, err
	}

	a.Scheduler = sweep.NewScheduler(logger)
	for _, job := range []sweep.Job{
		sweep.CacheJob(a.Cache, cfg.Sweep.CacheInterval),
		sweep.UsageJob(a.Tracker, cfg.Sweep.UsageInterval, cfg.Usage.Retention),
	} {
		if err := a.Scheduler.Add(ctx, job); err != nil {
			return nil, fmt.Errorf("app: sweeper: %w", err)
		}
	}

	a.Health = health.NewAggregator()
	a.Health.Register("search", health.NewSearchChecker(provider))
	a.Health.Register("cache", health.NewCacheChecker(a.Cache))
	a.Health.Register("sweeper", health.NewSweeperChecker(a.Scheduler))

	var mcpHandler http.Handler
	if !cfg.Server.MCPDisabled {
		mcpHandler = mcpserver.New(a.Registry, o.version, logger).HTTPHandler()
	}

	a.Server = server.New(server.Config{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		StatsWindow:    cfg.Usage.Window,
	}, server.Deps{
		Registry:        a.Registry,
		Assistant:       pricing.NewAssistant(a.Registry, logger),
		Cache:           a.Cache,
		CacheMiddleware: cacheMW,
		Tracker:         a.Tracker,
		Limiter:         a.Limiter,
		Health:          a.Health,
		Metrics:         obs.MetricsHandler(),
		MCP:             mcpHandler,
		Logger:          logger,
	})
	return a, nil
}

func newProvider(cfg config.SearchConfig, logger observe.Logger) (search.Provider, error) {
	switch cfg.Provider {
	case config.ProviderTavily:
		p := search.NewTavilyProvider(cfg.APIKey,
			search.WithBaseURL(cfg.BaseURL),
			search.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			search.WithLogger(logger),
		)
		if !p.Configured() {
			logger.Warn(context.Background(), "search provider has no API key; searches will fail",
				observe.F("provider", cfg.Provider))
		}
		return p, nil
	case config.ProviderStatic:
		return search.NewStaticProvider(), nil
	default:
		return nil, fmt.Errorf("app: unknown search provider %q", cfg.Provider)
	}
}

// buildRegistry registers every operation wrapped in the same chain. The
// first middleware is outermost.
func buildRegistry(ops map[string]tool.Func, mws ...tool.Middleware) (*tool.Registry, error) {
	chain := tool.Chain(mws...)
	reg := tool.NewRegistry()
	for name, fn := range ops {
		if err := reg.Register(name, chain(fn)); err != nil {
			return nil, fmt.Errorf("app: register %s: %w", name, err)
		}
	}
	return reg, nil
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.Server.Handler() }

// Run listens on the configured address and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve starts the sweepers and serves HTTP on ln until ctx is done, then
// shuts down the server, the sweepers and telemetry in that order.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	a.Scheduler.Start(ctx)
	a.logger.Info(ctx, "rxprice listening",
		observe.F("addr", ln.Addr().String()),
		observe.F("search_provider", a.Provider.Name()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("app: serve: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if serveErr != nil {
		errs = append(errs, serveErr)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("app: shutdown server: %w", err))
	}
	a.Scheduler.Stop()
	if err := a.observer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("app: shutdown telemetry: %w", err))
	}
	a.logger.Info(context.Background(), "rxprice stopped")
	return errors.Join(errs...)
}
