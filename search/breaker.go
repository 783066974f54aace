package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/jonwraymond/rxprice/observe"
)

// Default breaker settings.
const (
	DefaultMaxFailures uint32        = 5
	DefaultOpenTimeout time.Duration = 30 * time.Second
	DefaultInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures BreakerProvider.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before going half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval clears failure counts while closed. Zero never clears.
	Interval time.Duration `yaml:"interval"`
}

// BreakerProvider guards a Provider with a circuit breaker.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker[*Response]
}

// NewBreakerProvider wraps inner. Zero config fields take the defaults.
func NewBreakerProvider(inner Provider, cfg BreakerConfig, logger observe.Logger) *BreakerProvider {
	if logger == nil {
		logger = observe.NopLogger()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultOpenTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultInterval
	}

	cb := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "search:" + inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state change",
				observe.F("breaker", name),
				observe.F("from", from.String()),
				observe.F("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller mistakes and cancellations say nothing about upstream health.
			return err == nil ||
				errors.Is(err, ErrEmptyQuery) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &BreakerProvider{inner: inner, breaker: cb}
}

// Name implements Provider.
func (p *BreakerProvider) Name() string { return p.inner.Name() }

// Search implements Provider.
func (p *BreakerProvider) Search(ctx context.Context, req Request) (*Response, error) {
	resp, err := p.breaker.Execute(func() (*Response, error) {
		return p.inner.Search(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, p.inner.Name(), err)
	}
	return resp, err
}

// State returns the breaker state.
func (p *BreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}

// Counts returns the breaker counters.
func (p *BreakerProvider) Counts() gobreaker.Counts {
	return p.breaker.Counts()
}

// Inner returns the wrapped provider.
func (p *BreakerProvider) Inner() Provider { return p.inner }

var _ Provider = (*BreakerProvider)(nil)
