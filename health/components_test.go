package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/rxprice/search"
)

type fakeRunner bool

func (r fakeRunner) IsRunning() bool { return bool(r) }

type fakeSizer int

func (s fakeSizer) Len() int { return int(s) }

func TestSearchChecker_Unconfigured(t *testing.T) {
	p := search.NewBreakerProvider(search.NewTavilyProvider(""), search.BreakerConfig{}, nil)
	r := NewSearchChecker(p).Check(context.Background())

	if r.Status != StatusUnhealthy {
		t.Fatalf("Status = %v, want unhealthy", r.Status)
	}
	if r.Details["configured"] != false {
		t.Errorf("configured = %v", r.Details["configured"])
	}
}

func TestSearchChecker_BreakerStates(t *testing.T) {
	inner := search.NewStaticProvider()
	p := search.NewBreakerProvider(inner, search.BreakerConfig{MaxFailures: 1, Timeout: time.Hour}, nil)
	c := NewSearchChecker(p)

	if r := c.Check(context.Background()); r.Status != StatusHealthy {
		t.Fatalf("closed breaker: Status = %v", r.Status)
	}

	inner.SetError(errors.New("down"))
	_, _ = p.Search(context.Background(), search.Request{Query: "x"})

	r := c.Check(context.Background())
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCircuitOpen) {
		t.Fatalf("open breaker: result = %+v", r)
	}
	if r.Details["circuit"] != "open" {
		t.Errorf("circuit = %v", r.Details["circuit"])
	}
}

func TestSearchChecker_PlainProvider(t *testing.T) {
	r := NewSearchChecker(search.NewStaticProvider()).Check(context.Background())
	if r.Status != StatusHealthy {
		t.Fatalf("Status = %v", r.Status)
	}
	if _, ok := r.Details["circuit"]; ok {
		t.Error("plain provider should not report a circuit")
	}

	if r := NewSearchChecker(nil).Check(context.Background()); r.Status != StatusUnhealthy {
		t.Errorf("nil provider: Status = %v", r.Status)
	}
}

func TestCacheChecker(t *testing.T) {
	r := NewCacheChecker(fakeSizer(7)).Check(context.Background())
	if r.Status != StatusHealthy || r.Details["entries"] != 7 {
		t.Fatalf("result = %+v", r)
	}
}

func TestSweeperChecker(t *testing.T) {
	if r := NewSweeperChecker(fakeRunner(true)).Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("running: Status = %v", r.Status)
	}
	if r := NewSweeperChecker(fakeRunner(false)).Check(context.Background()); r.Status != StatusDegraded {
		t.Errorf("stopped: Status = %v", r.Status)
	}
}
