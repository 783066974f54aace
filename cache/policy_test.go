package cache

import (
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.DefaultTTL != time.Hour {
		t.Errorf("DefaultTTL = %v, want 1h", p.DefaultTTL)
	}
	if p.MaxTTL != 24*time.Hour {
		t.Errorf("MaxTTL = %v, want 24h", p.MaxTTL)
	}
	if !p.ShouldCache() {
		t.Error("ShouldCache() = false, want true")
	}
	if p.Coalesce {
		t.Error("Coalesce = true, want false")
	}
}

func TestNoCachePolicy(t *testing.T) {
	if NoCachePolicy().ShouldCache() {
		t.Error("ShouldCache() = true, want false")
	}
}

func TestPolicy_EffectiveTTL(t *testing.T) {
	p := Policy{DefaultTTL: time.Minute, MaxTTL: time.Hour}

	tests := []struct {
		name     string
		override time.Duration
		want     time.Duration
	}{
		{"zero uses default", 0, time.Minute},
		{"negative uses default", -time.Second, time.Minute},
		{"override kept", 10 * time.Minute, 10 * time.Minute},
		{"override clamped", 2 * time.Hour, time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestPolicy_TTLFor(t *testing.T) {
	p := Policy{
		DefaultTTL: time.Hour,
		Overrides: map[string]time.Duration{
			"find_pharmacies": 6 * time.Hour,
		},
	}

	if got := p.TTLFor("find_pharmacies"); got != 6*time.Hour {
		t.Errorf("TTLFor(find_pharmacies) = %v, want 6h", got)
	}
	if got := p.TTLFor("unknown"); got != time.Hour {
		t.Errorf("TTLFor(unknown) = %v, want 1h", got)
	}
}
