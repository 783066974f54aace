package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_IncludesOperationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithOperation(OperationMeta{Name: "find_pharmacies", Kind: "tool"})

	logger.Info(context.Background(), "done", F("duration_ms", 12.0))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	e := lines[0]
	if e["op.name"] != "find_pharmacies" || e["op.kind"] != "tool" {
		t.Errorf("missing operation fields: %v", e)
	}
	if e["level"] != "info" || e["msg"] != "done" {
		t.Errorf("unexpected level/msg: %v", e)
	}
	if e["duration_ms"] != 12.0 {
		t.Errorf("duration_ms = %v, want 12", e["duration_ms"])
	}
	if _, ok := e["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestLogger_WithSkipsEmptyStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithOperation(OperationMeta{Name: "op"})
	logger.Info(context.Background(), "x")

	e := decodeLines(t, &buf)[0]
	if _, ok := e["op.kind"]; ok {
		t.Errorf("empty op.kind should be omitted: %v", e)
	}
}

func TestLogger_CredentialsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)
	logger.Info(context.Background(), "config loaded",
		F("api_key", "tvly-secret"),
		F("token", "abc"),
		F("provider", "tavily"),
	)

	out := buf.String()
	if strings.Contains(out, "tvly-secret") || strings.Contains(out, "abc\"") {
		t.Errorf("secret leaked into log: %s", out)
	}
	e := decodeLines(t, &buf)[0]
	if e["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v, want [REDACTED]", e["api_key"])
	}
	if e["provider"] != "tavily" {
		t.Errorf("provider = %v, want tavily", e["provider"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"debug", "info", "warn", "error"}},
		{"info", []string{"info", "warn", "error"}},
		{"warn", []string{"warn", "error"}},
		{"error", []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()
			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			lines := decodeLines(t, &buf)
			if len(lines) != len(tt.want) {
				t.Fatalf("got %d lines, want %d", len(lines), len(tt.want))
			}
			for i, l := range lines {
				if l["level"] != tt.want[i] {
					t.Errorf("line %d level = %v, want %s", i, l["level"], tt.want[i])
				}
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
		"bogus": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	ctx := ContextWithFields(context.Background(), F("request_id", "01HX"))
	ctx = ContextWithFields(ctx, F("client", "web"))
	logger.Info(ctx, "handled", F("status", 200))

	e := decodeLines(t, &buf)[0]
	if e["request_id"] != "01HX" || e["client"] != "web" {
		t.Errorf("context fields missing: %v", e)
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	logger.Info(ctx, "traced")

	e := decodeLines(t, &buf)[0]
	if e["trace_id"] != sc.TraceID().String() || e["span_id"] != sc.SpanID().String() {
		t.Errorf("trace ids missing: %v", e)
	}
}

func TestIsRedactedField(t *testing.T) {
	tests := map[string]bool{
		"api_key":        true,
		"tavily_api_key": true,
		"X-Api-Key":      true,
		"Authorization":  true,
		"client_secret":  true,
		"tokens":         false,
		"provider":       false,
		"medication":     false,
	}
	for key, want := range tests {
		if got := isRedactedField(key); got != want {
			t.Errorf("isRedactedField(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestLogger_ErrorValues(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Error(context.Background(), "failed", F("error", errors.New("upstream 503")))

	e := decodeLines(t, &buf)[0]
	if e["error"] != "upstream 503" {
		t.Errorf("error = %v, want upstream 503", e["error"])
	}
}
