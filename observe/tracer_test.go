package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOperationMeta_SpanName(t *testing.T) {
	meta := OperationMeta{Name: "compare_prices"}
	if got := meta.SpanName(); got != "rxprice.op.compare_prices" {
		t.Errorf("SpanName() = %q", got)
	}
}

func TestOperationMeta_Validate(t *testing.T) {
	if err := (OperationMeta{}).Validate(); !errors.Is(err, ErrMissingOperationName) {
		t.Errorf("Validate() = %v, want ErrMissingOperationName", err)
	}
	if err := (OperationMeta{Name: "x"}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestTracer_SpanAttributesAndError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := NewTracer(tp.Tracer("test"))

	_, span := tracer.StartSpan(context.Background(), OperationMeta{Name: "find_pharmacies", Kind: "tool", Provider: "tavily"})
	tracer.EndSpan(span, errors.New("upstream down"))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["op.name"].AsString() != "find_pharmacies" {
		t.Errorf("op.name = %v", attrs["op.name"])
	}
	if attrs["op.provider"].AsString() != "tavily" {
		t.Errorf("op.provider = %v", attrs["op.provider"])
	}
	if !attrs["op.error"].AsBool() {
		t.Error("op.error = false, want true")
	}
}

func TestTracer_ContextPropagation(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := NewTracer(tp.Tracer("test"))

	ctx, parent := tracer.StartSpan(context.Background(), OperationMeta{Name: "parent"})
	_, child := tracer.StartSpan(ctx, OperationMeta{Name: "child"})
	tracer.EndSpan(child, nil)
	tracer.EndSpan(parent, nil)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("child span is not parented to the outer span")
	}
}
