// Package exporters builds the OpenTelemetry span exporters and metric
// readers selectable from configuration.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted in configuration.
const (
	Stdout     = "stdout"
	OTLP       = "otlp"
	Jaeger     = "jaeger" // OTLP to a Jaeger collector
	Prometheus = "prometheus"
	None       = "none"
)

var (
	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrNoEndpoint is returned when an OTLP exporter has no endpoint from
	// options or the environment.
	ErrNoEndpoint = errors.New("exporters: OTLP endpoint not configured")
)

// Option configures exporter construction.
type Option func(*options)

type options struct {
	endpoint   string
	writer     io.Writer
	registerer promclient.Registerer
	interval   time.Duration
}

// WithEndpoint sets the OTLP collector URL, e.g. http://localhost:4317.
// When empty the standard OTEL_EXPORTER_OTLP_* variables apply.
func WithEndpoint(url string) Option {
	return func(o *options) { o.endpoint = url }
}

// WithWriter sets the destination of the stdout exporters.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithRegisterer registers the prometheus exporter into reg instead of the
// global default registry.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithInterval sets the push interval of periodic metric readers.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

func apply(opts []Option) options {
	o := options{writer: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// endpointFor reports whether an OTLP endpoint is available for signal
// ("TRACES" or "METRICS").
func (o options) endpointFor(signal string) bool {
	if o.endpoint != "" {
		return true
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_"+signal+"_ENDPOINT") != ""
}

// NewSpanExporter creates the span exporter called name. None and the empty
// name return a nil exporter.
func NewSpanExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	o := apply(opts)
	switch name {
	case Stdout:
		return stdouttrace.New(stdouttrace.WithWriter(o.writer))
	case OTLP, Jaeger:
		if !o.endpointFor("TRACES") {
			return nil, fmt.Errorf("%w for traces: set observe.tracing.endpoint or OTEL_EXPORTER_OTLP_ENDPOINT", ErrNoEndpoint)
		}
		var grpcOpts []otlptracegrpc.Option
		if o.endpoint != "" {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithEndpointURL(o.endpoint))
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	case None, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader creates the metric reader called name. None and the empty
// name return a nil reader.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	o := apply(opts)
	var periodic []sdkmetric.PeriodicReaderOption
	if o.interval > 0 {
		periodic = append(periodic, sdkmetric.WithInterval(o.interval))
	}

	switch name {
	case Stdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.writer))
		if err != nil {
			return nil, fmt.Errorf("exporters: stdout metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp, periodic...), nil
	case OTLP:
		if !o.endpointFor("METRICS") {
			return nil, fmt.Errorf("%w for metrics: set observe.metrics.endpoint or OTEL_EXPORTER_OTLP_ENDPOINT", ErrNoEndpoint)
		}
		var grpcOpts []otlpmetricgrpc.Option
		if o.endpoint != "" {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithEndpointURL(o.endpoint))
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("exporters: otlp metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp, periodic...), nil
	case Prometheus:
		var promOpts []prometheus.Option
		if o.registerer != nil {
			promOpts = append(promOpts, prometheus.WithRegisterer(o.registerer))
		}
		exp, err := prometheus.New(promOpts...)
		if err != nil {
			return nil, fmt.Errorf("exporters: prometheus: %w", err)
		}
		return exp, nil
	case None, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}
