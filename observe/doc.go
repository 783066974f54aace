// Package observe provides observability primitives for operation calls.
//
// It wires OpenTelemetry tracing and metrics, a structured JSON logger with
// automatic redaction of credential fields, and a tool.Middleware that opens
// a span, records metrics and logs the outcome of every call. When the
// prometheus metrics exporter is selected, the Observer serves its own
// registry through MetricsHandler.
package observe
