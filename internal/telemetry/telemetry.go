// Package telemetry wraps LLM invocations and tool executions in OpenTelemetry
// spans. No exporter is wired by default; --dev mode attaches a stdout
// exporter so spans are visible without a collector.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/artificer-ai/artificer"

// Setup installs a TracerProvider globally and returns a shutdown func.
// When dev is false, a no-op tracer provider is installed: spans are
// created but discarded with near-zero overhead, since there is no
// collector to ship them to.
func Setup(ctx context.Context, dev bool) (shutdown func(context.Context) error, err error) {
	if !dev {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := trace.NewTracerProvider(trace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the package-wide tracer, sourced from whatever provider
// Setup installed (or the global default if Setup was never called).
func Tracer() oteltrace.Tracer {
	return otel.Tracer(tracerName)
}
