package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewStdoutTracerProvider returns a TracerProvider that writes completed
// spans as JSON to w. It is meant for local inspection (policyctl's
// --trace flag) rather than production export; an embedder wiring a
// real OpenTelemetry collector should construct their own
// sdktrace.TracerProvider and pass it to engine.WithTracerProvider
// instead of this one.
func NewStdoutTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter)), nil
}

// ShutdownTracerProvider flushes and closes a provider created by
// NewStdoutTracerProvider. Callers should defer this after engine
// construction.
func ShutdownTracerProvider(ctx context.Context, provider *sdktrace.TracerProvider) error {
	return provider.Shutdown(ctx)
}
