// Package telemetry wires the engine's observability hooks: an optional
// OpenTelemetry span per evaluation (attached to Decision.Trace) and a
// Prometheus collector for the engine's lifetime counters
// (Engine.Metrics(), §6.3). Neither concern is part of the evaluator's
// pure decision logic. The tracing half uses OpenTelemetry, which the
// donor repository declares in go.mod but never imports from source —
// this package is where it is actually exercised.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Trace carries the minimal span identity attached to a Decision when
// the owning Engine was constructed with tracing enabled (§3: Decision's
// optional trace field).
type Trace struct {
	TraceID   string
	SpanID    string
	StartedAt time.Time
	Cached    bool
}

// Tracer wraps an OpenTelemetry tracer and produces Trace values cheap
// enough to attach to every Decision.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer backed by the given OpenTelemetry tracer
// provider's "policy-engine" tracer.
func NewTracer(provider trace.TracerProvider) *Tracer {
	return &Tracer{tracer: provider.Tracer("policy-engine")}
}

// StartEvaluation starts a span for one Evaluate call and returns the
// derived context, the span (so the caller can End it), and the Trace
// value to attach to the resulting Decision.
func (t *Tracer) StartEvaluation(ctx context.Context) (context.Context, trace.Span, *Trace) {
	ctx, span := t.tracer.Start(ctx, "policy.Evaluate")
	sc := span.SpanContext()
	return ctx, span, &Trace{
		TraceID:   sc.TraceID().String(),
		SpanID:    sc.SpanID().String(),
		StartedAt: time.Now().UTC(),
	}
}
