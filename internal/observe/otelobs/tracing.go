package otelobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RouteTracer wraps an engine's Route call in a span, so a caller that
// already has OpenTelemetry tracing wired for the rest of its request path
// gets admission-control decisions in the same trace, instead of only in
// metrics.
type RouteTracer struct {
	tracer trace.Tracer
}

// NewRouteTracer builds a RouteTracer using tracer.
func NewRouteTracer(tracer trace.Tracer) *RouteTracer {
	return &RouteTracer{tracer: tracer}
}

// TraceRoute starts a span named "atrion.route" for routeID, calls fn, and
// records the outcome (allow/resistance/reason) as span attributes before
// ending the span. fn's error, if any, marks the span as errored but is
// otherwise passed through unchanged — tracing must never change a Route
// call's outcome.
func (t *RouteTracer) TraceRoute(ctx context.Context, routeID string, fn func(context.Context) (allow bool, resistance float64, reason string, err error)) (bool, float64, string, error) {
	ctx, span := t.tracer.Start(ctx, "atrion.route", trace.WithAttributes(attribute.String("route", routeID)))
	defer span.End()

	allow, resistance, reason, err := fn(ctx)
	span.SetAttributes(
		attribute.Bool("allow", allow),
		attribute.Float64("resistance", resistance),
		attribute.String("reason", reason),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return allow, resistance, reason, err
}
