// Package otelobs is a concrete observe.Observer that republishes physics
// Events as OpenTelemetry metrics, and a separate tracing helper that wraps
// a Route call in a span. Grounded on 99souls-ariadne's
// go.opentelemetry.io/otel(+metric,+sdk,+trace) stack — the only pack repo
// that uses OTel.
package otelobs

import (
	"context"

	"atrion/internal/observe"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Observer republishes observe.Event onto an OpenTelemetry Meter's
// instruments, mirroring prometheusobs's metric set (all but its
// tick-count gauge) so either backend can
// be swapped in without changing what the engine emits.
type Observer struct {
	resistance  metric.Float64Gauge
	scarTissue  metric.Float64Gauge
	momentum    metric.Float64Gauge
	pressureMag metric.Float64Gauge
	decisions   metric.Int64Counter
	transitions metric.Int64Counter
}

// New builds an Observer backed by instruments created on meter.
func New(meter metric.Meter) (*Observer, error) {
	resistance, err := meter.Float64Gauge("atrion.route.resistance", metric.WithDescription("Current resistance for a route."))
	if err != nil {
		return nil, err
	}
	scarTissue, err := meter.Float64Gauge("atrion.route.scar_tissue", metric.WithDescription("Current scar tissue for a route."))
	if err != nil {
		return nil, err
	}
	momentum, err := meter.Float64Gauge("atrion.route.momentum", metric.WithDescription("Current pressure momentum for a route."))
	if err != nil {
		return nil, err
	}
	pressureMag, err := meter.Float64Gauge("atrion.route.pressure_magnitude", metric.WithDescription("Magnitude of the current pressure vector."))
	if err != nil {
		return nil, err
	}
	decisions, err := meter.Int64Counter("atrion.route.decisions", metric.WithDescription("Count of admission decisions by outcome."))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("atrion.route.mode_transitions", metric.WithDescription("Count of state-machine mode transitions."))
	if err != nil {
		return nil, err
	}
	return &Observer{
		resistance:  resistance,
		scarTissue:  scarTissue,
		momentum:    momentum,
		pressureMag: pressureMag,
		decisions:   decisions,
		transitions: transitions,
	}, nil
}

var _ observe.Observer = (*Observer)(nil)

// OnUpdate implements observe.Observer.
func (o *Observer) OnUpdate(e observe.Event) {
	ctx := context.Background()
	routeAttr := attribute.String("route", e.RouteID)

	o.resistance.Record(ctx, e.Resistance, metric.WithAttributes(routeAttr))
	o.scarTissue.Record(ctx, e.ScarTissue, metric.WithAttributes(routeAttr))
	if e.Momentum != nil {
		o.momentum.Record(ctx, *e.Momentum, metric.WithAttributes(routeAttr))
	}
	o.pressureMag.Record(ctx, e.PressureMagnitude, metric.WithAttributes(routeAttr))
	o.decisions.Add(ctx, 1, metric.WithAttributes(routeAttr, attribute.String("decision", string(e.Decision))))
	if e.ModeTransition != nil {
		o.transitions.Add(ctx, 1, metric.WithAttributes(
			routeAttr,
			attribute.String("from", e.ModeTransition.From),
			attribute.String("to", e.ModeTransition.To),
		))
	}
}
