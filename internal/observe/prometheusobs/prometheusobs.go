// Package prometheusobs is a concrete observe.Observer that republishes
// every physics Event as Prometheus metrics, using
// github.com/prometheus/client_golang — the metrics library both
// 99souls-ariadne and jhkimqd-chaos-utils depend on in the pack.
package prometheusobs

import (
	"atrion/internal/observe"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer republishes observe.Event as a small family of per-route
// gauges/counters. It is deliberately cardinality-light: the route ID is
// the only free-form label; the decision and mode-transition counters add
// only the fixed decision and mode names.
type Observer struct {
	resistance      *prometheus.GaugeVec
	scarTissue      *prometheus.GaugeVec
	momentum        *prometheus.GaugeVec
	pressureMag     *prometheus.GaugeVec
	tickCount       *prometheus.GaugeVec
	decisions       *prometheus.CounterVec
	modeTransitions *prometheus.CounterVec
}

// New constructs an Observer and registers its metrics against reg. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// *prometheus.Registry in tests to avoid cross-test collisions.
func New(reg prometheus.Registerer) *Observer {
	o := &Observer{
		resistance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "atrion",
			Name:      "route_resistance",
			Help:      "Current resistance (Ohm's Law of admission) for a route.",
		}, []string{"route"}),
		scarTissue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "atrion",
			Name:      "route_scar_tissue",
			Help:      "Current scar tissue accumulation for a route.",
		}, []string{"route"}),
		momentum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "atrion",
			Name:      "route_momentum",
			Help:      "Current pressure momentum for a route (not updated during bootstrap).",
		}, []string{"route"}),
		pressureMag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "atrion",
			Name:      "route_pressure_magnitude",
			Help:      "Magnitude of the current pressure vector for a route.",
		}, []string{"route"}),
		tickCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "atrion",
			Name:      "route_tick_count",
			Help:      "Number of physics ticks processed for a route.",
		}, []string{"route"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atrion",
			Name:      "route_decisions_total",
			Help:      "Count of admission decisions by outcome.",
		}, []string{"route", "decision"}),
		modeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atrion",
			Name:      "route_mode_transitions_total",
			Help:      "Count of state-machine mode transitions by from/to mode.",
		}, []string{"route", "from", "to"}),
	}
	reg.MustRegister(o.resistance, o.scarTissue, o.momentum, o.pressureMag, o.tickCount, o.decisions, o.modeTransitions)
	return o
}

var _ observe.Observer = (*Observer)(nil)

// OnUpdate implements observe.Observer.
func (o *Observer) OnUpdate(e observe.Event) {
	o.resistance.WithLabelValues(e.RouteID).Set(e.Resistance)
	o.scarTissue.WithLabelValues(e.RouteID).Set(e.ScarTissue)
	if e.Momentum != nil {
		o.momentum.WithLabelValues(e.RouteID).Set(*e.Momentum)
	}
	o.pressureMag.WithLabelValues(e.RouteID).Set(e.PressureMagnitude)
	o.tickCount.WithLabelValues(e.RouteID).Set(float64(e.TickCount))
	o.decisions.WithLabelValues(e.RouteID, string(e.Decision)).Inc()
	if e.ModeTransition != nil {
		o.modeTransitions.WithLabelValues(e.RouteID, e.ModeTransition.From, e.ModeTransition.To).Inc()
	}
}
