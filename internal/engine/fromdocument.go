package engine

import (
	"atrion/internal/configio"
)

// NewFromDocument builds an Engine from a parsed configio.Document,
// applying its document-wide defaults (DefaultVoltage, Physics, AutoTuner)
// through Options and then pre-registering every route the document names
// with its per-route SLO/physics/profile overrides, per spec.md §4.9's
// "configuration document drives the engine's initial route set" note.
// Non-document fields of Options (Provider, Observer, Clock, RNG, Logger,
// ...) are taken from base and left untouched; callers that need a
// networked provider or a non-default observer still construct those
// themselves and pass them in base.
func NewFromDocument(doc *configio.Document, base Options) *Engine {
	opts := base
	opts.PhysicsConfig = doc.Physics.PhysicsConfig()
	opts.DefaultVoltage = doc.DefaultVoltage
	if doc.AutoTuner != nil {
		params := doc.AutoTuner.AutoTunerParams()
		opts.AutoTuner = &params
	}

	e := New(opts)
	for _, rc := range doc.Routes {
		criticality := rc.Criticality.Criticality()
		target := rc.Target.SLOTarget()
		profile := rc.WorkloadProfile()

		routeOpts := RouteOptions{
			Criticality: &criticality,
			Target:      &target,
			Profile:     &profile,
		}
		if rc.Physics != nil {
			physicsCfg := rc.Physics.PhysicsConfig()
			routeOpts.Physics = &physicsCfg
		}
		e.RegisterRoute(rc.RouteID, routeOpts)
	}
	return e
}
