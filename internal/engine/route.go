package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"atrion/internal/autotune"
	"atrion/internal/config"
	"atrion/internal/decision"
	"atrion/internal/numeric"
	"atrion/internal/observe"
	"atrion/internal/physics"
	"atrion/internal/pressure"
	"atrion/internal/state"
)

// routeEntry is one route's full bookkeeping: its authoritative RouteState,
// its (possibly route-specific) derivation inputs, its AutoTuner if one is
// configured, and the pending scar penalty folded in from a lease that
// overran its budget since the last tick.
type routeEntry struct {
	mu sync.Mutex

	state   physics.RouteState
	profile config.WorkloadProfile

	weights   numeric.Vector3
	baselines pressure.Baselines
	physics   config.PhysicsConfig
	tuner     *autotune.Tuner

	pendingScar float64
}

// routeFor returns routeID's entry, creating it (in Bootstrap) on first
// access. opts is only consulted on creation; an already-registered route
// ignores it, matching spec.md §4.3's "immutable per-route" weights note —
// callers that need to change a route's SLO must ResetRoute first.
func (e *Engine) routeFor(routeID string, opts RouteOptions) *routeEntry {
	e.mu.RLock()
	r, ok := e.routes[routeID]
	e.mu.RUnlock()
	if ok {
		return r
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.routes[routeID]; ok {
		return r
	}

	physicsCfg := e.physicsDefault
	if opts.Physics != nil {
		physicsCfg = *opts.Physics
	}
	weights := e.defaultWeights
	if opts.Criticality != nil {
		weights = config.DeriveWeights(*opts.Criticality)
	}
	baselines := e.defaultBase
	if opts.Target != nil {
		baselines = config.DeriveBaselines(*opts.Target)
	}

	var tuner *autotune.Tuner
	if e.tunerParams != nil {
		tuner = autotune.NewTunerFromConfig(*e.tunerParams, physicsCfg)
	}
	var profile config.WorkloadProfile
	if opts.Profile != nil {
		profile = *opts.Profile
	}

	now := e.clock.Now().UnixMilli()
	r = &routeEntry{
		state:     physics.NewBootstrapState(routeID, physicsCfg.BaseResistance, now),
		profile:   profile,
		weights:   weights,
		baselines: baselines,
		physics:   physicsCfg,
		tuner:     tuner,
	}
	e.routes[routeID] = r
	return r
}

// RegisterRoute creates routeID with explicit per-route overrides ahead of
// its first Route call, so that first tick already uses the right SLO
// derivation and physics config instead of the engine-wide default. A
// no-op if routeID is already registered.
func (e *Engine) RegisterRoute(routeID string, opts RouteOptions) {
	e.routeFor(routeID, opts)
}

// Decision is the wire-stable outcome shape spec.md §6 documents for
// `engine.route(...)`: `{ allow, resistance, mode, reason }`.
type Decision struct {
	Allow      bool    `json:"allow"`
	Resistance float64 `json:"resistance"`
	Mode       string  `json:"mode"`
	Reason     string  `json:"reason"`
}

// Route advances routeID by one tick with telemetry, then evaluates the
// admit/shed decision against voltage (opts.Voltage, falling back to the
// engine's DefaultVoltage). It is the single hot-path entry point: it never
// blocks on the provider or an observer. Its only error today is
// ErrNotConnected, returned synchronously when Connect has not yet
// succeeded (spec.md §7 item 1's caller-contract requirement).
func (e *Engine) Route(ctx context.Context, routeID string, telemetry pressure.RawTelemetry, opts RouteOptions) (Decision, error) {
	if !e.Connected() {
		return Decision{}, ErrNotConnected
	}
	r := e.routeFor(routeID, opts)

	r.mu.Lock()
	// A caller-supplied profile on an already-registered route updates the
	// scar multiplier applied to this and future ticks, without resetting
	// the AutoTuner the way SetRouteProfile does — route() is a per-request
	// call and a profile passed here is expected to vary call-by-call
	// (e.g. a caller tagging this particular request as HEAVY), not a
	// standing regime change for the route.
	if opts.Profile != nil {
		r.profile = *opts.Profile
	}

	vector := pressure.Normalize(telemetry, r.baselines, r.physics.TanhScale)

	var thresholds physics.Thresholds
	if r.tuner != nil {
		thresholds = physics.Thresholds{BreakPoint: r.tuner.BreakPoint(), RecoveryPoint: r.tuner.RecoveryPoint()}
	} else {
		thresholds = physics.StaticThresholds(r.physics)
	}

	extraScar := r.pendingScar
	r.pendingScar = 0

	profileSpec := config.ProfileSpecFor(r.profile)
	now := e.clock.Now().UnixMilli()

	next, result := physics.Tick(r.state, vector, r.weights, r.physics, now, thresholds, profileSpec.ScarMultiplier, extraScar)
	r.state = next
	if r.tuner != nil && next.Mode != physics.Bootstrap {
		r.tuner.Observe(next.Resistance)
	}

	voltage := e.defaultVoltage
	if opts.Voltage != nil {
		voltage = *opts.Voltage
	}
	verdict := decision.Decide(next, voltage)
	out := Decision{Allow: verdict.Allow, Resistance: next.Resistance, Mode: next.Mode.String(), Reason: verdict.Reason}
	r.mu.Unlock()

	e.flushToProvider(next)
	e.dispatch.Dispatch(toEvent(routeID, next, result, verdict.Allow))

	return out, nil
}

// flushToProvider issues the provider write for s asynchronously: Route
// must never suspend on it (spec.md §5's "provider calls dispatched from
// update() ... do not suspend the caller"). Errors are logged, never
// surfaced — the local cache stays authoritative regardless of provider
// health (spec.md §7 item 3).
func (e *Engine) flushToProvider(s physics.RouteState) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.provider.UpdateVector(ctx, state.ToPhysicsVector(s)); err != nil {
			e.log.Warnf("engine: provider write for %s failed: %v", s.RouteID, err)
		}
	}()
}

// flushAllToProvider synchronously writes every cached route's current
// state to the provider, one at a time, returning the first error
// encountered. Unlike flushToProvider (Route's fire-and-forget per-tick
// push), this is the blocking drain spec.md §4.6/§6 calls for at shutdown:
// callers await it before the provider connection is torn down, so no
// cached route is lost to a disconnect racing an in-flight async write.
func (e *Engine) flushAllToProvider(ctx context.Context) error {
	e.mu.RLock()
	entries := make([]*routeEntry, 0, len(e.routes))
	for _, r := range e.routes {
		entries = append(entries, r)
	}
	e.mu.RUnlock()

	for _, r := range entries {
		r.mu.Lock()
		s := r.state
		r.mu.Unlock()
		if err := e.provider.UpdateVector(ctx, state.ToPhysicsVector(s)); err != nil {
			return fmt.Errorf("flush %s: %w", s.RouteID, err)
		}
	}
	return nil
}

func toEvent(routeID string, s physics.RouteState, r physics.TickResult, allow bool) observe.Event {
	var momentum *float64
	if s.Mode != physics.Bootstrap {
		m := s.Momentum
		momentum = &m
	}
	dec := observe.DecisionFlow
	switch {
	case s.Mode == physics.Bootstrap:
		dec = observe.DecisionBootstrap
	case !allow:
		dec = observe.DecisionShed
	}
	var transition *observe.ModeTransition
	if r.Transitioned {
		transition = &observe.ModeTransition{From: r.FromMode.String(), To: r.ToMode.String()}
	}
	return observe.Event{
		RouteID:           routeID,
		Mode:              s.Mode.String(),
		Resistance:        s.Resistance,
		Momentum:          momentum,
		ScarTissue:        s.ScarTissue,
		Decision:          dec,
		DeltaTMs:          r.DeltaTMs,
		Timestamp:         s.LastUpdatedAt,
		PressureMagnitude: r.PressureMagnitude,
		TickCount:         s.TickCount,
		ModeTransition:    transition,
	}
}

// SelectRoute performs a softmax draw over routeIDs' current admissibility
// against voltage, favoring lower-resistance routes, per spec.md §4.5's
// multi-route selection affordance. Unregistered route IDs are skipped
// rather than treated as an error; registered routes are admitted exactly
// as decision.Decide admits them, Bootstrap routes included.
func (e *Engine) SelectRoute(routeIDs []string, voltage float64) (string, bool) {
	candidates := make([]decision.RouteCandidate, 0, len(routeIDs))
	for _, id := range routeIDs {
		s, ok := e.GetState(id)
		if !ok {
			continue
		}
		verdict := decision.Decide(s, voltage)
		candidates = append(candidates, decision.RouteCandidate{
			RouteID:    id,
			Resistance: s.Resistance,
			Admitted:   verdict.Allow,
		})
	}
	return decision.SelectRoute(candidates, e.temperature, e.rng)
}
