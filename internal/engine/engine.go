// Package engine is the non-pure façade spec.md §6 describes: it owns the
// local cache of RouteState, wires the pure core (internal/physics,
// internal/autotune, internal/decision, internal/pressure, internal/config)
// to the ambient collaborators (internal/state.Provider, internal/observe,
// internal/lease, internal/atrionlog), and is the only place in the module
// where a clock, an RNG, or network I/O is allowed to touch the physics
// call path — and even there, only at the edges: the call into
// physics.Tick itself still receives an explicit `now` and never reaches
// for either directly. Grounded on
// yoghaf-market-indikator/internal/engine/engine.go's role as the
// multi-route orchestrator sitting above the pure scoring functions,
// rewritten end to end since the teacher's Engine is filled with
// market-data-specific logic (candle aggregation, CVD, orderbook pressure)
// this module has no use for; what survives is the shape, not the code.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"atrion/internal/atrionlog"
	"atrion/internal/autotune"
	"atrion/internal/config"
	"atrion/internal/lease"
	"atrion/internal/numeric"
	"atrion/internal/observe"
	"atrion/internal/physics"
	"atrion/internal/pressure"
	"atrion/internal/state"
)

// Clock is the injected source of wall-clock time the engine reads `now`
// from before every tick and every lease operation. Production code uses
// RealClock; tests inject a fake so tick sequences are reproducible
// (invariant I10), matching spec.md §5's "clocks ... are injected" rule —
// extended here to cover the façade, since the pure core itself never
// reads a clock at all.
type Clock = lease.Clock

// RealClock is the production Clock, backed by time.Now.
type RealClock = lease.RealClock

// Mode names one of spec.md §6's three illustrative engine modes.
type Mode int

const (
	ModeAuto Mode = iota
	ModeNative
	ModeFallback
)

// Options configures New. Zero-valued fields fall back to sane defaults,
// mirroring spec.md §6's `Engine::new(options)`.
type Options struct {
	// Provider is the pluggable state backend (spec.md §6's `stateProvider`
	// option). Defaults to a fresh state.NewMemoryProvider().
	Provider state.Provider

	// Observer receives one Event per completed tick (spec.md §4.8).
	// Defaults to observe.Silent. Wrapped internally in an observe.Dispatcher
	// so a slow or panicking observer never blocks or corrupts Route.
	Observer observe.Observer

	// ObserverQueueCapacity bounds the Dispatcher's internal queue. 0 uses
	// the Dispatcher's own default.
	ObserverQueueCapacity int

	// PhysicsConfig is the default physics configuration applied to any
	// route not given a per-route override via RouteOptions.Physics.
	PhysicsConfig config.PhysicsConfig

	// AutoTuner configures the adaptive threshold learner applied to every
	// route (spec.md §6's `autoTunerConfig|disabled` option). A nil value
	// disables adaptive tuning: every route uses physics.StaticThresholds
	// instead (spec.md §4.4's engine-may-run-without-a-tuner fallback).
	AutoTuner *autotune.Params

	// DefaultCriticality/DefaultTarget derive the SensitivityWeights and
	// Baselines applied to any route not given a per-route SLO override
	// (spec.md §6's single `slo` option, applied engine-wide by default).
	DefaultCriticality config.SLOCriticality
	DefaultTarget      config.SLOTarget

	// DefaultVoltage is used by Route when the caller's RouteOptions.Voltage
	// is nil.
	DefaultVoltage float64

	// SelectTemperature configures SelectRoute's softmax sharpness. 0 uses
	// decision.DefaultTemperature.
	SelectTemperature float64

	// Mode mirrors spec.md §6's `engineMode ∈ {auto, native, fallback}`
	// option. This module has exactly one engine implementation (there is
	// no separate native backend to delegate to), so Mode is accepted for
	// API parity with the documented option set but does not change
	// behavior; ModeAuto is the zero value and the only mode exercised.
	Mode Mode

	Clock  Clock
	RNG    *rand.Rand
	Logger atrionlog.Logger
}

// RouteOptions overrides an individual route's SLO derivation, physics
// config, initial workload profile, and (via Route) this tick's admission
// voltage. Passed to RegisterRoute and Route, or populated internally from
// a configio.Document by NewFromDocument. Every field is optional; a nil
// field means "use the engine's default / the route's current value".
type RouteOptions struct {
	Criticality *config.SLOCriticality
	Target      *config.SLOTarget
	Physics     *config.PhysicsConfig
	Profile     *config.WorkloadProfile
	Voltage     *float64
}

// Engine is the façade. All exported methods are safe for concurrent use;
// per-route state is serialized by a per-route mutex so unrelated routes
// never contend with each other (spec.md §5's "across routes, no ordering
// is required").
type Engine struct {
	provider state.Provider
	dispatch *observe.Dispatcher

	physicsDefault config.PhysicsConfig
	tunerParams    *autotune.Params
	defaultWeights numeric.Vector3
	defaultBase    pressure.Baselines

	defaultVoltage float64
	temperature    float64
	mode           Mode

	clock  Clock
	rng    *rand.Rand
	log    atrionlog.Logger
	leases *lease.Registry

	mu        sync.RWMutex
	routes    map[string]*routeEntry
	connected bool
	unsub     func()
}

// New constructs a disconnected Engine from opts.
func New(opts Options) *Engine {
	if opts.Provider == nil {
		opts.Provider = state.NewMemoryProvider()
	}
	if opts.Observer == nil {
		opts.Observer = observe.Silent
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.RNG == nil {
		opts.RNG = defaultRNG()
	}
	if opts.Logger == nil {
		opts.Logger = atrionlog.NoopLogger
	}
	physicsCfg := opts.PhysicsConfig
	if physicsCfg == (config.PhysicsConfig{}) {
		physicsCfg = config.DefaultPhysicsConfig()
	}

	return &Engine{
		provider:       opts.Provider,
		dispatch:       observe.NewDispatcher(opts.Observer, opts.ObserverQueueCapacity),
		physicsDefault: physicsCfg,
		tunerParams:    opts.AutoTuner,
		defaultWeights: config.DeriveWeights(opts.DefaultCriticality),
		defaultBase:    config.DeriveBaselines(opts.DefaultTarget),
		defaultVoltage: opts.DefaultVoltage,
		temperature:    opts.SelectTemperature,
		mode:           opts.Mode,
		clock:          opts.Clock,
		rng:            opts.RNG,
		log:            opts.Logger,
		leases:         lease.NewRegistry(),
		routes:         make(map[string]*routeEntry),
	}
}

func defaultRNG() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Connect prepares the provider for use and, if it additionally implements
// state.Subscriber, subscribes to remote vector updates so this engine's
// local cache converges with peers without polling. Safe to call more than
// once. Maps to spec.md §6's `engine.connect()`.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.connected {
		return nil
	}
	if err := e.provider.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingDependency, err)
	}
	if sub, ok := e.provider.(state.Subscriber); ok {
		unsub, err := sub.Subscribe(ctx, e.applyRemoteVector)
		if err != nil {
			e.log.Warnf("engine: subscribe to provider updates failed: %v", err)
		} else {
			e.unsub = unsub
		}
	}
	e.connected = true
	return nil
}

// Disconnect releases the provider and any subscription. Safe to call on
// an already-disconnected Engine.
func (e *Engine) Disconnect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return nil
	}
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
	e.connected = false
	return e.provider.Disconnect(ctx)
}

// Shutdown is spec.md §4.6/§6's graceful-shutdown sequence:
// flushToProvider() awaits all cached routes being written, then disconnect.
// It blocks until every route currently cached locally has been written to
// the provider, then calls Disconnect. If a write fails and ctx still has
// time left, Shutdown stops there and returns the error without
// disconnecting, so a caller can retry once the provider is reachable
// again. If ctx has already expired, Shutdown disconnects anyway — a stuck
// provider must never block process exit indefinitely.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.flushAllToProvider(ctx); err != nil {
		if ctx.Err() == nil {
			return err
		}
		e.log.Warnf("engine: shutdown flush incomplete: %v", err)
	}
	return e.Disconnect(ctx)
}

// Connected reports whether Connect has succeeded and Disconnect has not
// since been called.
func (e *Engine) Connected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

// applyRemoteVector is the provider Subscriber callback: a peer wrote a
// vector for some route. It is folded into the local cache only if it is
// newer than what's already there (LWW by LastTick), the same rule the
// provider itself applies, per spec.md §6's "provider must tolerate
// out-of-order by applying LWW on lastTick".
func (e *Engine) applyRemoteVector(v state.PhysicsVector) {
	r := e.routeFor(v.RouteID, RouteOptions{})
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.LastTick <= r.state.LastUpdatedAt {
		return
	}
	r.state = v.ToRouteState()
}

// GetRoutes returns every route ID the engine has locally registered
// (either via Route or RegisterRoute), per spec.md §6's `getRoutes()`.
func (e *Engine) GetRoutes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.routes))
	for id := range e.routes {
		out = append(out, id)
	}
	return out
}

// GetState returns a copy of routeID's current RouteState, or ok=false if
// the route is unknown, per spec.md §6's `getState(routeId)`.
func (e *Engine) GetState(routeID string) (physics.RouteState, bool) {
	e.mu.RLock()
	r, ok := e.routes[routeID]
	e.mu.RUnlock()
	if !ok {
		return physics.RouteState{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, true
}

// ResetRoute clears routeID's local state and best-effort clears it from
// the provider, per spec.md §6's `resetRoute(routeId)`. A subsequent Route
// call re-bootstraps the route from scratch.
func (e *Engine) ResetRoute(routeID string) {
	e.mu.Lock()
	delete(e.routes, routeID)
	e.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.provider.DeleteVector(ctx, routeID); err != nil {
			e.log.Warnf("engine: provider delete for %s failed: %v", routeID, err)
		}
	}()
}

// SetRouteProfile sets routeID's current workload profile, creating the
// route (in Bootstrap) if it does not yet exist, per spec.md §6's
// `setRouteProfile(routeId, profile)`. Changing to a different profile
// resets the route's AutoTuner accumulator, since a profile change shifts
// the expected resistance distribution enough that old EMA samples would
// bias the new regime.
func (e *Engine) SetRouteProfile(routeID string, profile config.WorkloadProfile) {
	r := e.routeFor(routeID, RouteOptions{})
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.profile == profile {
		return
	}
	r.profile = profile
	if r.tuner != nil {
		r.tuner.Reset()
	}
}

// GetActiveTaskCount reports how many Active leases are outstanding for
// routeID, per spec.md §6's `getActiveTaskCount(routeId)`.
func (e *Engine) GetActiveTaskCount(routeID string) int {
	return e.leases.ActiveCount(routeID)
}

// Close stops the observer dispatcher, flushing any already-queued events.
// Not part of spec.md's documented API; exists so cmd/atrion can shut down
// cleanly.
func (e *Engine) Close() {
	e.dispatch.Close()
}
