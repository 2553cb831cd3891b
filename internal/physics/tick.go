package physics

import (
	"atrion/internal/config"
	"atrion/internal/numeric"
)

// Thresholds is the break/recovery pair the state machine compares
// resistance against. Computing these is the AutoTuner's job
// (internal/autotune) or, absent a tuner / before warm-up, a static
// multiple of baseResistance; physics.Tick only consumes the result,
// keeping the tuner's EMA state out of the pure core's call graph.
type Thresholds struct {
	BreakPoint    float64
	RecoveryPoint float64
}

// StaticThresholds derives the non-adaptive fallback thresholds directly
// from PhysicsConfig, per spec.md §4.3: breakPoint = γ*base,
// recoveryPoint = breakPoint/2.
func StaticThresholds(cfg config.PhysicsConfig) Thresholds {
	bp := cfg.BreakMultiplier * cfg.BaseResistance
	return Thresholds{BreakPoint: bp, RecoveryPoint: bp / 2}
}

// TickResult carries the observable facts of one tick beyond the new
// RouteState itself — the pieces internal/observe's event needs that
// aren't naturally part of state (deltaT, a transition record).
type TickResult struct {
	DeltaTMs          int64
	PressureMagnitude float64
	Transitioned      bool
	FromMode          Mode
	ToMode            Mode
}

// Tick advances prev by one observation. It is the single pure function
// spec.md §4.3 calls "the engine function": a pure function of
// (prevState, newPressure, weights, config, now, thresholds) -> newState.
//
// extraScar is the lease overrun penalty (spec.md §4.7/§9's Open Question
// resolution): a non-negative amount folded directly into this tick's scar
// update, independent of whether this tick is itself traumatic. Pass 0 when
// no lease overrun is pending.
//
// profileScarMultiplier is the route's current workload profile's scar
// multiplier (1.0 for STANDARD).
func Tick(
	prev RouteState,
	newPressure numeric.Vector3,
	weights numeric.Vector3,
	cfg config.PhysicsConfig,
	now int64,
	thresholds Thresholds,
	profileScarMultiplier float64,
	extraScar float64,
) (RouteState, TickResult) {
	guard := numeric.NewPhysicsGuard(nil)
	minDelta := cfg.MinDeltaTMs
	if minDelta <= 0 {
		minDelta = 1
	}
	deltaTMs := guard.SafeDeltaT(now, prev.LastUpdatedAt, minDelta)
	pressure := sanitizePressure(newPressure)

	if prev.Mode == Bootstrap {
		return tickBootstrap(prev, pressure, weights, cfg, now, deltaTMs, thresholds, profileScarMultiplier, extraScar)
	}

	next := prev
	next.TickCount = prev.TickCount + 1
	next.LastUpdatedAt = now
	return computeResistanceAndTransition(next, pressure, weights, cfg, deltaTMs, thresholds, profileScarMultiplier, extraScar, true)
}

// sanitizePressure coerces non-finite or out-of-range components to 0,
// per spec.md §7 item 4 ("Telemetry sanitization ... coerced to safe
// defaults"), and clamps the rest to [-1, 1] (invariant I2).
func sanitizePressure(p numeric.Vector3) numeric.Vector3 {
	clean := func(x float64) float64 {
		if !numeric.IsSafeNumber(x) {
			return 0
		}
		return numeric.SafeClamp(x, -1, 1)
	}
	return numeric.Vector3{X: clean(p.X), Y: clean(p.Y), Z: clean(p.Z)}
}

// tickBootstrap handles a tick while prev.Mode == Bootstrap: pressure and
// tick count always advance; only on the tick where TickCount reaches
// cfg.BootstrapTicks does the route transition to Operational and receive
// its first full resistance computation, with momentum forced to 0.
func tickBootstrap(
	prev RouteState,
	pressure numeric.Vector3,
	weights numeric.Vector3,
	cfg config.PhysicsConfig,
	now, deltaTMs int64,
	thresholds Thresholds,
	profileScarMultiplier float64,
	extraScar float64,
) (RouteState, TickResult) {
	next := prev
	next.Pressure = pressure
	next.TickCount = prev.TickCount + 1
	next.LastUpdatedAt = now

	if next.TickCount < int64(cfg.BootstrapTicks) {
		return next, TickResult{
			DeltaTMs:          deltaTMs,
			PressureMagnitude: numeric.Magnitude(pressure),
		}
	}

	next.Mode = Operational
	next.PreviousPressure = pressure
	next.Momentum = 0
	out, result := computeResistanceAndTransition(next, pressure, weights, cfg, deltaTMs, thresholds, profileScarMultiplier, extraScar, false)
	// The route left Bootstrap on this tick, whatever mode it landed in.
	result.Transitioned = true
	result.FromMode = Bootstrap
	return out, result
}

// computeResistanceAndTransition implements momentum, scar tissue,
// resistance synthesis, and the mode transition table, all per spec.md
// §4.3.
//
// computeMomentumFromHistory is false exactly once per route: on the tick
// where Bootstrap transitions to Operational, where momentum is defined to
// be 0 regardless of pressure history.
func computeResistanceAndTransition(
	next RouteState,
	pressure numeric.Vector3,
	weights numeric.Vector3,
	cfg config.PhysicsConfig,
	deltaTMs int64,
	thresholds Thresholds,
	profileScarMultiplier float64,
	extraScar float64,
	computeMomentumFromHistory bool,
) (RouteState, TickResult) {
	prevMode := next.Mode
	prevPressure := next.PreviousPressure

	momentum := 0.0
	if computeMomentumFromHistory {
		momentum = computeMomentum(prevPressure, pressure, deltaTMs)
	}
	next.Momentum = momentum

	scar := computeScar(next.ScarTissue, pressure, cfg, deltaTMs, profileScarMultiplier, extraScar)
	next.ScarTissue = scar

	resistance := computeResistance(cfg, pressure, weights, next.Momentum, scar, deltaTMs)
	next.Resistance = resistance
	next.PreviousPressure = pressure
	next.Pressure = pressure

	toMode := nextMode(prevMode, resistance, scar, pressure, cfg, thresholds)
	transitioned := toMode != prevMode
	if transitioned && toMode == CircuitBreaker {
		next.RecoveryStartedAt = next.LastUpdatedAt
	}
	next.Mode = toMode

	return next, TickResult{
		DeltaTMs:          deltaTMs,
		PressureMagnitude: numeric.Magnitude(pressure),
		Transitioned:      transitioned,
		FromMode:          prevMode,
		ToMode:            toMode,
	}
}

// computeMomentum is M(t) = ||P(t)-P(t-1)|| / deltaT_ms.
func computeMomentum(prevPressure, pressure numeric.Vector3, deltaTMs int64) float64 {
	diff := numeric.Subtract(pressure, prevPressure)
	mag := numeric.Magnitude(diff)
	return numeric.SafeDivide(mag, float64(deltaTMs), 0)
}

// computeScar implements the check-valve scar update:
//
//	P+ = max(component, 0) componentwise
//	S(t) = S(t-1)*exp(-λ*Δt_s) + (||P+|| > P_crit ? σ*profileMult : 0) + extraScar
func computeScar(prevScar float64, pressure numeric.Vector3, cfg config.PhysicsConfig, deltaTMs int64, profileScarMultiplier, extraScar float64) float64 {
	deltaTSec := float64(deltaTMs) / 1000.0
	decay := numeric.SafeExp(-cfg.DecayRate*deltaTSec, 0)
	decayed := prevScar * decay

	positivePart := numeric.PositivePart(pressure)
	traumaMagnitude := numeric.Magnitude(positivePart)

	increment := 0.0
	if traumaMagnitude > cfg.CriticalPressure {
		increment = cfg.ScarFactor * profileScarMultiplier
	}

	scar := decayed + increment + extraScar
	scar = numeric.ClampToZero(scar)
	if scar < 0 {
		scar = 0
	}
	return scar
}

// computeResistance is Ohm's Law of admission (spec.md §4.3), clamped to
// [baseResistance, MaxSafeResistance] and falling back to baseResistance on
// any unsafe intermediate result. staleness is the optional
// κ·(now−lastUpdated)/1000 term; deltaTMs is exactly now−lastUpdated for
// this tick, so staleness grows with however long this route went between
// observations. κ = 0 (the default) makes the term a no-op.
func computeResistance(cfg config.PhysicsConfig, pressure, weights numeric.Vector3, momentum, scar float64, deltaTMs int64) float64 {
	weighted := numeric.Sum(numeric.Hadamard(pressure, weights))
	staleness := cfg.StalenessKappa * float64(deltaTMs) / 1000.0
	r := cfg.BaseResistance + weighted + cfg.DampingFactor*momentum + scar + staleness
	if !numeric.IsSafeNumber(r) {
		return cfg.BaseResistance
	}
	return numeric.SafeClamp(r, cfg.BaseResistance, numeric.MaxSafeResistance)
}

// nextMode implements the state transition table of spec.md §4.3. Mode
// transitions are evaluated only after the new resistance has been
// computed, and only for Operational/CircuitBreaker (Bootstrap's own
// transition is handled by tickBootstrap before this is reached).
func nextMode(from Mode, resistance, scar float64, pressure numeric.Vector3, cfg config.PhysicsConfig, thresholds Thresholds) Mode {
	switch from {
	case Operational:
		if resistance >= thresholds.BreakPoint {
			return CircuitBreaker
		}
		return Operational
	case CircuitBreaker:
		pressureMag := numeric.Magnitude(pressure)
		recoversByResistance := resistance < thresholds.RecoveryPoint
		recoversByCalm := scar < cfg.ScarFactor && pressureMag < cfg.CriticalPressure
		if recoversByResistance || recoversByCalm {
			return Operational
		}
		return CircuitBreaker
	default:
		return from
	}
}
