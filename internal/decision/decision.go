// Package decision turns a RouteState's resistance into the admit/shed
// verdict callers actually consume: Decide implements spec.md §4.5's
// "Ohm's Law of admission" comparison, and Guard/SelectRoute build the
// soft-threshold and multi-route affordances on top of it. Grounded on the
// teacher's threshold-classification style (internal/oi/engine.go's
// behavior switch): a small set of named outcomes computed from a single
// comparison, each with a stable reason prefix.
package decision

import (
	"fmt"

	"atrion/internal/physics"
)

// Decision is the outcome of comparing a route's current voltage against its
// resistance, per spec.md §4.5.
type Decision struct {
	Allow      bool
	Reason     string
	Resistance float64
	Voltage    float64
}

const (
	reasonBreakerOpen     = "Circuit breaker open"
	reasonInsufficientFmt = "Insufficient voltage: V=%g ≤ R=%g"
	reasonOK              = "OK"
)

// Decide implements allow = mode != CircuitBreaker AND voltage > resistance.
// Equality rejects (spec.md §4.5's explicit boundary: voltage == resistance
// is NOT enough to admit).
func Decide(state physics.RouteState, voltage float64) Decision {
	if state.Mode == physics.CircuitBreaker {
		return Decision{Allow: false, Reason: reasonBreakerOpen, Resistance: state.Resistance, Voltage: voltage}
	}
	if voltage <= state.Resistance {
		reason := fmt.Sprintf(reasonInsufficientFmt, voltage, state.Resistance)
		return Decision{Allow: false, Reason: reason, Resistance: state.Resistance, Voltage: voltage}
	}
	return Decision{Allow: true, Reason: reasonOK, Resistance: state.Resistance, Voltage: voltage}
}

// GuardSoftMargin is the fraction of resistance below which Guard starts
// flagging requests as "risky but admitted", per spec.md §4.5's soft
// threshold: requests admitted only because voltage barely clears
// resistance (within 20% of it) are worth a caller's extra scrutiny without
// being rejected outright.
const GuardSoftMargin = 0.8

// GuardedDecision augments Decision with a soft-threshold flag: true when
// the request was admitted but voltage fell under GuardSoftMargin of
// headroom above resistance.
type GuardedDecision struct {
	Decision
	SoftWarning bool
}

// Guard wraps Decide with the 80% soft-threshold check. A request is
// admitted exactly as Decide would admit it; SoftWarning additionally flags
// admits where voltage < resistance/GuardSoftMargin, i.e. admits that are
// close enough to the breakpoint to warrant caution.
func Guard(state physics.RouteState, voltage float64) GuardedDecision {
	d := Decide(state, voltage)
	if !d.Allow {
		return GuardedDecision{Decision: d}
	}
	threshold := state.Resistance / GuardSoftMargin
	return GuardedDecision{Decision: d, SoftWarning: voltage < threshold}
}
