// Package physics is the hard mathematical core of atrion: momentum, scar
// tissue, resistance synthesis, and the bootstrap -> operational ->
// circuit-breaker state machine (spec.md §4.3). Every exported function here
// is pure: given identical inputs (including an explicit `now`), it returns
// identical outputs, with no reference to a wall clock, RNG, file, or
// network socket (spec.md §5's "Purity boundary").
package physics

import "atrion/internal/numeric"

// Mode discriminates the three RouteState variants.
type Mode int

const (
	Bootstrap Mode = iota
	Operational
	CircuitBreaker
)

func (m Mode) String() string {
	switch m {
	case Bootstrap:
		return "BOOTSTRAP"
	case Operational:
		return "OPERATIONAL"
	case CircuitBreaker:
		return "CIRCUIT_BREAKER"
	default:
		return "UNKNOWN"
	}
}

// RouteState is the tagged-union value described in spec.md §3. The active
// fields depend on Mode: PreviousPressure/Momentum are meaningless (and
// left zero) in Bootstrap; RecoveryStartedAt is meaningless outside
// CircuitBreaker. Mode is the discriminator.
type RouteState struct {
	RouteID string
	Mode    Mode

	Pressure         numeric.Vector3
	PreviousPressure numeric.Vector3 // valid in Operational/CircuitBreaker only

	ScarTissue float64
	Momentum   float64 // >= 0, valid in Operational/CircuitBreaker only
	Resistance float64

	TickCount     int64
	LastUpdatedAt int64 // ms, monotone non-decreasing per route

	RecoveryStartedAt int64 // valid in CircuitBreaker only
}

// NewBootstrapState constructs the initial state for a route per
// spec.md §4.3: Bootstrap with R = 1.2*baseResistance, zero scar, zero tick
// count.
func NewBootstrapState(routeID string, baseResistance float64, now int64) RouteState {
	return RouteState{
		RouteID:       routeID,
		Mode:          Bootstrap,
		Resistance:    baseResistance * 1.2,
		LastUpdatedAt: now,
	}
}
