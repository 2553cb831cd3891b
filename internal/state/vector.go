package state

import (
	"atrion/internal/numeric"
	"atrion/internal/physics"
)

// PhysicsVector is the wire-friendly projection of a physics.RouteState: the
// shape every state.Provider stores, transmits, and resolves conflicts
// over. It exists separately from physics.RouteState because providers
// (especially internal/syncprovider's REST/websocket surface) serialize it
// directly as JSON — RouteState's Mode is an int-backed enum internally, but
// the wire format spells it out as a string.
type PhysicsVector struct {
	RouteID          string          `json:"routeId"`
	Mode             string          `json:"mode"`
	Pressure         numeric.Vector3 `json:"pressure"`
	PreviousPressure numeric.Vector3 `json:"previousPressure"`
	ScarTissue       float64         `json:"scarTissue"`
	Momentum         float64         `json:"momentum"`
	Resistance       float64         `json:"resistance"`
	TickCount        int64           `json:"tickCount"`
	LastTick         int64           `json:"lastTick"`
}

// ToPhysicsVector projects a physics.RouteState into its wire shape.
func ToPhysicsVector(s physics.RouteState) PhysicsVector {
	return PhysicsVector{
		RouteID:          s.RouteID,
		Mode:             s.Mode.String(),
		Pressure:         s.Pressure,
		PreviousPressure: s.PreviousPressure,
		ScarTissue:       s.ScarTissue,
		Momentum:         s.Momentum,
		Resistance:       s.Resistance,
		TickCount:        s.TickCount,
		LastTick:         s.LastUpdatedAt,
	}
}

// ToRouteState reconstructs a physics.RouteState from its wire shape. An
// unrecognized Mode string falls back to Bootstrap — callers should treat
// that as "never transmit an invalid mode" rather than rely on recovery.
func (v PhysicsVector) ToRouteState() physics.RouteState {
	return physics.RouteState{
		RouteID:          v.RouteID,
		Mode:             modeFromString(v.Mode),
		Pressure:         v.Pressure,
		PreviousPressure: v.PreviousPressure,
		ScarTissue:       v.ScarTissue,
		Momentum:         v.Momentum,
		Resistance:       v.Resistance,
		TickCount:        v.TickCount,
		LastUpdatedAt:    v.LastTick,
	}
}

func modeFromString(s string) physics.Mode {
	switch s {
	case "OPERATIONAL":
		return physics.Operational
	case "CIRCUIT_BREAKER":
		return physics.CircuitBreaker
	default:
		return physics.Bootstrap
	}
}
