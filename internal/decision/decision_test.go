package decision

import (
	"fmt"
	"testing"

	"atrion/internal/physics"

	"github.com/stretchr/testify/assert"
)

func operationalState(resistance float64) physics.RouteState {
	return physics.RouteState{Mode: physics.Operational, Resistance: resistance}
}

func TestDecideRejectsCircuitBreaker(t *testing.T) {
	state := physics.RouteState{Mode: physics.CircuitBreaker, Resistance: 10}
	d := Decide(state, 1000)
	assert.False(t, d.Allow)
	assert.Equal(t, reasonBreakerOpen, d.Reason)
}

func TestDecideRejectsOnEquality(t *testing.T) {
	d := Decide(operationalState(50), 50)
	assert.False(t, d.Allow, "voltage == resistance must reject")
}

func TestDecideAdmitsWhenVoltageExceedsResistance(t *testing.T) {
	d := Decide(operationalState(50), 50.01)
	assert.True(t, d.Allow)
	assert.Equal(t, reasonOK, d.Reason)
}

func TestDecideRejectsBelowResistance(t *testing.T) {
	d := Decide(operationalState(50), 10)
	assert.False(t, d.Allow)
	assert.Equal(t, fmt.Sprintf("Insufficient voltage: V=%g ≤ R=%g", 10.0, 50.0), d.Reason)
}

func TestGuardFlagsNarrowAdmit(t *testing.T) {
	state := operationalState(100)
	narrow := Guard(state, 110) // 110 < 100/0.8=125 -> soft warning
	assert.True(t, narrow.Allow)
	assert.True(t, narrow.SoftWarning)

	comfortable := Guard(state, 200)
	assert.True(t, comfortable.Allow)
	assert.False(t, comfortable.SoftWarning)
}

func TestGuardNeverWarnsOnRejection(t *testing.T) {
	state := physics.RouteState{Mode: physics.CircuitBreaker, Resistance: 10}
	g := Guard(state, 1000)
	assert.False(t, g.Allow)
	assert.False(t, g.SoftWarning)
}
