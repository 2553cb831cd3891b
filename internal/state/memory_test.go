package state

import (
	"context"
	"testing"

	"atrion/internal/numeric"
	"atrion/internal/physics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routeStateFixture() physics.RouteState {
	return physics.RouteState{
		RouteID:          "checkout",
		Mode:             physics.Operational,
		Pressure:         numeric.Vector3{X: 0.1, Y: 0.2, Z: 0.3},
		PreviousPressure: numeric.Vector3{X: 0.05, Y: 0.1, Z: 0.15},
		ScarTissue:       2.5,
		Momentum:         0.01,
		Resistance:       42.0,
		TickCount:        10,
		LastUpdatedAt:    1000,
	}
}

func TestMemoryProviderColdStartReturnsNoError(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	require.NoError(t, p.Connect(ctx))

	_, ok, err := p.GetVector(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryProviderUpdateAndGet(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	v := ToPhysicsVector(routeStateFixture())
	require.NoError(t, p.UpdateVector(ctx, v))

	got, ok, err := p.GetVector(ctx, "checkout")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v, got)
}

// TestLastWriteWinsByTick is scenario S6 from spec.md §8: a write with an
// older LastTick than what's stored must not clobber it.
func TestLastWriteWinsByTick(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	newer := PhysicsVector{RouteID: "checkout", Resistance: 100, LastTick: 10}
	older := PhysicsVector{RouteID: "checkout", Resistance: 5, LastTick: 3}

	require.NoError(t, p.UpdateVector(ctx, newer))
	require.NoError(t, p.UpdateVector(ctx, older))

	got, ok, err := p.GetVector(ctx, "checkout")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100.0, got.Resistance, "older write by tick must not win")
}

func TestLastWriteWinsRejectsEqualTick(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	first := PhysicsVector{RouteID: "checkout", Resistance: 100, LastTick: 10}
	second := PhysicsVector{RouteID: "checkout", Resistance: 999, LastTick: 10}

	require.NoError(t, p.UpdateVector(ctx, first))
	require.NoError(t, p.UpdateVector(ctx, second))

	got, _, err := p.GetVector(ctx, "checkout")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Resistance, "equal lastTick must not overwrite")
}

func TestDeleteVectorAndListRoutes(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	require.NoError(t, p.UpdateVector(ctx, PhysicsVector{RouteID: "a", LastTick: 1}))
	require.NoError(t, p.UpdateVector(ctx, PhysicsVector{RouteID: "b", LastTick: 1}))

	routes, err := p.ListRoutes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, routes)

	require.NoError(t, p.DeleteVector(ctx, "a"))
	routes, err = p.ListRoutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, routes)
}

func TestDisconnectThenReconnect(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	require.NoError(t, p.Connect(ctx))
	require.NoError(t, p.Disconnect(ctx))
	require.NoError(t, p.Connect(ctx))
}
