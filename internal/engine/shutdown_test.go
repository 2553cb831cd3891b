package engine_test

import (
	"context"
	"errors"
	"testing"

	"atrion/internal/engine"
	"atrion/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// updateFailingProvider wraps a real in-memory provider so Connect/GetVector
// behave normally but every UpdateVector call fails, letting tests exercise
// Shutdown's flush-error path without a fake that reimplements LWW.
type updateFailingProvider struct {
	state.Provider
}

var errUpdateFailed = errors.New("update vector failed")

func (updateFailingProvider) UpdateVector(ctx context.Context, v state.PhysicsVector) error {
	return errUpdateFailed
}

func TestShutdownFlushesEveryCachedRouteThenDisconnects(t *testing.T) {
	clock := newFakeClock()
	provider := state.NewMemoryProvider()
	e := engine.New(engine.Options{Clock: clock, Provider: provider, DefaultVoltage: 50})
	defer e.Close()
	require.NoError(t, e.Connect(context.Background()))

	for _, id := range []string{"checkout", "search"} {
		_, err := e.Route(context.Background(), id, samplePressureTelemetry(), engine.RouteOptions{})
		require.NoError(t, err)
	}

	require.NoError(t, e.Shutdown(context.Background()))
	assert.False(t, e.Connected())

	for _, id := range []string{"checkout", "search"} {
		v, ok, err := provider.GetVector(context.Background(), id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, id, v.RouteID)
	}
}

func TestShutdownStopsAtFirstFlushErrorWithoutDisconnecting(t *testing.T) {
	clock := newFakeClock()
	e := engine.New(engine.Options{
		Clock:          clock,
		Provider:       updateFailingProvider{Provider: state.NewMemoryProvider()},
		DefaultVoltage: 50,
	})
	defer e.Close()
	require.NoError(t, e.Connect(context.Background()))

	_, err := e.Route(context.Background(), "checkout", samplePressureTelemetry(), engine.RouteOptions{})
	require.NoError(t, err)

	err = e.Shutdown(context.Background())
	assert.ErrorIs(t, err, errUpdateFailed)
	assert.True(t, e.Connected(), "a failed flush must not disconnect when the caller's context still has time left")
}
