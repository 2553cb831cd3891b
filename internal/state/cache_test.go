package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutGetDelete(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("r1")
	assert.False(t, ok)

	c.Put(PhysicsVector{RouteID: "r1", LastTick: 1})
	v, ok := c.Get("r1")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.LastTick)

	c.Delete("r1")
	_, ok = c.Get("r1")
	assert.False(t, ok)
}

func TestCacheAllAndRouteIDsAndSize(t *testing.T) {
	c := NewCache()
	c.Put(PhysicsVector{RouteID: "a"})
	c.Put(PhysicsVector{RouteID: "b"})
	assert.Equal(t, 2, c.Size())
	assert.ElementsMatch(t, []string{"a", "b"}, c.RouteIDs())
	assert.Len(t, c.All(), 2)
}

func TestVectorRoundTripsThroughRouteState(t *testing.T) {
	rs := routeStateFixture()
	v := ToPhysicsVector(rs)
	back := v.ToRouteState()
	assert.Equal(t, rs, back)
}
