package syncprovider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atrion/internal/atrionlog"
	"atrion/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(atrionlog.NoopLogger, DefaultSyncChannel)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHandleStateRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	client := NewClient(ClientOptions{BaseURL: ts.URL})

	v := state.PhysicsVector{RouteID: "checkout", Mode: "OPERATIONAL", LastTick: 1}
	require.NoError(t, client.UpdateVector(context.Background(), v))

	got, ok, err := client.GetVector(context.Background(), "checkout")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "checkout", got.RouteID)
	assert.Equal(t, int64(1), got.LastTick)
}

func TestHandleStateMissingReturns404(t *testing.T) {
	_, ts := newTestServer(t)
	client := NewClient(ClientOptions{BaseURL: ts.URL})

	_, ok, err := client.GetVector(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandleGetVectorRejectsUnknownPath(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/not-a-route", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleStateDelete(t *testing.T) {
	_, ts := newTestServer(t)
	client := NewClient(ClientOptions{BaseURL: ts.URL})

	require.NoError(t, client.UpdateVector(context.Background(), state.PhysicsVector{RouteID: "checkout", LastTick: 1}))
	require.NoError(t, client.DeleteVector(context.Background(), "checkout"))

	_, ok, err := client.GetVector(context.Background(), "checkout")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandleListRoutesReturnsKnownRoutes(t *testing.T) {
	s, ts := newTestServer(t)
	require.NoError(t, s.store.UpdateVector(context.Background(), state.PhysicsVector{RouteID: "checkout", LastTick: 1}))

	client := NewClient(ClientOptions{BaseURL: ts.URL})
	routes, err := client.ListRoutes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"checkout"}, routes)
}

func TestWebsocketBroadcastsUpdatesToSubscribers(t *testing.T) {
	_, ts := newTestServer(t)
	writer := NewClient(ClientOptions{BaseURL: ts.URL})
	subscriber := NewClient(ClientOptions{BaseURL: ts.URL})

	require.NoError(t, subscriber.Connect(context.Background()))
	defer subscriber.Disconnect(context.Background())

	received := make(chan state.PhysicsVector, 1)
	_, err := subscriber.Subscribe(context.Background(), func(v state.PhysicsVector) {
		received <- v
	})
	require.NoError(t, err)

	// Give the websocket registration a moment to land in the hub before
	// publishing, since registration happens on a background goroutine.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, writer.UpdateVector(context.Background(), state.PhysicsVector{RouteID: "checkout", LastTick: 1}))

	select {
	case v := <-received:
		assert.Equal(t, "checkout", v.RouteID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for websocket broadcast")
	}
}
