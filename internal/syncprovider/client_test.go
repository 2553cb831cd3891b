package syncprovider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atrion/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDisconnectWithoutConnectIsNoop(t *testing.T) {
	c := NewClient(ClientOptions{BaseURL: "http://example.invalid"})
	assert.NoError(t, c.Disconnect(context.Background()))
}

func TestClientConnectTwiceIsNoop(t *testing.T) {
	_, ts := newTestServer(t)
	c := NewClient(ClientOptions{BaseURL: ts.URL})
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Disconnect(context.Background()))
}

func TestClientUpdateVectorSurfacesServerErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ClientOptions{BaseURL: ts.URL})
	err := c.UpdateVector(context.Background(), state.PhysicsVector{RouteID: "checkout", LastTick: 1})
	assert.Error(t, err)
}

func TestClientGetVectorSurfacesTransportErrors(t *testing.T) {
	c := NewClient(ClientOptions{BaseURL: "http://127.0.0.1:1"})
	_, _, err := c.GetVector(context.Background(), "checkout")
	assert.Error(t, err)
}

func TestClientUnsubscribeStopsDelivery(t *testing.T) {
	_, ts := newTestServer(t)
	writer := NewClient(ClientOptions{BaseURL: ts.URL})
	subscriber := NewClient(ClientOptions{BaseURL: ts.URL})
	require.NoError(t, subscriber.Connect(context.Background()))
	defer subscriber.Disconnect(context.Background())

	received := make(chan state.PhysicsVector, 4)
	unsubscribe, err := subscriber.Subscribe(context.Background(), func(v state.PhysicsVector) {
		received <- v
	})
	require.NoError(t, err)

	unsubscribe()

	require.NoError(t, writer.UpdateVector(context.Background(), state.PhysicsVector{RouteID: "checkout", LastTick: 1}))

	select {
	case <-received:
		t.Fatal("expected no delivery after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}
