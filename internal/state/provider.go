package state

import "context"

// Provider is the pluggable state-storage contract spec.md §6 requires:
// any backend (in-memory, network, a future database) that can durably
// hold one PhysicsVector per route and resolve write conflicts by lastTick
// rather than wall-clock arrival order. Grounded on
// internal/state/loader.go's "cold start returns nothing, never panics"
// contract, generalized from a one-shot CSV read to a live read/write/watch
// interface.
type Provider interface {
	// Connect prepares the provider for use (opening sockets, etc). It must
	// be safe to call more than once; a provider that is already connected
	// treats it as a no-op.
	Connect(ctx context.Context) error

	// Disconnect releases any resources Connect acquired. Safe to call on an
	// already-disconnected provider.
	Disconnect(ctx context.Context) error

	// GetVector returns the vector for routeID, or ok=false if none is
	// known — a cold start, not an error.
	GetVector(ctx context.Context, routeID string) (vector PhysicsVector, ok bool, err error)

	// UpdateVector writes v, resolving conflicts against whatever is
	// currently stored by comparing LastTick: a write with a LastTick no
	// greater than the stored value's is silently dropped (last-write-wins,
	// spec.md §6's explicit conflict policy — ticks, not wall-clock, decide
	// precedence).
	UpdateVector(ctx context.Context, v PhysicsVector) error

	// DeleteVector removes routeID's vector, if any.
	DeleteVector(ctx context.Context, routeID string) error

	// ListRoutes returns every route ID the provider currently knows about.
	ListRoutes(ctx context.Context) ([]string, error)
}

// Subscriber is an optional capability a Provider may additionally
// implement: push-based notification of vector updates, instead of (or in
// addition to) polling GetVector. internal/syncprovider's websocket-backed
// provider implements this; the in-memory reference provider does not.
type Subscriber interface {
	// Subscribe registers fn to be called whenever any route's vector
	// changes. It returns an unsubscribe function.
	Subscribe(ctx context.Context, fn func(PhysicsVector)) (unsubscribe func(), err error)
}
