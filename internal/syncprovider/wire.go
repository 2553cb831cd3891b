// Package syncprovider is the network state.Provider implementation
// spec.md §6 describes: a small REST surface for the synchronous half of
// the contract (GetVector/DeleteVector/ListRoutes) and a websocket
// broadcast hub for the push half (UpdateVector fans out to every other
// connected node, and Subscribe receives those fan-outs). Grounded
// directly on yoghaf-market-indikator/internal/broadcast/server.go's
// Hub/Client (register/unregister channels, writePump/readPump) — the
// closest possible transplant of the teacher's own fan-out code,
// repurposed from "broadcast market snapshots to browser clients" to
// "broadcast PhysicsVector sync messages between engine nodes".
package syncprovider

import "atrion/internal/state"

// DefaultKeyPrefix is spec.md §6's documented default key layout prefix for
// Provider implementations that key a shared store directly (e.g. a future
// Redis-backed provider). This REST/WebSocket provider addresses routes by
// path segment instead (SPEC_FULL.md §6's `/v1/routes/{routeId}/vector`),
// so the prefix plays no role in its wire format — it is kept here so every
// Provider implementation in the module agrees on the documented constant.
//
// DefaultSyncChannel is the default broadcast channel name carried on every
// syncMessage.
const (
	DefaultKeyPrefix   = "atrion:state:"
	DefaultSyncChannel = "atrion:sync"
)

// syncMessage is the wire shape carried over the broadcast channel, per
// spec.md §6: `{ "routeId": <string>, "vector": <PhysicsVector> }`.
type syncMessage struct {
	Channel string              `json:"channel"`
	RouteID string              `json:"routeId"`
	Vector  state.PhysicsVector `json:"vector"`
}
