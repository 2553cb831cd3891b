package syncprovider

import (
	"context"
	"encoding/json"
	"net/http"

	"atrion/internal/atrionlog"
	"atrion/internal/state"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the coordinator side of the network state.Provider: it holds
// the authoritative shared store (an in-memory state.MemoryProvider,
// itself already LWW-correct) behind the REST surface SPEC_FULL.md §6
// documents, and a websocket hub that pushes every PUT write out to
// subscribed peers, including writes the store's LWW rule dropped. One
// Server is meant to back a small cluster of engine nodes, each talking to
// it through a Client.
type Server struct {
	log     atrionlog.Logger
	channel string
	store   *state.MemoryProvider
	hub     *hub
	mux     *http.ServeMux
}

// NewServer constructs a Server. channel names the broadcast channel
// carried in every syncMessage; it defaults to DefaultSyncChannel.
func NewServer(log atrionlog.Logger, channel string) *Server {
	if log == nil {
		log = atrionlog.NoopLogger
	}
	if channel == "" {
		channel = DefaultSyncChannel
	}
	s := &Server{
		log:     log,
		channel: channel,
		store:   state.NewMemoryProvider(),
	}
	s.hub = newHub(log, s.applyRemote)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/routes", s.handleListRoutes)
	mux.HandleFunc("GET /v1/routes/{routeId}/vector", s.handleGetVector)
	mux.HandleFunc("PUT /v1/routes/{routeId}/vector", s.handlePutVector)
	mux.HandleFunc("DELETE /v1/routes/{routeId}/vector", s.handleDeleteVector)
	mux.HandleFunc("GET /v1/sync", s.handleWebsocket)
	s.mux = mux
	return s
}

// Handler returns the http.Handler serving the REST + websocket surface,
// for embedding in a larger mux or passing to http.ListenAndServe.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, _ := s.store.ListRoutes(r.Context())
	if routes == nil {
		routes = []string{}
	}
	writeJSON(w, http.StatusOK, routes)
}

func (s *Server) handleGetVector(w http.ResponseWriter, r *http.Request) {
	routeID := r.PathValue("routeId")
	v, ok, err := s.store.GetVector(r.Context(), routeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handlePutVector(w http.ResponseWriter, r *http.Request) {
	routeID := r.PathValue("routeId")
	var v state.PhysicsVector
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		// Malformed payloads degrade gracefully per spec.md §6 rather than
		// corrupting the store.
		http.Error(w, "malformed vector payload", http.StatusBadRequest)
		return
	}
	v.RouteID = routeID
	if err := s.store.UpdateVector(r.Context(), v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.hub.Publish(syncMessage{Channel: s.channel, RouteID: routeID, Vector: v})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteVector(w http.ResponseWriter, r *http.Request) {
	routeID := r.PathValue("routeId")
	if err := s.store.DeleteVector(r.Context(), routeID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("syncprovider: websocket upgrade failed: %v", err)
		return
	}
	peer := &peerConn{hub: s.hub, conn: conn, send: make(chan []byte, 256)}
	s.hub.register <- peer
	go peer.writePump()
	go peer.readPump()
}

// applyRemote is the hub's onRemoteMessage hook: a peer pushed a write
// through its own websocket connection (rather than PUT .../vector), so
// apply it to the store with the same LWW rule and re-broadcast it to
// every connected peer, the sender included.
func (s *Server) applyRemote(msg syncMessage) {
	if err := s.store.UpdateVector(context.Background(), msg.Vector); err != nil {
		return
	}
	s.hub.Publish(msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
