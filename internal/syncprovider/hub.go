package syncprovider

import (
	"encoding/json"
	"sync"

	"atrion/internal/atrionlog"

	"github.com/gorilla/websocket"
)

// hub maintains the set of connected websocket peers and fans a
// syncMessage out to all of them whenever a local write happens. Grounded
// on broadcast/server.go's Hub.run: register/unregister channels plus a
// buffered per-client send channel so one slow peer can't stall the
// others (a full send buffer just drops that peer's copy of this
// message — it will catch up on the next write for that route, since
// LWW means an intermediate miss is harmless).
type hub struct {
	log atrionlog.Logger

	mu      sync.Mutex
	clients map[*peerConn]struct{}

	register   chan *peerConn
	unregister chan *peerConn
	broadcast  chan syncMessage

	onRemoteMessage func(syncMessage)
}

func newHub(log atrionlog.Logger, onRemoteMessage func(syncMessage)) *hub {
	if log == nil {
		log = atrionlog.NoopLogger
	}
	h := &hub{
		log:             log,
		clients:         make(map[*peerConn]struct{}),
		register:        make(chan *peerConn),
		unregister:      make(chan *peerConn),
		broadcast:       make(chan syncMessage, 256),
		onRemoteMessage: onRemoteMessage,
	}
	go h.run()
	return h
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				h.log.Warnf("syncprovider: marshal broadcast message: %v", err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					// Slow peer: drop this tick's message rather than block
					// the whole hub. LWW means a missed intermediate write
					// is harmless; the peer catches up on the next one.
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish enqueues msg for fan-out to every connected peer. Non-blocking:
// if the broadcast queue itself is saturated, the message is dropped
// rather than stalling the caller (the synchronous write path must never
// block on network fan-out, per spec.md §6's "fire-and-forget" sync
// policy).
func (h *hub) Publish(msg syncMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warnf("syncprovider: broadcast queue saturated, dropping update for %s", msg.RouteID)
	}
}

// peerConn is one connected websocket peer: a thin wrapper pairing the
// connection with its outbound send buffer, mirroring broadcast/server.go's
// Client.
type peerConn struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

func (c *peerConn) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg syncMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed messages are ignored per spec.md §6's "graceful
			// degradation", not treated as a connection error.
			c.hub.log.Warnf("syncprovider: malformed sync message ignored: %v", err)
			continue
		}
		if c.hub.onRemoteMessage != nil {
			c.hub.onRemoteMessage(msg)
		}
	}
}

func (c *peerConn) writePump() {
	defer c.conn.Close()
	for {
		msg, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(msg)
		if err := w.Close(); err != nil {
			return
		}
	}
}
