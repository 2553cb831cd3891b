package syncprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"atrion/internal/atrionlog"
	"atrion/internal/state"

	"github.com/gorilla/websocket"
)

// Client is the engine-side half of the network state.Provider: it talks
// REST to a Server for GetVector/UpdateVector/DeleteVector/ListRoutes, and
// maintains a websocket connection for Subscribe, so remote writes other
// nodes make reach this node without polling. It implements both
// state.Provider and state.Subscriber.
type Client struct {
	log     atrionlog.Logger
	baseURL string
	http    *http.Client

	mu          sync.Mutex
	connected   bool
	wsConn      *websocket.Conn
	subscribers []func(state.PhysicsVector)
	stopWS      chan struct{}
}

var (
	_ state.Provider   = (*Client)(nil)
	_ state.Subscriber = (*Client)(nil)
)

// ClientOptions configures NewClient.
type ClientOptions struct {
	BaseURL string // e.g. "http://coordinator:9090"
	Logger  atrionlog.Logger
	HTTP    *http.Client // defaults to a Client with a 5s timeout
}

// NewClient constructs a disconnected Client.
func NewClient(opts ClientOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = atrionlog.NoopLogger
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		log:     opts.Logger,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTP,
	}
}

// Connect opens the websocket connection used for Subscribe push updates.
// REST calls (GetVector/UpdateVector/...) work even before Connect, but
// without it Subscribe never receives anything — spec.md §6 names
// subscribe as optional push on top of the always-available poll surface.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/v1/sync"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("syncprovider: connect: %w", err)
	}
	c.wsConn = conn
	c.connected = true
	c.stopWS = make(chan struct{})
	go c.readLoop(conn, c.stopWS)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg syncMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warnf("syncprovider: malformed sync message ignored: %v", err)
			continue
		}
		c.mu.Lock()
		subs := append([]func(state.PhysicsVector){}, c.subscribers...)
		c.mu.Unlock()
		for _, fn := range subs {
			if fn != nil {
				fn(msg.Vector)
			}
		}
	}
}

// Disconnect closes the websocket connection, if any. Safe to call on an
// already-disconnected Client.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	close(c.stopWS)
	err := c.wsConn.Close()
	c.connected = false
	c.wsConn = nil
	return err
}

// Subscribe registers fn to be called whenever a remote sync message
// arrives over the websocket connection.
func (c *Client) Subscribe(ctx context.Context, fn func(state.PhysicsVector)) (func(), error) {
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	idx := len(c.subscribers) - 1
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.subscribers) {
			c.subscribers[idx] = nil
		}
	}, nil
}

func (c *Client) path(routeID string) string {
	return c.baseURL + "/v1/routes/" + routeID + "/vector"
}

// GetVector fetches routeID's vector over REST. A 404 is reported as a
// cold start (ok=false, err=nil), not an error.
func (c *Client) GetVector(ctx context.Context, routeID string) (state.PhysicsVector, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.path(routeID), nil)
	if err != nil {
		return state.PhysicsVector{}, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return state.PhysicsVector{}, false, fmt.Errorf("syncprovider: get %s: %w", routeID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return state.PhysicsVector{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return state.PhysicsVector{}, false, fmt.Errorf("syncprovider: get %s: status %d", routeID, resp.StatusCode)
	}
	var v state.PhysicsVector
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return state.PhysicsVector{}, false, fmt.Errorf("syncprovider: decode %s: %w", routeID, err)
	}
	return v, true, nil
}

// UpdateVector writes v over REST. The server applies the same LWW rule
// as state.MemoryProvider, so a write that loses the race is silently
// absorbed rather than erroring.
func (c *Client) UpdateVector(ctx context.Context, v state.PhysicsVector) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.path(v.RouteID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("syncprovider: update %s: %w", v.RouteID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("syncprovider: update %s: status %d", v.RouteID, resp.StatusCode)
	}
	return nil
}

// DeleteVector removes routeID's vector over REST.
func (c *Client) DeleteVector(ctx context.Context, routeID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.path(routeID), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("syncprovider: delete %s: %w", routeID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("syncprovider: delete %s: status %d", routeID, resp.StatusCode)
	}
	return nil
}

// ListRoutes fetches every known route ID over REST.
func (c *Client) ListRoutes(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/routes", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("syncprovider: list routes: %w", err)
	}
	defer resp.Body.Close()
	var routes []string
	if err := json.NewDecoder(resp.Body).Decode(&routes); err != nil {
		return nil, fmt.Errorf("syncprovider: decode route list: %w", err)
	}
	return routes, nil
}
