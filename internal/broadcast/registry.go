// Package broadcast fans gesture events out to WebSocket subscribers.
//
// The Registry is shared between connection handlers, which add and remove
// clients, and the Broadcaster, which snapshots it once per event.
package broadcast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/gesturecast/internal/metrics"
)

// Conn is the subset of *websocket.Conn the broadcaster writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one registered subscriber. Writes are serialized per client.
type Client struct {
	ID          uuid.UUID
	ConnectedAt time.Time

	conn Conn
	mu   sync.Mutex
}

// Send writes one text frame, failing if it does not complete by deadline.
func (c *Client) Send(data []byte, deadline time.Time) error {
	return c.write(websocket.TextMessage, data, deadline)
}

// Ping writes a ping control frame.
func (c *Client) Ping(deadline time.Time) error {
	return c.write(websocket.PingMessage, nil, deadline)
}

func (c *Client) write(messageType int, data []byte, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Registry is the set of currently connected subscribers.
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[uuid.UUID]*Client)}
}

// Add registers conn under a fresh id.
func (r *Registry) Add(conn Conn) *Client {
	c := &Client{ID: uuid.New(), ConnectedAt: time.Now(), conn: conn}

	r.mu.Lock()
	r.clients[c.ID] = c
	n := len(r.clients)
	r.mu.Unlock()

	metrics.WebSocketConnectionsCurrent.Set(float64(n))
	return c
}

// Remove deregisters a client. It reports false if the client was already gone,
// so exactly one caller wins when a read error and a write failure race.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	_, ok := r.clients[id]
	delete(r.clients, id)
	n := len(r.clients)
	r.mu.Unlock()

	if ok {
		metrics.WebSocketConnectionsCurrent.Set(float64(n))
	}
	return ok
}

// Get returns a registered client.
func (r *Registry) Get(id uuid.UUID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Snapshot returns the clients registered at the time of the call.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Count returns the number of registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CloseAll closes and removes every client.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[uuid.UUID]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	metrics.WebSocketConnectionsCurrent.Set(0)
}
