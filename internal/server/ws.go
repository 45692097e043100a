package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/gesturecast/internal/broadcast"
	"github.com/ayusman/gesturecast/internal/metrics"
)

const (
	DefaultPingInterval = 30 * time.Second
	pingWriteWait       = 5 * time.Second
	maxClientMessage    = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // subscribers are local apps and LAN peers
	},
}

// SubscriberHandler upgrades /ws requests and registers the connection for
// gesture broadcasts. Client messages are read and discarded so that closes
// and keep-alives are observed.
type SubscriberHandler struct {
	registry     *broadcast.Registry
	pingInterval time.Duration
	limits       *ConnectionLimits
}

// NewSubscriberHandler creates a SubscriberHandler. A non-positive
// pingInterval falls back to DefaultPingInterval; nil limits admit everyone.
func NewSubscriberHandler(registry *broadcast.Registry, pingInterval time.Duration, limits *ConnectionLimits) *SubscriberHandler {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &SubscriberHandler{registry: registry, pingInterval: pingInterval, limits: limits}
}

func (h *SubscriberHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.limits != nil {
		ip := remoteIP(r)
		if ok, reason := h.limits.Acquire(ip); !ok {
			metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
			slog.Warn("Subscriber rejected", "remote", r.RemoteAddr, "reason", string(reason))
			http.Error(w, "Too many connections", http.StatusTooManyRequests)
			return
		}
		defer h.limits.Release(ip)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		slog.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	metrics.WebSocketConnectionsTotal.WithLabelValues("accepted").Inc()

	client := h.registry.Add(conn)
	log := slog.With("client_id", client.ID, "remote", r.RemoteAddr)
	log.Info("Subscriber connected", "clients", h.registry.Count())

	done := make(chan struct{})
	defer func() {
		close(done)
		if h.registry.Remove(client.ID) {
			client.Close()
		}
		log.Info("Subscriber disconnected", "clients", h.registry.Count())
	}()

	go h.keepAlive(client, done)

	// A missed pong window is treated like a read error.
	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Subscriber read error", "error", err)
			}
			return
		}
	}
}

func (h *SubscriberHandler) keepAlive(client *broadcast.Client, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.Ping(time.Now().Add(pingWriteWait)); err != nil {
				slog.Debug("Ping failed", "client_id", client.ID, "error", err)
				if h.registry.Remove(client.ID) {
					client.Close()
				}
				return
			}
		}
	}
}
