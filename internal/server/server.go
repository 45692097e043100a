// Package server exposes the gesture stream over HTTP: the /ws subscriber
// endpoint, health and metrics, the management API and optional static files.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/gesturecast/internal/broadcast"
	"github.com/ayusman/gesturecast/internal/plugin"
	"github.com/ayusman/gesturecast/internal/server/api"
)

// Config holds the server's collaborators. Only Registry is required; the
// management endpoints are mounted when their backing component is set.
type Config struct {
	StaticDir    string
	Registry     *broadcast.Registry
	PingInterval time.Duration
	Limits       *ConnectionLimits // optional subscriber caps

	Actions    api.ActionStore
	Plugins    *plugin.Manager
	Controller api.Controller
	Preview    FrameSource
}

// Server routes HTTP requests for GestureCast.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Registry == nil {
		config.Registry = broadcast.NewRegistry()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.Handle("/ws", NewSubscriberHandler(s.config.Registry, s.config.PingInterval, s.config.Limits))
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	if s.config.Actions != nil {
		var resolver api.PluginResolver
		if s.config.Plugins != nil {
			resolver = s.config.Plugins
		}
		actions := api.NewActionHandler(s.config.Actions, resolver)
		s.mux.Handle("/api/actions", actions)
		s.mux.Handle("/api/actions/", actions)
	}

	if s.config.Plugins != nil {
		s.mux.Handle("/api/plugins", api.NewPluginHandler(s.config.Plugins))
	}

	if s.config.Controller != nil {
		settings := api.NewSettingsHandler(s.config.Controller)
		s.mux.HandleFunc("/api/settings", settings.Settings)
		s.mux.HandleFunc("/api/recognition", settings.Recognition)
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	} else {
		s.mux.HandleFunc("/", s.handleBanner)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Clients: s.config.Registry.Count(),
		Uptime:  time.Since(s.start).Round(time.Second).String(),
	})
}

type bannerResponse struct {
	Status    string `json:"status"`
	WebSocket string `json:"websocket"`
}

// handleBanner answers GET / with where to subscribe.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, bannerResponse{
		Status:    "GestureCast gesture stream is running",
		WebSocket: "ws://" + r.Host + "/ws",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("HTTP server listening", "addr", ln.Addr().String())

	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on addr and serves until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops accepting requests and closes every subscriber.
func (s *Server) Shutdown(ctx context.Context) error {
	s.config.Registry.CloseAll()
	return s.http.Shutdown(ctx)
}
