package api

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/ayusman/gesturecast/internal/plugin"
)

// PluginCatalog lists and rescans installed plugins.
type PluginCatalog interface {
	Discover() error
	List() []*plugin.Plugin
}

// PluginHandler serves /api/plugins. GET lists installed plugins; POST rescans
// the plugin directory first. Concurrent rescans share one directory scan.
type PluginHandler struct {
	catalog PluginCatalog
	rescans singleflight.Group
}

func NewPluginHandler(catalog PluginCatalog) *PluginHandler {
	return &PluginHandler{catalog: catalog}
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

func (h *PluginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		_, err, shared := h.rescans.Do("discover", func() (any, error) {
			return nil, h.catalog.Discover()
		})
		if shared {
			slog.Debug("Joined in-flight plugin rescan")
		}
		if err != nil {
			slog.Error("Plugin rescan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to scan plugins")
			return
		}
	default:
		methodNotAllowed(w)
		return
	}

	plugins := h.catalog.List()
	resp := listPluginsResponse{Plugins: make([]pluginResponse, 0, len(plugins))}
	for _, p := range plugins {
		actions := p.Manifest.Actions
		if actions == nil {
			actions = []string{}
		}
		resp.Plugins = append(resp.Plugins, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Actions:     actions,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
