package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/plugin"
	"github.com/ayusman/gesturecast/internal/store"
)

// ActionStore is the persistence used by ActionHandler.
type ActionStore interface {
	Create(a *store.Action) error
	GetByID(id string) (*store.Action, error)
	List() ([]*store.Action, error)
	Update(a *store.Action) error
	Delete(id string) error
}

// PluginResolver checks that a binding names an installed plugin action.
type PluginResolver interface {
	Resolve(name, action string) (*plugin.Plugin, error)
}

// ActionHandler serves /api/actions and /api/actions/{id}.
type ActionHandler struct {
	actions ActionStore
	plugins PluginResolver
}

// NewActionHandler creates an ActionHandler. plugins may be nil, in which case
// bindings are not checked against installed plugins.
func NewActionHandler(actions ActionStore, plugins PluginResolver) *ActionHandler {
	return &ActionHandler{actions: actions, plugins: plugins}
}

func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/actions"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		methodNotAllowed(w)
	}
}

type actionRequest struct {
	Gesture    string          `json:"gesture"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type actionResponse struct {
	ID         string          `json:"id"`
	Gesture    gesture.Kind    `json:"gesture"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

func toActionResponse(a *store.Action) actionResponse {
	config := a.Config
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	return actionResponse{
		ID:         a.ID,
		Gesture:    a.Kind,
		PluginName: a.PluginName,
		ActionName: a.ActionName,
		Config:     config,
		Enabled:    a.Enabled,
		CreatedAt:  formatTime(a.CreatedAt),
	}
}

func (h *ActionHandler) list(w http.ResponseWriter) {
	actions, err := h.actions.List()
	if err != nil {
		slog.Error("Failed to list actions", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	resp := listActionsResponse{Actions: make([]actionResponse, 0, len(actions))}
	for _, a := range actions {
		resp.Actions = append(resp.Actions, toActionResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ActionHandler) get(w http.ResponseWriter, id string) {
	a, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toActionResponse(a))
}

func (h *ActionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	switch {
	case req.Gesture == "":
		writeError(w, http.StatusBadRequest, "gesture is required")
		return
	case req.PluginName == "":
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	case req.ActionName == "":
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}

	a := &store.Action{
		ID:         uuid.New().String(),
		Kind:       gesture.Kind(req.Gesture),
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    true,
	}
	if req.Enabled != nil {
		a.Enabled = *req.Enabled
	}

	if msg := h.check(a); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.actions.Create(a); err != nil {
		slog.Error("Failed to create action", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create action")
		return
	}

	slog.Info("Action bound", "action_id", a.ID, "kind", a.Kind, "plugin", a.PluginName, "action", a.ActionName)
	writeJSON(w, http.StatusCreated, toActionResponse(a))
}

func (h *ActionHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	a, ok := h.lookup(w, id)
	if !ok {
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Gesture != "" {
		a.Kind = gesture.Kind(req.Gesture)
	}
	if req.PluginName != "" {
		a.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		a.ActionName = req.ActionName
	}
	if req.Config != nil {
		a.Config = req.Config
	}
	if req.Enabled != nil {
		a.Enabled = *req.Enabled
	}

	if msg := h.check(a); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.actions.Update(a); err != nil {
		slog.Error("Failed to update action", "action_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(a))
}

func (h *ActionHandler) delete(w http.ResponseWriter, id string) {
	if err := h.actions.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		slog.Error("Failed to delete action", "action_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete action")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ActionHandler) lookup(w http.ResponseWriter, id string) (*store.Action, bool) {
	a, err := h.actions.GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return nil, false
		}
		slog.Error("Failed to get action", "action_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return nil, false
	}
	return a, true
}

// check returns a client-facing message when a binding is not usable.
func (h *ActionHandler) check(a *store.Action) string {
	if !a.Kind.Valid() {
		return fmt.Sprintf("gesture must be one of pan, zoom, rotate; got %q", a.Kind)
	}
	if len(a.Config) > 0 && !json.Valid(a.Config) {
		return "config must be valid JSON"
	}
	if h.plugins == nil {
		return ""
	}

	_, err := h.plugins.Resolve(a.PluginName, a.ActionName)
	switch {
	case errors.Is(err, plugin.ErrPluginNotFound):
		return fmt.Sprintf("plugin %q is not installed", a.PluginName)
	case errors.Is(err, plugin.ErrActionNotSupported):
		return fmt.Sprintf("plugin %q has no action %q", a.PluginName, a.ActionName)
	case err != nil:
		return err.Error()
	}
	return ""
}
