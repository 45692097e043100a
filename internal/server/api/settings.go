package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ayusman/gesturecast/internal/gesture"
)

// Controller is the running recognizer as seen by the settings endpoints.
type Controller interface {
	Thresholds() gesture.Thresholds
	SetThresholds(t gesture.Thresholds) error
	Enabled() bool
	SetEnabled(enabled bool) error
}

// SettingsHandler serves /api/settings and /api/recognition.
type SettingsHandler struct {
	ctrl Controller
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(ctrl Controller) *SettingsHandler {
	return &SettingsHandler{ctrl: ctrl}
}

type settingsResponse struct {
	Thresholds         gesture.Thresholds `json:"thresholds"`
	RecognitionEnabled bool               `json:"recognition_enabled"`
}

type recognitionRequest struct {
	Enabled *bool `json:"enabled"`
}

type recognitionResponse struct {
	Enabled bool `json:"enabled"`
}

// Settings handles GET and PUT /api/settings. PUT accepts a partial threshold
// profile; omitted fields keep their current value.
func (h *SettingsHandler) Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.current())
	case http.MethodPut:
		t := h.ctrl.Thresholds()
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := t.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.ctrl.SetThresholds(t); err != nil {
			slog.Error("Failed to apply thresholds", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save thresholds")
			return
		}
		writeJSON(w, http.StatusOK, h.current())
	default:
		methodNotAllowed(w)
	}
}

// Recognition handles GET and POST /api/recognition.
func (h *SettingsHandler) Recognition(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, recognitionResponse{Enabled: h.ctrl.Enabled()})
	case http.MethodPost:
		var req recognitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		if err := h.ctrl.SetEnabled(*req.Enabled); err != nil {
			// The toggle is live even when it could not be saved.
			slog.Warn("Recognition toggle not persisted", "error", err)
		}
		writeJSON(w, http.StatusOK, recognitionResponse{Enabled: h.ctrl.Enabled()})
	default:
		methodNotAllowed(w)
	}
}

func (h *SettingsHandler) current() settingsResponse {
	return settingsResponse{
		Thresholds:         h.ctrl.Thresholds(),
		RecognitionEnabled: h.ctrl.Enabled(),
	}
}
