// Package main provides a system control plugin for macOS.
// Zoom gestures drive the volume, rotate gestures the screen brightness and pan
// gestures media playback, all via AppleScript.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Event is a gesture event in its wire format.
type Event struct {
	Type  string `json:"type"`
	DX    int    `json:"dx"`
	DY    int    `json:"dy"`
	Delta int    `json:"delta"`
}

// Config tunes how gesture magnitude maps to steps.
type Config struct {
	PixelsPerStep int `json:"pixels_per_step"`
	MaxSteps      int `json:"max_steps"`
}

func defaultConfig() Config {
	return Config{PixelsPerStep: 20, MaxSteps: 10}
}

// actionHandler performs an action for one gesture event.
type actionHandler func(e Event, c Config) (string, error)

// actionHandlers maps action names to their handler functions.
var actionHandlers = map[string]actionHandler{
	"volume":      volume,
	"volume-mute": func(Event, Config) (string, error) { return "mute toggled", volumeMute() },
	"brightness":  brightness,
	"media":       media,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	var e Event
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &e); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse params: %v", err))
			return
		}
	}

	cfg := defaultConfig()
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	result, err := handler(e, cfg)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse(result)
}

// steps converts a signed pixel displacement into a signed, clamped step count.
// Any non-zero displacement moves at least one step.
func steps(pixels int, c Config) int {
	if pixels == 0 {
		return 0
	}
	per := c.PixelsPerStep
	if per <= 0 {
		per = 1
	}
	n := pixels / per
	if n == 0 {
		n = 1
		if pixels < 0 {
			n = -1
		}
	}
	if c.MaxSteps > 0 {
		n = max(-c.MaxSteps, min(c.MaxSteps, n))
	}
	return n
}

// volume changes the output volume by 5% per step. Positive zoom deltas raise it.
func volume(e Event, c Config) (string, error) {
	n := steps(e.Delta, c)
	if n == 0 {
		return "", fmt.Errorf("delta is required")
	}
	script := fmt.Sprintf(`set volume output volume ((output volume of (get volume settings)) + %d)`, n*5)
	return fmt.Sprintf("volume %+d%%", n*5), runAppleScript(script)
}

// volumeMute toggles the system mute state.
func volumeMute() error {
	script := `set volume output muted (not (output muted of (get volume settings)))`
	return runAppleScript(script)
}

// brightness presses the brightness keys once per step. Positive rotate deltas brighten.
func brightness(e Event, c Config) (string, error) {
	n := steps(e.Delta, c)
	if n == 0 {
		return "", fmt.Errorf("delta is required")
	}
	code := 144 // brightness up
	if n < 0 {
		code = 145
		n = -n
	}
	return fmt.Sprintf("brightness key %d x%d", code, n), runAppleScript(repeatKeyCode(code, n))
}

// media maps horizontal pans to next/previous track and vertical pans to play/pause.
func media(e Event, _ Config) (string, error) {
	if e.DX == 0 && e.DY == 0 {
		return "", fmt.Errorf("pan displacement is required")
	}

	var code int
	var name string
	switch {
	case abs(e.DX) >= abs(e.DY) && e.DX > 0:
		code, name = 101, "next"
	case abs(e.DX) >= abs(e.DY):
		code, name = 98, "previous"
	default:
		code, name = 100, "play-pause"
	}
	return name, runAppleScript(repeatKeyCode(code, 1))
}

func repeatKeyCode(code, n int) string {
	var b strings.Builder
	b.WriteString("tell application \"System Events\"\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "\tkey code %d\n", code)
	}
	b.WriteString("end tell")
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(result string) {
	data, _ := json.Marshal(map[string]string{"result": result})
	resp := Response{
		Success: true,
		Data:    data,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
