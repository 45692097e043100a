// Package main provides a keyboard plugin for macOS.
// It turns gesture events into keyboard shortcuts via AppleScript, picking a
// binding by the direction of the gesture.
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

// Keystroke is one key press. Either Key or KeyCode must be set.
type Keystroke struct {
	Key       string   `json:"key"`
	KeyCode   int      `json:"key_code"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// Bindings maps gesture directions to keystrokes. Zoom and rotate use
// positive/negative; pan uses left/right/up/down.
type Bindings map[string]Keystroke

// defaultBindings are browser-style shortcuts.
var defaultBindings = map[string]Bindings{
	"zoom": {
		"positive": {Key: "=", Modifiers: []string{"command"}},
		"negative": {Key: "-", Modifiers: []string{"command"}},
	},
	"rotate": {
		"positive": {Key: "]", Modifiers: []string{"command"}},
		"negative": {Key: "[", Modifiers: []string{"command"}},
	},
	"pan": {
		"left":  {KeyCode: 123},
		"right": {KeyCode: 124},
		"down":  {KeyCode: 125},
		"up":    {KeyCode: 126},
	},
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var (
		ks  Keystroke
		err error
	)
	switch req.Action {
	case "keystroke":
		// Fixed keystroke from config, regardless of direction.
		err = json.Unmarshal(req.Config, &ks)
	case "shortcut":
		ks, err = resolveShortcut(req)
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}
	if err == nil {
		err = pressKey(ks)
	}
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse()
}

// resolveShortcut picks the binding for the event's direction, preferring bindings
// from config over the defaults.
func resolveShortcut(req Request) (Keystroke, error) {
	var e Event
	if err := json.Unmarshal(req.Params, &e); err != nil {
		return Keystroke{}, fmt.Errorf("failed to parse params: %w", err)
	}

	dir := direction(e)
	if dir == "" {
		return Keystroke{}, fmt.Errorf("event %q has no direction", e.Type)
	}

	if len(req.Config) > 0 {
		var custom Bindings
		if err := json.Unmarshal(req.Config, &custom); err != nil {
			return Keystroke{}, fmt.Errorf("failed to parse config: %w", err)
		}
		if ks, ok := custom[dir]; ok {
			return ks, nil
		}
	}

	ks, ok := defaultBindings[e.Type][dir]
	if !ok {
		return Keystroke{}, fmt.Errorf("no binding for %s %s", e.Type, dir)
	}
	return ks, nil
}

// direction names the dominant direction of an event.
func direction(e Event) string {
	switch e.Type {
	case "zoom", "rotate":
		switch {
		case e.Delta > 0:
			return "positive"
		case e.Delta < 0:
			return "negative"
		}
	case "pan":
		if e.DX == 0 && e.DY == 0 {
			return ""
		}
		if abs(e.DX) >= abs(e.DY) {
			if e.DX > 0 {
				return "right"
			}
			return "left"
		}
		if e.DY > 0 {
			return "down"
		}
		return "up"
	}
	return ""
}

func pressKey(ks Keystroke) error {
	if ks.Key == "" && ks.KeyCode == 0 {
		return fmt.Errorf("key is required")
	}
	return runAppleScript(buildKeystrokeScript(ks))
}

// buildKeystrokeScript generates an AppleScript for the given keystroke.
func buildKeystrokeScript(ks Keystroke) string {
	press := fmt.Sprintf(`keystroke "%s"`, ks.Key)
	if ks.Key == "" {
		press = fmt.Sprintf("key code %d", ks.KeyCode)
	}

	var appleModifiers []string
	for _, mod := range ks.Modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to %s`, press)
	}
	return fmt.Sprintf(`tell application "System Events" to %s using {%s}`, press, strings.Join(appleModifiers, ", "))
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
func writeSuccessResponse() {
	resp := Response{
		Success: true,
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
