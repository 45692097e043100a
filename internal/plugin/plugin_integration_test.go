package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestPlugin_SystemControl_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	if runtime.GOOS != "darwin" {
		t.Skip("system-control plugin only works on macOS")
	}

	pluginDir := findPluginDir("system-control")
	if pluginDir == "" {
		t.Skip("system-control plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir))
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Resolve("system-control", "brightness")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// A zero delta is rejected without touching the system.
	req := &Request{
		Action:  "brightness",
		Gesture: "rotate",
		Params:  json.RawMessage(`{"type":"rotate","delta":0}`),
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if resp.Success {
		t.Error("expected failure for zero delta")
	}
}

func TestPlugin_Keyboard_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	if runtime.GOOS != "darwin" {
		t.Skip("keyboard plugin only works on macOS")
	}

	pluginDir := findPluginDir("keyboard")
	if pluginDir == "" {
		t.Skip("keyboard plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir))
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Resolve("keyboard", "shortcut")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// A pan with no displacement has no direction to bind.
	req := &Request{
		Action:  "shortcut",
		Gesture: "pan",
		Params:  json.RawMessage(`{"type":"pan","dx":0,"dy":0}`),
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if resp.Success {
		t.Error("expected failure for pan without direction")
	}
}

// findPluginDir returns the source directory of a bundled plugin whose binary has been built next to its manifest.
func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, "plugin.json")); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir
		}
	}
	return ""
}
