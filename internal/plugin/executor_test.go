package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// scriptPlugin writes a shell script plugin into a temp dir.
func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	scriptPath := filepath.Join(tmpDir, name+".sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Actions:    []string{"execute"},
		},
		Path:       tmpDir,
		Executable: scriptPath,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, "test-plugin", `#!/bin/sh
echo '{"success":true,"data":{"message":"hello world"}}'
`)

	request := &Request{
		Action:  "execute",
		Gesture: "zoom",
		Config:  json.RawMessage(`{"key":"value"}`),
		Params:  json.RawMessage(`{"type":"zoom","delta":40}`),
	}

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, request)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("expected message 'hello world', got %v", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	// Echo the request back inside the response.
	plugin := scriptPlugin(t, "echo-plugin", `#!/bin/sh
INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	request := &Request{
		Action:  "execute",
		Gesture: "pan",
		Config:  json.RawMessage(`{"setting":"enabled"}`),
		Params:  json.RawMessage(`{"type":"pan","dx":0,"dy":40}`),
	}

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, request)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received struct {
			Action  string `json:"action"`
			Gesture string `json:"gesture"`
			Params  struct {
				Type string `json:"type"`
				DY   int    `json:"dy"`
			} `json:"params"`
		} `json:"received"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}

	if data.Received.Action != "execute" {
		t.Errorf("expected action 'execute', got %q", data.Received.Action)
	}
	if data.Received.Gesture != "pan" {
		t.Errorf("expected gesture 'pan', got %q", data.Received.Gesture)
	}
	if data.Received.Params.Type != "pan" || data.Received.Params.DY != 40 {
		t.Errorf("event params not passed through: %+v", data.Received.Params)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := scriptPlugin(t, "slow-plugin", `#!/bin/sh
sleep 10
echo '{"success":true}'
`)

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, &Request{Action: "execute", Gesture: "rotate"})
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout error, got: %v", err)
	}
}

func TestExecutor_ContextCancelled(t *testing.T) {
	plugin := scriptPlugin(t, "slow-plugin", `#!/bin/sh
sleep 10
echo '{"success":true}'
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewExecutor(5*time.Second).Execute(ctx, plugin, &Request{Action: "execute"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	plugin := scriptPlugin(t, "error-plugin", `#!/bin/sh
echo '{"success":false,"error":"something went wrong"}'
`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "execute", Gesture: "zoom"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if response.Success {
		t.Errorf("expected success=false, got true")
	}
	if response.Error != "something went wrong" {
		t.Errorf("expected error 'something went wrong', got %q", response.Error)
	}
}

func TestExecutor_Execute_InvalidJSON(t *testing.T) {
	plugin := scriptPlugin(t, "bad-plugin", `#!/bin/sh
echo 'not valid json'
`)

	if _, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "execute"}); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	plugin := scriptPlugin(t, "exit-plugin", `#!/bin/sh
echo "Error: something failed" >&2
exit 1
`)

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: "execute"})
	if err == nil {
		t.Fatal("expected error for non-zero exit, got nil")
	}
	if !strings.Contains(err.Error(), "something failed") {
		t.Errorf("expected stderr in error, got: %v", err)
	}
}

func TestNewExecutor(t *testing.T) {
	if got := NewExecutor(3 * time.Second).Timeout(); got != 3*time.Second {
		t.Errorf("expected timeout 3s, got %s", got)
	}
	if got := NewExecutor(0).Timeout(); got != DefaultTimeout {
		t.Errorf("expected default timeout, got %s", got)
	}
}
