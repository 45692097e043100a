package main

import (
	"strings"
	"testing"
)

func TestSteps(t *testing.T) {
	cfg := defaultConfig()

	tests := []struct {
		pixels int
		want   int
	}{
		{0, 0},
		{5, 1},
		{-5, -1},
		{40, 2},
		{-61, -3},
		{10000, 10},
		{-10000, -10},
	}

	for _, tt := range tests {
		if got := steps(tt.pixels, cfg); got != tt.want {
			t.Errorf("steps(%d) = %d, want %d", tt.pixels, got, tt.want)
		}
	}

	if got := steps(7, Config{}); got != 7 {
		t.Errorf("steps with zero config = %d, want 7", got)
	}
}

func TestRepeatKeyCode(t *testing.T) {
	script := repeatKeyCode(144, 3)

	if strings.Count(script, "key code 144") != 3 {
		t.Errorf("expected 3 key presses, got script:\n%s", script)
	}
	if !strings.HasPrefix(script, `tell application "System Events"`) || !strings.HasSuffix(script, "end tell") {
		t.Errorf("unexpected script framing:\n%s", script)
	}
}

func TestHandlersRejectEmptyEvents(t *testing.T) {
	for _, name := range []string{"volume", "brightness", "media"} {
		if _, err := actionHandlers[name](Event{}, defaultConfig()); err == nil {
			t.Errorf("%s: expected error for empty event", name)
		}
	}
}
