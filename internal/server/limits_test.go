package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/ayusman/gesturecast/internal/broadcast"
)

func TestConnectionLimits_Global(t *testing.T) {
	l := NewConnectionLimits(2, 0, 0, 0)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		if ok, reason := l.Acquire(ip); !ok {
			t.Fatalf("Acquire(%s) rejected: %s", ip, reason)
		}
	}
	if ok, reason := l.Acquire("10.0.0.3"); ok || reason != LimitReasonGlobal {
		t.Errorf("Acquire() = %v, %q; want global limit", ok, reason)
	}

	l.Release("10.0.0.1")
	if ok, _ := l.Acquire("10.0.0.3"); !ok {
		t.Error("expected a slot after Release")
	}
	if l.Current() != 2 {
		t.Errorf("Current() = %d, want 2", l.Current())
	}
}

func TestConnectionLimits_PerIP(t *testing.T) {
	l := NewConnectionLimits(0, 1, 0, 0)

	if ok, _ := l.Acquire("10.0.0.1"); !ok {
		t.Fatal("first connection rejected")
	}
	if ok, reason := l.Acquire("10.0.0.1"); ok || reason != LimitReasonPerIP {
		t.Errorf("Acquire() = %v, %q; want per-IP limit", ok, reason)
	}
	if ok, _ := l.Acquire("10.0.0.2"); !ok {
		t.Error("another address should not be limited")
	}

	// A rejected attempt holds nothing.
	if l.Current() != 2 {
		t.Errorf("Current() = %d, want 2", l.Current())
	}
}

func TestConnectionLimits_Rate(t *testing.T) {
	l := NewConnectionLimits(0, 0, 0.001, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := l.Acquire("10.0.0.1"); !ok {
			t.Fatalf("connection %d rejected within burst", i)
		}
		l.Release("10.0.0.1")
	}
	if ok, reason := l.Acquire("10.0.0.1"); ok || reason != LimitReasonRate {
		t.Errorf("Acquire() = %v, %q; want rate limit", ok, reason)
	}
}

func TestConnectionLimits_ReleaseUnknown(t *testing.T) {
	l := NewConnectionLimits(1, 1, 0, 0)
	l.Release("10.0.0.9")
	if l.Current() != 0 {
		t.Errorf("Current() = %d, want 0", l.Current())
	}
}

func TestRemoteIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "192.168.1.7:51234"
	if got := remoteIP(r); got != "192.168.1.7" {
		t.Errorf("remoteIP() = %q", got)
	}

	r.RemoteAddr = "pipe"
	if got := remoteIP(r); got != "pipe" {
		t.Errorf("remoteIP() = %q", got)
	}
}

func TestWebSocket_RejectsOverLimit(t *testing.T) {
	reg := broadcast.NewRegistry()
	ts := httptest.NewServer(New(Config{Registry: reg, Limits: NewConnectionLimits(1, 0, 0, 0)}))
	defer ts.Close()

	dial(t, ts)
	waitForClients(t, reg, 1)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected the second subscriber to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("response = %v, want 429", resp)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}
