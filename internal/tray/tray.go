// Package tray provides a system tray menu for GestureCast: a recognition
// toggle, the last broadcast gesture and the subscriber count.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/gesturecast/internal/gesture"
)

const clientRefresh = 2 * time.Second

// Tray mirrors recognizer state in the menu bar. It is a broadcast sink, so
// it only ever observes events and never feeds back into recognition.
type Tray struct {
	mu         sync.RWMutex
	enabled    bool
	last       string
	clients    func() int
	onToggle   func(enabled bool) error
	onSettings func()
	onQuit     func()

	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuClients     *systray.MenuItem
	stop            chan struct{}
}

// New creates a Tray showing the given recognition state.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled, stop: make(chan struct{})}
}

// OnToggle sets the callback run when the user flips recognition. If it
// returns an error the menu keeps the previous state.
func (t *Tray) OnToggle(fn func(enabled bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback for the settings item.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// CountClients sets the function polled for the subscriber count.
func (t *Tray) CountClients(fn func() int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients = fn
}

// Run shows the tray and blocks until Quit. It must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("GestureCast")
	systray.SetTooltip("GestureCast gesture stream")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture recognition")
	systray.AddSeparator()
	t.menuLastGesture = systray.AddMenuItem(lastTitle(t.last), "Last broadcast gesture")
	t.menuLastGesture.Disable()
	t.menuClients = systray.AddMenuItem(clientsTitle(0), "Connected subscribers")
	t.menuClients.Disable()
	t.mu.Unlock()

	systray.AddSeparator()
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit GestureCast")

	go func() {
		ticker := time.NewTicker(clientRefresh)
		defer ticker.Stop()

		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.toggle()
			case <-menuSettings.ClickedCh:
				if settings, _ := t.hooks(); settings != nil {
					go settings()
				}
			case <-menuQuit.ClickedCh:
				if _, quit := t.hooks(); quit != nil {
					quit()
				}
				systray.Quit()
				return
			case <-ticker.C:
				t.refreshClients()
			case <-t.stop:
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	close(t.stop)
}

// Handle records the last broadcast gesture.
func (t *Tray) Handle(e gesture.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = e.String()
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastTitle(t.last))
	}
}

// LastGesture returns the label of the last broadcast gesture.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Enabled returns the recognition state shown in the menu.
func (t *Tray) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func (t *Tray) toggle() {
	t.mu.RLock()
	next := !t.enabled
	fn := t.onToggle
	t.mu.RUnlock()

	// Called outside the lock; the callback may take a while.
	if fn != nil {
		if err := fn(next); err != nil {
			return
		}
	}

	t.mu.Lock()
	t.enabled = next
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(next))
	}
	t.mu.Unlock()
}

func (t *Tray) refreshClients() {
	t.mu.RLock()
	fn := t.clients
	item := t.menuClients
	t.mu.RUnlock()

	if fn != nil && item != nil {
		item.SetTitle(clientsTitle(fn()))
	}
}

func (t *Tray) hooks() (settings, quit func()) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onSettings, t.onQuit
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Recognition on"
	}
	return "○ Recognition off"
}

func lastTitle(last string) string {
	if last == "" {
		return "Last: none"
	}
	return "Last: " + last
}

func clientsTitle(n int) string {
	if n == 1 {
		return "1 subscriber"
	}
	return fmt.Sprintf("%d subscribers", n)
}
