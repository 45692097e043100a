// Package app wires the recognition context together: camera frames are gated
// on motion, sent to the hand detector, reduced to observations and fed to the
// gesture recognizer. Released gestures are pushed onto the event queue.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"gocv.io/x/gocv"

	"github.com/ayusman/gesturecast/internal/capture"
	"github.com/ayusman/gesturecast/internal/detector"
	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/queue"
)

// DefaultIdleTimeout is how long the pipeline stays at the active rate after
// the last frame with motion.
const DefaultIdleTimeout = 2 * time.Second

// ErrAlreadyRunning is returned by Start when the pipeline is running.
var ErrAlreadyRunning = errors.New("pipeline already running")

// SettingsStore persists the runtime toggles changed through the App.
type SettingsStore interface {
	SetRecognitionEnabled(enabled bool) error
	SaveThresholds(t gesture.Thresholds) error
}

// Config holds the collaborators and tuning of an App.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Queue    *queue.Queue[gesture.Event]
	Settings SettingsStore // optional

	Thresholds      gesture.Thresholds
	MotionThreshold float64
	IdleTimeout     time.Duration
	Enabled         bool
	Clock           clockwork.Clock
}

// App runs the recognition pipeline. Only the pipeline goroutine touches the
// recognizer; other goroutines request changes which are applied at the next
// frame boundary.
type App struct {
	camera      capture.Camera
	detector    detector.Detector
	motion      *capture.MotionGate
	recognizer  *gesture.Recognizer
	queue       *queue.Queue[gesture.Event]
	settings    SettingsStore
	clock       clockwork.Clock
	idleTimeout time.Duration

	mu          sync.RWMutex
	enabled     bool
	thresholds  gesture.Thresholds
	pending     *gesture.Thresholds
	resetNeeded bool

	frameMu sync.Mutex
	latest  gocv.Mat

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// pipeline-goroutine state
	active     bool
	lastMotion time.Time
}

// New creates an App. The camera and detector are required.
func New(cfg Config) (*App, error) {
	if cfg.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if cfg.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if cfg.Queue == nil {
		cfg.Queue = queue.New[gesture.Event]()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	return &App{
		camera:      cfg.Camera,
		detector:    cfg.Detector,
		motion:      capture.NewMotionGate(cfg.MotionThreshold),
		recognizer:  gesture.NewRecognizer(cfg.Thresholds),
		queue:       cfg.Queue,
		settings:    cfg.Settings,
		clock:       cfg.Clock,
		idleTimeout: cfg.IdleTimeout,
		enabled:     cfg.Enabled,
		thresholds:  cfg.Thresholds,
		latest:      gocv.NewMat(),
	}, nil
}

// Queue returns the event queue the pipeline produces into.
func (a *App) Queue() *queue.Queue[gesture.Event] {
	return a.queue
}

// Enabled reports whether frames are being recognized.
func (a *App) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetEnabled turns recognition on or off and persists the choice. Turning it
// off discards any gesture in progress.
func (a *App) SetEnabled(enabled bool) error {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	if changed && !enabled {
		a.resetNeeded = true
	}
	a.mu.Unlock()

	if changed {
		slog.Info("Recognition toggled", "enabled", enabled)
	}
	if a.settings != nil {
		if err := a.settings.SetRecognitionEnabled(enabled); err != nil {
			return fmt.Errorf("persist recognition toggle: %w", err)
		}
	}
	return nil
}

// Thresholds returns the tuning the recognizer uses, including a change not
// yet applied.
func (a *App) Thresholds() gesture.Thresholds {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.thresholds
}

// SetThresholds validates and persists t. The recognizer picks it up on the
// next frame.
func (a *App) SetThresholds(t gesture.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if a.settings != nil {
		if err := a.settings.SaveThresholds(t); err != nil {
			return fmt.Errorf("persist thresholds: %w", err)
		}
	}

	a.mu.Lock()
	a.thresholds = t
	a.pending = &t
	a.mu.Unlock()

	slog.Info("Gesture thresholds updated", "pinch", t.Pinch, "min_pan", t.MinPan, "min_zoom", t.MinZoom, "min_rotation", t.MinRotation)
	return nil
}

// LatestJPEG encodes the most recent captured frame. It returns false before
// the first frame.
func (a *App) LatestJPEG() ([]byte, bool) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()

	if a.latest.Empty() {
		return nil, false
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, a.latest)
	if err != nil {
		slog.Debug("Failed to encode preview frame", "error", err)
		return nil, false
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, true
}

// Start opens the camera and runs the pipeline until ctx is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.done != nil {
		return ErrAlreadyRunning
	}
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	a.camera.SetFPS(capture.IdleFPS)

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(ctx, a.done)

	slog.Info("Recognition pipeline started", "enabled", a.Enabled())
	return nil
}

// Stop halts the pipeline and releases the camera, motion gate and detector.
func (a *App) Stop() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.done != nil {
		a.cancel()
		<-a.done
		a.done = nil
		a.cancel = nil
	}

	if err := a.camera.Close(); err != nil {
		slog.Warn("Error closing camera", "error", err)
	}
	a.motion.Close()
	if err := a.detector.Close(); err != nil {
		slog.Warn("Error closing detector", "error", err)
	}

	a.frameMu.Lock()
	a.latest.Close()
	a.latest = gocv.NewMat()
	a.frameMu.Unlock()

	slog.Info("Recognition pipeline stopped")
}
