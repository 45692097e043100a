package app

import (
	"context"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/gesturecast/internal/capture"
	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/hand"
	"github.com/ayusman/gesturecast/internal/metrics"
)

// runPipeline reads frames at the idle rate until motion appears, then at the
// active rate until IdleTimeout passes without motion. Each frame is handled by
// processFrame.
func (a *App) runPipeline(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := a.clock.NewTicker(frameInterval(capture.IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			metrics.FramesSkippedTotal.WithLabelValues("capture_error").Inc()
			slog.Debug("Error reading frame", "error", err)
			continue
		}

		wasActive := a.active
		a.processFrame(frame)
		frame.Close()

		if a.active != wasActive {
			fps := capture.IdleFPS
			if a.active {
				fps = capture.ActiveFPS
			}
			a.camera.SetFPS(fps)
			ticker.Reset(frameInterval(fps))
		}
	}
}

// processFrame runs one frame through motion gating, detection, extraction and
// recognition. It must only be called from the pipeline goroutine.
func (a *App) processFrame(frame *gocv.Mat) {
	now := a.clock.Now()
	a.applyPending()
	a.keepLatest(frame)

	if !a.Enabled() {
		metrics.FramesSkippedTotal.WithLabelValues("disabled").Inc()
		return
	}

	moved, changed := a.motion.Check(frame)
	switch {
	case moved:
		a.lastMotion = now
		if !a.active {
			a.active = true
			slog.Debug("Switched to active capture", "changed", changed)
		}
	case a.active && now.Sub(a.lastMotion) > a.idleTimeout:
		a.active = false
		slog.Debug("Switched to idle capture")
	}

	// Gestures in progress stay pending while idle; only absent hands end them.
	if !a.active {
		metrics.FramesSkippedTotal.WithLabelValues("no_motion").Inc()
		return
	}

	hands, err := a.detector.Detect(frame)
	if err != nil {
		metrics.FramesSkippedTotal.WithLabelValues("detect_error").Inc()
		slog.Warn("Hand detection failed", "error", err)
		return
	}

	metrics.FramesProcessedTotal.Inc()
	metrics.HandsPerFrame.Observe(float64(len(hands)))

	obs := hand.Extract(hands, frame.Cols(), frame.Rows())
	for _, e := range a.recognizer.Process(obs, now) {
		a.queue.Enqueue(e)
		metrics.GestureEventsTotal.WithLabelValues(string(e.Kind)).Inc()
		slog.Debug("Gesture recognized", "event", e.String())
	}
	metrics.EventQueueDepth.Set(float64(a.queue.Len()))
}

// applyPending hands requested threshold changes and resets to the recognizer.
func (a *App) applyPending() {
	a.mu.Lock()
	pending := a.pending
	reset := a.resetNeeded
	a.pending = nil
	a.resetNeeded = false
	a.mu.Unlock()

	if pending != nil {
		a.recognizer.SetThresholds(*pending)
	}
	if reset {
		a.recognizer.Reset()
	}
}

func (a *App) keepLatest(frame *gocv.Mat) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()
	frame.CopyTo(&a.latest)
}

func (a *App) states() gesture.States {
	return a.recognizer.States()
}

func frameInterval(fps int) time.Duration {
	return time.Second / time.Duration(fps)
}
