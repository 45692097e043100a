package gesture

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ayusman/gesturecast/internal/hand"
)

// Default thresholds, in pixels.
const (
	DefaultPinchThreshold    = 40.0
	DefaultMinPanPixels      = 20
	DefaultMinZoomPixels     = 20
	DefaultMinRotationPixels = 20
)

// Thresholds tunes when pinches start and when releases count as gestures.
type Thresholds struct {
	Pinch       float64 `json:"pinch_threshold"`
	MinPan      int     `json:"min_pan_pixels"`
	MinZoom     int     `json:"min_zoom_pixels"`
	MinRotation int     `json:"min_rotation_pixels"`
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pinch:       DefaultPinchThreshold,
		MinPan:      DefaultMinPanPixels,
		MinZoom:     DefaultMinZoomPixels,
		MinRotation: DefaultMinRotationPixels,
	}
}

// Validate checks that every threshold is positive or zero as appropriate.
func (t Thresholds) Validate() error {
	var errs []error
	if t.Pinch <= 0 {
		errs = append(errs, fmt.Errorf("pinch threshold must be positive, got %v", t.Pinch))
	}
	if t.MinPan < 0 {
		errs = append(errs, fmt.Errorf("min pan pixels must not be negative, got %d", t.MinPan))
	}
	if t.MinZoom < 0 {
		errs = append(errs, fmt.Errorf("min zoom pixels must not be negative, got %d", t.MinZoom))
	}
	if t.MinRotation < 0 {
		errs = append(errs, fmt.Errorf("min rotation pixels must not be negative, got %d", t.MinRotation))
	}
	return errors.Join(errs...)
}

// Phase is the state of a single gesture machine.
type Phase int

const (
	Idle Phase = iota
	Active
)

func (p Phase) String() string {
	if p == Active {
		return "active"
	}
	return "idle"
}

// MachineState is the persistent state of one gesture machine.
// Anchor and Last are only meaningful while Phase is Active.
type MachineState struct {
	Phase  Phase
	Anchor image.Point
	Last   image.Point
}

func (s *MachineState) start(p image.Point) {
	*s = MachineState{Phase: Active, Anchor: p, Last: p}
}

func (s *MachineState) reset() {
	*s = MachineState{}
}

// States is a snapshot of all three machines.
type States struct {
	Pan    MachineState
	Zoom   MachineState
	Rotate MachineState
}

// Recognizer owns the gesture session state. It is not safe for concurrent use;
// a single recognition goroutine drives it one frame at a time.
type Recognizer struct {
	thresholds Thresholds
	pan        MachineState
	zoom       MachineState
	rotate     MachineState
}

// NewRecognizer creates a Recognizer with all machines idle.
func NewRecognizer(t Thresholds) *Recognizer {
	return &Recognizer{thresholds: t}
}

// Thresholds returns the active tuning.
func (r *Recognizer) Thresholds() Thresholds {
	return r.thresholds
}

// SetThresholds replaces the tuning. In-progress gestures keep their anchors.
func (r *Recognizer) SetThresholds(t Thresholds) {
	r.thresholds = t
}

// States returns a copy of the machine states.
func (r *Recognizer) States() States {
	return States{Pan: r.pan, Zoom: r.zoom, Rotate: r.rotate}
}

// Reset forces every machine to Idle without emitting events.
func (r *Recognizer) Reset() {
	r.pan.reset()
	r.zoom.reset()
	r.rotate.reset()
}

// Process advances all machines by one frame and returns the events released on it,
// stamped with at. At most one event per machine is returned: pan first, then
// zoom and rotate in the order their hands were detected.
func (r *Recognizer) Process(obs []hand.Observation, at time.Time) []Event {
	var events []Event
	emit := func(e Event) {
		e.At = at
		events = append(events, e)
	}

	if mid, ok := twoFists(obs); ok {
		if r.pan.Phase == Idle {
			r.pan.start(mid)
		}
		r.pan.Last = mid
		return nil
	}

	if r.pan.Phase == Active {
		dx := r.pan.Last.X - r.pan.Anchor.X
		dy := r.pan.Last.Y - r.pan.Anchor.Y
		if abs(dx) > r.thresholds.MinPan || abs(dy) > r.thresholds.MinPan {
			emit(Pan(dx, dy))
		}
		r.pan.reset()
	}

	if len(obs) == 0 {
		r.zoom.reset()
		r.rotate.reset()
		return events
	}

	// Hands are visited in detector order; only the first of each side counts.
	var seenRight, seenLeft bool
	for _, o := range obs {
		switch {
		case o.Handedness == hand.Right && !seenRight:
			seenRight = true
			if moved, released := r.stepPinch(&r.zoom, o); released {
				// Dragging up (decreasing y) zooms in.
				delta := -moved.Y
				if abs(delta) > r.thresholds.MinZoom {
					emit(Zoom(delta))
				}
			}
		case o.Handedness == hand.Left && !seenLeft:
			seenLeft = true
			if moved, released := r.stepPinch(&r.rotate, o); released {
				if abs(moved.X) > r.thresholds.MinRotation {
					emit(Rotate(moved.X))
				}
			}
		}
	}

	return events
}

// stepPinch advances a pinch machine and reports the last−anchor displacement when
// the pinch is released on this frame.
func (r *Recognizer) stepPinch(s *MachineState, o hand.Observation) (image.Point, bool) {
	pinched := o.PinchDistance < r.thresholds.Pinch

	switch {
	case s.Phase == Idle && pinched:
		s.start(o.PinchMidpoint)
	case s.Phase == Active && pinched:
		s.Last = o.PinchMidpoint
	case s.Phase == Active:
		delta := s.Last.Sub(s.Anchor)
		s.reset()
		return delta, true
	}
	return image.Point{}, false
}

// twoFists reports whether exactly two hands are present and both are fists,
// returning the midpoint of their wrists.
func twoFists(obs []hand.Observation) (image.Point, bool) {
	if len(obs) != 2 || !obs[0].IsFist || !obs[1].IsFist {
		return image.Point{}, false
	}
	return hand.Midpoint(obs[0].WristPosition, obs[1].WristPosition), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
