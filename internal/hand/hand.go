// Package hand derives per-frame hand features (fist, pinch, wrist) from raw landmarks.
package hand

import (
	"image"
	"math"

	"github.com/ayusman/gesturecast/internal/detector"
)

// Handedness identifies which hand an observation belongs to.
type Handedness string

const (
	Left  Handedness = detector.LeftHand
	Right Handedness = detector.RightHand
)

// Observation holds the derived features of one detected hand in one frame.
type Observation struct {
	Handedness    Handedness
	IsFist        bool
	PinchDistance float64     // thumb tip to index tip, in pixels
	PinchMidpoint image.Point // midpoint of thumb tip and index tip
	WristPosition image.Point
}

// fingers pairs each non-thumb fingertip with its PIP joint.
var fingers = [4][2]int{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// Extract converts detected hands into observations for a frame of the given size.
// The output preserves input order.
func Extract(hands []detector.HandLandmarks, width, height int) []Observation {
	if len(hands) == 0 {
		return nil
	}

	out := make([]Observation, len(hands))
	for i := range hands {
		out[i] = Observe(&hands[i], width, height)
	}
	return out
}

// Observe computes the features of a single hand.
func Observe(h *detector.HandLandmarks, width, height int) Observation {
	thumb := h.Pixel(detector.ThumbTip, width, height)
	index := h.Pixel(detector.IndexTip, width, height)

	return Observation{
		Handedness:    Handedness(h.Handedness),
		IsFist:        IsFist(h),
		PinchDistance: math.Hypot(float64(thumb.X-index.X), float64(thumb.Y-index.Y)),
		PinchMidpoint: Midpoint(thumb, index),
		WristPosition: h.Pixel(detector.Wrist, width, height),
	}
}

// IsFist reports whether all four fingertips are below their PIP joints in image space.
// The thumb is not considered.
func IsFist(h *detector.HandLandmarks) bool {
	for _, f := range fingers {
		if h.Points[f[0]].Y <= h.Points[f[1]].Y {
			return false
		}
	}
	return true
}

// Midpoint returns the integer midpoint of a and b, rounding toward negative infinity.
func Midpoint(a, b image.Point) image.Point {
	return image.Point{
		X: floorHalf(a.X + b.X),
		Y: floorHalf(a.Y + b.Y),
	}
}

func floorHalf(v int) int {
	if v < 0 {
		return (v - 1) / 2
	}
	return v / 2
}
