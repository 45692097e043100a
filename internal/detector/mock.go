package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FistLandmarks returns a closed fist with the wrist at (wristX, wristY).
// Every fingertip sits below its PIP joint and the thumb rests away from the index tip.
func FistLandmarks(handedness string, wristX, wristY float64) HandLandmarks {
	lm := HandLandmarks{Handedness: handedness, Score: 0.95}

	set := func(i int, dx, dy float64) {
		lm.Points[i] = Point3D{X: wristX + dx, Y: wristY + dy}
	}

	set(Wrist, 0, 0)

	set(ThumbCMC, 0.05, -0.04)
	set(ThumbMCP, 0.09, -0.08)
	set(ThumbIP, 0.12, -0.11)
	set(ThumbTip, 0.14, -0.13)

	// Knuckles up, fingertips curled back down under the PIP joints.
	set(IndexMCP, 0.05, -0.12)
	set(IndexPIP, 0.05, -0.15)
	set(IndexDIP, 0.04, -0.12)
	set(IndexTip, 0.04, -0.09)

	set(MiddleMCP, 0.0, -0.12)
	set(MiddlePIP, 0.0, -0.16)
	set(MiddleDIP, -0.01, -0.13)
	set(MiddleTip, -0.01, -0.10)

	set(RingMCP, -0.04, -0.11)
	set(RingPIP, -0.04, -0.14)
	set(RingDIP, -0.05, -0.11)
	set(RingTip, -0.05, -0.09)

	set(PinkyMCP, -0.08, -0.09)
	set(PinkyPIP, -0.08, -0.12)
	set(PinkyDIP, -0.09, -0.10)
	set(PinkyTip, -0.09, -0.08)

	return lm
}

// OpenPalmLandmarks returns an open hand with the wrist at (wristX, wristY).
// All fingers point up and the thumb is spread wide from the index tip.
func OpenPalmLandmarks(handedness string, wristX, wristY float64) HandLandmarks {
	lm := HandLandmarks{Handedness: handedness, Score: 0.95}

	set := func(i int, dx, dy float64) {
		lm.Points[i] = Point3D{X: wristX + dx, Y: wristY + dy}
	}

	set(Wrist, 0, 0)

	set(ThumbCMC, 0.05, -0.05)
	set(ThumbMCP, 0.12, -0.10)
	set(ThumbIP, 0.18, -0.15)
	set(ThumbTip, 0.23, -0.20)

	set(IndexMCP, 0.05, -0.12)
	set(IndexPIP, 0.07, -0.25)
	set(IndexDIP, 0.08, -0.35)
	set(IndexTip, 0.08, -0.45)

	set(MiddleMCP, 0.0, -0.14)
	set(MiddlePIP, 0.0, -0.28)
	set(MiddleDIP, 0.0, -0.40)
	set(MiddleTip, 0.0, -0.52)

	set(RingMCP, -0.05, -0.12)
	set(RingPIP, -0.07, -0.25)
	set(RingDIP, -0.08, -0.35)
	set(RingTip, -0.08, -0.45)

	set(PinkyMCP, -0.10, -0.10)
	set(PinkyPIP, -0.13, -0.20)
	set(PinkyDIP, -0.15, -0.30)
	set(PinkyTip, -0.16, -0.38)

	return lm
}

// PinchLandmarks returns an open hand whose thumb and index tips straddle
// (midX, midY) horizontally, separated by gap (normalized units).
func PinchLandmarks(handedness string, midX, midY, gap float64) HandLandmarks {
	lm := OpenPalmLandmarks(handedness, midX, midY+0.45)
	lm.Points[ThumbTip] = Point3D{X: midX - gap/2, Y: midY}
	lm.Points[IndexTip] = Point3D{X: midX + gap/2, Y: midY}
	return lm
}
