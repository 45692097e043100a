package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	blurKernel    = 21
	pixelDiffCut  = 25
	DefaultMotion = 0.01
)

// MotionGate decides whether a frame differs enough from the previous one to
// be worth running hand detection on.
//
// Frames are converted to gray, blurred, and differenced against the last
// frame. The changed fraction is the share of pixels whose difference exceeds
// a fixed cut. Motion is reported when that fraction exceeds the threshold.
type MotionGate struct {
	mu        sync.Mutex
	threshold float64 // fraction of pixels, 0..1
	prev      gocv.Mat
	primed    bool
}

// NewMotionGate returns a gate for the given changed-pixel fraction.
// Non-positive thresholds fall back to DefaultMotion.
func NewMotionGate(threshold float64) *MotionGate {
	if threshold <= 0 {
		threshold = DefaultMotion
	}
	return &MotionGate{threshold: threshold, prev: gocv.NewMat()}
}

// Check compares frame with the previous frame and returns whether motion was
// seen and the changed fraction. The first frame after creation or Reset only
// primes the gate.
func (g *MotionGate) Check(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !g.primed || g.prev.Rows() != blurred.Rows() || g.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&g.prev)
		g.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDiffCut, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols())
	blurred.CopyTo(&g.prev)

	return changed > g.threshold, changed
}

// Reset forgets the previous frame.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
}

// Close releases the stored frame. The gate stays usable and re-primes on the next Check.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
}

func (g *MotionGate) release() {
	if !g.prev.Empty() {
		g.prev.Close()
		g.prev = gocv.NewMat()
	}
	g.primed = false
}

// SetThreshold ignores values outside (0, 1].
func (g *MotionGate) SetThreshold(threshold float64) {
	if threshold <= 0 || threshold > 1 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.threshold = threshold
}

// Threshold returns the changed-pixel fraction that counts as motion.
func (g *MotionGate) Threshold() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.threshold
}
