package replay

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/gesturecast/internal/detector"
)

// Detector plays a recording back as a detector.Detector: each Detect call
// returns the hands of the next recorded frame, ignoring the image. Once the
// recording is exhausted it reports no hands, or starts over when looping.
type Detector struct {
	mu   sync.Mutex
	rec  *Recording
	next int
	loop bool
}

// NewDetector returns a Detector positioned at the first frame of rec.
func NewDetector(rec *Recording, loop bool) *Detector {
	return &Detector{rec: rec, loop: loop}
}

// Detect returns the hands of the next recorded frame.
func (d *Detector) Detect(_ *gocv.Mat) ([]detector.HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.next >= len(d.rec.Frames) {
		if !d.loop || len(d.rec.Frames) == 0 {
			return nil, nil
		}
		d.next = 0
	}

	hands := d.rec.Frames[d.next].Hands
	d.next++
	return hands, nil
}

// Done reports whether playback has passed the last frame.
func (d *Detector) Done() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.next >= len(d.rec.Frames)
}

// Close is a no-op.
func (d *Detector) Close() error {
	return nil
}
