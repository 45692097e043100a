// Package replay runs recorded landmark sessions through hand extraction and
// gesture recognition without a camera or a landmark model.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ayusman/gesturecast/internal/detector"
	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/hand"
)

// ErrInvalidRecording is returned for recordings that cannot be replayed.
var ErrInvalidRecording = errors.New("invalid recording")

// Frame is the detector output for one captured frame.
type Frame struct {
	OffsetMS int64                    `json:"t_ms"` // since the start of the session
	Hands    []detector.HandLandmarks `json:"hands"`
}

// Offset returns the frame time relative to the start of the session.
func (f Frame) Offset() time.Duration {
	return time.Duration(f.OffsetMS) * time.Millisecond
}

// Recording is a captured session: the frame size and the landmarks seen on
// every frame, in capture order.
type Recording struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Frames []Frame `json:"frames"`
}

// Decode reads and validates a JSON recording.
func Decode(r io.Reader) (*Recording, error) {
	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecording, err)
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Load decodes the recording stored at path.
func Load(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

func (r *Recording) validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidRecording, r.Width, r.Height)
	}
	for i := 1; i < len(r.Frames); i++ {
		if r.Frames[i].OffsetMS < r.Frames[i-1].OffsetMS {
			return fmt.Errorf("%w: frame %d goes back in time", ErrInvalidRecording, i)
		}
	}
	return nil
}

// Duration returns the offset of the last frame.
func (r *Recording) Duration() time.Duration {
	if len(r.Frames) == 0 {
		return 0
	}
	return r.Frames[len(r.Frames)-1].Offset()
}

// Run feeds every frame to a fresh recognizer and returns the released
// events, each stamped with start plus its frame offset.
func Run(rec *Recording, t gesture.Thresholds, start time.Time) []gesture.Event {
	r := gesture.NewRecognizer(t)

	var events []gesture.Event
	for _, f := range rec.Frames {
		obs := hand.Extract(f.Hands, rec.Width, rec.Height)
		events = append(events, r.Process(obs, start.Add(f.Offset()))...)
	}
	return events
}

// WriteEvents writes events to w in wire format, one JSON object per line.
func WriteEvents(w io.Writer, events []gesture.Event) error {
	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("write %s event: %w", e.Kind, err)
		}
	}
	return nil
}
