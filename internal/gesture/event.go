// Package gesture turns per-frame hand observations into edge-triggered pan, zoom
// and rotate events.
//
// Three state machines run on every frame. Pan is evaluated first and, while active,
// suppresses Zoom (right-hand pinch, vertical drag) and Rotate (left-hand pinch,
// horizontal drag). Events are emitted only on release and only when the accumulated
// displacement clears a noise threshold.
package gesture

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the type of a gesture event.
type Kind string

const (
	KindPan    Kind = "pan"
	KindZoom   Kind = "zoom"
	KindRotate Kind = "rotate"
)

// Kinds lists every event kind in evaluation order.
var Kinds = []Kind{KindPan, KindZoom, KindRotate}

// Valid reports whether k is a known event kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPan, KindZoom, KindRotate:
		return true
	}
	return false
}

// Event is a completed gesture. Pan events carry DX/DY; zoom and rotate carry Delta.
type Event struct {
	Kind  Kind
	DX    int
	DY    int
	Delta int
	At    time.Time // frame time of the release; not part of the wire format
}

// Pan returns a pan event with the given displacement.
func Pan(dx, dy int) Event { return Event{Kind: KindPan, DX: dx, DY: dy} }

// Zoom returns a zoom event. Positive deltas zoom in.
func Zoom(delta int) Event { return Event{Kind: KindZoom, Delta: delta} }

// Rotate returns a rotate event. Positive deltas rotate right.
func Rotate(delta int) Event { return Event{Kind: KindRotate, Delta: delta} }

type panWire struct {
	Type Kind `json:"type"`
	DX   int  `json:"dx"`
	DY   int  `json:"dy"`
}

type deltaWire struct {
	Type  Kind `json:"type"`
	Delta int  `json:"delta"`
}

// MarshalJSON encodes the event in its subscriber wire format.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindPan:
		return json.Marshal(panWire{Type: e.Kind, DX: e.DX, DY: e.DY})
	case KindZoom, KindRotate:
		return json.Marshal(deltaWire{Type: e.Kind, Delta: e.Delta})
	default:
		return nil, fmt.Errorf("unknown gesture kind %q", e.Kind)
	}
}

// UnmarshalJSON decodes an event from its wire format.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  Kind `json:"type"`
		DX    int  `json:"dx"`
		DY    int  `json:"dy"`
		Delta int  `json:"delta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Type.Valid() {
		return fmt.Errorf("unknown gesture kind %q", raw.Type)
	}

	*e = Event{Kind: raw.Type}
	if raw.Type == KindPan {
		e.DX, e.DY = raw.DX, raw.DY
	} else {
		e.Delta = raw.Delta
	}
	return nil
}

// String returns a short human-readable description, e.g. "zoom 40".
func (e Event) String() string {
	if e.Kind == KindPan {
		return fmt.Sprintf("pan %+d,%+d", e.DX, e.DY)
	}
	return fmt.Sprintf("%s %+d", e.Kind, e.Delta)
}
