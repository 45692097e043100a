package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewMotionGate(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"configured", 0.05, 0.05},
		{"zero falls back", 0, DefaultMotion},
		{"negative falls back", -1, DefaultMotion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewMotionGate(tt.threshold)
			defer g.Close()

			if got := g.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %v, want %v", got, tt.want)
			}
			if g.primed {
				t.Error("new gate should not be primed")
			}
		})
	}
}

func TestMotionGate_SetThreshold(t *testing.T) {
	g := NewMotionGate(0.01)
	defer g.Close()

	g.SetThreshold(0.2)
	if got := g.Threshold(); got != 0.2 {
		t.Errorf("Threshold() = %v, want 0.2", got)
	}

	for _, bad := range []float64{0, -0.5, 1.5} {
		g.SetThreshold(bad)
		if got := g.Threshold(); got != 0.2 {
			t.Errorf("SetThreshold(%v) changed threshold to %v", bad, got)
		}
	}
}

func TestMotionGate_StillScene(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(0.01)
	defer g.Close()

	a := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer a.Close()
	b := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer b.Close()

	if moved, changed := g.Check(&a); moved || changed != 0 {
		t.Errorf("first frame = (%v, %v), want (false, 0)", moved, changed)
	}
	if moved, changed := g.Check(&b); moved {
		t.Errorf("identical frames reported motion, changed = %v", changed)
	}
}

func TestMotionGate_BlackToWhite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(0.01)
	defer g.Close()

	black := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	g.Check(&black)
	moved, changed := g.Check(&white)
	if !moved {
		t.Errorf("black to white should be motion, changed = %v", changed)
	}
	if changed < 0.5 {
		t.Errorf("changed = %v, want > 0.5", changed)
	}
}

func TestMotionGate_ResolutionChangeReprimes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(0.01)
	defer g.Close()

	small := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer small.Close()
	large := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer large.Close()
	large.SetTo(gocv.NewScalar(255, 255, 255, 0))

	g.Check(&small)
	if moved, _ := g.Check(&large); moved {
		t.Error("frame with a new size should prime, not report motion")
	}
}

func TestMotionGate_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(0.01)
	defer g.Close()

	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()

	g.Check(&frame)
	if !g.primed {
		t.Fatal("gate should be primed after first Check")
	}

	g.Reset()
	if g.primed {
		t.Error("gate should not be primed after Reset")
	}
	if !g.prev.Empty() {
		t.Error("previous frame should be released after Reset")
	}
}

func TestMotionGate_NilAndEmpty(t *testing.T) {
	g := NewMotionGate(0.01)
	defer g.Close()

	if moved, _ := g.Check(nil); moved {
		t.Error("nil frame should not be motion")
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if moved, _ := g.Check(&empty); moved {
		t.Error("empty frame should not be motion")
	}
}

func TestMotionGate_CloseTwice(t *testing.T) {
	g := NewMotionGate(0.01)
	g.Close()
	g.Close()
}
