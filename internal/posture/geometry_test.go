package posture

import (
	"math"
	"testing"
)

// torso builds a fully visible landmark set from shoulder and hip midpoints.
func torso(shoulder, hip Point, noseY float64) LandmarkSet {
	return LandmarkSet{
		Nose:          {X: shoulder.X, Y: noseY, Visibility: 0.99},
		LeftShoulder:  {X: shoulder.X - 0.05, Y: shoulder.Y, Visibility: 0.9},
		RightShoulder: {X: shoulder.X + 0.05, Y: shoulder.Y, Visibility: 0.9},
		LeftHip:       {X: hip.X - 0.04, Y: hip.Y, Visibility: 0.9},
		RightHip:      {X: hip.X + 0.04, Y: hip.Y, Visibility: 0.9},
	}
}

func TestMeasure_upright(t *testing.T) {
	m, ok := Measure(torso(Point{0.5, 0.3}, Point{0.5, 0.6}, 0.15))
	if !ok {
		t.Fatal("expected a measurement")
	}
	if m.Angle != 0 {
		t.Errorf("angle = %v, want 0", m.Angle)
	}
	if math.Abs(m.HeadDiff-0.45) > 1e-9 {
		t.Errorf("head diff = %v, want 0.45", m.HeadDiff)
	}
	if math.Abs(m.ShoulderMid.X-0.5) > 1e-9 || math.Abs(m.HipMid.Y-0.6) > 1e-9 {
		t.Errorf("midpoints = %+v %+v", m.ShoulderMid, m.HipMid)
	}
}

func TestMeasure_low_visibility_is_gap(t *testing.T) {
	for _, name := range []string{LeftShoulder, RightShoulder, LeftHip, RightHip} {
		t.Run(name, func(t *testing.T) {
			set := torso(Point{0.5, 0.3}, Point{0.5, 0.6}, 0.15)
			lm := set[name]
			lm.Visibility = MinVisibility
			set[name] = lm
			if _, ok := Measure(set); ok {
				t.Errorf("visibility %.1f on %s should skip the frame", MinVisibility, name)
			}
		})
	}
}

func TestMeasure_missing_landmarks(t *testing.T) {
	if _, ok := Measure(nil); ok {
		t.Error("nil set should not measure")
	}
	set := torso(Point{0.5, 0.3}, Point{0.5, 0.6}, 0.15)
	delete(set, Nose)
	if _, ok := Measure(set); ok {
		t.Error("missing nose should not measure")
	}
}

func TestTorsoAngle_flat_is_90(t *testing.T) {
	if got := TorsoAngle(Point{0.3, 0.5}, Point{0.7, 0.5005}); got != 90 {
		t.Errorf("angle = %v, want exactly 90", got)
	}
	if got := TorsoAngle(Point{0.3, 0.5}, Point{0.3, 0.5}); got != 90 {
		t.Errorf("coincident midpoints: angle = %v, want 90", got)
	}
}

func TestTorsoAngle_diagonal(t *testing.T) {
	got := TorsoAngle(Point{0.4, 0.3}, Point{0.5, 0.4})
	if math.Abs(got-45) > 1e-6 {
		t.Errorf("angle = %v, want 45", got)
	}
	// Direction does not matter.
	if back := TorsoAngle(Point{0.6, 0.3}, Point{0.5, 0.4}); math.Abs(back-got) > 1e-9 {
		t.Errorf("mirrored angle = %v, want %v", back, got)
	}
}
