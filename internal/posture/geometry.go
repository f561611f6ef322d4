// Package posture turns per-frame body landmarks into a debounced fall
// classification: torso geometry, a personal head-height baseline and the
// hysteretic state machine that decides when an alert is due.
package posture

import "math"

// Landmark names follow the MediaPipe pose model.
const (
	Nose          = "nose"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftKnee      = "left_knee"
	RightKnee     = "right_knee"
	LeftAnkle     = "left_ankle"
	RightAnkle    = "right_ankle"
)

const (
	// MinVisibility is the exclusive lower bound a torso landmark's visibility
	// must exceed for the frame to be measured.
	MinVisibility = 0.5

	// flatTorsoDY is the vertical midpoint separation below which the torso is
	// treated as horizontal.
	flatTorsoDY = 0.001
)

// Point is a position in normalized image coordinates (y grows downward).
type Point struct {
	X float64
	Y float64
}

// Landmark is one named body point reported by the pose model.
type Landmark struct {
	X          float64 `msgpack:"x" json:"x"`
	Y          float64 `msgpack:"y" json:"y"`
	Visibility float64 `msgpack:"visibility" json:"visibility"`
}

// Point drops the visibility.
func (l Landmark) Point() Point {
	return Point{X: l.X, Y: l.Y}
}

// LandmarkSet holds the landmarks of a single frame keyed by name.
type LandmarkSet map[string]Landmark

// Measurement is the torso geometry of one frame.
type Measurement struct {
	ShoulderMid Point
	HipMid      Point
	Angle       float64 // torso tilt from vertical, degrees
	HeadDiff    float64 // hipMid.Y - nose.Y; larger is more upright
}

// Measure computes the torso geometry of set. ok is false when any torso
// landmark or the nose is missing, or a torso landmark is not visible enough.
func Measure(set LandmarkSet) (m Measurement, ok bool) {
	var torso [4]Landmark
	for i, name := range [...]string{LeftShoulder, RightShoulder, LeftHip, RightHip} {
		lm, found := set[name]
		if !found || lm.Visibility <= MinVisibility {
			return Measurement{}, false
		}
		torso[i] = lm
	}
	nose, found := set[Nose]
	if !found {
		return Measurement{}, false
	}

	m.ShoulderMid = Midpoint(torso[0].Point(), torso[1].Point())
	m.HipMid = Midpoint(torso[2].Point(), torso[3].Point())
	m.Angle = TorsoAngle(m.ShoulderMid, m.HipMid)
	m.HeadDiff = m.HipMid.Y - nose.Y
	return m, true
}

// Midpoint averages a and b componentwise.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// TorsoAngle returns the angle in degrees between the shoulder-hip line and
// vertical. A near-horizontal torso is exactly 90.
func TorsoAngle(shoulderMid, hipMid Point) float64 {
	dx := math.Abs(shoulderMid.X - hipMid.X)
	dy := math.Abs(shoulderMid.Y - hipMid.Y)
	if dy < flatTorsoDY {
		return 90
	}
	return math.Atan(dx/dy) * 180 / math.Pi
}
