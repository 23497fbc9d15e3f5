package pose

import (
	"math"
)

// Common landmark names, following the pose-model body vocabulary.
const (
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

// Landmark is one tracked body joint. Z and Visibility are optional;
// a missing Z is treated as 0.
type Landmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z,omitempty"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// Frame is the set of landmarks detected in a single image, keyed by name.
// A nil or empty Frame means no pose was detected.
type Frame map[string]Landmark

// Triple returns the landmarks a, b, c. ok is false when any of them is absent
// or less visible than minVisibility. A minVisibility of 0 disables the check.
func (f Frame) Triple(a, b, c string, minVisibility float64) (la, lb, lc Landmark, ok bool) {
	var okA, okB, okC bool
	la, okA = f.lookup(a, minVisibility)
	lb, okB = f.lookup(b, minVisibility)
	lc, okC = f.lookup(c, minVisibility)
	return la, lb, lc, okA && okB && okC
}

func (f Frame) lookup(name string, minVisibility float64) (Landmark, bool) {
	l, found := f[name]
	if !found {
		return Landmark{}, false
	}
	if minVisibility > 0 && l.Visibility != nil && *l.Visibility < minVisibility {
		return Landmark{}, false
	}
	return l, true
}

// ComputeAngle returns the angle at vertex b formed by a-b-c, in degrees [0, 180].
// Coincident points (a zero-length vector) yield 0, meaning "undetermined".
func ComputeAngle(a, b, c Landmark) float64 {
	bax, bay, baz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	bcx, bcy, bcz := c.X-b.X, c.Y-b.Y, c.Z-b.Z

	if bax*bax+bay*bay+baz*baz == 0 || bcx*bcx+bcy*bcy+bcz*bcz == 0 {
		return 0
	}

	// atan2(|BA x BC|, BA . BC)
	cx := bay*bcz - baz*bcy
	cy := baz*bcx - bax*bcz
	cz := bax*bcy - bay*bcx
	cross := math.Sqrt(cx*cx + cy*cy + cz*cz)
	dot := bax*bcx + bay*bcy + baz*bcz

	return math.Atan2(cross, dot) * 180 / math.Pi
}
