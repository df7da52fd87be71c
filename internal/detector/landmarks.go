// Package detector provides hand landmark detection for the Mudra pose classifier.
package detector

import "math"

// Landmark indices in canonical MediaPipe hand ordering. The order is fixed
// and significant: every landmark set produced or consumed by this package
// follows it.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a single landmark position in world space.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one tracked hand for a single frame: the 21 landmark
// positions plus detection metadata.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

func dist(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize returns a copy of the landmarks translated so the wrist sits at
// the origin and scaled so the wrist to middle-MCP distance is 1.0. This
// makes reference poses comparable across hand sizes and frame positions.
// A degenerate hand (zero palm length) is returned translated but unscaled.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	out := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		out.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	palm := dist(Point3D{}, out.Points[MiddleMCP])
	if palm < 1e-10 {
		return out
	}

	for i := 0; i < NumLandmarks; i++ {
		out.Points[i].X /= palm
		out.Points[i].Y /= palm
		out.Points[i].Z /= palm
	}

	return out
}

// Flatten packs the landmarks into a flat vector of 63 values, x, y, z per
// landmark in index order. This is the shape the pose matcher and the
// on-disk sample format work with.
func (h *HandLandmarks) Flatten() []float64 {
	v := make([]float64, 0, NumLandmarks*3)
	for i := 0; i < NumLandmarks; i++ {
		v = append(v, h.Points[i].X, h.Points[i].Y, h.Points[i].Z)
	}
	return v
}

// FromVector rebuilds a landmark set from a flat 63-value vector. It is the
// inverse of Flatten. Returns false if the vector has the wrong length.
func FromVector(v []float64) (HandLandmarks, bool) {
	var h HandLandmarks
	if len(v) != NumLandmarks*3 {
		return h, false
	}
	for i := 0; i < NumLandmarks; i++ {
		h.Points[i] = Point3D{X: v[i*3], Y: v[i*3+1], Z: v[i*3+2]}
	}
	return h, true
}
