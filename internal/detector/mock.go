package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface that
// returns pre-configured results.
type MockDetector struct {
	hands []HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns a preset landmark set for an open palm: all
// five fingers extended, hand upright in the frame.
func OpenPalmLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.97}

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.82, Z: 0.0}

	// Thumb fanned out to the side
	h.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.76, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.63, Y: 0.71, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.69, Y: 0.66, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.74, Y: 0.61, Z: 0.03}

	// Index through pinky extended upward
	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.67, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.54, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.44, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.34, Z: 0.0}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.65, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.51, Z: 0.0}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.39, Z: 0.0}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.27, Z: 0.0}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.67, Z: 0.0}
	h.Points[RingPIP] = Point3D{X: 0.43, Y: 0.54, Z: 0.0}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.44, Z: 0.0}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.34, Z: 0.0}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	h.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	h.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.51, Z: 0.0}
	h.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.43, Z: 0.0}

	return h
}

// FistLandmarks returns a preset landmark set for a closed fist: all
// fingers curled into the palm, thumb wrapped across.
func FistLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.80, Z: 0.0}

	// Thumb folded across the curled fingers
	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.70, Z: 0.02}
	h.Points[ThumbIP] = Point3D{X: 0.54, Y: 0.67, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.50, Y: 0.66, Z: 0.04}

	// Fingers curled, tips pulled back toward the palm
	h.Points[IndexMCP] = Point3D{X: 0.54, Y: 0.66, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.61, Z: -0.03}
	h.Points[IndexDIP] = Point3D{X: 0.54, Y: 0.64, Z: -0.06}
	h.Points[IndexTip] = Point3D{X: 0.53, Y: 0.68, Z: -0.06}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.64, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.58, Z: -0.03}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.62, Z: -0.07}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.67, Z: -0.06}

	h.Points[RingMCP] = Point3D{X: 0.46, Y: 0.65, Z: 0.0}
	h.Points[RingPIP] = Point3D{X: 0.45, Y: 0.59, Z: -0.03}
	h.Points[RingDIP] = Point3D{X: 0.46, Y: 0.63, Z: -0.06}
	h.Points[RingTip] = Point3D{X: 0.46, Y: 0.67, Z: -0.06}

	h.Points[PinkyMCP] = Point3D{X: 0.42, Y: 0.68, Z: 0.0}
	h.Points[PinkyPIP] = Point3D{X: 0.41, Y: 0.63, Z: -0.02}
	h.Points[PinkyDIP] = Point3D{X: 0.42, Y: 0.66, Z: -0.05}
	h.Points[PinkyTip] = Point3D{X: 0.42, Y: 0.69, Z: -0.05}

	return h
}

// PointingLandmarks returns a preset landmark set for a pointing pose:
// index finger extended, the rest curled.
func PointingLandmarks() HandLandmarks {
	h := FistLandmarks()

	h.Points[IndexMCP] = Point3D{X: 0.54, Y: 0.66, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.54, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.57, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.57, Y: 0.36, Z: 0.0}

	return h
}
