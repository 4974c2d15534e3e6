// Package detector provides hand detection interfaces and the landmark types
// shared by the classifier and the frame sources.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
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

// Point3D is a landmark in normalized image coordinates. X and Y lie in
// [0,1] with the origin at the top-left corner and Y growing downward.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is one observed hand pose: the landmarks of a single hand at a single
// instant, indexed by the constants above.
type Frame []Point3D

// Valid reports whether the frame holds exactly NumLandmarks points.
// Anything else is treated as an absent detection.
func (f Frame) Valid() bool {
	return len(f) == NumLandmarks
}

// Clone returns a copy of the frame that shares no memory with f.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Frame returns the landmarks as a Frame. The result is a copy.
func (h *HandLandmarks) Frame() Frame {
	if h == nil {
		return nil
	}
	f := make(Frame, NumLandmarks)
	copy(f, h.Points[:])
	return f
}

// Distance2D is the Euclidean distance between a and b in the image plane.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
