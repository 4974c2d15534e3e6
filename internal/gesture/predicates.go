package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Finger names a digit of the hand.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// okTouchDistance is the largest thumb-to-index tip gap, in normalized image
// units, that still counts as the OK circle.
const okTouchDistance = 0.05

// tipAndJoint returns the landmark indices compared to decide whether a
// finger is extended. Fingers compare the tip with the PIP joint two
// positions back; the thumb compares its tip with the IP joint.
func tipAndJoint(f Finger) (tip, joint int) {
	switch f {
	case Thumb:
		return detector.ThumbTip, detector.ThumbIP
	case Index:
		return detector.IndexTip, detector.IndexPIP
	case Middle:
		return detector.MiddleTip, detector.MiddlePIP
	case Ring:
		return detector.RingTip, detector.RingPIP
	default:
		return detector.PinkyTip, detector.PinkyPIP
	}
}

// Extended reports whether the finger's tip is higher on screen than its
// reference joint.
func Extended(f detector.Frame, finger Finger) bool {
	tip, joint := tipAndJoint(finger)
	return f[tip].Y < f[joint].Y
}

// Curled reports whether the finger's tip is lower on screen than its
// reference joint. A tip level with the joint is neither extended nor curled.
func Curled(f detector.Frame, finger Finger) bool {
	tip, joint := tipAndJoint(finger)
	return f[tip].Y > f[joint].Y
}

// IsFlatPalm matches four raised fingers.
func IsFlatPalm(f detector.Frame) bool {
	return Extended(f, Index) && Extended(f, Middle) && Extended(f, Ring) && Extended(f, Pinky)
}

// IsFist matches four folded fingers.
func IsFist(f detector.Frame) bool {
	return Curled(f, Index) && Curled(f, Middle) && Curled(f, Ring) && Curled(f, Pinky)
}

// IsVictory matches index and middle raised with ring and pinky folded.
func IsVictory(f detector.Frame) bool {
	return Extended(f, Index) && Extended(f, Middle) && Curled(f, Ring) && Curled(f, Pinky)
}

// IsThumbsUp matches a raised thumb over a closed fist.
func IsThumbsUp(f detector.Frame) bool {
	return Extended(f, Thumb) && IsFist(f)
}

// IsPointing matches a lone raised index finger.
func IsPointing(f detector.Frame) bool {
	return Extended(f, Index) && Curled(f, Middle) && Curled(f, Ring) && Curled(f, Pinky)
}

// IsOK matches the thumb and index tips touching with the other three
// fingers raised.
func IsOK(f detector.Frame) bool {
	return isOK(f, okTouchDistance)
}

func isOK(f detector.Frame, touch float64) bool {
	if detector.Distance2D(f[detector.ThumbTip], f[detector.IndexTip]) >= touch {
		return false
	}
	return Extended(f, Middle) && Extended(f, Ring) && Extended(f, Pinky)
}

// IsCallMe matches thumb and pinky raised with the rest folded. The pinky
// is judged against its DIP joint rather than its PIP.
func IsCallMe(f detector.Frame) bool {
	pinkyUp := f[detector.PinkyTip].Y < f[detector.PinkyDIP].Y
	return Extended(f, Thumb) && pinkyUp &&
		Curled(f, Index) && Curled(f, Middle) && Curled(f, Ring)
}

// IsRockOn matches index and pinky raised with the thumb, middle and ring folded.
func IsRockOn(f detector.Frame) bool {
	return Curled(f, Thumb) && Extended(f, Index) &&
		Curled(f, Middle) && Curled(f, Ring) && Extended(f, Pinky)
}

// WristRotation returns the angle in degrees of the line from the wrist to
// the middle finger MCP, measured with atan2 in image coordinates.
func WristRotation(f detector.Frame) float64 {
	wrist := f[detector.Wrist]
	base := f[detector.MiddleMCP]
	return math.Atan2(base.Y-wrist.Y, base.X-wrist.X) * 180 / math.Pi
}
