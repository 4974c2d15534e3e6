package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// DefaultRotationThreshold is the wrist angle, in degrees, beyond which an
// otherwise unrecognized hand is read as No.
const DefaultRotationThreshold = 30.0

// Rule pairs a finger-shape predicate with the label it produces.
type Rule struct {
	Label Label
	Match func(detector.Frame) bool
}

// Rules is the finger-shape table in priority order. Classification returns
// the label of the first rule that matches.
var Rules = []Rule{
	{Peace, IsVictory},
	{ThumbsUp, IsThumbsUp},
	{Pointing, IsPointing},
	{FlatPalm, IsFlatPalm},
	{Fist, IsFist},
	{OK, IsOK},
	{CallMe, IsCallMe},
	{RockOn, IsRockOn},
}

// ClassifierConfig tunes the thresholds used by a Classifier.
type ClassifierConfig struct {
	// RotationThreshold is the |wrist angle| in degrees above which the
	// fallback returns No.
	RotationThreshold float64

	// OKDistance is the largest thumb-to-index tip gap accepted as OK.
	OKDistance float64
}

// DefaultClassifierConfig returns the stock thresholds.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		RotationThreshold: DefaultRotationThreshold,
		OKDistance:        okTouchDistance,
	}
}

// Classifier maps a single frame to at most one label. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	rules             []Rule
	rotationThreshold float64
}

// NewClassifier builds a Classifier from cfg. Zero fields fall back to the
// defaults.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	def := DefaultClassifierConfig()
	if cfg.RotationThreshold <= 0 {
		cfg.RotationThreshold = def.RotationThreshold
	}
	if cfg.OKDistance <= 0 {
		cfg.OKDistance = def.OKDistance
	}

	rules := make([]Rule, len(Rules))
	copy(rules, Rules)
	if cfg.OKDistance != def.OKDistance {
		touch := cfg.OKDistance
		for i := range rules {
			if rules[i].Label == OK {
				rules[i].Match = func(f detector.Frame) bool { return isOK(f, touch) }
			}
		}
	}

	return &Classifier{
		rules:             rules,
		rotationThreshold: cfg.RotationThreshold,
	}
}

// NewDefaultClassifier returns a Classifier with the stock thresholds.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultClassifierConfig())
}

// Classify returns the gesture shown in f. The boolean is false when the
// frame is invalid or nothing matched.
func (c *Classifier) Classify(f detector.Frame) (Label, bool) {
	if !f.Valid() {
		return 0, false
	}

	for _, r := range c.rules {
		if r.Match(f) {
			return r.Label, true
		}
	}

	if math.Abs(WristRotation(f)) > c.rotationThreshold {
		return No, true
	}

	return 0, false
}

// Classify runs the stock classifier over f.
func Classify(f detector.Frame) (Label, bool) {
	return defaultClassifier.Classify(f)
}

var defaultClassifier = NewDefaultClassifier()
