// Package gesture classifies hand-pose frames into named gestures and turns
// the per-frame result stream into discrete gesture events.
package gesture

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnknownLabel is returned when a string does not name a gesture.
var ErrUnknownLabel = errors.New("unknown gesture label")

// Label identifies a recognized gesture. The declaration order is the
// classification priority: when a frame matches several shapes the earliest
// label wins.
type Label int

const (
	Peace Label = iota
	ThumbsUp
	Pointing
	FlatPalm
	Fist
	OK
	CallMe
	RockOn
	No
)

// Labels lists every label in priority order.
var Labels = []Label{Peace, ThumbsUp, Pointing, FlatPalm, Fist, OK, CallMe, RockOn, No}

var labelNames = [...]string{
	Peace:    "peace",
	ThumbsUp: "thumbs_up",
	Pointing: "pointing",
	FlatPalm: "flat_palm",
	Fist:     "fist",
	OK:       "ok",
	CallMe:   "call_me",
	RockOn:   "rock_on",
	No:       "no",
}

var labelDisplay = [...]string{
	Peace:    "Peace ✌",
	ThumbsUp: "Good 👍",
	Pointing: "Select 👆",
	FlatPalm: "Hello ✋",
	Fist:     "Grab ✊",
	OK:       "OK 👌",
	CallMe:   "Call Me 🤙",
	RockOn:   "Rock On 🤘",
	No:       "No 🤚",
}

// Valid reports whether l is one of the declared labels.
func (l Label) Valid() bool {
	return l >= Peace && l <= No
}

// String returns the stable identifier used in JSON, storage and topics.
func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("label(%d)", int(l))
	}
	return labelNames[l]
}

// Display returns the text shown on the overlay and spoken aloud.
func (l Label) Display() string {
	if !l.Valid() {
		return l.String()
	}
	return labelDisplay[l]
}

// Spoken returns the display text without its emoji, for speech backends
// that would otherwise read the symbol name aloud.
func (l Label) Spoken() string {
	if !l.Valid() {
		return l.String()
	}
	return strings.TrimRightFunc(l.Display(), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ParseLabel resolves an identifier such as "thumbs_up" back to its Label.
// Matching ignores case and accepts dashes or spaces in place of underscores.
func ParseLabel(s string) (Label, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for _, l := range Labels {
		if labelNames[l] == key {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLabel, int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
