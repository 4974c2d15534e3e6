package gesture

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Event announces that the recognized gesture changed.
type Event struct {
	ID        uuid.UUID `json:"id"`
	StreamID  string    `json:"stream_id"`
	Label     Label     `json:"label"`
	Display   string    `json:"display"`
	Timestamp time.Time `json:"timestamp"`
	// Repeat marks a re-announcement of a held gesture after the cooldown.
	Repeat bool `json:"repeat"`
}

// DebouncerState is the memory a Debouncer keeps between frames.
type DebouncerState struct {
	// Holding is false while Idle, i.e. when the last frame had no gesture.
	Holding bool
	// Label is the gesture being held. Meaningless unless Holding.
	Label Label
	// LastEmittedAt is the time of the most recent event.
	LastEmittedAt time.Time
}

// DebouncerConfig selects the debounce policy.
type DebouncerConfig struct {
	// StreamID tags every emitted event. A random ID is used when empty.
	StreamID string

	// Cooldown enables periodic re-announcement of a held gesture. When
	// positive, a repeated label is emitted again once more than Cooldown
	// has passed since the previous event. Zero means edge-triggered only.
	Cooldown time.Duration

	// Clock supplies the current time for Observe. Defaults to the wall clock.
	Clock clock.Clock
}

// Debouncer turns a per-frame label stream into discrete events.
//
// A Debouncer belongs to exactly one input stream and is not safe for
// concurrent use.
type Debouncer struct {
	streamID string
	cooldown time.Duration
	clock    clock.Clock
	state    DebouncerState
}

// NewDebouncer creates a Debouncer in the Idle state.
func NewDebouncer(cfg DebouncerConfig) *Debouncer {
	if cfg.StreamID == "" {
		cfg.StreamID = uuid.NewString()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	return &Debouncer{
		streamID: cfg.StreamID,
		cooldown: cfg.Cooldown,
		clock:    cfg.Clock,
	}
}

// StreamID returns the identifier stamped on emitted events.
func (d *Debouncer) StreamID() string {
	return d.streamID
}

// Observe feeds one classification result, timestamped with the debouncer's
// clock. ok is false when the frame had no gesture.
func (d *Debouncer) Observe(label Label, ok bool) (Event, bool) {
	return d.ObserveAt(label, ok, d.clock.Now())
}

// ObserveAt feeds one classification result taken at ts.
//
// Idle: any label is emitted and held.
// Holding: losing the gesture returns to Idle silently; a different label is
// emitted at once; the same label is suppressed unless the cooldown expired.
func (d *Debouncer) ObserveAt(label Label, ok bool, ts time.Time) (Event, bool) {
	if !ok {
		d.state.Holding = false
		return Event{}, false
	}

	repeat := false
	if d.state.Holding && d.state.Label == label {
		if d.cooldown <= 0 || ts.Sub(d.state.LastEmittedAt) <= d.cooldown {
			return Event{}, false
		}
		repeat = true
	}

	d.state = DebouncerState{
		Holding:       true,
		Label:         label,
		LastEmittedAt: ts,
	}

	return Event{
		ID:        uuid.New(),
		StreamID:  d.streamID,
		Label:     label,
		Display:   label.Display(),
		Timestamp: ts,
		Repeat:    repeat,
	}, true
}

// State returns a copy of the current state.
func (d *Debouncer) State() DebouncerState {
	return d.state
}

// Reset returns the debouncer to Idle and forgets the last emission time.
func (d *Debouncer) Reset() {
	d.state = DebouncerState{}
}
