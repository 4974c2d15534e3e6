// Package sink delivers gesture events to their consumers.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
	"github.com/rs/zerolog"
)

// Sink consumes gesture events. Handle is called from the pipeline goroutine
// and must return promptly.
type Sink interface {
	Handle(ctx context.Context, ev gesture.Event) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, ev gesture.Event) error

// Handle calls f.
func (f Func) Handle(ctx context.Context, ev gesture.Event) error {
	return f(ctx, ev)
}

type namedSink struct {
	name string
	sink Sink
}

// Multi fans an event out to every registered sink in order.
type Multi struct {
	mu     sync.RWMutex
	sinks  []namedSink
	logger zerolog.Logger
}

// NewMulti creates an empty fan-out.
func NewMulti(logger zerolog.Logger) *Multi {
	return &Multi{logger: logger.With().Str("component", "sinks").Logger()}
}

// Add registers s under name.
func (m *Multi) Add(name string, s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, namedSink{name: name, sink: s})
}

// Names returns the registered sink names in call order.
func (m *Multi) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.name
	}
	return names
}

// Handle delivers ev to every sink. A failing sink is logged and does not
// stop delivery to the rest; the failures are returned joined.
func (m *Multi) Handle(ctx context.Context, ev gesture.Event) error {
	m.mu.RLock()
	sinks := m.sinks
	m.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := s.sink.Handle(ctx, ev); err != nil {
			m.logger.Warn().Err(err).Str("sink", s.name).Str("label", ev.Label.String()).Msg("sink failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Switch forwards events to a sink only while it is on.
type Switch struct {
	sink Sink
	on   atomic.Bool
}

// NewSwitch wraps s with the given initial state.
func NewSwitch(s Sink, on bool) *Switch {
	sw := &Switch{sink: s}
	sw.on.Store(on)
	return sw
}

// Set turns forwarding on or off.
func (s *Switch) Set(on bool) {
	s.on.Store(on)
}

// On reports whether events are forwarded.
func (s *Switch) On() bool {
	return s.on.Load()
}

// Handle forwards ev when on.
func (s *Switch) Handle(ctx context.Context, ev gesture.Event) error {
	if !s.on.Load() {
		return nil
	}
	return s.sink.Handle(ctx, ev)
}

// History writes events to the store.
type History struct {
	events *store.EventRepository
}

// NewHistory creates a History sink.
func NewHistory(events *store.EventRepository) *History {
	return &History{events: events}
}

// Handle records ev.
func (h *History) Handle(_ context.Context, ev gesture.Event) error {
	if err := h.events.Create(store.FromGesture(ev)); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Printer writes one line per event, e.g. for the replay command.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Handle prints ev.
func (p *Printer) Handle(_ context.Context, ev gesture.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	suffix := ""
	if ev.Repeat {
		suffix = " (repeat)"
	}
	_, err := fmt.Fprintf(p.w, "%s  %-10s %s%s\n",
		ev.Timestamp.Format("15:04:05.000"), ev.Label, ev.Display, suffix)
	return err
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []gesture.Event
}

// Handle appends ev.
func (r *Recorder) Handle(_ context.Context, ev gesture.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []gesture.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gesture.Event(nil), r.events...)
}

// Labels returns the labels of the recorded events in order.
func (r *Recorder) Labels() []gesture.Label {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]gesture.Label, len(r.events))
	for i, ev := range r.events {
		labels[i] = ev.Label
	}
	return labels
}
