package app

import (
	"context"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
)

// runPipeline consumes observations on a single goroutine: each one is
// classified and debounced before the next is read, and any event is
// delivered to the sinks synchronously.
func (a *App) runPipeline(ctx context.Context, observations <-chan capture.Observation, done chan<- struct{}) {
	defer close(done)

	for obs := range observations {
		a.process(ctx, obs)
	}
}

// process handles one observation.
func (a *App) process(ctx context.Context, obs capture.Observation) {
	defer obs.Release()

	a.mu.Lock()
	enabled := a.enabled
	reset := a.resetReq
	a.resetReq = false
	a.stats.Observations++
	if obs.HasHand() {
		a.stats.Hands++
	}
	a.mu.Unlock()

	if reset {
		a.debouncer.Reset()
	}

	if a.config.Record != nil {
		if err := capture.WriteRecord(a.config.Record, obs); err != nil {
			a.logger.Warn().Err(err).Msg("failed to record observation")
		}
	}

	if enabled {
		a.classifyAndEmit(ctx, obs)
	}

	if a.config.Overlay != nil && obs.Image != nil {
		if err := a.config.Overlay.Render(obs.Image, obs.Frame); err != nil {
			a.logger.Debug().Err(err).Msg("overlay render failed")
		}
	}
}

func (a *App) classifyAndEmit(ctx context.Context, obs capture.Observation) {
	label, ok := a.classifier.Classify(obs.Frame)
	if ok {
		a.mu.Lock()
		a.stats.Classified++
		a.mu.Unlock()
	}

	var ev gesture.Event
	var emit bool
	if obs.Timestamp.IsZero() {
		ev, emit = a.debouncer.Observe(label, ok)
	} else {
		ev, emit = a.debouncer.ObserveAt(label, ok, obs.Timestamp)
	}
	if !emit {
		return
	}

	a.logger.Info().
		Str("label", ev.Label.String()).
		Bool("repeat", ev.Repeat).
		Msg("gesture detected")

	err := a.config.Sinks.Handle(ctx, ev)

	a.mu.Lock()
	a.stats.Events++
	if err != nil {
		a.stats.SinkErrors++
	}
	a.mu.Unlock()
}
