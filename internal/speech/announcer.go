package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/rs/zerolog"
)

// Announcer speaks the most recent text only. Starting an utterance cancels
// the one in flight; nothing is queued.
type Announcer struct {
	backend Backend
	logger  zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
	spoken int
}

// NewAnnouncer creates an Announcer on top of backend.
func NewAnnouncer(backend Backend, logger zerolog.Logger) *Announcer {
	return &Announcer{
		backend: backend,
		logger:  logger.With().Str("component", "speech").Str("backend", backend.Name()).Logger(),
	}
}

// Announce starts speaking text and returns immediately.
func (a *Announcer) Announce(text string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}

	if a.cancel != nil {
		a.cancel()
	}
	prev := a.done

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		// Two voices must never overlap.
		if prev != nil {
			<-prev
		}
		if ctx.Err() != nil {
			return
		}

		err := a.backend.Speak(ctx, text)
		switch {
		case errors.Is(err, context.Canceled):
			a.logger.Debug().Str("text", text).Msg("utterance interrupted")
		case err != nil:
			a.logger.Warn().Err(err).Str("text", text).Msg("speak failed")
		default:
			a.mu.Lock()
			a.spoken++
			a.mu.Unlock()
		}
	}()
}

// Handle announces the gesture of ev.
func (a *Announcer) Handle(_ context.Context, ev gesture.Event) error {
	a.Announce(ev.Label.Spoken())
	return nil
}

// Spoken returns how many utterances finished without interruption.
func (a *Announcer) Spoken() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.spoken
}

// Wait blocks until the current utterance, if any, has ended.
func (a *Announcer) Wait() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close cancels the current utterance and rejects new ones.
func (a *Announcer) Close() error {
	a.mu.Lock()
	a.closed = true
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	a.Wait()
	return nil
}
