// Package app wires an observation source through the classifier and
// debouncer into the event sinks.
package app

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/store"
)

// ErrRunning is returned by Start when the pipeline is already running.
var ErrRunning = errors.New("pipeline already running")

// Config holds the collaborators of an App.
type Config struct {
	Source     capture.Source
	Classifier *gesture.Classifier
	Debounce   gesture.DebouncerConfig

	// Sinks receives every debounced event.
	Sinks sink.Sink

	// Overlay, when set, renders each observation's camera image.
	Overlay *sink.Overlay

	// Record, when set, receives every observation as a replay record.
	Record io.Writer

	// Settings persists the enabled switch across runs.
	Settings *store.SettingRepository

	// Closers are closed by Stop, in order, after the pipeline has ended.
	Closers []io.Closer

	// Enabled is the initial switch state when nothing is persisted.
	Enabled bool

	Logger zerolog.Logger
}

// Stats counts what the pipeline has processed.
type Stats struct {
	Observations int `json:"observations"`
	Hands        int `json:"hands"`
	Classified   int `json:"classified"`
	Events       int `json:"events"`
	SinkErrors   int `json:"sink_errors"`
}

// App is the gesture pipeline for one input stream.
type App struct {
	config     Config
	classifier *gesture.Classifier
	debouncer  *gesture.Debouncer
	logger     zerolog.Logger

	mu       sync.RWMutex
	enabled  bool
	resetReq bool
	cancel   context.CancelFunc
	done     chan struct{}
	stats    Stats
}

// New creates an App. A nil classifier uses the default rule table.
func New(config Config) *App {
	classifier := config.Classifier
	if classifier == nil {
		classifier = gesture.NewDefaultClassifier()
	}
	if config.Sinks == nil {
		config.Sinks = sink.NewMulti(config.Logger)
	}

	a := &App{
		config:     config,
		classifier: classifier,
		debouncer:  gesture.NewDebouncer(config.Debounce),
		logger:     config.Logger.With().Str("component", "pipeline").Logger(),
		enabled:    config.Enabled,
	}

	if config.Settings != nil {
		enabled, err := config.Settings.GetBool(store.SettingEnabled, config.Enabled)
		if err != nil {
			a.logger.Warn().Err(err).Msg("failed to load enabled setting")
		}
		a.enabled = enabled
	}

	return a
}

// StreamID returns the identifier stamped on this pipeline's events.
func (a *App) StreamID() string {
	return a.debouncer.StreamID()
}

// SetEnabled enables or disables gesture detection. Disabling forgets the
// held gesture so it is announced again once detection resumes.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	if changed && !enabled {
		a.resetReq = true
	}
	a.mu.Unlock()

	if !changed {
		return
	}

	a.logger.Info().Bool("enabled", enabled).Msg("detection switched")
	if a.config.Settings != nil {
		if err := a.config.Settings.SetBool(store.SettingEnabled, enabled); err != nil {
			a.logger.Warn().Err(err).Msg("failed to persist enabled setting")
		}
	}
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Stats returns a snapshot of the pipeline counters.
func (a *App) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Start begins consuming the source.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	observations, err := a.config.Source.Observations(ctx)
	if err != nil {
		cancel()
		return err
	}

	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(ctx, observations, a.done)

	a.logger.Info().Str("stream", a.StreamID()).Msg("detection pipeline started")
	return nil
}

// Wait blocks until the pipeline has ended, either because the source ran
// dry or because Stop was called.
func (a *App) Wait() {
	a.mu.RLock()
	done := a.done
	a.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Stop halts the pipeline and closes the configured resources.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	for _, c := range a.config.Closers {
		if err := c.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing resource")
		}
	}

	a.logger.Info().Msg("detection pipeline stopped")
}

// Run starts the pipeline, blocks until the source ends or ctx is cancelled,
// then stops it. It returns the source's error, if any.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	a.Wait()
	a.Stop()
	return a.config.Source.Err()
}
