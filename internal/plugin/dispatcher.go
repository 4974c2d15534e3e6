package plugin

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/gesture"
)

// DefaultConcurrency caps how many plugin processes run at once.
const DefaultConcurrency = 4

// Dispatcher is a gesture sink that runs subscribed plugins in the
// background. Handle never blocks: when every slot is busy the run is
// dropped and counted.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	slots  chan struct{}
	wg     sync.WaitGroup

	runs    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewDispatcher creates a Dispatcher. concurrency <= 0 uses
// DefaultConcurrency.
func NewDispatcher(manager *Manager, executor *Executor, concurrency int, logger zerolog.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		logger:   logger.With().Str("component", "plugin-dispatcher").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		slots:    make(chan struct{}, concurrency),
	}
}

// Handle starts every plugin subscribed to ev. Runs outlive the caller's
// context and are only stopped by Close.
func (d *Dispatcher) Handle(_ context.Context, ev gesture.Event) error {
	if d.ctx.Err() != nil {
		return nil
	}

	for _, p := range d.manager.Subscribers(ev) {
		select {
		case d.slots <- struct{}{}:
		default:
			d.dropped.Add(1)
			d.logger.Warn().Str("plugin", p.Manifest.Name).Str("gesture", ev.Label.String()).Msg("plugin busy, event dropped")
			continue
		}

		d.wg.Add(1)
		go d.run(p, ev)
	}
	return nil
}

func (d *Dispatcher) run(p *Plugin, ev gesture.Event) {
	defer d.wg.Done()
	defer func() { <-d.slots }()

	d.runs.Add(1)
	resp, err := d.executor.Execute(d.ctx, p, NewRequest(p, ev))
	switch {
	case err != nil:
		d.failed.Add(1)
		d.logger.Error().Err(err).Str("plugin", p.Manifest.Name).Msg("plugin failed")
	case !resp.Success:
		d.failed.Add(1)
		d.logger.Warn().Str("plugin", p.Manifest.Name).Str("error", resp.Error).Msg("plugin reported failure")
	default:
		d.logger.Debug().Str("plugin", p.Manifest.Name).Str("gesture", ev.Label.String()).Msg("plugin ran")
	}
}

// Stats returns how many runs were started, failed and dropped.
func (d *Dispatcher) Stats() (runs, failed, dropped int64) {
	return d.runs.Load(), d.failed.Load(), d.dropped.Load()
}

// Wait blocks until every started run has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close kills running plugins and waits for them to exit.
func (d *Dispatcher) Close() error {
	d.cancel()
	d.wg.Wait()
	return nil
}
