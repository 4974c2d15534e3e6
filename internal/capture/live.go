package capture

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// maxStillTicks bounds how many ticks may reuse the previous detection while
// the scene is still.
const maxStillTicks = 15

// LiveConfig configures a LiveSource.
type LiveConfig struct {
	Camera   Camera
	Detector detector.Detector

	// Motion, when set, lets the source reuse the previous detection for
	// frames in which nothing moved.
	Motion *MotionDetector

	Logger zerolog.Logger
	Clock  clock.Clock
}

// LiveSource reads camera frames at the camera's FPS and runs hand
// detection on each one. Only the first detected hand is used.
type LiveSource struct {
	cfg     LiveConfig
	logger  zerolog.Logger
	mu      sync.Mutex
	started bool
}

// NewLiveSource creates a LiveSource. The camera must already be open.
func NewLiveSource(cfg LiveConfig) *LiveSource {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &LiveSource{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "live-source").Logger(),
	}
}

// Observations starts the capture loop.
func (s *LiveSource) Observations(ctx context.Context) (<-chan Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil, ErrSourceStarted
	}
	if !s.cfg.Camera.IsOpen() {
		return nil, ErrCameraNotOpen
	}
	s.started = true

	out := make(chan Observation)
	go s.run(ctx, out)
	return out, nil
}

// Err returns nil: camera and detector failures are logged and the tick is
// skipped or reported as having no hand.
func (s *LiveSource) Err() error {
	return nil
}

func (s *LiveSource) run(ctx context.Context, out chan<- Observation) {
	defer close(out)

	fps := s.cfg.Camera.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := s.cfg.Clock.Ticker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var last detector.Frame
	detected := false
	still := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		img, err := s.cfg.Camera.ReadFrame()
		if err != nil {
			s.logger.Warn().Err(err).Msg("read frame")
			continue
		}

		obs := Observation{Image: img, Timestamp: s.cfg.Clock.Now()}

		moved := true
		if s.cfg.Motion != nil {
			moved, _ = s.cfg.Motion.Detect(img)
		}

		if !moved && detected && still < maxStillTicks {
			still++
			obs.Frame = last.Clone()
		} else {
			still = 0
			detected = true
			last = s.detect(obs)
			obs.Frame = last.Clone()
		}

		select {
		case out <- obs:
		case <-ctx.Done():
			obs.Release()
			return
		}
	}
}

// detect runs the hand detector and returns the first hand, or nil.
func (s *LiveSource) detect(obs Observation) detector.Frame {
	hands, err := s.cfg.Detector.Detect(obs.Image)
	if err != nil {
		s.logger.Warn().Err(err).Msg("detect hands")
		return nil
	}
	if len(hands) == 0 {
		return nil
	}
	return hands[0].Frame()
}
