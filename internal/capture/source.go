package capture

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"gocv.io/x/gocv"
)

// ErrSourceStarted is returned when Observations is called a second time.
// Sources are single-use.
var ErrSourceStarted = errors.New("source already started")

// Observation is one tick of the input stream.
type Observation struct {
	// Frame is nil when no hand was detected in this tick.
	Frame detector.Frame

	// Timestamp is when the tick was captured.
	Timestamp time.Time

	// Image is the camera frame behind the observation, if any. The receiver
	// owns it and must Close it.
	Image *gocv.Mat
}

// HasHand reports whether the tick carried a hand.
func (o Observation) HasHand() bool {
	return o.Frame != nil
}

// Release closes the attached image, if any.
func (o *Observation) Release() {
	if o.Image != nil {
		o.Image.Close()
		o.Image = nil
	}
}

// Source produces observations.
type Source interface {
	// Observations starts the source. The returned channel is closed when
	// the input ends or ctx is cancelled. A source can only be started once.
	Observations(ctx context.Context) (<-chan Observation, error)

	// Err reports why the stream ended early, once the channel is closed.
	Err() error
}
