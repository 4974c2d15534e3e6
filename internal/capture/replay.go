package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/benbjohnson/clock"
)

// maxRecordSize bounds a single JSON line in a replay file.
const maxRecordSize = 1 << 20

// Record is one line of a replay file.
//
//	{"timestamp_ms": 1700000000000, "landmarks": [{"x":0.5,"y":0.8,"z":0}, ...]}
//
// A missing or empty landmarks array means no hand was seen in that tick.
type Record struct {
	TimestampMs int64              `json:"timestamp_ms"`
	Landmarks   []detector.Point3D `json:"landmarks,omitempty"`
}

// ReplayConfig configures a ReplaySource.
type ReplayConfig struct {
	// Pace sleeps between records so they are delivered at their recorded
	// spacing. Otherwise records are delivered as fast as they are consumed.
	Pace bool

	Clock clock.Clock
}

// ReplaySource plays back landmark records from a JSON Lines stream.
type ReplaySource struct {
	r       io.Reader
	cfg     ReplayConfig
	mu      sync.Mutex
	started bool
	err     error
}

// NewReplaySource creates a ReplaySource reading from r.
func NewReplaySource(r io.Reader, cfg ReplayConfig) *ReplaySource {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &ReplaySource{r: r, cfg: cfg}
}

// Observations starts playback.
func (s *ReplaySource) Observations(ctx context.Context) (<-chan Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil, ErrSourceStarted
	}
	s.started = true

	out := make(chan Observation)
	go s.run(ctx, out)
	return out, nil
}

// Err returns the first read or parse error, if any.
func (s *ReplaySource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ReplaySource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *ReplaySource) run(ctx context.Context, out chan<- Observation) {
	defer close(out)

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)

	var prev time.Time
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		obs, err := ParseRecord([]byte(text))
		if err != nil {
			s.fail(fmt.Errorf("line %d: %w", line, err))
			return
		}

		if s.cfg.Pace && !prev.IsZero() {
			if gap := obs.Timestamp.Sub(prev); gap > 0 {
				select {
				case <-s.cfg.Clock.After(gap):
				case <-ctx.Done():
					return
				}
			}
		}
		prev = obs.Timestamp

		select {
		case out <- obs:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.fail(fmt.Errorf("read replay: %w", err))
	}
}

// ParseRecord decodes one replay line into an observation. Landmark arrays
// of the wrong length are kept as-is so the classifier sees them as invalid.
func ParseRecord(data []byte) (Observation, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Observation{}, fmt.Errorf("parse record: %w", err)
	}

	obs := Observation{Timestamp: time.UnixMilli(rec.TimestampMs)}
	if len(rec.Landmarks) > 0 {
		obs.Frame = detector.Frame(rec.Landmarks)
	}
	return obs, nil
}

// WriteRecord appends obs to w as one JSON line.
func WriteRecord(w io.Writer, obs Observation) error {
	rec := Record{
		TimestampMs: obs.Timestamp.UnixMilli(),
		Landmarks:   obs.Frame,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
