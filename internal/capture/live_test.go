package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

func newTestCamera(t *testing.T) *MockCamera {
	t.Helper()
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.SetFPS(100)
	return cam
}

func TestLiveSource_Observations(t *testing.T) {
	cam := newTestCamera(t)
	cam.Open()
	defer cam.Close()

	det := detector.NewMockDetector()
	det.SetSequence([][]detector.HandLandmarks{
		{detector.PoseLandmarks(false, true, true, false, false)},
		nil,
		{detector.PoseLandmarks(true, true, true, true, true), detector.ThumbsUpLandmarks()},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewLiveSource(LiveConfig{Camera: cam, Detector: det, Logger: zerolog.Nop()})
	ch, err := src.Observations(ctx)
	if err != nil {
		t.Fatalf("Observations() error = %v", err)
	}

	var got []Observation
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case obs := <-ch:
			if obs.Image == nil {
				t.Error("expected observation to carry the camera image")
			}
			obs.Release()
			got = append(got, obs)
		case <-timeout:
			t.Fatalf("expected 3 observations, got %d", len(got))
		}
	}

	if !got[0].HasHand() || !got[0].Frame.Valid() {
		t.Error("expected hand in first observation")
	}
	if got[1].HasHand() {
		t.Error("expected no hand in second observation")
	}
	want := detector.PoseLandmarks(true, true, true, true, true)
	if got[2].Frame[detector.PinkyTip] != want.Points[detector.PinkyTip] {
		t.Error("expected the first detected hand to be used")
	}
	if det.Calls() < 3 {
		t.Errorf("expected at least 3 detector calls, got %d", det.Calls())
	}

	if _, err := src.Observations(ctx); !errors.Is(err, ErrSourceStarted) {
		t.Errorf("expected ErrSourceStarted, got %v", err)
	}
}

func TestLiveSource_CameraNotOpen(t *testing.T) {
	cam := newTestCamera(t)

	src := NewLiveSource(LiveConfig{Camera: cam, Detector: detector.NewMockDetector(), Logger: zerolog.Nop()})
	if _, err := src.Observations(context.Background()); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen, got %v", err)
	}
}

func TestLiveSource_DetectorError(t *testing.T) {
	cam := newTestCamera(t)
	cam.Open()
	defer cam.Close()

	det := detector.NewMockDetector()
	det.SetError(errors.New("detector crashed"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewLiveSource(LiveConfig{Camera: cam, Detector: det, Logger: zerolog.Nop()})
	ch, err := src.Observations(ctx)
	if err != nil {
		t.Fatalf("Observations() error = %v", err)
	}

	select {
	case obs := <-ch:
		obs.Release()
		if obs.HasHand() {
			t.Error("expected no hand when detection fails")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no observation received")
	}
}

func TestLiveSource_MotionGate(t *testing.T) {
	cam := newTestCamera(t)
	cam.Open()
	defer cam.Close()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.PoseLandmarks(false, false, false, false, false)})

	motion := NewMotionDetector(1.0)
	defer motion.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewLiveSource(LiveConfig{Camera: cam, Detector: det, Motion: motion, Logger: zerolog.Nop()})
	ch, err := src.Observations(ctx)
	if err != nil {
		t.Fatalf("Observations() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		select {
		case obs := <-ch:
			obs.Release()
			if !obs.HasHand() {
				t.Errorf("observation %d: expected reused hand", i)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no observation received")
		}
	}

	// Only the first frame, which has no earlier detection to reuse, is detected.
	if det.Calls() != 1 {
		t.Errorf("expected 1 detector call for a still scene, got %d", det.Calls())
	}
}
