package sink

import (
	"bytes"
	"context"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

func TestOverlay_Label(t *testing.T) {
	o := NewOverlay(false)

	if _, ok := o.Label(); ok {
		t.Error("expected no label before the first event")
	}

	o.Handle(context.Background(), testEvent(gesture.Peace))
	o.Handle(context.Background(), testEvent(gesture.OK))

	label, ok := o.Label()
	if !ok || label != gesture.OK.Display() {
		t.Errorf("expected %q, got %q", gesture.OK.Display(), label)
	}
}

func TestOverlay_Render(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	o := NewOverlay(true)
	o.Handle(context.Background(), testEvent(gesture.FlatPalm))

	if _, seq := o.Latest(); seq != 0 {
		t.Errorf("expected sequence 0 before rendering, got %d", seq)
	}

	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	hand := detector.PoseLandmarks(true, true, true, true, true)
	if err := o.Render(&img, hand.Frame()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !o.HandVisible() {
		t.Error("expected hand to be visible")
	}

	data, seq := o.Latest()
	if seq != 1 {
		t.Errorf("expected sequence 1, got %d", seq)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("expected JPEG data")
	}

	if err := o.Render(&img, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if o.HandVisible() {
		t.Error("expected no hand after an absent frame")
	}
	if _, seq := o.Latest(); seq != 2 {
		t.Errorf("expected sequence 2, got %d", seq)
	}
}

func TestOverlay_RenderEmpty(t *testing.T) {
	o := NewOverlay(false)
	if err := o.Render(nil, nil); err != nil {
		t.Errorf("expected nil image to be ignored, got %v", err)
	}
	if _, seq := o.Latest(); seq != 0 {
		t.Errorf("expected no frame, got sequence %d", seq)
	}
}

func TestMirrorFrame(t *testing.T) {
	frame := poseFrame(detector.PoseLandmarks(false, true, false, false, false))
	mirrored := mirrorFrame(frame)

	if mirrored[detector.IndexTip].X != 1-frame[detector.IndexTip].X {
		t.Errorf("expected mirrored x %f, got %f", 1-frame[detector.IndexTip].X, mirrored[detector.IndexTip].X)
	}
	if frame[detector.IndexTip].X == mirrored[detector.IndexTip].X {
		t.Error("expected the input frame to be left untouched")
	}
	if mirrorFrame(nil) != nil {
		t.Error("expected nil for an absent frame")
	}
}

// poseFrame converts a pose to a Frame; Frame has a pointer receiver, so the
// value returned by PoseLandmarks must be addressable first.
func poseFrame(h detector.HandLandmarks) detector.Frame {
	return h.Frame()
}
