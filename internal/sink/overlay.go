package sink

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

const noHandText = "No hand detected"

var (
	connectorColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	landmarkColor  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	labelColor     = color.RGBA{R: 0, G: 255, B: 255, A: 0}
	noHandColor    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// handConnections are the bone segments of the 21-point hand model.
var handConnections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// Overlay annotates camera frames with the hand skeleton and the last
// announced gesture, and keeps the latest annotated frame as JPEG.
type Overlay struct {
	mirror bool

	mu   sync.RWMutex
	last *gesture.Event
	jpeg []byte
	seq  uint64
	hand bool
}

// NewOverlay creates an Overlay. With mirror set, frames are flipped
// horizontally before drawing so the preview behaves like a mirror.
func NewOverlay(mirror bool) *Overlay {
	return &Overlay{mirror: mirror}
}

// Handle remembers ev as the gesture to draw.
func (o *Overlay) Handle(_ context.Context, ev gesture.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = &ev
	return nil
}

// Label returns the display text of the last event, if any.
func (o *Overlay) Label() (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return "", false
	}
	return o.last.Display, true
}

// HandVisible reports whether the last rendered frame had a hand.
func (o *Overlay) HandVisible() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.hand
}

// Render draws onto img and stores the JPEG-encoded result. A nil frame
// means no hand was seen.
func (o *Overlay) Render(img *gocv.Mat, frame detector.Frame) error {
	if img == nil || img.Empty() {
		return nil
	}

	if o.mirror {
		gocv.Flip(*img, img, 1)
		frame = mirrorFrame(frame)
	}

	o.mu.RLock()
	var label string
	if o.last != nil {
		label = o.last.Label.Spoken()
	}
	o.mu.RUnlock()

	hand := frame.Valid()
	if hand {
		drawHand(img, frame)
	} else {
		drawNoHand(img)
	}
	if label != "" {
		drawLabel(img, label)
	}

	buf, err := gocv.IMEncode(".jpg", *img)
	if err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	o.mu.Lock()
	o.jpeg = data
	o.seq++
	o.hand = hand
	o.mu.Unlock()

	return nil
}

// Latest returns the most recent JPEG frame and its sequence number.
// The sequence is zero until the first frame is rendered.
func (o *Overlay) Latest() ([]byte, uint64) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.jpeg, o.seq
}

func mirrorFrame(frame detector.Frame) detector.Frame {
	if frame == nil {
		return nil
	}
	out := frame.Clone()
	for i := range out {
		out[i].X = 1 - out[i].X
	}
	return out
}

func toPixel(p detector.Point3D, img *gocv.Mat) image.Point {
	return image.Pt(int(p.X*float64(img.Cols())), int(p.Y*float64(img.Rows())))
}

func drawHand(img *gocv.Mat, frame detector.Frame) {
	for _, c := range handConnections {
		gocv.Line(img, toPixel(frame[c[0]], img), toPixel(frame[c[1]], img), connectorColor, 2)
	}
	for _, p := range frame {
		gocv.Circle(img, toPixel(p, img), 3, landmarkColor, -1)
	}
}

// drawLabel writes the gesture name in the top-right corner.
func drawLabel(img *gocv.Mat, text string) {
	size := gocv.GetTextSize(text, gocv.FontHersheyDuplex, 1.2, 2)
	org := image.Pt(img.Cols()-size.X-20, 60)
	if org.X < 0 {
		org.X = 0
	}
	gocv.PutText(img, text, org, gocv.FontHersheyDuplex, 1.2, labelColor, 2)
}

// drawNoHand writes the notice at half opacity.
func drawNoHand(img *gocv.Mat) {
	layer := img.Clone()
	defer layer.Close()

	gocv.PutText(&layer, noHandText, image.Pt(20, 40), gocv.FontHersheySimplex, 0.7, noHandColor, 2)
	gocv.AddWeighted(layer, 0.5, *img, 0.5, 0, img)
}
