package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
)

func testCLI(t *testing.T) *cli {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "mudra.db")
	return &cli{cfg: cfg, logger: zerolog.Nop()}
}

func writeRecording(t *testing.T, frames ...detector.Frame) string {
	t.Helper()
	var buf bytes.Buffer
	for i, f := range frames {
		obs := capture.Observation{Frame: f, Timestamp: time.UnixMilli(int64(i) * 66)}
		if err := capture.WriteRecord(&buf, obs); err != nil {
			t.Fatalf("WriteRecord() error = %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write recording: %v", err)
	}
	return path
}

func TestReplay(t *testing.T) {
	c := testCLI(t)
	palm := poseFrame(detector.PoseLandmarks(true, true, true, true, true))
	fist := poseFrame(detector.PoseLandmarks(false, false, false, false, false))
	path := writeRecording(t, palm, palm, fist, nil, fist)

	var out bytes.Buffer
	if err := c.replay(context.Background(), &out, path, &replayOptions{history: true}); err != nil {
		t.Fatalf("replay() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 events, got %d: %q", len(lines), out.String())
	}
	for i, want := range []string{"flat_palm", "fist", "fist"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d: expected %s, got %q", i, want, lines[i])
		}
	}

	st, err := c.openStore()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	events, err := st.Events().List(0)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 3 || events[0].StreamID != "session" {
		t.Errorf("expected 3 stored events on stream session, got %d", len(events))
	}
}

func TestReplay_MissingFile(t *testing.T) {
	c := testCLI(t)
	var out bytes.Buffer
	if err := c.replay(context.Background(), &out, filepath.Join(t.TempDir(), "nope.jsonl"), &replayOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"bare array", `[{"x":0.1,"y":0.2,"z":0}]`, 1},
		{"record", `{"timestamp_ms":1,"landmarks":[{"x":0.1,"y":0.2,"z":0},{"x":0.3,"y":0.4,"z":0}]}`, 2},
		{"record without hand", `{"timestamp_ms":1}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := parseFrame([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(frame) != tt.want {
				t.Errorf("expected %d points, got %d", tt.want, len(frame))
			}
		})
	}

	if _, err := parseFrame([]byte(`nonsense`)); err == nil {
		t.Error("expected error for invalid input")
	}
}

func TestClassifyCmd(t *testing.T) {
	c := testCLI(t)
	peace := poseFrame(detector.PoseLandmarks(false, true, true, false, false))
	path := writeRecording(t, peace)

	cmd := newClassifyCmd(c)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "peace\t") {
		t.Errorf("expected peace, got %q", out.String())
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/.mudra/mudra.db", filepath.Join(home, ".mudra/mudra.db")},
		{"~", home},
		{"/tmp/x.db", "/tmp/x.db"},
		{"~other/x", "~other/x"},
	}

	for _, tt := range tests {
		if got := expandHome(tt.in); got != tt.want {
			t.Errorf("expandHome(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestDashboardURL(t *testing.T) {
	if got := dashboardURL(":8080"); got != "http://localhost:8080" {
		t.Errorf("expected http://localhost:8080, got %s", got)
	}
	if got := dashboardURL("0.0.0.0:9000"); got != "http://0.0.0.0:9000" {
		t.Errorf("expected http://0.0.0.0:9000, got %s", got)
	}
}

// poseFrame converts a pose to a Frame; Frame has a pointer receiver, so the
// value returned by PoseLandmarks must be addressable first.
func poseFrame(h detector.HandLandmarks) detector.Frame {
	return h.Frame()
}
