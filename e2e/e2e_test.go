package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/store"
)

var (
	palm  = poseFrame(detector.PoseLandmarks(true, true, true, true, true))
	fist  = poseFrame(detector.PoseLandmarks(false, false, false, false, false))
	peace = poseFrame(detector.PoseLandmarks(false, true, true, false, false))
)

// recording encodes frames as a replay stream spaced 66ms apart.
func recording(t *testing.T, frames ...detector.Frame) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	start := time.UnixMilli(1700000000000)
	for i, f := range frames {
		obs := capture.Observation{Frame: f, Timestamp: start.Add(time.Duration(i) * 66 * time.Millisecond)}
		if err := capture.WriteRecord(&buf, obs); err != nil {
			t.Fatalf("WriteRecord() error = %v", err)
		}
	}
	return &buf
}

// installPlugin writes a plugin that appends each gesture it receives to log.
func installPlugin(t *testing.T, root, log string, gestures ...string) {
	t.Helper()

	dir := filepath.Join(root, "logger")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifest, _ := json.Marshal(plugin.Manifest{Name: "logger", Executable: "run.sh", Gestures: gestures})
	if err := os.WriteFile(filepath.Join(dir, plugin.ManifestFile), manifest, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	script := "#!/bin/sh\nsed -n 's/.*\"gesture\":\"\\([a-z_]*\\)\".*/\\1/p' >> " + log + "\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write plugin: %v", err)
	}
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestE2E_ReplayWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("plugin script needs a POSIX shell")
	}

	logger := zerolog.Nop()
	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	pluginLog := filepath.Join(tmpDir, "plugin.log")
	pluginDir := filepath.Join(tmpDir, "plugins")
	installPlugin(t, pluginDir, pluginLog, "peace")

	mgr := plugin.NewManager(pluginDir, logger)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	dispatcher := plugin.NewDispatcher(mgr, plugin.NewExecutor(5*time.Second), 0, logger)

	hub := server.NewHub(logger)
	sinks := sink.NewMulti(logger)
	sinks.Add("history", sink.NewHistory(s.Events()))
	sinks.Add("websocket", hub)
	sinks.Add("plugins", dispatcher)

	application := app.New(app.Config{
		Source: capture.NewReplaySource(
			recording(t, palm, palm, palm, fist, fist, nil, peace, peace),
			capture.ReplayConfig{},
		),
		Debounce: gesture.DebouncerConfig{StreamID: "session"},
		Sinks:    sinks,
		Settings: s.Settings(),
		Closers: []io.Closer{closerFunc(func() error {
			dispatcher.Wait()
			return dispatcher.Close()
		})},
		Enabled: true,
		Logger:  logger,
	})

	ts := httptest.NewServer(server.New(server.Config{
		Store:     s,
		Hub:       hub,
		Detection: application,
		Logger:    logger,
	}))
	defer ts.Close()
	client := ts.Client()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := application.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"flat_palm", "fist", "peace"}

	t.Run("WebSocket", func(t *testing.T) {
		for i, label := range want {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var ev gesture.Event
			if err := conn.ReadJSON(&ev); err != nil {
				t.Fatalf("message %d: read error = %v", i, err)
			}
			if ev.Label.String() != label || ev.StreamID != "session" {
				t.Errorf("message %d: expected %s on session, got %s on %s", i, label, ev.Label, ev.StreamID)
			}
		}
	})

	t.Run("History", func(t *testing.T) {
		var list struct {
			Events []store.Event `json:"events"`
		}
		getJSON(t, client, ts.URL+"/api/events", &list)

		if len(list.Events) != len(want) {
			t.Fatalf("expected %d events, got %d", len(want), len(list.Events))
		}
		// Newest first.
		for i, ev := range list.Events {
			if ev.Label != want[len(want)-1-i] {
				t.Errorf("event %d: expected %s, got %s", i, want[len(want)-1-i], ev.Label)
			}
		}

		var one store.Event
		getJSON(t, client, ts.URL+"/api/events/"+list.Events[0].ID, &one)
		if one.ID != list.Events[0].ID {
			t.Errorf("expected event %s, got %s", list.Events[0].ID, one.ID)
		}

		var stats struct {
			Total int `json:"total"`
		}
		getJSON(t, client, ts.URL+"/api/events/stats", &stats)
		if stats.Total != len(want) {
			t.Errorf("expected total %d, got %d", len(want), stats.Total)
		}
	})

	t.Run("Plugin", func(t *testing.T) {
		data, err := os.ReadFile(pluginLog)
		if err != nil {
			t.Fatalf("plugin never ran: %v", err)
		}
		if got := strings.TrimSpace(string(data)); got != "peace" {
			t.Errorf("expected plugin to see only peace, got %q", got)
		}
	})

	t.Run("Detection", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/detection", strings.NewReader(`{"enabled":false}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/detection error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var health struct {
			Enabled bool `json:"enabled"`
		}
		getJSON(t, client, ts.URL+"/api/health", &health)
		if health.Enabled {
			t.Error("expected detection disabled in health")
		}

		enabled, err := s.Settings().GetBool(store.SettingEnabled, true)
		if err != nil {
			t.Fatalf("GetBool() error = %v", err)
		}
		if enabled {
			t.Error("expected disabled state to be persisted")
		}
	})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// poseFrame converts a pose to a Frame; Frame has a pointer receiver, so the
// value returned by PoseLandmarks must be addressable first.
func poseFrame(h detector.HandLandmarks) detector.Frame {
	return h.Frame()
}
