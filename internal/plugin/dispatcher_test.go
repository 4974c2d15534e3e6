package plugin

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/gesture"
)

// installScript creates a plugin directory whose executable is a shell script.
func installScript(t *testing.T, root string, manifest Manifest, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	manifest.Executable = "run.sh"
	dir := writeManifest(t, root, manifest)
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
}

func newTestDispatcher(t *testing.T, root string, concurrency int) *Dispatcher {
	t.Helper()
	manager := NewManager(root, zerolog.Nop())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	d := NewDispatcher(manager, NewExecutor(5*time.Second), concurrency, zerolog.Nop())
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDispatcher_Handle(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "gestures.log")

	// Appends the gesture name from the request to a log file.
	installScript(t, root, Manifest{Name: "logger", Gestures: []string{"peace", "fist"}}, `
sed -n 's/.*"gesture":"\([a-z_]*\)".*/\1/p' >> `+out+`
echo '{"success":true}'
`)

	d := newTestDispatcher(t, root, 1)

	for _, label := range []gesture.Label{gesture.Peace, gesture.ThumbsUp} {
		if err := d.Handle(context.Background(), testEvent(label)); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		d.Wait()
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read plugin output: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "peace" {
		t.Errorf("expected only peace to reach the plugin, got %q", got)
	}

	runs, failed, dropped := d.Stats()
	if runs != 1 || failed != 0 || dropped != 0 {
		t.Errorf("expected 1/0/0 runs/failed/dropped, got %d/%d/%d", runs, failed, dropped)
	}
}

func TestDispatcher_Failures(t *testing.T) {
	root := t.TempDir()
	installScript(t, root, Manifest{Name: "refuses"}, `echo '{"success":false,"error":"nope"}'
`)
	installScript(t, root, Manifest{Name: "crashes"}, `exit 3
`)

	d := newTestDispatcher(t, root, 2)
	if err := d.Handle(context.Background(), testEvent(gesture.OK)); err != nil {
		t.Fatalf("Handle() should not report plugin failures, got %v", err)
	}
	d.Wait()

	runs, failed, _ := d.Stats()
	if runs != 2 || failed != 2 {
		t.Errorf("expected 2 runs and 2 failures, got %d and %d", runs, failed)
	}
}

func TestDispatcher_DropsWhenBusy(t *testing.T) {
	root := t.TempDir()
	installScript(t, root, Manifest{Name: "slow"}, `exec sleep 10
`)

	d := newTestDispatcher(t, root, 1)

	d.Handle(context.Background(), testEvent(gesture.Peace))
	d.Handle(context.Background(), testEvent(gesture.Fist))

	if _, _, dropped := d.Stats(); dropped != 1 {
		t.Errorf("expected 1 dropped run, got %d", dropped)
	}

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not stop the running plugin")
	}

	// Handle after Close is a no-op.
	d.Handle(context.Background(), testEvent(gesture.Peace))
	if runs, _, _ := d.Stats(); runs != 1 {
		t.Errorf("expected no runs after Close, got %d total", runs)
	}
}
