package speech

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/rs/zerolog"
)

// fakeBackend blocks each utterance until release is closed or ctx ends.
type fakeBackend struct {
	mu        sync.Mutex
	started   []string
	completed []string
	release   chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{release: make(chan struct{})}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	f.started = append(f.started, text)
	f.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-f.release:
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	f.mu.Lock()
	f.completed = append(f.completed, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) snapshot() (started, completed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...), append([]string(nil), f.completed...)
}

func waitStarted(t *testing.T, f *fakeBackend, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if started, _ := f.snapshot(); len(started) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d utterances to start", n)
}

func TestAnnouncer_LatestWins(t *testing.T) {
	backend := newFakeBackend()
	a := NewAnnouncer(backend, zerolog.Nop())
	defer a.Close()

	a.Announce("Peace")
	waitStarted(t, backend, 1)

	a.Announce("Good")
	waitStarted(t, backend, 2)

	close(backend.release)
	a.Wait()

	started, completed := backend.snapshot()
	if !reflect.DeepEqual(started, []string{"Peace", "Good"}) {
		t.Errorf("expected [Peace Good] started, got %v", started)
	}
	if !reflect.DeepEqual(completed, []string{"Good"}) {
		t.Errorf("expected only Good to complete, got %v", completed)
	}
	if a.Spoken() != 1 {
		t.Errorf("expected 1 spoken, got %d", a.Spoken())
	}
}

func TestAnnouncer_BurstKeepsOnlyLast(t *testing.T) {
	backend := newFakeBackend()
	a := NewAnnouncer(backend, zerolog.Nop())
	defer a.Close()

	a.Announce("one")
	a.Announce("two")
	a.Announce("three")

	close(backend.release)
	a.Wait()

	_, completed := backend.snapshot()
	if !reflect.DeepEqual(completed, []string{"three"}) {
		t.Errorf("expected only three to complete, got %v", completed)
	}
}

func TestAnnouncer_Handle(t *testing.T) {
	backend := newFakeBackend()
	close(backend.release)
	a := NewAnnouncer(backend, zerolog.Nop())
	defer a.Close()

	if err := a.Handle(context.Background(), gesture.Event{Label: gesture.CallMe}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Wait()

	_, completed := backend.snapshot()
	if !reflect.DeepEqual(completed, []string{"Call Me"}) {
		t.Errorf("expected [Call Me], got %v", completed)
	}
}

func TestAnnouncer_Close(t *testing.T) {
	backend := newFakeBackend()
	a := NewAnnouncer(backend, zerolog.Nop())

	a.Announce("Hello")
	waitStarted(t, backend, 1)

	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.Announce("after close")
	a.Wait()

	started, completed := backend.snapshot()
	if len(started) != 1 || len(completed) != 0 {
		t.Errorf("expected 1 interrupted utterance, got started=%v completed=%v", started, completed)
	}
}

func TestBackendArgs(t *testing.T) {
	tests := []struct {
		name    string
		backend *CommandBackend
		want    []string
	}{
		{"say default", NewSay(Options{Rate: 1}), []string{"hi"}},
		{"say voice and rate", NewSay(Options{Voice: "Samantha", Rate: 1.2}), []string{"-v", "Samantha", "-r", "210", "hi"}},
		{"espeak lang", NewEspeak(Options{Lang: "en-US", Rate: 1}), []string{"-v", "en-us", "-s", "175", "hi"}},
		{"espeak voice wins", NewEspeak(Options{Voice: "en-gb", Lang: "en-US", Rate: 0.8}), []string{"-v", "en-gb", "-s", "140", "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.backend.args("hi"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewBackend(t *testing.T) {
	orig := lookPath
	defer func() { lookPath = orig }()

	lookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }

	b, err := NewBackend("espeak", Options{})
	if err != nil || b.Name() != "espeak" {
		t.Errorf("expected espeak backend, got %v (%v)", b, err)
	}

	b, err = NewBackend("auto", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "espeak"
	if runtime.GOOS == "darwin" {
		want = "say"
	}
	if b.Name() != want {
		t.Errorf("expected %s for auto, got %s", want, b.Name())
	}

	if _, err := NewBackend("festival", Options{}); err == nil {
		t.Error("expected error for unknown backend")
	}

	lookPath = func(file string) (string, error) { return "", errors.New("not found") }
	if _, err := NewBackend("say", Options{}); !errors.Is(err, ErrNoBackend) {
		t.Errorf("expected ErrNoBackend, got %v", err)
	}
}

func TestCommandBackend_Speak(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	fail := &CommandBackend{name: "sh", command: "sh", args: func(string) []string { return []string{"-c", "echo boom; exit 3"} }}
	if err := fail.Speak(context.Background(), "x"); err == nil {
		t.Error("expected error from failing command")
	}

	slow := &CommandBackend{name: "sh", command: "sh", args: func(string) []string { return []string{"-c", "sleep 5"} }}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := slow.Speak(ctx, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancelled command kept running")
	}
}
