// Package speech announces gestures aloud through the system text-to-speech
// command.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	// baseWPM is the default speaking rate of both say and espeak.
	baseWPM = 175

	// waitDelay bounds how long a killed command may hold its output open.
	waitDelay = 500 * time.Millisecond
)

// ErrNoBackend is returned when no speech command is available.
var ErrNoBackend = errors.New("no speech backend available")

// Backend speaks text, blocking until the utterance ends or ctx is cancelled.
type Backend interface {
	Name() string
	Speak(ctx context.Context, text string) error
}

// Options tunes a command backend.
type Options struct {
	Voice string
	// Rate multiplies the default speaking rate.
	Rate float64
	Lang string
}

func (o Options) wpm() int {
	if o.Rate <= 0 {
		return baseWPM
	}
	return int(float64(baseWPM)*o.Rate + 0.5)
}

// CommandBackend runs an external TTS program once per utterance.
type CommandBackend struct {
	name    string
	command string
	args    func(text string) []string
}

// Name returns the backend identifier.
func (b *CommandBackend) Name() string {
	return b.name
}

// Speak runs the command. Cancelling ctx kills the process.
func (b *CommandBackend) Speak(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, b.command, b.args(text)...)
	cmd.WaitDelay = waitDelay
	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if len(output) > 0 {
			return fmt.Errorf("%s failed: %w, output: %s", b.command, err, strings.TrimSpace(string(output)))
		}
		return fmt.Errorf("%s failed: %w", b.command, err)
	}
	return nil
}

// NewSay returns the macOS say backend.
func NewSay(opts Options) *CommandBackend {
	return &CommandBackend{
		name:    "say",
		command: "say",
		args: func(text string) []string {
			var args []string
			if opts.Voice != "" {
				args = append(args, "-v", opts.Voice)
			}
			if wpm := opts.wpm(); wpm != baseWPM {
				args = append(args, "-r", strconv.Itoa(wpm))
			}
			return append(args, text)
		},
	}
}

// NewEspeak returns the espeak backend. Voice wins over Lang when both are set.
func NewEspeak(opts Options) *CommandBackend {
	return &CommandBackend{
		name:    "espeak",
		command: "espeak",
		args: func(text string) []string {
			var args []string
			switch {
			case opts.Voice != "":
				args = append(args, "-v", opts.Voice)
			case opts.Lang != "":
				args = append(args, "-v", strings.ToLower(opts.Lang))
			}
			args = append(args, "-s", strconv.Itoa(opts.wpm()))
			return append(args, text)
		},
	}
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// NewBackend returns the named backend. "auto" picks say on macOS and espeak
// elsewhere, provided the command is installed.
func NewBackend(name string, opts Options) (Backend, error) {
	var b *CommandBackend
	switch name {
	case "say":
		b = NewSay(opts)
	case "espeak":
		b = NewEspeak(opts)
	case "", "auto":
		if runtime.GOOS == "darwin" {
			b = NewSay(opts)
		} else {
			b = NewEspeak(opts)
		}
	default:
		return nil, fmt.Errorf("unknown speech backend %q", name)
	}

	if _, err := lookPath(b.command); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoBackend, b.command, err)
	}
	return b, nil
}
