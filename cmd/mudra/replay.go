package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/speech"
)

type replayOptions struct {
	pace     bool
	speak    bool
	history  bool
	plugins  bool
	cooldown time.Duration
	stream   string
}

func newReplayCmd(c *cli) *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <file.jsonl|->",
		Short: "Recognize gestures from a recorded landmark stream",
		Long: `Replay a JSON Lines landmark recording through the classifier and
debouncer and print one line per gesture event. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("cooldown") {
				c.cfg.Debounce.Cooldown = opts.cooldown
			}
			return c.replay(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.pace, "pace", false, "replay at the recorded speed")
	cmd.Flags().BoolVar(&opts.speak, "speak", false, "speak each gesture")
	cmd.Flags().BoolVar(&opts.plugins, "plugins", false, "run installed gesture plugins")
	cmd.Flags().BoolVar(&opts.history, "history", false, "save events to the history database")
	cmd.Flags().DurationVar(&opts.cooldown, "cooldown", 0, "re-announce a held gesture after this long (0 = only on change)")
	cmd.Flags().StringVar(&opts.stream, "stream", "", "stream id stamped on events (default: file name)")

	return cmd
}

func (c *cli) replay(ctx context.Context, out io.Writer, path string, opts *replayOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	in, name, err := openInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	stream := opts.stream
	if stream == "" {
		stream = name
	}

	sinks := sink.NewMulti(c.logger)
	sinks.Add("printer", sink.NewPrinter(out))

	var closers []io.Closer
	if opts.speak {
		backend, err := speech.NewBackend(c.cfg.Speech.Backend, speech.Options{
			Voice: c.cfg.Speech.Voice,
			Rate:  c.cfg.Speech.Rate,
			Lang:  c.cfg.Speech.Lang,
		})
		if err != nil {
			return err
		}
		announcer := speech.NewAnnouncer(backend, c.logger)
		closers = append(closers, closerFunc(func() error {
			// Let the last announcement finish before exiting.
			announcer.Wait()
			return announcer.Close()
		}))
		sinks.Add("speech", announcer)
	}

	if opts.history {
		st, err := c.openStore()
		if err != nil {
			return err
		}
		closers = append(closers, st)
		sinks.Add("history", sink.NewHistory(st.Events()))
	}

	if opts.plugins {
		dispatcher, err := c.plugins()
		if err != nil {
			return err
		}
		if dispatcher != nil {
			closers = append(closers, closerFunc(func() error {
				dispatcher.Wait()
				return dispatcher.Close()
			}))
			sinks.Add("plugins", dispatcher)
		}
	}

	a := app.New(app.Config{
		Source:     capture.NewReplaySource(in, capture.ReplayConfig{Pace: opts.pace}),
		Classifier: c.classifier(),
		Debounce: gesture.DebouncerConfig{
			StreamID: stream,
			Cooldown: c.cfg.Debounce.Cooldown,
		},
		Sinks:   sinks,
		Closers: closers,
		Enabled: true,
		Logger:  c.logger,
	})

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("replay %s: %w", name, err)
	}

	stats := a.Stats()
	c.logger.Info().
		Int("observations", stats.Observations).
		Int("hands", stats.Hands).
		Int("events", stats.Events).
		Msg("replay finished")
	return nil
}

// openInput opens path, or stdin for "-". The returned name identifies the
// input in logs and event stream ids.
func openInput(path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return f, name, nil
}
