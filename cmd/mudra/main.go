// Command mudra recognizes hand gestures from a camera or a recorded
// landmark stream and announces them.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

var version = "dev"

// cli holds the state shared by all subcommands.
type cli struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

func main() {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "mudra",
		Short: "Mudra - hand gesture recognition and announcement",
		Long: `Mudra watches a camera for hand poses, recognizes nine static gestures
(peace, thumbs up, pointing, flat palm, fist, OK, call me, rock on and no)
and announces each new gesture on screen, aloud and over the network.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfigPath(), "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newRunCmd(c),
		newReplayCmd(c),
		newClassifyCmd(c),
		newHistoryCmd(c),
		newPluginsCmd(c),
		newLabelsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// load reads the config file and builds the logger.
func (c *cli) load() error {
	path := c.configPath
	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultConfigPath() {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	c.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
	return nil
}

// openStore opens the history database named in the config.
func (c *cli) openStore() (*store.Store, error) {
	st, err := store.New(expandHome(c.cfg.Store.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

func (c *cli) classifier() *gesture.Classifier {
	return gesture.NewClassifier(gesture.ClassifierConfig{
		RotationThreshold: c.cfg.Classifier.RotationThresholdDeg,
		OKDistance:        c.cfg.Classifier.OKDistance,
	})
}

// newLabelsCmd lists the recognized gestures in priority order.
func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List the recognized gestures in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for i, rule := range gesture.Rules {
				fmt.Fprintf(out, "%d. %-10s %s\n", i+1, rule.Label, rule.Label.Display())
			}
			fmt.Fprintf(out, "   %-10s %s (fallback when the hand is rotated)\n", gesture.No, gesture.No.Display())
			return nil
		},
	}
}

func defaultConfigPath() string {
	return filepath.Join(mudraDir(), "config.yaml")
}

func mudraDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// findWebDir searches for the web directory in common locations.
// It checks the configured path, "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(configured string) string {
	candidates := []string{expandHome(configured), "../web", "../../web", filepath.Join(mudraDir(), "web")}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
