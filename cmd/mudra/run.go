package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/tray"
)

type runOptions struct {
	camera   int
	addr     string
	noSpeech bool
	noPlugin bool
	tray     bool
	mirror   bool
	record   string
}

func newRunCmd(c *cli) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Recognize gestures from the camera",
		Long: `Open the camera, recognize gestures live and announce them.

The annotated preview is served at /api/stream, events at /api/events/ws.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("camera") {
				c.cfg.Camera.DeviceID = opts.camera
			}
			if cmd.Flags().Changed("addr") {
				c.cfg.Server.Addr = opts.addr
			}
			if opts.noSpeech {
				c.cfg.Speech.Enabled = false
			}
			if opts.noPlugin {
				c.cfg.Plugins.Enabled = false
			}
			if opts.tray {
				c.cfg.Tray.Enabled = true
			}
			return c.run(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.camera, "camera", 0, "camera device index")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address")
	cmd.Flags().BoolVar(&opts.noSpeech, "no-speech", false, "do not speak gestures")
	cmd.Flags().BoolVar(&opts.noPlugin, "no-plugins", false, "do not run gesture plugins")
	cmd.Flags().BoolVar(&opts.tray, "tray", false, "show the system tray menu")
	cmd.Flags().BoolVar(&opts.mirror, "mirror", true, "mirror the preview like a selfie camera")
	cmd.Flags().StringVar(&opts.record, "record", "", "also write every observation to this JSONL file")

	return cmd
}

func (c *cli) run(parent context.Context, opts *runOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := c.logger
	cfg := c.cfg

	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	camera := capture.NewCamera(capture.CameraConfig{
		DeviceID: cfg.Camera.DeviceID,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
	})
	if err := camera.Open(); err != nil {
		return err
	}

	var det detector.Detector
	mp, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		ModelComplexity: cfg.Detector.ModelComplexity,
		MinConfidence:   cfg.Detector.MinDetectionConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		Script:          expandHome(cfg.Detector.Script),
		Python:          expandHome(cfg.Detector.Python),
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("MediaPipe not available, using mock detector")
		det = detector.NewMockDetector()
	} else {
		logger.Info().Msg("using MediaPipe hand detection")
		det = mp
	}

	var motion *capture.MotionDetector
	if cfg.Detector.MotionThreshold > 0 {
		motion = capture.NewMotionDetector(cfg.Detector.MotionThreshold)
	}

	source := capture.NewLiveSource(capture.LiveConfig{
		Camera:   camera,
		Detector: det,
		Motion:   motion,
		Logger:   logger,
	})

	closers := []io.Closer{camera, det}
	if motion != nil {
		closers = append(closers, closerFunc(func() error { motion.Close(); return nil }))
	}

	sinks := sink.NewMulti(logger)
	overlay := sink.NewOverlay(opts.mirror)
	hub := server.NewHub(logger)
	sinks.Add("overlay", overlay)
	sinks.Add("websocket", hub)
	sinks.Add("history", sink.NewHistory(st.Events()))

	var speaker *sink.Switch
	backend, err := speech.NewBackend(cfg.Speech.Backend, speech.Options{
		Voice: cfg.Speech.Voice,
		Rate:  cfg.Speech.Rate,
		Lang:  cfg.Speech.Lang,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("speech disabled")
	} else {
		announcer := speech.NewAnnouncer(backend, logger)
		closers = append(closers, announcer)
		speaker = sink.NewSwitch(announcer, cfg.Speech.Enabled)
		sinks.Add("speech", speaker)
	}

	if cfg.MQTT.Broker != "" {
		mq := sink.NewMQTT(sink.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			ClientID:    cfg.MQTT.ClientID,
		}, logger)
		if err := mq.Connect(ctx); err != nil {
			logger.Warn().Err(err).Msg("mqtt sink disabled")
		} else {
			closers = append(closers, mq)
			sinks.Add("mqtt", mq)
		}
	}

	if cfg.Plugins.Enabled {
		dispatcher, err := c.plugins()
		if err != nil {
			logger.Warn().Err(err).Msg("plugins disabled")
		} else if dispatcher != nil {
			closers = append(closers, dispatcher)
			sinks.Add("plugins", dispatcher)
		}
	}

	var tr *tray.Tray
	if cfg.Tray.Enabled {
		tr = tray.New(true, speaker != nil && speaker.On())
		sinks.Add("tray", tr)
	}

	var record *os.File
	if opts.record != "" {
		record, err = os.Create(opts.record)
		if err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		closers = append(closers, record)
	}

	a := app.New(app.Config{
		Source:     source,
		Classifier: c.classifier(),
		Debounce: gesture.DebouncerConfig{
			StreamID: fmt.Sprintf("camera-%d", cfg.Camera.DeviceID),
			Cooldown: cfg.Debounce.Cooldown,
		},
		Sinks:    sinks,
		Overlay:  overlay,
		Record:   writerOrNil(record),
		Settings: st.Settings(),
		Closers:  closers,
		Enabled:  true,
		Logger:   logger,
	})

	toggle := &detectionToggle{app: a, tray: tr}

	srv := server.New(server.Config{
		StaticDir: findWebDir(cfg.Server.StaticDir),
		Store:     st,
		Frames:    overlay,
		Hub:       hub,
		Detection: toggle,
		Logger:    logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
			errCh <- fmt.Errorf("server: %w", err)
		}
		cancel()
	}()
	go func() {
		defer wg.Done()
		if err := a.Run(ctx); err != nil {
			errCh <- fmt.Errorf("pipeline: %w", err)
		}
		cancel()
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Strs("sinks", sinks.Names()).
		Msg("mudra running")

	if tr != nil {
		tr.SetEnabled(a.IsEnabled())
		tr.OnToggle(a.SetEnabled)
		if speaker != nil {
			tr.OnSpeech(speaker.Set)
		}
		tr.OnOpen(func() { openBrowser(dashboardURL(cfg.Server.Addr)) })
		tr.OnQuit(cancel)
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		// The tray must own the main thread on macOS.
		tr.Run()
	}

	wg.Wait()
	close(errCh)
	return <-errCh
}

// detectionToggle keeps the tray in sync when detection is switched over HTTP.
type detectionToggle struct {
	app  *app.App
	tray *tray.Tray
}

func (t *detectionToggle) IsEnabled() bool {
	return t.app.IsEnabled()
}

func (t *detectionToggle) SetEnabled(enabled bool) {
	t.app.SetEnabled(enabled)
	if t.tray != nil {
		t.tray.SetEnabled(enabled)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// writerOrNil avoids handing app a non-nil interface holding a nil file.
func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd string
	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "windows":
		cmd = "explorer"
	default:
		cmd = "xdg-open"
	}
	exec.Command(cmd, url).Start()
}
