// Package config loads the YAML configuration for mudra.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete mudra configuration.
type Config struct {
	Camera     CameraConfig     `yaml:"camera"`
	Detector   DetectorConfig   `yaml:"detector"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Debounce   DebounceConfig   `yaml:"debounce"`
	Speech     SpeechConfig     `yaml:"speech"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Tray       TrayConfig       `yaml:"tray"`
	Plugins    PluginsConfig    `yaml:"plugins"`
	Log        LogConfig        `yaml:"log"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	DeviceID int `yaml:"device_id"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	FPS      int `yaml:"fps"`
}

// DetectorConfig tunes the MediaPipe hand detector.
type DetectorConfig struct {
	MaxHands               int     `yaml:"max_hands"`
	ModelComplexity        int     `yaml:"model_complexity"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`

	// Script and Python override the mediapipe_service.py and interpreter lookup.
	Script string `yaml:"script"`
	Python string `yaml:"python"`

	// MotionThreshold is the percent of changed pixels that counts as motion.
	// Zero disables the motion gate.
	MotionThreshold float64 `yaml:"motion_threshold"`
}

// ClassifierConfig tunes the rule table.
type ClassifierConfig struct {
	RotationThresholdDeg float64 `yaml:"rotation_threshold_deg"`
	OKDistance           float64 `yaml:"ok_distance"`
}

// DebounceConfig controls repeat emission.
type DebounceConfig struct {
	// Cooldown re-emits a held gesture after this long. Zero emits only on change.
	Cooldown time.Duration `yaml:"cooldown"`
}

// SpeechConfig controls spoken announcements.
type SpeechConfig struct {
	Enabled bool    `yaml:"enabled"`
	Backend string  `yaml:"backend"` // auto, say, espeak
	Voice   string  `yaml:"voice"`
	Rate    float64 `yaml:"rate"` // multiplier, 1.0 is the backend default
	Lang    string  `yaml:"lang"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig locates the history database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// MQTTConfig enables the MQTT sink when Broker is set.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
}

// TrayConfig toggles the system tray.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PluginsConfig locates gesture action plugins.
type PluginsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Dir         string        `yaml:"dir"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{DeviceID: 0, Width: 640, Height: 480, FPS: 15},
		Detector: DetectorConfig{
			MaxHands:               1,
			ModelComplexity:        1,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.7,
			MotionThreshold:        1.0,
		},
		Classifier: ClassifierConfig{RotationThresholdDeg: 30, OKDistance: 0.05},
		Speech: SpeechConfig{
			Enabled: true,
			Backend: "auto",
			Rate:    1.0,
			Lang:    "en-US",
		},
		Server: ServerConfig{Addr: ":8080", StaticDir: "web"},
		Store:  StoreConfig{Path: "~/.mudra/mudra.db"},
		MQTT:   MQTTConfig{TopicPrefix: "mudra", ClientID: "mudra"},
		Tray:   TrayConfig{Enabled: false},
		Plugins: PluginsConfig{
			Enabled:     true,
			Dir:         "~/.mudra/plugins",
			Timeout:     5 * time.Second,
			Concurrency: 4,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path on top of Default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Camera.DeviceID < 0:
		return fmt.Errorf("%w: camera.device_id must be >= 0", ErrInvalid)
	case c.Camera.FPS < 0 || c.Camera.Width < 0 || c.Camera.Height < 0:
		return fmt.Errorf("%w: camera size and fps must be >= 0", ErrInvalid)
	case c.Detector.MaxHands < 1:
		return fmt.Errorf("%w: detector.max_hands must be >= 1", ErrInvalid)
	case c.Detector.ModelComplexity < 0 || c.Detector.ModelComplexity > 1:
		return fmt.Errorf("%w: detector.model_complexity must be 0 or 1", ErrInvalid)
	case !unit(c.Detector.MinDetectionConfidence) || !unit(c.Detector.MinTrackingConfidence):
		return fmt.Errorf("%w: detector confidences must be within [0, 1]", ErrInvalid)
	case c.Detector.MotionThreshold < 0:
		return fmt.Errorf("%w: detector.motion_threshold must be >= 0", ErrInvalid)
	case c.Classifier.RotationThresholdDeg <= 0 || c.Classifier.RotationThresholdDeg >= 180:
		return fmt.Errorf("%w: classifier.rotation_threshold_deg must be within (0, 180)", ErrInvalid)
	case c.Classifier.OKDistance <= 0:
		return fmt.Errorf("%w: classifier.ok_distance must be > 0", ErrInvalid)
	case c.Debounce.Cooldown < 0:
		return fmt.Errorf("%w: debounce.cooldown must be >= 0", ErrInvalid)
	case c.Speech.Rate <= 0:
		return fmt.Errorf("%w: speech.rate must be > 0", ErrInvalid)
	case c.Plugins.Timeout < 0 || c.Plugins.Concurrency < 0:
		return fmt.Errorf("%w: plugins.timeout and plugins.concurrency must be >= 0", ErrInvalid)
	}

	switch c.Speech.Backend {
	case "auto", "say", "espeak":
	default:
		return fmt.Errorf("%w: unknown speech.backend %q", ErrInvalid, c.Speech.Backend)
	}

	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
