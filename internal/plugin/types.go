// Package plugin runs external programs in response to gesture events.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// For every event it subscribes to, the executable is started with a Request
// on stdin and must print a Response on stdout.
package plugin

import (
	"encoding/json"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin and the gestures it reacts to.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`

	// Gestures lists label names such as "peace". Empty means every gesture.
	Gestures []string `json:"gestures,omitempty"`

	// Repeats opts in to cooldown re-announcements of a held gesture.
	Repeats bool `json:"repeats,omitempty"`

	// Config is passed through to the plugin untouched.
	Config json.RawMessage `json:"config,omitempty"`
}

// Request is written to the plugin's stdin.
type Request struct {
	ID        string          `json:"id"`
	StreamID  string          `json:"stream_id"`
	Gesture   string          `json:"gesture"`
	Display   string          `json:"display"`
	Timestamp time.Time       `json:"timestamp"`
	Repeat    bool            `json:"repeat"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string

	labels map[gesture.Label]bool
}

// Subscribed reports whether the plugin wants ev.
func (p *Plugin) Subscribed(ev gesture.Event) bool {
	if ev.Repeat && !p.Manifest.Repeats {
		return false
	}
	if len(p.labels) == 0 {
		return true
	}
	return p.labels[ev.Label]
}

// NewRequest builds the request sent to p for ev.
func NewRequest(p *Plugin, ev gesture.Event) *Request {
	return &Request{
		ID:        ev.ID.String(),
		StreamID:  ev.StreamID,
		Gesture:   ev.Label.String(),
		Display:   ev.Display,
		Timestamp: ev.Timestamp,
		Repeat:    ev.Repeat,
		Config:    p.Manifest.Config,
	}
}
