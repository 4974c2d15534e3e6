// Command keyboard is a mudra plugin that sends a keyboard shortcut for each
// bound gesture. It uses AppleScript on macOS and xdotool elsewhere.
//
// Bindings come from the manifest config:
//
//	{"bindings": {"peace": {"key": "c", "modifiers": ["command"]}}}
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request is the subset of the mudra plugin request this plugin reads.
type Request struct {
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Binding is the shortcut sent for one gesture.
type Binding struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// Config maps gesture names to shortcuts.
type Config struct {
	Bindings map[string]Binding `json:"bindings"`
}

// appleModifiers maps modifier names to AppleScript.
var appleModifiers = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// xdotoolModifiers maps modifier names to xdotool key names.
var xdotoolModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("decode request: %w", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("parse config: %w", err))
			return
		}
	}

	binding, ok := cfg.Bindings[req.Gesture]
	if !ok {
		// Unbound gestures are ignored.
		writeResponse(nil)
		return
	}

	writeResponse(send(binding))
}

func send(b Binding) error {
	if b.Key == "" {
		return fmt.Errorf("key is required")
	}
	if runtime.GOOS == "darwin" {
		return run("osascript", "-e", appleScript(b))
	}
	return run("xdotool", "key", xdotoolKeys(b))
}

// appleScript generates an AppleScript keystroke for b.
func appleScript(b Binding) string {
	var mods []string
	for _, mod := range b.Modifiers {
		if m, ok := appleModifiers[strings.ToLower(mod)]; ok {
			mods = append(mods, m)
		}
	}

	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, b.Key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, b.Key, strings.Join(mods, ", "))
}

// xdotoolKeys formats b as an xdotool key chord such as "ctrl+shift+t".
func xdotoolKeys(b Binding) string {
	var parts []string
	for _, mod := range b.Modifiers {
		if m, ok := xdotoolModifiers[strings.ToLower(mod)]; ok {
			parts = append(parts, m)
		}
	}
	return strings.Join(append(parts, b.Key), "+")
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
