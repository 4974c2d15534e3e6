// Command media-control is a mudra plugin that drives volume and media
// playback from gestures. It uses AppleScript on macOS, and pactl and
// playerctl elsewhere.
//
// The gesture to action table can be overridden in the manifest config:
//
//	{"actions": {"thumbs_up": "volume-up", "fist": "media-play-pause"}}
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
	Repeat  bool            `json:"repeat"`
	Config  json.RawMessage `json:"config"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config maps gesture names to action names.
type Config struct {
	Actions map[string]string `json:"actions"`
}

// defaultActions is used when the config has no actions.
var defaultActions = map[string]string{
	"thumbs_up": "volume-up",
	"no":        "volume-mute",
	"flat_palm": "media-play-pause",
	"pointing":  "media-next",
	"call_me":   "media-prev",
}

// command is one way of running an action.
type command []string

// action lists the darwin and linux commands for an action.
type action struct {
	darwin command
	linux  command
}

func osascript(script string) command {
	return command{"osascript", "-e", script}
}

func keyCode(code int) command {
	return osascript(fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code))
}

var actions = map[string]action{
	"volume-up": {
		darwin: osascript(`set volume output volume ((output volume of (get volume settings)) + 10)`),
		linux:  command{"pactl", "set-sink-volume", "@DEFAULT_SINK@", "+10%"},
	},
	"volume-down": {
		darwin: osascript(`set volume output volume ((output volume of (get volume settings)) - 10)`),
		linux:  command{"pactl", "set-sink-volume", "@DEFAULT_SINK@", "-10%"},
	},
	"volume-mute": {
		darwin: osascript(`set volume output muted (not (output muted of (get volume settings)))`),
		linux:  command{"pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"},
	},
	"media-play-pause": {
		darwin: keyCode(100),
		linux:  command{"playerctl", "play-pause"},
	},
	"media-next": {
		darwin: keyCode(101),
		linux:  command{"playerctl", "next"},
	},
	"media-prev": {
		darwin: keyCode(98),
		linux:  command{"playerctl", "previous"},
	},
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("decode request: %w", err))
		return
	}

	name, err := actionFor(req)
	if err != nil {
		writeResponse(err)
		return
	}
	if name == "" {
		writeResponse(nil)
		return
	}

	cmd, err := commandFor(name, runtime.GOOS)
	if err != nil {
		writeResponse(err)
		return
	}
	writeResponse(run(cmd))
}

// actionFor returns the action bound to the request's gesture, or "" when
// the gesture is unbound.
func actionFor(req Request) (string, error) {
	table := defaultActions
	if len(req.Config) > 0 {
		var cfg Config
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return "", fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Actions) > 0 {
			table = cfg.Actions
		}
	}

	name := table[req.Gesture]
	if name == "" {
		return "", nil
	}
	if _, ok := actions[name]; !ok {
		return "", fmt.Errorf("unknown action: %s", name)
	}
	return name, nil
}

func commandFor(name, goos string) (command, error) {
	a, ok := actions[name]
	if !ok {
		return nil, fmt.Errorf("unknown action: %s", name)
	}
	if goos == "darwin" {
		return a.darwin, nil
	}
	return a.linux, nil
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

func run(cmd command) error {
	output, err := exec.Command(cmd[0], cmd[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", cmd[0], err, strings.TrimSpace(string(output)))
	}
	return nil
}
