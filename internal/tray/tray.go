// Package tray provides a system tray menu for mudra.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/gesture"
)

// Tray shows the last announced gesture and switches detection and speech.
type Tray struct {
	onToggle func(enabled bool)
	onSpeech func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	speech   bool
	last     string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuSpeech      *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a Tray with the given initial detection and speech states.
func New(enabled, speech bool) *Tray {
	return &Tray{
		enabled: enabled,
		speech:  speech,
	}
}

// OnToggle sets the callback function to be called when detection is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSpeech sets the callback function to be called when speech is toggled.
func (t *Tray) OnSpeech(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSpeech = fn
}

// OnOpen sets the callback function for the dashboard menu item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand gesture announcer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture recognition")
	t.menuSpeech = systray.AddMenuItemCheckbox("Speak gestures", "Announce gestures aloud", t.speech)
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(lastTitle(t.last), "Last announced gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Dashboard...", "Open the live view in the browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuSpeech.ClickedCh:
				t.handleSpeech()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.refresh()
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleSpeech handles the speech checkbox click.
func (t *Tray) handleSpeech() {
	t.mu.Lock()
	t.speech = !t.speech
	speech := t.speech
	t.refresh()
	callback := t.onSpeech
	t.mu.Unlock()

	if callback != nil {
		callback(speech)
	}
}

// handleOpen handles the dashboard menu item click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// refresh syncs menu titles with the state. Callers hold t.mu.
func (t *Tray) refresh() {
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(t.enabled))
	}
	if t.menuSpeech != nil {
		if t.speech {
			t.menuSpeech.Check()
		} else {
			t.menuSpeech.Uncheck()
		}
	}
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastTitle(t.last))
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}

// Handle shows ev as the last gesture.
func (t *Tray) Handle(_ context.Context, ev gesture.Event) error {
	t.SetLastGesture(ev.Display)
	return nil
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = name
	t.refresh()
}

// LastGesture returns the text shown as the last gesture.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// SetEnabled reflects a detection state changed elsewhere, e.g. over HTTP.
// It does not call the toggle callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	t.refresh()
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// SpeechEnabled returns whether announcements are spoken.
func (t *Tray) SpeechEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.speech
}
