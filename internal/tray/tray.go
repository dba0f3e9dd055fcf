// Package tray provides a system tray menu for the projection pipeline.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/projmap/internal/cue"
	"github.com/ayusman/projmap/internal/stabilizer"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onReset    func()
	onSettings func()
	onQuit     func()
	enabled    bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuSignal *systray.MenuItem
	menuCue    *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnReset sets the callback for the reset menu item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("projmap")
	systray.SetTooltip("Depth circle tracking")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume frame processing")
	systray.AddSeparator()

	t.menuSignal = systray.AddMenuItem(signalLine(stabilizer.Signal{}), "Stabilized circle")
	t.menuSignal.Disable()
	t.menuCue = systray.AddMenuItem(cueLine(cue.State{}), "Cue progress")
	t.menuCue.Disable()
	t.mu.Unlock()

	menuReset := systray.AddMenuItem("Reset Signal", "Clear the signal and the cue")
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit projmap")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.handle(func(t *Tray) func() { return t.onReset })
			case <-menuSettings.ClickedCh:
				t.handle(func(t *Tray) func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.handle(func(t *Tray) func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// signalLine formats the stabilized circle for the menu.
func signalLine(sig stabilizer.Signal) string {
	if sig.IsZero() {
		return "Signal: none"
	}
	return fmt.Sprintf("Signal: X %d  Y %d  R %d", sig.X, sig.Y, sig.Radius)
}

func cueLine(c cue.State) string {
	if c.Phase == "" {
		c.Phase = cue.PhaseIdle
	}
	return fmt.Sprintf("Cue: %s %d%%", c.Phase, c.Percent)
}

// handleToggle flips the enabled state and notifies the callback outside the lock.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

// handle reads a callback under the lock and runs it outside.
func (t *Tray) handle(get func(*Tray) func()) {
	t.mu.RLock()
	callback := get(t)
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetStatus updates the signal and cue lines in the menu.
func (t *Tray) SetStatus(sig stabilizer.Signal, c cue.State) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuSignal != nil {
		t.menuSignal.SetTitle(signalLine(sig))
	}
	if t.menuCue != nil {
		t.menuCue.SetTitle(cueLine(c))
	}
}

// SetEnabled syncs the toggle with a state changed elsewhere, e.g. the web UI.
// The toggle callback is not called.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
