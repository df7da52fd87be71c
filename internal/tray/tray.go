// Package tray provides the system tray interface for the Mudra pose
// classifier.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuLastMatch *systray.MenuItem
	menuCapture   *systray.MenuItem
}

// New creates a new Tray instance with matching enabled by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback invoked when matching is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback invoked when the settings item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback invoked when the quit item is clicked.
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

// onReady sets up the menu structure once the tray is available.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Hand Pose Classifier")

	t.menuToggle = systray.AddMenuItem("● Enabled", "Toggle pose matching")
	systray.AddSeparator()

	t.menuLastMatch = systray.AddMenuItem("Last: none", "Last matched pose")
	t.menuLastMatch.Disable()

	t.menuCapture = systray.AddMenuItem("Recording: off", "Capture session state")
	t.menuCapture.Disable()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if enabled {
		t.menuToggle.SetTitle("● Enabled")
	} else {
		t.menuToggle.SetTitle("○ Disabled")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
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

// SetLastMatch updates the last matched pose shown in the menu.
func (t *Tray) SetLastMatch(label string, score float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastMatch != nil {
		if label == "" {
			t.menuLastMatch.SetTitle("Last: none")
		} else {
			t.menuLastMatch.SetTitle(fmt.Sprintf("Last: %s (%.2f)", label, score))
		}
	}
}

// SetCapturing updates the capture session indicator.
func (t *Tray) SetCapturing(label string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuCapture != nil {
		if label == "" {
			t.menuCapture.SetTitle("Recording: off")
		} else {
			t.menuCapture.SetTitle("Recording: " + label)
		}
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
