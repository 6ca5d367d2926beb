// Package tray provides a system tray controller for reptrack sessions.
package tray

import (
	"fmt"
	"sync"

	"github.com/ayusman/reptrack/internal/exercise"
	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onStart     func(kind exercise.Kind)
	onStop      func()
	onDashboard func()
	onQuit      func()
	running     bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
	menuStart  map[exercise.Kind]*systray.MenuItem
	menuStop   *systray.MenuItem
}

// New creates a new Tray instance with no session running.
func New() *Tray {
	return &Tray{
		menuStart: make(map[exercise.Kind]*systray.MenuItem),
	}
}

// OnStart sets the callback invoked when an exercise is picked from the menu.
func (t *Tray) OnStart(fn func(kind exercise.Kind)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// OnStop sets the callback invoked when the stop menu item is clicked.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnDashboard sets the callback invoked when the dashboard menu item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
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

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("reptrack")
	systray.SetTooltip("reptrack exercise counter")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(StatusLine(exercise.State{}, false), "Current repetition count")
	t.menuStatus.Disable()
	systray.AddSeparator()

	for _, k := range exercise.Kinds() {
		t.menuStart[k] = systray.AddMenuItem("Start "+k.Title(), "Start counting "+k.Title())
	}
	t.menuStop = systray.AddMenuItem("Stop", "Stop the current session")
	t.menuStop.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit reptrack")

	for k, item := range t.menuStart {
		go func(k exercise.Kind, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.handleStart(k)
			}
		}(k, item)
	}

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuStop.ClickedCh:
				t.handleStop()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func (t *Tray) handleStart(k exercise.Kind) {
	t.mu.RLock()
	callback := t.onStart
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(k)
	}
}

func (t *Tray) handleStop() {
	t.mu.RLock()
	callback := t.onStop
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
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

// SetStatus updates the status line and enables Stop while a session runs.
func (t *Tray) SetStatus(state exercise.State, running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = running
	if t.menuStatus == nil {
		return
	}
	t.menuStatus.SetTitle(StatusLine(state, running))
	if running {
		t.menuStop.Enable()
	} else {
		t.menuStop.Disable()
	}
	for _, item := range t.menuStart {
		if running {
			item.Disable()
		} else {
			item.Enable()
		}
	}
}

// IsRunning returns whether the tray last showed a running session.
func (t *Tray) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// StatusLine formats the tray status entry, e.g. "Reps: 3 (down)".
func StatusLine(state exercise.State, running bool) string {
	if !running && state.Count == 0 && state.Stage == exercise.StageNone {
		return "Reps: -"
	}
	return fmt.Sprintf("Reps: %d (%s)", state.Count, state.Stage)
}
