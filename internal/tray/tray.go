// Package tray provides a macOS system tray interface for Hands-Off.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"

	"github.com/ayusman/handsoff/internal/alert"
)

// refreshInterval is how often the relative time of the last alert is
// redrawn.
const refreshInterval = 30 * time.Second

// Tray represents the macOS system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onMute      func(muted bool)
	onReset     func()
	onDashboard func()
	onQuit      func()

	mu      sync.RWMutex
	enabled bool
	muted   bool
	count   int
	last    *alert.Alert
	now     func() time.Time

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuMute   *systray.MenuItem
	menuCount  *systray.MenuItem
	menuLast   *systray.MenuItem
	stop       chan struct{}
}

// New creates a new Tray with monitoring enabled and sound on.
func New() *Tray {
	return &Tray{
		enabled: true,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// OnToggle sets the callback run when monitoring is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMute sets the callback run when sound is muted or unmuted.
func (t *Tray) OnMute(fn func(muted bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMute = fn
}

// OnReset sets the callback run when statistics are reset.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnDashboard sets the callback run when the dashboard menu item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback run when the quit menu item is clicked.
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

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Hands-Off")
	systray.SetTooltip("Hands-Off face touch alerts")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle monitoring")
	t.menuMute = systray.AddMenuItem(muteTitle(t.muted), "Toggle alert sounds")
	systray.AddSeparator()

	t.menuCount = systray.AddMenuItem(countTitle(t.count), "Alerts this session")
	t.menuCount.Disable()
	t.menuLast = systray.AddMenuItem(lastTitle(t.last, t.now()), "Most recent alert")
	t.menuLast.Disable()
	t.mu.Unlock()

	menuReset := systray.AddMenuItem("Reset Statistics", "Clear the alert count")
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Hands-Off")

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuMute.ClickedCh:
				t.handleMute()
			case <-menuReset.ClickedCh:
				t.handleReset()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-ticker.C:
				t.refresh()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			case <-t.stop:
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleMute() {
	t.mu.Lock()
	t.muted = !t.muted
	muted := t.muted
	if t.menuMute != nil {
		t.menuMute.SetTitle(muteTitle(muted))
	}
	callback := t.onMute
	t.mu.Unlock()

	if callback != nil {
		callback(muted)
	}
}

func (t *Tray) handleReset() {
	t.SetCount(0)

	t.mu.RLock()
	callback := t.onReset
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

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetAlert records a dispatched alert and updates the count and last-alert
// lines. It is safe to use as an app OnAlert callback.
func (t *Tray) SetAlert(a alert.Alert) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count = a.Count
	t.last = &a
	t.redraw()
}

// SetCount updates the alert count, for instance after a reset from the
// dashboard.
func (t *Tray) SetCount(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count = n
	if n == 0 {
		t.last = nil
	}
	t.redraw()
}

// SetMuted updates the mute state without running the mute callback.
func (t *Tray) SetMuted(muted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.muted = muted
	if t.menuMute != nil {
		t.menuMute.SetTitle(muteTitle(muted))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// IsMuted returns the current mute state.
func (t *Tray) IsMuted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.muted
}

// Count returns the alert count shown in the menu.
func (t *Tray) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.redraw()
}

// redraw must be called with mu held.
func (t *Tray) redraw() {
	if t.menuCount != nil {
		t.menuCount.SetTitle(countTitle(t.count))
	}
	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(t.last, t.now()))
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Monitoring"
	}
	return "○ Paused"
}

func muteTitle(muted bool) string {
	if muted {
		return "🔇 Sound Off"
	}
	return "🔊 Sound On"
}

func countTitle(n int) string {
	switch n {
	case 0:
		return "No alerts"
	case 1:
		return "1 alert"
	default:
		return humanize.Comma(int64(n)) + " alerts"
	}
}

func lastTitle(a *alert.Alert, now time.Time) string {
	if a == nil {
		return "Last: none"
	}
	title := "Last: " + a.Level.String()
	if a.Region != "" {
		title += " " + a.Region
	}
	return fmt.Sprintf("%s (%s)", title, humanize.RelTime(a.Timestamp, now, "ago", "from now"))
}
