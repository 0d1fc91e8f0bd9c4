package capture

import (
	"sync"
	"time"
)

// Adaptive frame rate settings.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while the scene is moving.
	ActiveFPS = 15
	// IdleAfter is how long the scene must be still before dropping to IdleFPS.
	IdleAfter = 2 * time.Second
)

// FrameRate switches between an idle and an active frame rate based on
// motion. Frames are processed at either rate; only the sampling frequency
// changes.
type FrameRate struct {
	mu         sync.Mutex
	idle       int
	active     int
	idleAfter  time.Duration
	isActive   bool
	lastMotion time.Time
}

// NewFrameRate creates a FrameRate starting in idle mode.
func NewFrameRate(idle, active int, idleAfter time.Duration) *FrameRate {
	if idle <= 0 {
		idle = IdleFPS
	}
	if active < idle {
		active = idle
	}
	if idleAfter <= 0 {
		idleAfter = IdleAfter
	}
	return &FrameRate{idle: idle, active: active, idleAfter: idleAfter}
}

// Observe records whether the frame at now showed motion and returns the
// frame rate to use next and whether it changed.
func (r *FrameRate) Observe(motion bool, now time.Time) (fps int, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if motion {
		r.lastMotion = now
		if !r.isActive {
			r.isActive = true
			return r.active, true
		}
		return r.active, false
	}

	if r.isActive && now.Sub(r.lastMotion) > r.idleAfter {
		r.isActive = false
		return r.idle, true
	}
	return r.current(), false
}

// FPS returns the current frame rate.
func (r *FrameRate) FPS() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current()
}

// Interval returns the frame period for the current rate.
func (r *FrameRate) Interval() time.Duration {
	return time.Second / time.Duration(r.FPS())
}

// Active reports whether the controller is in active mode.
func (r *FrameRate) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isActive
}

// Reset returns to idle mode.
func (r *FrameRate) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isActive = false
	r.lastMotion = time.Time{}
}

func (r *FrameRate) current() int {
	if r.isActive {
		return r.active
	}
	return r.idle
}
