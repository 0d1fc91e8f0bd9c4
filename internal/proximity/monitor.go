package proximity

import (
	"math"
	"time"
)

// Episode bookkeeping limits.
const (
	// MinLoggedEpisode is the shortest closed episode kept in the episode log.
	MinLoggedEpisode = 500 * time.Millisecond
	// EpisodeLogSize bounds the diagnostic episode log.
	EpisodeLogSize = 100
)

// Decision is the outcome of one Tick.
type Decision struct {
	Level       Level         `json:"level"`
	Duration    time.Duration `json:"duration"`
	ShouldAlert bool          `json:"should_alert"`
	// Escalated is set on the single tick where a long warning episode was
	// promoted to critical.
	Escalated bool `json:"escalated"`
}

// Episode is a closed proximity episode kept for diagnostics.
type Episode struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
	Peak     Level         `json:"peak"`
	Closest  float64       `json:"closest"`
}

type episode struct {
	start   time.Time
	peak    Level
	closest float64
}

// Monitor is the hysteresis state machine. It is not safe for concurrent
// use, and Tick must be called with non-decreasing timestamps.
type Monitor struct {
	thresholds Thresholds
	history    History
	episode    *episode
	level      Level
	lastFired  time.Time
	fired      bool
	episodes   []Episode
}

// NewMonitor creates a Monitor. The thresholds are clamped before use.
func NewMonitor(t Thresholds) *Monitor {
	return &Monitor{thresholds: t.Clamp()}
}

// Tick feeds one weighted distance sampled at now and returns the debounced
// level, the age of the open episode, and whether an alert should fire.
func (m *Monitor) Tick(d float64, now time.Time) Decision {
	m.history.Push(d)
	instant := m.thresholds.Classify(d)

	if instant == Normal {
		m.closeEpisode(now)
		m.level = Normal
		return Decision{Level: Normal}
	}

	if m.episode == nil {
		m.episode = &episode{start: now, peak: instant, closest: d}
		m.level = instant
		return Decision{Level: instant}
	}

	ep := m.episode
	ep.closest = math.Min(ep.closest, d)
	duration := now.Sub(ep.start)

	// Inside the dwell or the cooldown the level may still rise, but it is
	// never reported lower than the episode has reached.
	if duration < m.thresholds.MinDuration || m.coolingDown(now) {
		m.raise(instant)
		return Decision{Level: m.level, Duration: duration}
	}

	level := instant
	var escalated bool
	if instant == Warning && duration >= m.thresholds.MaxDuration && m.level.Less(Critical) {
		// A sustained warning is promoted once per episode, on the first
		// tick past the ceiling that the cooldown lets through.
		level = Critical
		escalated = true
	}

	m.raise(level)
	m.lastFired = now
	m.fired = true

	return Decision{
		Level:       m.level,
		Duration:    duration,
		ShouldAlert: true,
		Escalated:   escalated,
	}
}

func (m *Monitor) raise(l Level) {
	m.level = Max(m.level, l)
	if m.episode != nil {
		m.episode.peak = Max(m.episode.peak, m.level)
	}
}

func (m *Monitor) coolingDown(now time.Time) bool {
	return m.fired && now.Sub(m.lastFired) < m.thresholds.Cooldown
}

func (m *Monitor) closeEpisode(now time.Time) {
	ep := m.episode
	if ep == nil {
		return
	}
	m.episode = nil

	duration := now.Sub(ep.start)
	if duration <= MinLoggedEpisode {
		return
	}
	if len(m.episodes) == EpisodeLogSize {
		copy(m.episodes, m.episodes[1:])
		m.episodes = m.episodes[:EpisodeLogSize-1]
	}
	m.episodes = append(m.episodes, Episode{
		Start:    ep.start,
		End:      now,
		Duration: duration,
		Peak:     ep.peak,
		Closest:  ep.closest,
	})
}

// UpdateThresholds applies a partial, clamped update. The new values are
// used from the next Tick on.
func (m *Monitor) UpdateThresholds(u ThresholdUpdate) Thresholds {
	m.thresholds = m.thresholds.Apply(u)
	return m.thresholds
}

// Thresholds returns the active configuration.
func (m *Monitor) Thresholds() Thresholds {
	return m.thresholds
}

// Reset clears the episode, history, episode log, level and cooldown.
// Thresholds are kept.
func (m *Monitor) Reset() {
	m.episode = nil
	m.history.Clear()
	m.episodes = nil
	m.level = Normal
	m.lastFired = time.Time{}
	m.fired = false
}

// Level returns the current debounced level.
func (m *Monitor) Level() Level {
	return m.level
}

// InEpisode reports whether a proximity episode is open.
func (m *Monitor) InEpisode() bool {
	return m.episode != nil
}

// EpisodeDuration returns the age of the open episode, or zero.
func (m *Monitor) EpisodeDuration(now time.Time) time.Duration {
	if m.episode == nil {
		return 0
	}
	return now.Sub(m.episode.start)
}

// CooldownActive reports whether the state machine is rate-limiting alerts.
func (m *Monitor) CooldownActive(now time.Time) bool {
	return m.coolingDown(now)
}

// History returns the distance history.
func (m *Monitor) History() *History {
	return &m.history
}

// Episodes returns a copy of the closed-episode log, oldest first.
func (m *Monitor) Episodes() []Episode {
	out := make([]Episode, len(m.episodes))
	copy(out, m.episodes)
	return out
}
