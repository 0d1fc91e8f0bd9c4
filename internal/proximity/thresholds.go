package proximity

import (
	"math"
	"time"
)

// Floors applied when thresholds are updated.
const (
	MinWarningPx   = 10.0
	MinCriticalPx  = 5.0
	MinDwell       = 100 * time.Millisecond
	MinCeilingGap  = 500 * time.Millisecond
	MinCooldown    = 100 * time.Millisecond
	criticalMargin = 1.0

	// maxDwell keeps MinDuration+MinCeilingGap representable.
	maxDwell  = time.Duration(math.MaxInt64) - MinCeilingGap
	maxMillis = math.MaxInt64 / int64(time.Millisecond)
)

// Millis converts a millisecond count to a Duration, saturating instead of
// wrapping when ms is out of range.
func Millis(ms int64) time.Duration {
	switch {
	case ms > maxMillis:
		return time.Duration(math.MaxInt64)
	case ms < -maxMillis:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

// Thresholds configures the hysteresis state machine.
type Thresholds struct {
	// Warning is the weighted pixel distance below which a hand is near the face.
	Warning float64 `json:"warning_threshold_px"`
	// Critical is the weighted pixel distance below which a hand is too close.
	Critical float64 `json:"critical_threshold_px"`
	// MinDuration is the dwell time before an episode may alert.
	MinDuration time.Duration `json:"min_duration"`
	// MaxDuration is the episode age at which a warning escalates to critical.
	MaxDuration time.Duration `json:"max_duration"`
	// Cooldown is the minimum spacing between two alerts.
	Cooldown time.Duration `json:"alert_cooldown"`
}

// DefaultThresholds returns the stock configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Warning:     40,
		Critical:    20,
		MinDuration: time.Second,
		MaxDuration: 5 * time.Second,
		Cooldown:    3 * time.Second,
	}
}

// ThresholdUpdate carries a partial update. Nil fields are left unchanged.
type ThresholdUpdate struct {
	Warning     *float64
	Critical    *float64
	MinDuration *time.Duration
	MaxDuration *time.Duration
	Cooldown    *time.Duration
}

// Apply returns t with the supplied fields replaced and every value clamped
// to a valid configuration. Invalid values are never rejected.
func (t Thresholds) Apply(u ThresholdUpdate) Thresholds {
	if u.Warning != nil {
		t.Warning = *u.Warning
	}
	if u.Critical != nil {
		t.Critical = *u.Critical
	}
	if u.MinDuration != nil {
		t.MinDuration = *u.MinDuration
	}
	if u.MaxDuration != nil {
		t.MaxDuration = *u.MaxDuration
	}
	if u.Cooldown != nil {
		t.Cooldown = *u.Cooldown
	}
	return t.Clamp()
}

// Clamp raises every field to its floor and restores the orderings
// Critical < Warning and MinDuration < MaxDuration.
func (t Thresholds) Clamp() Thresholds {
	if !(t.Warning >= MinWarningPx) {
		t.Warning = MinWarningPx
	}
	if !(t.Critical >= MinCriticalPx) {
		t.Critical = MinCriticalPx
	}
	if t.Critical >= t.Warning {
		t.Critical = t.Warning - criticalMargin
	}
	if t.MinDuration < MinDwell {
		t.MinDuration = MinDwell
	}
	if t.MinDuration > maxDwell {
		t.MinDuration = maxDwell
	}
	if t.MaxDuration < t.MinDuration+MinCeilingGap {
		t.MaxDuration = t.MinDuration + MinCeilingGap
	}
	if t.Cooldown < MinCooldown {
		t.Cooldown = MinCooldown
	}
	return t
}

// Classify maps an instantaneous distance to a level.
func (t Thresholds) Classify(d float64) Level {
	switch {
	case d < t.Critical:
		return Critical
	case d < t.Warning:
		return Warning
	default:
		return Normal
	}
}
