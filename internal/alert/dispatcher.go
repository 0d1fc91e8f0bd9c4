// Package alert dispatches proximity alerts, keeps the session alert log and
// answers statistics queries.
package alert

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/handsoff/internal/proximity"
)

// Dispatcher defaults.
const (
	// DefaultCooldown is the minimum spacing between two dispatched alerts.
	DefaultCooldown = 3 * time.Second
	// IntensityRamp is the episode age at which notification intensity peaks.
	IntensityRamp = 5 * time.Second
	// MinIntensity is the quietest notification ever requested.
	MinIntensity = 0.1
)

// Trigger describes an alert the state machine wants raised.
type Trigger struct {
	Level    proximity.Level
	Duration time.Duration
	Region   string
	Distance float64
}

// Record is one entry in the session alert log. Records are never modified
// after they are appended.
type Record struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     proximity.Level `json:"level"`
	Duration  time.Duration   `json:"duration"`
	Region    string          `json:"region,omitempty"`
	Distance  float64         `json:"distance"`
	Intensity float64         `json:"intensity"`
}

// Alert is a dispatched alert handed back to the caller for rendering and
// sound.
type Alert struct {
	Record
	Count int `json:"count"`
}

// Submitter accepts notification jobs without blocking.
type Submitter interface {
	Submit(a Alert) bool
}

// Config holds dispatcher options.
type Config struct {
	Cooldown time.Duration
	Muted    bool
	// Queue receives a notification job for every unmuted alert. May be nil.
	Queue  Submitter
	Logger *zap.Logger
}

// NeverAlerted is the SinceLastAlert value when no alert has been
// dispatched since construction or the last Reset.
const NeverAlerted time.Duration = -1

// Stats is the dispatcher's aggregate view.
type Stats struct {
	TotalAlerts int  `json:"total_alerts"`
	Muted       bool `json:"is_muted"`
	// LastAlertAt is zero when nothing has been dispatched.
	LastAlertAt time.Time `json:"last_alert_at"`
	// SinceLastAlert is NeverAlerted when nothing has been dispatched, so an
	// alert fired at now (zero) is distinguishable.
	SinceLastAlert time.Duration `json:"since_last_alert"`
	CooldownActive bool          `json:"cooldown_active"`
}

// Dispatcher turns alert triggers into alert records and notification jobs.
// It enforces its own cooldown independently of the state machine. It is
// not safe for concurrent use.
type Dispatcher struct {
	cooldown  time.Duration
	muted     bool
	queue     Submitter
	logger    *zap.Logger
	count     int
	lastFired time.Time
	records   []Record
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{
		cooldown: cfg.Cooldown,
		muted:    cfg.Muted,
		queue:    cfg.Queue,
		logger:   cfg.Logger,
	}
}

// Fire dispatches an alert. It returns false without side effects when the
// previous dispatched alert is younger than the cooldown.
func (d *Dispatcher) Fire(t Trigger, now time.Time) (Alert, bool) {
	if d.cooldownActive(now) {
		d.logger.Debug("alert suppressed by cooldown",
			zap.String("level", t.Level.String()),
			zap.Duration("since_last", now.Sub(d.lastFired)))
		return Alert{}, false
	}

	d.count++
	d.lastFired = now

	rec := Record{
		ID:        uuid.New().String(),
		Timestamp: now,
		Level:     t.Level,
		Duration:  t.Duration,
		Region:    t.Region,
		Distance:  t.Distance,
		Intensity: Intensity(t.Duration),
	}
	d.records = append(d.records, rec)

	a := Alert{Record: rec, Count: d.count}

	d.logger.Info("alert",
		zap.Int("count", a.Count),
		zap.String("level", a.Level.String()),
		zap.Duration("duration", a.Duration),
		zap.String("region", a.Region),
		zap.Float64("distance", a.Distance),
		zap.Float64("intensity", a.Intensity))

	// State is committed above; the notification may be dropped or fail
	// without affecting it.
	if !d.muted && d.queue != nil {
		if !d.queue.Submit(a) {
			d.logger.Warn("notification dropped", zap.Int("count", a.Count))
		}
	}

	return a, true
}

// Intensity maps an episode duration to a notification intensity in
// [MinIntensity, 1].
func Intensity(duration time.Duration) float64 {
	v := float64(duration) / float64(IntensityRamp)
	return math.Max(MinIntensity, math.Min(1.0, v))
}

func (d *Dispatcher) cooldownActive(now time.Time) bool {
	return !d.lastFired.IsZero() && now.Sub(d.lastFired) < d.cooldown
}

// SetCooldown changes the dispatch cooldown. Non-positive values are ignored.
func (d *Dispatcher) SetCooldown(c time.Duration) {
	if c > 0 {
		d.cooldown = c
	}
}

// Cooldown returns the dispatch cooldown.
func (d *Dispatcher) Cooldown() time.Duration {
	return d.cooldown
}

// Count returns the number of dispatched alerts since the last Reset.
func (d *Dispatcher) Count() int {
	return d.count
}

// Muted reports whether notification side effects are suppressed.
func (d *Dispatcher) Muted() bool {
	return d.muted
}

// SetMuted sets the mute flag.
func (d *Dispatcher) SetMuted(muted bool) {
	d.muted = muted
	d.logger.Info("alert sound", zap.Bool("muted", muted))
}

// ToggleMute flips the mute flag and returns the new value.
func (d *Dispatcher) ToggleMute() bool {
	d.SetMuted(!d.muted)
	return d.muted
}

// Stats returns aggregate statistics as of now.
func (d *Dispatcher) Stats(now time.Time) Stats {
	s := Stats{
		TotalAlerts:    d.count,
		Muted:          d.muted,
		LastAlertAt:    d.lastFired,
		SinceLastAlert: NeverAlerted,
		CooldownActive: d.cooldownActive(now),
	}
	if !d.lastFired.IsZero() {
		s.SinceLastAlert = now.Sub(d.lastFired)
	}
	return s
}

// Reset zeroes the counter and cooldown and returns the previous count.
// The record log is kept.
func (d *Dispatcher) Reset() int {
	prev := d.count
	d.count = 0
	d.lastFired = time.Time{}
	d.logger.Info("alert statistics reset", zap.Int("previous", prev))
	return prev
}

// Records returns a copy of the session alert log, oldest first.
func (d *Dispatcher) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// ClearRecords empties the session alert log.
func (d *Dispatcher) ClearRecords() {
	d.records = nil
}

// RecentCounts counts warning and critical records no older than window.
func (d *Dispatcher) RecentCounts(now time.Time, window time.Duration) (warnings, criticals int) {
	for i := len(d.records) - 1; i >= 0; i-- {
		r := d.records[i]
		if now.Sub(r.Timestamp) > window {
			break
		}
		switch r.Level {
		case proximity.Warning:
			warnings++
		case proximity.Critical:
			criticals++
		}
	}
	return warnings, criticals
}

// AverageDuration returns the mean episode duration across the log.
func (d *Dispatcher) AverageDuration() time.Duration {
	if len(d.records) == 0 {
		return 0
	}
	secs := make([]float64, len(d.records))
	for i, r := range d.records {
		secs[i] = r.Duration.Seconds()
	}
	return time.Duration(stat.Mean(secs, nil) * float64(time.Second))
}
