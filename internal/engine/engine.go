// Package engine wires the distance calculator, the hysteresis state machine
// and the alert dispatcher into one object that the frame loop feeds and the
// dashboard reads.
package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handsoff/internal/alert"
	"github.com/ayusman/handsoff/internal/proximity"
)

// DefaultRecentWindow is how far back the snapshot counts recent alerts.
const DefaultRecentWindow = 300 * time.Second

// Config holds engine options.
type Config struct {
	Thresholds  proximity.Thresholds
	Sensitivity proximity.Sensitivity
	Muted       bool
	// Queue receives notification jobs for dispatched alerts. May be nil.
	Queue        alert.Submitter
	RecentWindow time.Duration
	Logger       *zap.Logger
}

// DefaultConfig returns a Config with stock thresholds and weights.
func DefaultConfig() Config {
	return Config{
		Thresholds:   proximity.DefaultThresholds(),
		Sensitivity:  proximity.DefaultSensitivity(),
		RecentWindow: DefaultRecentWindow,
	}
}

// Result is the outcome of processing one sample.
type Result struct {
	Sample   proximity.Sample   `json:"sample"`
	Decision proximity.Decision `json:"decision"`
	// Alert is set when an alert was dispatched on this sample.
	Alert *alert.Alert `json:"alert,omitempty"`
}

// Snapshot is the statistics view exposed to the dashboard and tray.
type Snapshot struct {
	Level                proximity.Level      `json:"level"`
	InEpisode            bool                 `json:"in_episode"`
	EpisodeDuration      time.Duration        `json:"episode_duration"`
	RecentWarnings       int                  `json:"recent_warnings"`
	RecentCriticals      int                  `json:"recent_criticals"`
	AverageAlertDuration time.Duration        `json:"average_alert_duration"`
	CooldownActive       bool                 `json:"cooldown_active"`
	HistoryLen           int                  `json:"history_len"`
	HistoryCap           int                  `json:"history_cap"`
	TotalAlerts          int                  `json:"total_alerts"`
	Muted                bool                 `json:"muted"`
	LastAlertAt          time.Time            `json:"last_alert_at"`
	// SinceLastAlert is alert.NeverAlerted before the first alert.
	SinceLastAlert       time.Duration        `json:"since_last_alert"`
	Thresholds           proximity.Thresholds `json:"thresholds"`
	History              proximity.Summary    `json:"history"`
	LastSample           proximity.Sample     `json:"last_sample"`
}

// Engine is safe for concurrent use. Process must still be called from a
// single loop with non-decreasing timestamps.
type Engine struct {
	mu         sync.Mutex
	monitor    *proximity.Monitor
	dispatcher *alert.Dispatcher
	sens       proximity.Sensitivity
	window     time.Duration
	last       proximity.Sample
	logger     *zap.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Sensitivity == nil {
		cfg.Sensitivity = proximity.DefaultSensitivity()
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}
	if cfg.Thresholds == (proximity.Thresholds{}) {
		cfg.Thresholds = proximity.DefaultThresholds()
	}

	monitor := proximity.NewMonitor(cfg.Thresholds)
	return &Engine{
		monitor: monitor,
		dispatcher: alert.NewDispatcher(alert.Config{
			Cooldown: monitor.Thresholds().Cooldown,
			Muted:    cfg.Muted,
			Queue:    cfg.Queue,
			Logger:   cfg.Logger.Named("alert"),
		}),
		sens:   cfg.Sensitivity.Clone(),
		window: cfg.RecentWindow,
		last:   proximity.NoSample(),
		logger: cfg.Logger,
	}
}

// Process runs one sample through the calculator, state machine and
// dispatcher.
func (e *Engine) Process(hands []proximity.Point, face proximity.FaceRegionMap, now time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	sample := proximity.Compute(hands, face, e.sens)
	decision := e.monitor.Tick(sample.Distance, now)
	e.last = sample

	res := Result{Sample: sample, Decision: decision}
	if !decision.ShouldAlert {
		return res
	}

	if decision.Escalated {
		e.logger.Info("sustained proximity escalated",
			zap.String("region", sample.Region),
			zap.Duration("duration", decision.Duration))
	}

	a, ok := e.dispatcher.Fire(alert.Trigger{
		Level:    decision.Level,
		Duration: decision.Duration,
		Region:   sample.Region,
		Distance: sample.Distance,
	}, now)
	if ok {
		res.Alert = &a
	}
	return res
}

// Snapshot returns the current statistics.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := e.dispatcher.Stats(now)
	warnings, criticals := e.dispatcher.RecentCounts(now, e.window)
	history := e.monitor.History()

	return Snapshot{
		Level:                e.monitor.Level(),
		InEpisode:            e.monitor.InEpisode(),
		EpisodeDuration:      e.monitor.EpisodeDuration(now),
		RecentWarnings:       warnings,
		RecentCriticals:      criticals,
		AverageAlertDuration: e.dispatcher.AverageDuration(),
		CooldownActive:       stats.CooldownActive,
		HistoryLen:           history.Len(),
		HistoryCap:           history.Cap(),
		TotalAlerts:          stats.TotalAlerts,
		Muted:                stats.Muted,
		LastAlertAt:          stats.LastAlertAt,
		SinceLastAlert:       stats.SinceLastAlert,
		Thresholds:           e.monitor.Thresholds(),
		History:              history.Summary(),
		LastSample:           e.last,
	}
}

// Thresholds returns the active thresholds.
func (e *Engine) Thresholds() proximity.Thresholds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.monitor.Thresholds()
}

// UpdateThresholds applies a clamped partial update and keeps the
// dispatcher cooldown in step with the state machine.
func (e *Engine) UpdateThresholds(u proximity.ThresholdUpdate) proximity.Thresholds {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.monitor.UpdateThresholds(u)
	e.dispatcher.SetCooldown(t.Cooldown)
	e.logger.Info("thresholds updated",
		zap.Float64("warning_px", t.Warning),
		zap.Float64("critical_px", t.Critical),
		zap.Duration("min_duration", t.MinDuration),
		zap.Duration("max_duration", t.MaxDuration),
		zap.Duration("cooldown", t.Cooldown))
	return t
}

// Sensitivity returns a copy of the region weights.
func (e *Engine) Sensitivity() proximity.Sensitivity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sens.Clone()
}

// SetSensitivity replaces the region weights from the next sample on.
func (e *Engine) SetSensitivity(s proximity.Sensitivity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sens = s.Clone()
}

// Muted reports whether notifications are muted.
func (e *Engine) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatcher.Muted()
}

// SetMuted sets the mute flag.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatcher.SetMuted(muted)
}

// ToggleMute flips the mute flag and returns the new value.
func (e *Engine) ToggleMute() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatcher.ToggleMute()
}

// ResetStats zeroes the alert counter and cooldown and returns the previous
// count. The alert log and episode state are kept.
func (e *Engine) ResetStats() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatcher.Reset()
}

// Reset returns the engine to its freshly constructed state, keeping
// thresholds, weights and the mute flag. It returns the previous alert count.
func (e *Engine) Reset() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.monitor.Reset()
	e.dispatcher.ClearRecords()
	e.last = proximity.NoSample()
	return e.dispatcher.Reset()
}

// Records returns the session alert log.
func (e *Engine) Records() []alert.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatcher.Records()
}

// Episodes returns the closed-episode log.
func (e *Engine) Episodes() []proximity.Episode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.monitor.Episodes()
}
