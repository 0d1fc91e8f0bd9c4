package proximity

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const tickInterval = 100 * time.Millisecond

var epoch = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func scenarioThresholds() Thresholds {
	return Thresholds{
		Warning:     40,
		Critical:    20,
		MinDuration: time.Second,
		MaxDuration: 5 * time.Second,
		Cooldown:    3 * time.Second,
	}
}

// tickAt feeds distance at the given offset from epoch.
func tickAt(m *Monitor, d float64, offset time.Duration) Decision {
	return m.Tick(d, epoch.Add(offset))
}

// alertOffsets feeds distance d every tickInterval over [from, to] and
// returns the offsets at which an alert was signalled.
func alertOffsets(m *Monitor, d float64, from, to time.Duration) []time.Duration {
	var out []time.Duration
	for off := from; off <= to; off += tickInterval {
		if tickAt(m, d, off).ShouldAlert {
			out = append(out, off)
		}
	}
	return out
}

func TestMonitor_ScenarioA_CriticalAfterDwell(t *testing.T) {
	m := NewMonitor(scenarioThresholds())

	var first *Decision
	var firstAt time.Duration
	for off := time.Duration(0); off <= 1200*time.Millisecond; off += tickInterval {
		d := tickAt(m, 15, off)
		if d.ShouldAlert && first == nil {
			first = &d
			firstAt = off
		}
	}

	if first == nil {
		t.Fatal("expected an alert within 1.2s")
	}
	if firstAt != time.Second {
		t.Errorf("first alert at %v, want 1s", firstAt)
	}
	if first.Level != Critical {
		t.Errorf("Level = %v, want CRITICAL", first.Level)
	}
	if first.Escalated {
		t.Error("direct critical alert should not be marked escalated")
	}
}

func TestMonitor_ScenarioB_WarningEscalates(t *testing.T) {
	m := NewMonitor(scenarioThresholds())

	type fired struct {
		At        time.Duration
		Level     Level
		Escalated bool
	}
	var got []fired
	var escalatedAt time.Duration
	for off := time.Duration(0); off <= 10*time.Second; off += tickInterval {
		d := tickAt(m, 30, off)
		if d.ShouldAlert {
			got = append(got, fired{At: off, Level: d.Level, Escalated: d.Escalated})
		}
		if d.Escalated {
			escalatedAt = off
		}
		if escalatedAt == 0 && d.Level == Critical {
			t.Fatalf("level reached CRITICAL at %v, before escalating", off)
		}
		if escalatedAt != 0 && d.Level != Critical {
			t.Fatalf("level dropped to %v at %v after escalating at %v", d.Level, off, escalatedAt)
		}
	}

	// The ceiling passes at 5s while the 4s warning is still cooling down,
	// so the promotion waits for the cooldown to clear at 7s.
	want := []fired{
		{At: time.Second, Level: Warning},
		{At: 4 * time.Second, Level: Warning},
		{At: 7 * time.Second, Level: Critical, Escalated: true},
		{At: 10 * time.Second, Level: Critical},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("alerts mismatch (-want +got):\n%s", diff)
	}
	if m.Level() != Critical {
		t.Errorf("Level() = %v, want CRITICAL after escalation", m.Level())
	}
}

func TestMonitor_EscalationWaitsForCooldown(t *testing.T) {
	tests := []struct {
		name      string
		cooldown  time.Duration
		wantAlert []time.Duration
		wantLevel Level
	}{
		{
			// Warnings at 1s and 1.5s; the cooldown has cleared at the 2s ceiling.
			name:      "ceiling outside cooldown",
			cooldown:  500 * time.Millisecond,
			wantAlert: []time.Duration{time.Second, 1500 * time.Millisecond, 2 * time.Second, 2500 * time.Millisecond, 3 * time.Second},
			wantLevel: Critical,
		},
		{
			name:      "ceiling inside cooldown",
			cooldown:  10 * time.Second,
			wantAlert: []time.Duration{time.Second},
			wantLevel: Warning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := scenarioThresholds()
			th.MaxDuration = 2 * time.Second
			th.Cooldown = tt.cooldown
			m := NewMonitor(th)

			var got []time.Duration
			for off := time.Duration(0); off <= 3*time.Second; off += tickInterval {
				d := tickAt(m, 30, off)
				if d.ShouldAlert {
					got = append(got, off)
				}
				if d.Escalated && off != 2*time.Second {
					t.Errorf("escalated at %v, want 2s", off)
				}
			}

			if diff := cmp.Diff(tt.wantAlert, got); diff != "" {
				t.Errorf("alert offsets mismatch (-want +got):\n%s", diff)
			}
			if m.Level() != tt.wantLevel {
				t.Errorf("Level() = %v, want %v", m.Level(), tt.wantLevel)
			}
		})
	}
}

func TestMonitor_DecisionLevelNeverDropsWithinEpisode(t *testing.T) {
	m := NewMonitor(scenarioThresholds())

	// Critical during the dwell, then warning for the rest of the episode.
	tickAt(m, 30, 0)
	tickAt(m, 10, tickInterval)
	for off := 2 * tickInterval; off <= 6*time.Second; off += tickInterval {
		if d := tickAt(m, 30, off); d.Level != Critical {
			t.Fatalf("at %v Decision.Level = %v, want CRITICAL", off, d.Level)
		}
	}
}

func TestMonitor_ScenarioC_CooldownAcrossSustainedProximity(t *testing.T) {
	m := NewMonitor(scenarioThresholds())

	got := alertOffsets(m, 15, 0, 4*time.Second)

	want := []time.Duration{time.Second, 4 * time.Second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("alert offsets mismatch (-want +got):\n%s", diff)
	}
}

func TestMonitor_ScenarioD_NoDetections(t *testing.T) {
	m := NewMonitor(scenarioThresholds())

	for off := time.Duration(0); off <= 10*time.Second; off += tickInterval {
		sample := Compute(nil, FaceRegionMap{"mouth": {X: 1, Y: 1}}, DefaultSensitivity())
		if !math.IsInf(sample.Distance, 1) {
			t.Fatalf("Compute() = %f, want +Inf", sample.Distance)
		}

		d := tickAt(m, sample.Distance, off)
		if diff := cmp.Diff(Decision{Level: Normal}, d); diff != "" {
			t.Fatalf("at %v decision mismatch (-want +got):\n%s", off, diff)
		}
		if m.InEpisode() {
			t.Fatalf("episode opened at %v", off)
		}
	}
}

func TestMonitor_SingleFrameDipNeverAlerts(t *testing.T) {
	m := NewMonitor(scenarioThresholds())

	for i := 0; i < 100; i++ {
		off := time.Duration(i) * tickInterval
		d := 100.0
		if i%10 == 5 {
			d = 5 // one critical frame surrounded by normal frames
		}
		if tickAt(m, d, off).ShouldAlert {
			t.Fatalf("alert at %v from a single-frame dip", off)
		}
	}
}

func TestMonitor_EntryNeverAlerts(t *testing.T) {
	th := scenarioThresholds()
	th.MinDuration = MinDwell
	m := NewMonitor(th)

	d := tickAt(m, 1, 0)
	if d.ShouldAlert {
		t.Error("entry tick should never alert")
	}
	if d.Level != Critical {
		t.Errorf("Level = %v, want CRITICAL", d.Level)
	}
	if d.Duration != 0 {
		t.Errorf("Duration = %v, want 0", d.Duration)
	}
}

func TestMonitor_CooldownProperty(t *testing.T) {
	for _, cooldown := range []time.Duration{500 * time.Millisecond, time.Second, 3 * time.Second, 7 * time.Second} {
		t.Run(cooldown.String(), func(t *testing.T) {
			th := scenarioThresholds()
			th.Cooldown = cooldown
			m := NewMonitor(th)

			offsets := alertOffsets(m, 10, 0, 30*time.Second)
			if len(offsets) < 2 {
				t.Fatalf("expected repeated alerts, got %v", offsets)
			}
			for i := 1; i < len(offsets); i++ {
				if gap := offsets[i] - offsets[i-1]; gap < cooldown {
					t.Errorf("alerts %v and %v are %v apart, cooldown is %v", offsets[i-1], offsets[i], gap, cooldown)
				}
			}
		})
	}
}

func TestMonitor_LevelNeverDropsWithinEpisode(t *testing.T) {
	m := NewMonitor(scenarioThresholds())

	distances := []float64{30, 30, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 35, 35, 35}
	prev := Normal
	for i, d := range distances {
		tickAt(m, d, time.Duration(i)*tickInterval)
		if m.Level().Less(prev) {
			t.Fatalf("tick %d: level dropped from %v to %v inside an episode", i, prev, m.Level())
		}
		prev = m.Level()
	}
	if m.Level() != Critical {
		t.Errorf("Level() = %v, want CRITICAL", m.Level())
	}

	tickAt(m, 80, time.Duration(len(distances))*tickInterval)
	if m.Level() != Normal {
		t.Errorf("Level() = %v, want NORMAL once the hand leaves", m.Level())
	}
	if m.InEpisode() {
		t.Error("episode should be closed")
	}
}

func TestMonitor_EpisodeLog(t *testing.T) {
	m := NewMonitor(scenarioThresholds())

	// Short episode: 0.3s, not logged.
	tickAt(m, 30, 0)
	tickAt(m, 30, 300*time.Millisecond)
	tickAt(m, 90, 300*time.Millisecond)

	// Long episode: 2s, logged.
	tickAt(m, 30, time.Second)
	tickAt(m, 12, 2*time.Second)
	tickAt(m, 25, 3*time.Second)
	tickAt(m, 90, 3*time.Second)

	eps := m.Episodes()
	if len(eps) != 1 {
		t.Fatalf("len(Episodes()) = %d, want 1", len(eps))
	}
	want := Episode{
		Start:    epoch.Add(time.Second),
		End:      epoch.Add(3 * time.Second),
		Duration: 2 * time.Second,
		Peak:     Critical,
		Closest:  12,
	}
	if diff := cmp.Diff(want, eps[0]); diff != "" {
		t.Errorf("episode mismatch (-want +got):\n%s", diff)
	}
}

func TestMonitor_ResetIsIdempotent(t *testing.T) {
	fresh := NewMonitor(scenarioThresholds())
	var want []Decision
	for off := time.Duration(0); off <= 2*time.Second; off += tickInterval {
		want = append(want, fresh.Tick(5, epoch.Add(off)))
	}

	used := NewMonitor(scenarioThresholds())
	alertOffsets(used, 15, 0, 6*time.Second)
	used.Reset()
	used.Reset()

	if used.History().Len() != 0 {
		t.Errorf("History().Len() = %d after reset, want 0", used.History().Len())
	}
	if len(used.Episodes()) != 0 {
		t.Errorf("Episodes() not cleared")
	}

	// Replay the same relative timeline later on the clock.
	later := 6*time.Second + tickInterval
	var got []Decision
	for off := time.Duration(0); off <= 2*time.Second; off += tickInterval {
		got = append(got, used.Tick(5, epoch.Add(later+off)))
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("post-reset timeline differs (-fresh +reset):\n%s", diff)
	}
}

func TestMonitor_ThresholdUpdateAppliesNextTick(t *testing.T) {
	m := NewMonitor(scenarioThresholds())

	if d := tickAt(m, 30, 0); d.Level != Warning {
		t.Fatalf("Level = %v, want WARNING", d.Level)
	}

	critical := 35.0
	got := m.UpdateThresholds(ThresholdUpdate{Critical: &critical})
	if got.Critical != 35 || got.Warning != 40 {
		t.Errorf("UpdateThresholds() = %+v, want critical 35 warning 40", got)
	}

	if d := tickAt(m, 30, 200*time.Millisecond); d.Level != Critical {
		t.Errorf("Level = %v, want CRITICAL after lowering the bar", d.Level)
	}
}

func TestThresholds_Apply(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	dur := func(v time.Duration) *time.Duration { return &v }

	tests := []struct {
		name   string
		update ThresholdUpdate
		want   Thresholds
	}{
		{
			name:   "empty update keeps values",
			update: ThresholdUpdate{},
			want:   scenarioThresholds(),
		},
		{
			name:   "floors",
			update: ThresholdUpdate{Warning: f(1), Critical: f(0), MinDuration: dur(0), MaxDuration: dur(0), Cooldown: dur(-time.Second)},
			want: Thresholds{
				Warning:     MinWarningPx,
				Critical:    MinCriticalPx,
				MinDuration: MinDwell,
				MaxDuration: MinDwell + MinCeilingGap,
				Cooldown:    MinCooldown,
			},
		},
		{
			name:   "critical clamped below warning",
			update: ThresholdUpdate{Critical: f(60)},
			want: Thresholds{
				Warning:     40,
				Critical:    39,
				MinDuration: time.Second,
				MaxDuration: 5 * time.Second,
				Cooldown:    3 * time.Second,
			},
		},
		{
			name:   "inverted durations",
			update: ThresholdUpdate{MinDuration: dur(4 * time.Second), MaxDuration: dur(2 * time.Second)},
			want: Thresholds{
				Warning:     40,
				Critical:    20,
				MinDuration: 4 * time.Second,
				MaxDuration: 4500 * time.Millisecond,
				Cooldown:    3 * time.Second,
			},
		},
		{
			name:   "NaN warning",
			update: ThresholdUpdate{Warning: f(math.NaN())},
			want: Thresholds{
				Warning:     MinWarningPx,
				Critical:    MinWarningPx - 1,
				MinDuration: time.Second,
				MaxDuration: 5 * time.Second,
				Cooldown:    3 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scenarioThresholds().Apply(tt.update)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHistory_RingBuffer(t *testing.T) {
	var h History

	for i := 0; i < HistorySize+5; i++ {
		h.Push(float64(i))
	}

	if h.Len() != HistorySize {
		t.Errorf("Len() = %d, want %d", h.Len(), HistorySize)
	}
	values := h.Values()
	if values[0] != 5 {
		t.Errorf("oldest = %f, want 5", values[0])
	}
	if h.Last() != float64(HistorySize+4) {
		t.Errorf("Last() = %f, want %d", h.Last(), HistorySize+4)
	}

	h.Clear()
	if h.Len() != 0 || !math.IsInf(h.Last(), 1) {
		t.Error("Clear() should empty the history")
	}
}

func TestHistory_Summary(t *testing.T) {
	t.Run("ignores missing detections", func(t *testing.T) {
		var h History
		for _, d := range []float64{math.Inf(1), 60, 50, math.Inf(1), 40, 30} {
			h.Push(d)
		}

		s := h.Summary()
		if s.Samples != 6 || s.Detected != 4 {
			t.Errorf("Samples/Detected = %d/%d, want 6/4", s.Samples, s.Detected)
		}
		if s.Min != 30 || s.Max != 60 {
			t.Errorf("Min/Max = %f/%f, want 30/60", s.Min, s.Max)
		}
		if math.Abs(s.Mean-45) > 1e-9 {
			t.Errorf("Mean = %f, want 45", s.Mean)
		}
		if !s.Approaching {
			t.Error("expected approaching trend for shrinking distances")
		}
	})

	t.Run("empty", func(t *testing.T) {
		var h History
		if diff := cmp.Diff(Summary{}, h.Summary()); diff != "" {
			t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("single sample", func(t *testing.T) {
		var h History
		h.Push(12)
		s := h.Summary()
		if s.Mean != 12 || s.StdDev != 0 {
			t.Errorf("Mean/StdDev = %f/%f, want 12/0", s.Mean, s.StdDev)
		}
	})
}
