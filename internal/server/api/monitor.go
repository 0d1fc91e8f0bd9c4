package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/handsoff/internal/alert"
	"github.com/ayusman/handsoff/internal/proximity"
)

// MonitorHandler serves live statistics and the session alert log:
//
//	GET    /api/stats
//	GET    /api/alerts
//	DELETE /api/alerts   full reset
//	POST   /api/reset    statistics reset
//	GET    /api/episodes
type MonitorHandler struct {
	engine Engine
	now    func() time.Time
}

// NewMonitorHandler creates a new MonitorHandler over the given engine.
func NewMonitorHandler(e Engine) *MonitorHandler {
	return &MonitorHandler{engine: e, now: time.Now}
}

// ServeHTTP implements the http.Handler interface.
func (h *MonitorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/api/stats":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.stats(w, r)
	case "/api/alerts":
		switch r.Method {
		case http.MethodGet:
			h.alerts(w, r)
		case http.MethodDelete:
			writeJSON(w, http.StatusOK, resetResponse{PreviousCount: h.engine.Reset()})
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "/api/reset":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, resetResponse{PreviousCount: h.engine.ResetStats()})
	case "/api/episodes":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.episodes(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type resetResponse struct {
	PreviousCount int `json:"previous_count"`
}

type statsResponse struct {
	Level                 proximity.Level   `json:"level"`
	InEpisode             bool              `json:"in_episode"`
	EpisodeSeconds        float64           `json:"episode_duration"`
	RecentWarnings        int               `json:"recent_warnings"`
	RecentCriticals       int               `json:"recent_criticals"`
	AverageAlertSeconds   float64           `json:"average_alert_duration"`
	CooldownActive        bool              `json:"cooldown_active"`
	HistoryLen            int               `json:"history_len"`
	HistoryCap            int               `json:"history_cap"`
	TotalAlerts           int               `json:"total_alerts"`
	Muted                 bool              `json:"is_muted"`
	LastAlertAt           *string           `json:"last_alert_at"`
	SecondsSinceLastAlert *float64          `json:"seconds_since_last_alert"`
	Thresholds            thresholdsJSON    `json:"thresholds"`
	History               proximity.Summary `json:"history"`
	LastSample            proximity.Sample  `json:"last_sample"`
}

type alertResponse struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Level     proximity.Level `json:"level"`
	Duration  float64         `json:"duration"`
	Region    string          `json:"region,omitempty"`
	Distance  float64         `json:"distance"`
	Intensity float64         `json:"intensity"`
}

type listAlertsResponse struct {
	Alerts []alertResponse `json:"alerts"`
}

type episodeResponse struct {
	Start    string          `json:"start"`
	End      string          `json:"end"`
	Duration float64         `json:"duration"`
	Peak     proximity.Level `json:"peak"`
	Closest  float64         `json:"closest"`
}

type listEpisodesResponse struct {
	Episodes []episodeResponse `json:"episodes"`
}

func toAlertResponse(rec alert.Record) alertResponse {
	return alertResponse{
		ID:        rec.ID,
		Timestamp: rec.Timestamp.Format(time.RFC3339Nano),
		Level:     rec.Level,
		Duration:  rec.Duration.Seconds(),
		Region:    rec.Region,
		Distance:  rec.Distance,
		Intensity: rec.Intensity,
	}
}

// stats handles GET /api/stats.
func (h *MonitorHandler) stats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot(h.now())

	resp := statsResponse{
		Level:               snap.Level,
		InEpisode:           snap.InEpisode,
		EpisodeSeconds:      snap.EpisodeDuration.Seconds(),
		RecentWarnings:      snap.RecentWarnings,
		RecentCriticals:     snap.RecentCriticals,
		AverageAlertSeconds: snap.AverageAlertDuration.Seconds(),
		CooldownActive:      snap.CooldownActive,
		HistoryLen:          snap.HistoryLen,
		HistoryCap:          snap.HistoryCap,
		TotalAlerts:         snap.TotalAlerts,
		Muted:               snap.Muted,
		Thresholds:          toThresholdsJSON(snap.Thresholds),
		History:             snap.History,
		LastSample:          snap.LastSample,
	}
	if !snap.LastAlertAt.IsZero() {
		at := snap.LastAlertAt.Format(time.RFC3339Nano)
		since := snap.SinceLastAlert.Seconds()
		resp.LastAlertAt = &at
		resp.SecondsSinceLastAlert = &since
	}

	writeJSON(w, http.StatusOK, resp)
}

// alerts handles GET /api/alerts.
func (h *MonitorHandler) alerts(w http.ResponseWriter, r *http.Request) {
	records := h.engine.Records()

	resp := listAlertsResponse{Alerts: make([]alertResponse, 0, len(records))}
	for _, rec := range records {
		resp.Alerts = append(resp.Alerts, toAlertResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// episodes handles GET /api/episodes.
func (h *MonitorHandler) episodes(w http.ResponseWriter, r *http.Request) {
	episodes := h.engine.Episodes()

	resp := listEpisodesResponse{Episodes: make([]episodeResponse, 0, len(episodes))}
	for _, ep := range episodes {
		resp.Episodes = append(resp.Episodes, episodeResponse{
			Start:    ep.Start.Format(time.RFC3339Nano),
			End:      ep.End.Format(time.RFC3339Nano),
			Duration: ep.Duration.Seconds(),
			Peak:     ep.Peak,
			Closest:  ep.Closest,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
