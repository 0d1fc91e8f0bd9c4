package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/handsoff/internal/proximity"
	"github.com/ayusman/handsoff/internal/store"
)

// SettingsHandler serves GET and PUT /api/settings. Updates are applied to
// the engine, clamped, and persisted when a store is configured.
type SettingsHandler struct {
	engine Engine
	store  *store.Store
}

// NewSettingsHandler creates a new SettingsHandler. s may be nil.
func NewSettingsHandler(e Engine, s *store.Store) *SettingsHandler {
	return &SettingsHandler{engine: e, store: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type thresholdsJSON struct {
	Warning       float64 `json:"warning_threshold_px"`
	Critical      float64 `json:"critical_threshold_px"`
	MinDurationMs int64   `json:"min_duration_ms"`
	MaxDurationMs int64   `json:"max_duration_ms"`
	CooldownMs    int64   `json:"alert_cooldown_ms"`
}

func toThresholdsJSON(t proximity.Thresholds) thresholdsJSON {
	return thresholdsJSON{
		Warning:       t.Warning,
		Critical:      t.Critical,
		MinDurationMs: millis(t.MinDuration),
		MaxDurationMs: millis(t.MaxDuration),
		CooldownMs:    millis(t.Cooldown),
	}
}

type settingsResponse struct {
	thresholdsJSON
	Muted bool `json:"muted"`
}

type updateSettingsRequest struct {
	Warning       *float64 `json:"warning_threshold_px"`
	Critical      *float64 `json:"critical_threshold_px"`
	MinDurationMs *int64   `json:"min_duration_ms"`
	MaxDurationMs *int64   `json:"max_duration_ms"`
	CooldownMs    *int64   `json:"alert_cooldown_ms"`
	Muted         *bool    `json:"muted"`
}

func msPtr(ms *int64) *time.Duration {
	if ms == nil {
		return nil
	}
	d := proximity.Millis(*ms)
	return &d
}

func (req updateSettingsRequest) thresholdUpdate() proximity.ThresholdUpdate {
	return proximity.ThresholdUpdate{
		Warning:     req.Warning,
		Critical:    req.Critical,
		MinDuration: msPtr(req.MinDurationMs),
		MaxDuration: msPtr(req.MaxDurationMs),
		Cooldown:    msPtr(req.CooldownMs),
	}
}

func (req updateSettingsRequest) touchesThresholds() bool {
	return req.Warning != nil || req.Critical != nil ||
		req.MinDurationMs != nil || req.MaxDurationMs != nil || req.CooldownMs != nil
}

// get handles GET /api/settings.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse{
		thresholdsJSON: toThresholdsJSON(h.engine.Thresholds()),
		Muted:          h.engine.Muted(),
	})
}

// update handles PUT /api/settings. Omitted fields are left unchanged and
// out-of-range values are clamped rather than rejected.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	t := h.engine.Thresholds()
	if req.touchesThresholds() {
		t = h.engine.UpdateThresholds(req.thresholdUpdate())
		if h.store != nil {
			if err := h.store.Settings().SaveThresholds(t); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to save settings")
				return
			}
		}
	}

	if req.Muted != nil {
		h.engine.SetMuted(*req.Muted)
		if h.store != nil {
			if err := h.store.Settings().SetMuted(*req.Muted); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to save settings")
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		thresholdsJSON: toThresholdsJSON(t),
		Muted:          h.engine.Muted(),
	})
}
