// Package api provides the JSON HTTP handlers behind the dashboard.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/handsoff/internal/alert"
	"github.com/ayusman/handsoff/internal/engine"
	"github.com/ayusman/handsoff/internal/proximity"
)

// Engine is the part of engine.Engine the handlers drive.
type Engine interface {
	Snapshot(now time.Time) engine.Snapshot
	Records() []alert.Record
	Episodes() []proximity.Episode
	Reset() int
	ResetStats() int
	Thresholds() proximity.Thresholds
	UpdateThresholds(u proximity.ThresholdUpdate) proximity.Thresholds
	Sensitivity() proximity.Sensitivity
	SetSensitivity(s proximity.Sensitivity)
	Muted() bool
	SetMuted(muted bool)
}

var _ Engine = (*engine.Engine)(nil)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}
