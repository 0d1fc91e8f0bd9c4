// Package plugin discovers notification plugins and runs them with alert
// payloads over a JSON stdin/stdout protocol.
package plugin

import (
	"encoding/json"

	"github.com/ayusman/handsoff/internal/alert"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// AlertPayload is the alert as seen by a plugin.
type AlertPayload struct {
	Level string `json:"level"`
	// Region is the closest face region, empty if unknown.
	Region string `json:"region,omitempty"`
	// Duration is the episode age in seconds.
	Duration  float64 `json:"duration"`
	Distance  float64 `json:"distance"`
	Intensity float64 `json:"intensity"`
	Count     int     `json:"count"`
}

// NewAlertPayload converts a dispatched alert.
func NewAlertPayload(a alert.Alert) AlertPayload {
	return AlertPayload{
		Level:     a.Level.String(),
		Region:    a.Region,
		Duration:  a.Duration.Seconds(),
		Distance:  a.Distance,
		Intensity: a.Intensity,
		Count:     a.Count,
	}
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action string          `json:"action"`
	Alert  AlertPayload    `json:"alert"`
	Config json.RawMessage `json:"config,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest `json:"manifest"`
	Path       string   `json:"path"`
	Executable string   `json:"executable"`
}

// HasAction reports whether the manifest declares action.
func (p *Plugin) HasAction(action string) bool {
	for _, a := range p.Manifest.Actions {
		if a == action {
			return true
		}
	}
	return false
}
