package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/handsoff/internal/engine"
	"github.com/ayusman/handsoff/internal/store"
)

func TestAPI_SettingsWorkflow(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	eng := engine.New(engine.DefaultConfig())
	srv := New(Config{Engine: eng, Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Update settings
	body := `{"warning_threshold_px": 80, "critical_threshold_px": 30, "muted": true}`
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", bytes.NewBufferString(body))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/settings error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// 2. Stats reflect the new thresholds and mute flag
	resp, err = client.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats error = %v", err)
	}
	var stats struct {
		Muted      bool `json:"is_muted"`
		Thresholds struct {
			Warning  float64 `json:"warning_threshold_px"`
			Critical float64 `json:"critical_threshold_px"`
		} `json:"thresholds"`
	}
	json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()

	if !stats.Muted || stats.Thresholds.Warning != 80 || stats.Thresholds.Critical != 30 {
		t.Errorf("stats = %+v", stats)
	}

	// 3. A fresh engine loaded from the store sees the same values
	thresholds, err := s.Settings().LoadThresholds(engine.DefaultConfig().Thresholds)
	if err != nil {
		t.Fatalf("LoadThresholds() error = %v", err)
	}
	if thresholds.Warning != 80 || thresholds.Critical != 30 {
		t.Errorf("persisted thresholds = %+v", thresholds)
	}

	// 4. Reset endpoint answers with the previous count
	resp, err = client.Post(ts.URL+"/api/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/reset error = %v", err)
	}
	var reset struct {
		PreviousCount int `json:"previous_count"`
	}
	json.NewDecoder(resp.Body).Decode(&reset)
	resp.Body.Close()
	if reset.PreviousCount != 0 {
		t.Errorf("previous_count = %d, want 0", reset.PreviousCount)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
