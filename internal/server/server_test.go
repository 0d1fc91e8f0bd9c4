package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/handsoff/internal/engine"
)

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("reports status and uptime", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/api/health")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response struct {
			Status string `json:"status"`
			Uptime string `json:"uptime"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Status != "ok" {
			t.Errorf("expected status 'ok', got %q", response.Status)
		}
		if _, err := time.ParseDuration(response.Uptime); err != nil {
			t.Errorf("uptime %q is not a duration: %v", response.Uptime, err)
		}
	})

	t.Run("rejects writes", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			if rec := serve(s, method, "/api/health"); rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_Dashboard(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"index.html": "<html><body>Hands-Off</body></html>",
		"app.js":     "connectEvents();",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	s := New(Config{StaticDir: dir})

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"index at root", "/", http.StatusOK, files["index.html"]},
		{"asset", "/app.js", http.StatusOK, files["app.js"]},
		{"missing asset", "/missing.css", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, http.MethodGet, tt.path)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/", "/api/nonexistent"} {
		if rec := serve(s, http.MethodGet, path); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_RoutesNeedDependencies(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/stats", "/api/settings", "/api/notifiers", "/api/plugins", "/api/stream", "/api/events"} {
		if rec := serve(s, http.MethodGet, path); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_EngineRoutes(t *testing.T) {
	s := New(Config{Engine: engine.New(engine.DefaultConfig())})

	for _, path := range []string{"/api/stats", "/api/alerts", "/api/episodes", "/api/settings", "/api/sensitivity"} {
		if rec := serve(s, http.MethodGet, path); rec.Code != http.StatusOK {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusOK, rec.Code)
		}
	}

	// Engine-only servers have no store, so notifier routes stay off.
	if rec := serve(s, http.MethodGet, "/api/notifiers"); rec.Code != http.StatusNotFound {
		t.Errorf("/api/notifiers: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_Shutdown_NotStarted(t *testing.T) {
	hub := NewEventHub(nil)
	s := New(Config{Events: hub})

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if hub.Clients() != 0 {
		t.Errorf("Clients() = %d after shutdown", hub.Clients())
	}
}
