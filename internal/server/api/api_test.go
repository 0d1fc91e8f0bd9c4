package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/handsoff/internal/engine"
	"github.com/ayusman/handsoff/internal/proximity"
	"github.com/ayusman/handsoff/internal/store"
)

var start = time.Date(2026, 5, 6, 10, 0, 0, 0, time.UTC)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func newTestEngine() *engine.Engine {
	return engine.New(engine.Config{
		Thresholds:  proximity.DefaultThresholds(),
		Sensitivity: proximity.Sensitivity{"mouth": 1},
	})
}

// driveAlert holds a hand 10px from the mouth long enough for one critical
// alert to fire.
func driveAlert(e *engine.Engine, from time.Time) {
	face := proximity.FaceRegionMap{"mouth": {X: 320, Y: 300}}
	hand := []proximity.Point{{X: 330, Y: 300}}
	for off := time.Duration(0); off <= 1200*time.Millisecond; off += 100 * time.Millisecond {
		e.Process(hand, face, from.Add(off))
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
