package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeFrames struct {
	mu   sync.Mutex
	jpeg []byte
	seq  uint64
}

func (f *fakeFrames) LatestJPEG() ([]byte, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jpeg, f.seq
}

func (f *fakeFrames) push(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jpeg = b
	f.seq++
}

func serveStream(t *testing.T, h *StreamHandler, d time.Duration) *httptest.ResponseRecorder {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStreamHandler_WritesEachFrameOnce(t *testing.T) {
	frames := &fakeFrames{}
	frames.push([]byte("JPEG1"))

	h := NewStreamHandler(frames)
	h.interval = 5 * time.Millisecond

	rec := serveStream(t, h, 100*time.Millisecond)

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	if n := strings.Count(body, "--frame\r\n"); n != 1 {
		t.Errorf("got %d parts, want 1:\n%q", n, body)
	}
	if !strings.Contains(body, "Content-Length: 5\r\n\r\nJPEG1\r\n") {
		t.Errorf("malformed part: %q", body)
	}
}

func TestStreamHandler_NoFrameYet(t *testing.T) {
	h := NewStreamHandler(&fakeFrames{})
	h.interval = 5 * time.Millisecond

	rec := serveStream(t, h, 50*time.Millisecond)

	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&fakeFrames{})

	req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
