package server

import (
	"fmt"
	"net/http"
	"time"
)

// StreamInterval is the pause between polls of the frame source.
const StreamInterval = 66 * time.Millisecond // ~15 FPS

// FrameSource supplies the latest annotated frame as JPEG bytes. seq grows
// by one for every new frame and is zero before the first one.
type FrameSource interface {
	LatestJPEG() (jpeg []byte, seq uint64)
}

// StreamHandler serves annotated frames as MJPEG.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler over the given frame source.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames, interval: StreamInterval}
}

// ServeHTTP streams MJPEG frames to connected clients. Each frame is sent
// once; the handler idles while the source has nothing new.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var sent uint64
	for {
		if buf, seq := h.frames.LatestJPEG(); seq != sent && len(buf) > 0 {
			if err := writePart(w, buf); err != nil {
				return
			}
			sent = seq
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\r\n")
	return err
}
