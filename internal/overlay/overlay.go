// Package overlay draws alert banners and landmark markers onto preview
// frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsoff/internal/alert"
	"github.com/ayusman/handsoff/internal/proximity"
)

const (
	// DefaultHold is how long an alert stays on screen after it fired.
	DefaultHold = 2 * time.Second
	// TintAlpha is the weight of the red wash over a critical frame.
	TintAlpha = 0.15
)

var (
	red    = color.RGBA{R: 255, A: 255}
	orange = color.RGBA{R: 255, G: 165, A: 255}
	green  = color.RGBA{G: 255, A: 255}
	black  = color.RGBA{A: 255}
)

// Request is what the renderer needs to draw one alert.
type Request struct {
	Level    proximity.Level
	Region   string
	Duration time.Duration
	// Intensity is carried for renderers that scale their effect; the
	// built-in banner ignores it.
	Intensity float64
}

// FromAlert builds a Request from a dispatched alert.
func FromAlert(a alert.Alert) Request {
	return Request{Level: a.Level, Region: a.Region, Duration: a.Duration, Intensity: a.Intensity}
}

// Renderer keeps the most recent alert on screen for a hold period.
type Renderer struct {
	mu      sync.Mutex
	hold    time.Duration
	current Request
	shownAt time.Time
	showing bool
}

// NewRenderer creates a Renderer. Non-positive hold uses DefaultHold.
func NewRenderer(hold time.Duration) *Renderer {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Renderer{hold: hold}
}

// Show makes req the displayed alert from now on.
func (r *Renderer) Show(req Request, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.Level == proximity.Normal {
		return
	}
	r.current = req
	r.shownAt = now
	r.showing = true
}

// Current returns the alert still within its hold period, if any.
func (r *Renderer) Current(now time.Time) (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.showing || now.Sub(r.shownAt) > r.hold {
		return Request{}, false
	}
	return r.current, true
}

// Clear removes the displayed alert.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showing = false
	r.current = Request{}
}

// Render draws the held alert onto frame and reports whether it drew one.
func (r *Renderer) Render(frame *gocv.Mat, now time.Time) bool {
	req, ok := r.Current(now)
	if !ok {
		return false
	}
	Draw(frame, req, now)
	return true
}

// BlinkOn reports whether the critical tint is visible at now. The tint is on
// for the first half of every second.
func BlinkOn(now time.Time) bool {
	return now.Nanosecond() < int(500*time.Millisecond)
}

// Draw renders req onto frame. Normal requests draw nothing.
func Draw(frame *gocv.Mat, req Request, now time.Time) {
	if frame == nil || frame.Empty() {
		return
	}
	w, h := frame.Cols(), frame.Rows()

	switch req.Level {
	case proximity.Critical:
		if BlinkOn(now) {
			tint(frame)
		}
		gocv.PutText(frame, "CRITICAL: HAND TOO CLOSE!",
			image.Pt(w/2-250, h/2-30), gocv.FontHersheySimplex, 1.5, red, 3)
		gocv.PutText(frame, CriticalDetail(req),
			image.Pt(w/2-100, h/2+30), gocv.FontHersheySimplex, 1.0, red, 2)

	case proximity.Warning:
		gocv.PutText(frame, "WARNING: HAND NEAR FACE",
			image.Pt(w/2-220, h/2), gocv.FontHersheySimplex, 1.2, orange, 3)
		if req.Region != "" {
			gocv.PutText(frame, "Region: "+req.Region,
				image.Pt(w/2-100, h/2+50), gocv.FontHersheySimplex, 0.8, orange, 2)
		}
	}
}

// CriticalDetail formats the second line of a critical banner,
// e.g. "mouth - 1.2s".
func CriticalDetail(req Request) string {
	if req.Region == "" {
		return fmt.Sprintf("%.1fs", req.Duration.Seconds())
	}
	return fmt.Sprintf("%s - %.1fs", req.Region, req.Duration.Seconds())
}

// tint washes the whole frame with red.
func tint(frame *gocv.Mat) {
	wash := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), frame.Rows(), frame.Cols(), frame.Type())
	defer wash.Close()
	gocv.AddWeighted(wash, TintAlpha, *frame, 1-TintAlpha, 0, frame)
}

// DrawLandmarks marks hand points in green and face region centers in red.
func DrawLandmarks(frame *gocv.Mat, hands []proximity.Point, face proximity.FaceRegionMap) {
	if frame == nil || frame.Empty() {
		return
	}
	for _, p := range hands {
		gocv.Circle(frame, image.Pt(p.X, p.Y), 3, green, -1)
	}
	for _, p := range face {
		gocv.Circle(frame, image.Pt(p.X, p.Y), 5, red, -1)
	}
}

// DrawDistance writes the closest weighted distance in the top left corner.
// Nothing is drawn when no hand or face was seen.
func DrawDistance(frame *gocv.Mat, s proximity.Sample) {
	if frame == nil || frame.Empty() || s.Empty() {
		return
	}
	gocv.PutText(frame, DistanceLabel(s),
		image.Pt(30, 40), gocv.FontHersheySimplex, 1, black, 2)
}

// DistanceLabel formats a sample as "Min Dist: 37 (mouth)".
func DistanceLabel(s proximity.Sample) string {
	return fmt.Sprintf("Min Dist: %d (%s)", int(math.Floor(s.Distance)), s.Region)
}
