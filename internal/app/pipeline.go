package app

import (
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/handsoff/internal/alert"
	"github.com/ayusman/handsoff/internal/detector"
	"github.com/ayusman/handsoff/internal/engine"
	"github.com/ayusman/handsoff/internal/overlay"
)

// runPipeline is the frame loop. Each tick it reads a frame and hands it to
// processFrame. Motion only changes how often that happens: a hand resting
// on the face does not move but must still be sampled.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	interval := a.rate.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			continue
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			a.logger.Debug("error reading frame", zap.Error(err))
			continue
		}

		a.processFrame(frame, time.Now())
		frame.Close()

		if next := a.rate.Interval(); next != interval {
			interval = next
			ticker.Reset(interval)
		}
	}
}

// processFrame runs one frame through motion tracking, landmark detection,
// the engine and the overlay, then publishes the annotated frame. The frame
// is drawn on but not closed.
func (a *App) processFrame(frame *gocv.Mat, now time.Time) engine.Result {
	motion, _ := a.motion.Detect(frame)
	if fps, changed := a.rate.Observe(motion, now); changed {
		a.camera.SetFPS(fps)
		a.logger.Debug("frame rate changed", zap.Int("fps", fps), zap.Bool("motion", motion))
	}

	lm, err := a.detector.Detect(frame)
	if err != nil {
		// A failed detection counts as a frame with nothing in it.
		a.logger.Debug("landmark detection failed", zap.Error(err))
		lm = detector.Landmarks{}
	}

	res := a.engine.Process(lm.Hands, lm.Face, now)
	if res.Alert != nil {
		a.renderer.Show(overlay.FromAlert(*res.Alert), now)
		a.notifyObservers(*res.Alert)
	}

	overlay.DrawLandmarks(frame, lm.Hands, lm.Face)
	overlay.DrawDistance(frame, res.Sample)
	a.renderer.Render(frame, now)
	a.publishFrame(frame, lm)

	return res
}

func (a *App) notifyObservers(al alert.Alert) {
	if a.observers != nil && !a.observers.Submit(al) {
		a.logger.Warn("observer queue full, alert event dropped", zap.Int("count", al.Count))
	}

	a.mu.RLock()
	fn := a.onAlert
	a.mu.RUnlock()
	if fn != nil {
		fn(al)
	}
}
