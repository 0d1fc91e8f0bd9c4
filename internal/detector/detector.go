package detector

import (
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Detector defines the interface for hand and face landmark detection.
type Detector interface {
	// Detect analyzes a video frame and returns hand points and face region
	// centers in pixel coordinates of the frame. Missing hands or a missing
	// face yield empty collections, not an error.
	Detect(frame *gocv.Mat) (Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the landmark service discovery.
	ScriptPath string

	// IdleTimeout stops the landmark service after this long without frames.
	IdleTimeout time.Duration

	Logger *zap.Logger
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}
