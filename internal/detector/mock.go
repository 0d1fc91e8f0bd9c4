package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsoff/internal/proximity"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	landmarks Landmarks
	err       error
	calls     int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks sets the landmarks that will be returned by Detect.
func (m *MockDetector) SetLandmarks(lm Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarks = lm
}

// SetHands replaces only the hand points.
func (m *MockDetector) SetHands(hands []proximity.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarks.Hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Landmarks{}, m.err
	}
	lm := m.landmarks
	lm.Hands = append([]proximity.Point(nil), m.landmarks.Hands...)
	lm.Face = m.landmarks.Face.Clone()
	if frame != nil && !frame.Empty() {
		lm.Width, lm.Height = frame.Cols(), frame.Rows()
	}
	return lm, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FaceFixture returns region centers of a face looking straight at a 640x480
// camera from about half a metre.
func FaceFixture() proximity.FaceRegionMap {
	return proximity.FaceRegionMap{
		"forehead":      {X: 320, Y: 150},
		"left_eyebrow":  {X: 285, Y: 185},
		"right_eyebrow": {X: 355, Y: 185},
		"left_eye":      {X: 290, Y: 205},
		"right_eye":     {X: 350, Y: 205},
		"nose":          {X: 320, Y: 245},
		"mouth":         {X: 320, Y: 290},
	}
}

// HandAt returns a compact hand of 21 points centered on c.
func HandAt(c proximity.Point) []proximity.Point {
	hand := make([]proximity.Point, NumHandLandmarks)
	hand[0] = proximity.Point{X: c.X, Y: c.Y + 40} // wrist
	for i := 1; i < NumHandLandmarks; i++ {
		finger := (i - 1) / 4
		joint := (i-1)%4 + 1
		hand[i] = proximity.Point{
			X: c.X + (finger-2)*12,
			Y: c.Y + 40 - joint*15,
		}
	}
	return hand
}

// HandNear returns a hand whose closest point sits gap pixels to the right
// of the named region of face. It returns nil if the region is absent.
func HandNear(face proximity.FaceRegionMap, region string, gap int) []proximity.Point {
	target, ok := face[region]
	if !ok {
		return nil
	}
	return []proximity.Point{
		{X: target.X + gap, Y: target.Y},
		{X: target.X + gap + 15, Y: target.Y + 10},
		{X: target.X + gap + 30, Y: target.Y + 25},
	}
}
