package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	// Create test frames
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	// Read both frames
	f1, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f1.Close()

	f2, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f2.Close()

	// Third read should fail (no loop)
	_, err = cam.ReadFrame()
	if !errors.Is(err, ErrNoFrames) {
		t.Errorf("ReadFrame() error = %v, want ErrNoFrames", err)
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	// Should loop indefinitely
	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockCamera_NotOpen(t *testing.T) {
	cam := NewMockCamera(nil, true)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}

	cam.Open()
	defer cam.Close()
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("ReadFrame() on empty loop error = %v, want ErrNoFrames", err)
	}
}

func TestMockCamera_FPS(t *testing.T) {
	cam := NewMockCamera(nil, false)

	if cam.FPS() != IdleFPS {
		t.Errorf("FPS() = %d, want %d", cam.FPS(), IdleFPS)
	}
	cam.SetFPS(ActiveFPS)
	if cam.FPS() != ActiveFPS {
		t.Errorf("FPS() = %d, want %d", cam.FPS(), ActiveFPS)
	}
	cam.SetFPS(0)
	if cam.FPS() != ActiveFPS {
		t.Errorf("SetFPS(0) should be ignored, got %d", cam.FPS())
	}
}
