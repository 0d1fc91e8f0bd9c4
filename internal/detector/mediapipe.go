package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const serviceScript = "landmark_service.py"

// ErrServiceNotFound is returned when the landmark service script is missing.
var ErrServiceNotFound = errors.New(serviceScript + " not found")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess
// running the hands and face mesh solutions.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	logger     *zap.Logger
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findServiceScript()
	}
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
		logger:     config.Logger,
	}, nil
}

// Detect analyzes a frame and returns the first hand and the first face.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (Landmarks, error) {
	if frame == nil || frame.Empty() {
		return Landmarks{}, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return Landmarks{}, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return Landmarks{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	// Length (4 bytes big-endian) followed by the JPEG payload.
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		d.fail()
		return Landmarks{}, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		d.fail()
		return Landmarks{}, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.fail()
		return Landmarks{}, fmt.Errorf("read response: %w", err)
	}

	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return Landmarks{}, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return Landmarks{}, fmt.Errorf("landmark service: %s", resp.Error)
	}

	d.resetIdleTimer()

	return resp.landmarks(frame.Cols(), frame.Rows()), nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.scriptPath,
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start landmark service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	d.logger.Info("landmark service started",
		zap.String("python", pythonPath),
		zap.String("script", d.scriptPath),
		zap.Int("pid", d.cmd.Process.Pid))

	return nil
}

// fail tears down a broken service so the next frame restarts it.
func (d *MediaPipeDetector) fail() {
	if err := d.shutdown(); err != nil {
		d.logger.Warn("landmark service exited", zap.Error(err))
	}
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	d.logger.Info("landmark service stopped")
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			d.logger.Debug("idle shutdown", zap.Error(err))
		}
	})
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".handsoff", "scripts", serviceScript),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".handsoff/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// serviceResponse is one JSON line from the landmark service. Coordinates are
// normalized to the frame.
type serviceResponse struct {
	Hands [][]Point3D `json:"hands"`
	Faces [][]Point3D `json:"faces"`
	Error string      `json:"error,omitempty"`
}

// landmarks keeps the first hand and the first face, converted to pixels.
func (r serviceResponse) landmarks(width, height int) Landmarks {
	lm := Landmarks{Width: width, Height: height}
	if len(r.Hands) > 0 {
		lm.Hands = HandPoints(r.Hands[0], width, height)
	}
	if len(r.Faces) > 0 {
		lm.Face = RegionCenters(r.Faces[0], width, height)
	}
	return lm
}
