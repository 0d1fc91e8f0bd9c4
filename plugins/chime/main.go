// Package main provides a chime plugin that beeps when a hand gets close to
// the face. Critical alerts play three short high beeps; warnings play two
// longer beeps whose pitch rises with intensity.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Alert  Alert           `json:"alert"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Alert is the alert payload sent by the host.
type Alert struct {
	Level     string  `json:"level"`
	Region    string  `json:"region"`
	Duration  float64 `json:"duration"`
	Intensity float64 `json:"intensity"`
	Count     int     `json:"count"`
}

// Config is the per-binding configuration.
type Config struct {
	Volume float64 `json:"volume"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cfg := Config{Volume: 0.8}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	var tones []Tone
	switch req.Action {
	case "beep":
		tones = Pattern(req.Alert.Level, req.Alert.Intensity)
	case "test":
		tones = Pattern("WARNING", 1)
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	if err := play(tones, cfg.Volume); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	data, _ := json.Marshal(map[string]int{"tones": countAudible(tones)})
	writeSuccessResponse(data)
}

// play renders tones to a temporary WAV file and hands it to the platform
// audio player.
func play(tones []Tone, volume float64) error {
	f, err := os.CreateTemp("", "chime-*.wav")
	if err != nil {
		return err
	}
	path := f.Name()
	defer os.Remove(path)

	if err := WriteWAV(f, tones, volume); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	cmd, err := playerCommand(path)
	if err != nil {
		return err
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func playerCommand(path string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("afplay", path), nil
	case "linux":
		if p, err := exec.LookPath("paplay"); err == nil {
			return exec.Command(p, path), nil
		}
		return exec.Command("aplay", "-q", path), nil
	case "windows":
		script := fmt.Sprintf(`(New-Object Media.SoundPlayer '%s').PlaySync()`, filepath.Clean(path))
		return exec.Command("powershell", "-NoProfile", "-Command", script), nil
	default:
		return nil, fmt.Errorf("no audio player for %s", runtime.GOOS)
	}
}

func countAudible(tones []Tone) int {
	n := 0
	for _, t := range tones {
		if t.Frequency > 0 && t.Length > 0 {
			n++
		}
	}
	return n
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
