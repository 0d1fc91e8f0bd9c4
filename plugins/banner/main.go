// Package main provides a banner plugin that raises a desktop notification
// for each alert, via AppleScript on macOS and notify-send on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
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
	Level    string  `json:"level"`
	Region   string  `json:"region"`
	Duration float64 `json:"duration"`
	Count    int     `json:"count"`
}

// Config is the per-binding configuration.
type Config struct {
	Title string `json:"title"`
	Sound bool   `json:"sound"`
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

	if req.Action != "notify" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	cfg := Config{Title: "Hands Off"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	cmd, err := notifyCommand(cfg, Message(req.Alert))
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		writeErrorResponse(fmt.Sprintf("action notify failed: %v: %s", err, string(output)))
		return
	}

	writeSuccessResponse()
}

// Message formats the notification body, e.g.
// "Hand too close to your mouth (2.5s). Alert #3 this session."
func Message(a Alert) string {
	var b strings.Builder
	switch strings.ToUpper(a.Level) {
	case "CRITICAL":
		b.WriteString("Hand too close to your ")
	default:
		b.WriteString("Hand near your ")
	}
	if a.Region != "" {
		b.WriteString(strings.ReplaceAll(a.Region, "_", " "))
	} else {
		b.WriteString("face")
	}
	fmt.Fprintf(&b, " (%.1fs).", a.Duration)
	if a.Count > 0 {
		fmt.Fprintf(&b, " Alert #%d this session.", a.Count)
	}
	return b.String()
}

// buildAppleScript generates a display notification script.
func buildAppleScript(cfg Config, message string) string {
	script := fmt.Sprintf(`display notification %q with title %q`, message, cfg.Title)
	if cfg.Sound {
		script += ` sound name "Funk"`
	}
	return script
}

func notifyCommand(cfg Config, message string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("osascript", "-e", buildAppleScript(cfg, message)), nil
	case "linux":
		return exec.Command("notify-send", "--app-name=handsoff", cfg.Title, message), nil
	default:
		return nil, fmt.Errorf("notifications are not supported on %s", runtime.GOOS)
	}
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
