package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate of the rendered WAV audio.
const SampleRate = 22050

const (
	bitDepth = 16
	// pcmFormat is the WAVE_FORMAT_PCM format tag.
	pcmFormat = 1
)

// Tone is a sine beep. A zero Frequency is silence.
type Tone struct {
	Frequency float64
	Length    time.Duration
}

func clampIntensity(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	return math.Max(0.1, math.Min(1, v))
}

// Pattern returns the beep sequence for an alert level and intensity.
func Pattern(level string, intensity float64) []Tone {
	intensity = clampIntensity(intensity)

	switch strings.ToUpper(level) {
	case "CRITICAL":
		beep := Tone{Frequency: 1200, Length: time.Duration(int(200*intensity)) * time.Millisecond}
		gap := Tone{Length: 50 * time.Millisecond}
		return []Tone{beep, gap, beep, gap, beep}
	case "WARNING":
		beep := Tone{
			Frequency: float64(800 + int(400*intensity)),
			Length:    time.Duration(int(300*intensity)) * time.Millisecond,
		}
		gap := Tone{Length: 100 * time.Millisecond}
		return []Tone{beep, gap, beep}
	default:
		return []Tone{{Frequency: 600, Length: 150 * time.Millisecond}}
	}
}

// Samples renders tones as 16-bit PCM values at SampleRate.
func Samples(tones []Tone, volume float64) []int {
	volume = math.Max(0, math.Min(1, volume))
	amp := volume * math.MaxInt16

	var out []int
	for _, t := range tones {
		n := int(t.Length.Seconds() * SampleRate)
		for i := 0; i < n; i++ {
			if t.Frequency <= 0 {
				out = append(out, 0)
				continue
			}
			out = append(out, int(amp*math.Sin(2*math.Pi*t.Frequency*float64(i)/SampleRate)))
		}
	}
	return out
}

// WriteWAV writes tones as a mono 16-bit PCM WAV file. The encoder seeks
// back to fill in the header sizes, so w must be seekable.
func WriteWAV(w io.WriteSeeker, tones []Tone, volume float64) error {
	enc := wav.NewEncoder(w, SampleRate, bitDepth, 1, pcmFormat)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           Samples(tones, volume),
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}
