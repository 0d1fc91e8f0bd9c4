package proximity

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HistorySize is the number of recent distances kept for diagnostics.
const HistorySize = 30

// History is a fixed-capacity ring of recent weighted distances.
// Once full, each push overwrites the oldest value.
type History struct {
	buf   [HistorySize]float64
	next  int
	count int
}

// Push appends a distance, evicting the oldest one when full.
func (h *History) Push(d float64) {
	h.buf[h.next] = d
	h.next = (h.next + 1) % HistorySize
	if h.count < HistorySize {
		h.count++
	}
}

// Len returns the number of stored distances.
func (h *History) Len() int { return h.count }

// Cap returns the ring capacity.
func (h *History) Cap() int { return HistorySize }

// Values returns the stored distances from oldest to newest.
func (h *History) Values() []float64 {
	out := make([]float64, 0, h.count)
	start := (h.next - h.count + HistorySize) % HistorySize
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(start+i)%HistorySize])
	}
	return out
}

// Last returns the newest distance, or +Inf when empty.
func (h *History) Last() float64 {
	if h.count == 0 {
		return math.Inf(1)
	}
	return h.buf[(h.next-1+HistorySize)%HistorySize]
}

// Clear drops every stored distance.
func (h *History) Clear() {
	*h = History{}
}

// Summary describes the finite distances currently in the history.
type Summary struct {
	Samples     int     `json:"samples"`
	Detected    int     `json:"detected"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	Approaching bool    `json:"approaching"`
}

// Summary computes simple statistics over the finite samples. Ticks with no
// hand or no face (+Inf) count toward Samples but not Detected.
func (h *History) Summary() Summary {
	values := h.Values()
	s := Summary{Samples: len(values)}

	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	s.Detected = len(finite)
	if len(finite) == 0 {
		return s
	}

	s.Min = floats.Min(finite)
	s.Max = floats.Max(finite)
	if len(finite) == 1 {
		s.Mean = finite[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(finite, nil)

	// Compare the newer half against the older half.
	half := len(finite) / 2
	older := stat.Mean(finite[:half], nil)
	newer := stat.Mean(finite[half:], nil)
	s.Approaching = newer < older

	return s
}
