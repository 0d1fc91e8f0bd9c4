// Package proximity turns hand and face keypoints into a debounced alert level.
//
// It holds the weighted-distance metric and the hysteresis state machine.
// Nothing in this package touches images, sound or persistent storage.
package proximity

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// Point is an integer pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FaceRegionMap maps a region name such as "left_eye" to its center.
type FaceRegionMap map[string]Point

// Clone returns a copy of the region map, or nil for a nil map.
func (f FaceRegionMap) Clone() FaceRegionMap {
	if f == nil {
		return nil
	}
	out := make(FaceRegionMap, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Sensitivity maps a region base name ("eye", "mouth") to a weight.
// A weight above 1.0 makes the region alert at a larger raw pixel distance.
type Sensitivity map[string]float64

// DefaultWeight is applied to regions with no matching sensitivity entry.
const DefaultWeight = 1.0

// DefaultSensitivity returns the built-in region weights.
func DefaultSensitivity() Sensitivity {
	return Sensitivity{
		"eye":      1.5,
		"mouth":    1.3,
		"nose":     1.2,
		"eyebrow":  1.0,
		"forehead": 0.8,
	}
}

// Clone returns a copy of the sensitivity map.
func (s Sensitivity) Clone() Sensitivity {
	out := make(Sensitivity, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// BaseName strips a leading "left_" or "right_" from a region name.
func BaseName(region string) string {
	if rest, ok := strings.CutPrefix(region, "left_"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(region, "right_"); ok {
		return rest
	}
	return region
}

// Weight resolves the weight for a region name. An exact base-name match
// wins, then the longest key contained in the base name, then DefaultWeight.
func (s Sensitivity) Weight(region string) float64 {
	base := BaseName(region)
	if w, ok := s[base]; ok {
		return positive(w)
	}

	best := ""
	for key := range s {
		if key == "" || !strings.Contains(base, key) {
			continue
		}
		if len(key) > len(best) || (len(key) == len(best) && key < best) {
			best = key
		}
	}
	if best == "" {
		return DefaultWeight
	}
	return positive(s[best])
}

func positive(w float64) float64 {
	if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return DefaultWeight
	}
	return w
}

// Sample is one weighted-distance measurement. Distance is +Inf and the
// optional fields are empty when there was nothing to compare.
type Sample struct {
	Distance  float64 `json:"distance"`
	Region    string  `json:"region,omitempty"`
	HandPoint *Point  `json:"hand_point,omitempty"`
	FacePoint *Point  `json:"face_point,omitempty"`
}

// Empty reports whether the sample carries no measurement.
func (s Sample) Empty() bool {
	return math.IsInf(s.Distance, 1)
}

// MarshalJSON encodes the distance of an empty sample as null, since JSON
// has no infinity.
func (s Sample) MarshalJSON() ([]byte, error) {
	type plain Sample
	out := struct {
		plain
		Distance *float64 `json:"distance"`
	}{plain: plain(s)}
	if !s.Empty() && !math.IsNaN(s.Distance) {
		d := s.Distance
		out.Distance = &d
	}
	return json.Marshal(out)
}

// NoSample is returned when hands or face are missing.
func NoSample() Sample {
	return Sample{Distance: math.Inf(1)}
}

// Compute finds the hand point and face region with the smallest
// sensitivity-weighted Euclidean distance. Regions are visited in name order
// and the first minimum wins, so the result is deterministic for a given
// hand-point ordering. Inputs are not modified.
func Compute(hands []Point, face FaceRegionMap, sens Sensitivity) Sample {
	if len(hands) == 0 || len(face) == 0 {
		return NoSample()
	}

	names := make([]string, 0, len(face))
	for name := range face {
		names = append(names, name)
	}
	sort.Strings(names)

	weights := make([]float64, len(names))
	for i, name := range names {
		weights[i] = sens.Weight(name)
	}

	best := NoSample()
	for _, h := range hands {
		for i, name := range names {
			f := face[name]
			d := euclidean(h, f) / weights[i]
			if d < best.Distance {
				hp, fp := h, f
				best = Sample{Distance: d, Region: name, HandPoint: &hp, FacePoint: &fp}
			}
		}
	}

	return best
}

// euclidean returns the pixel distance between two points.
func euclidean(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
