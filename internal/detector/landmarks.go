// Package detector finds hand landmarks and face regions in camera frames.
package detector

import (
	"sort"

	"github.com/ayusman/handsoff/internal/proximity"
)

// Face mesh landmark indices that make up each monitored face region,
// following the MediaPipe face mesh numbering.
var FaceRegions = map[string][]int{
	"mouth":         {13, 14, 61, 291},
	"nose":          {1, 168},
	"left_eye":      {33, 133, 159, 145},
	"right_eye":     {362, 263, 386, 374},
	"left_eyebrow":  {70, 63, 105},
	"right_eyebrow": {336, 296, 334},
	"forehead":      {10, 338},
}

// NumHandLandmarks is the number of landmarks in one detected hand.
const NumHandLandmarks = 21

// Point3D is a landmark in normalized image coordinates: x and y in [0, 1]
// relative to the frame, z relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pixel converts a normalized landmark to integer pixel coordinates.
func (p Point3D) Pixel(width, height int) proximity.Point {
	return proximity.Point{
		X: int(p.X * float64(width)),
		Y: int(p.Y * float64(height)),
	}
}

// Landmarks is the per-frame detection result.
type Landmarks struct {
	Hands  []proximity.Point       `json:"hands"`
	Face   proximity.FaceRegionMap `json:"face"`
	Width  int                     `json:"width"`
	Height int                     `json:"height"`
}

// HasHands reports whether any hand point was found.
func (l Landmarks) HasHands() bool {
	return len(l.Hands) > 0
}

// HasFace reports whether any face region was found.
func (l Landmarks) HasFace() bool {
	return len(l.Face) > 0
}

// HandPoints converts one hand's normalized landmarks to pixel points.
func HandPoints(hand []Point3D, width, height int) []proximity.Point {
	if len(hand) == 0 {
		return nil
	}
	out := make([]proximity.Point, len(hand))
	for i, p := range hand {
		out[i] = p.Pixel(width, height)
	}
	return out
}

// RegionCenters computes each region's center as the mean of its member
// landmarks in pixels, truncated to integers once after averaging. Regions
// whose indices fall outside mesh are skipped.
func RegionCenters(mesh []Point3D, width, height int) proximity.FaceRegionMap {
	if len(mesh) == 0 {
		return nil
	}

	face := make(proximity.FaceRegionMap, len(FaceRegions))
	for name, indices := range FaceRegions {
		var sx, sy float64
		ok := true
		for _, idx := range indices {
			if idx >= len(mesh) {
				ok = false
				break
			}
			sx += mesh[idx].X * float64(width)
			sy += mesh[idx].Y * float64(height)
		}
		if !ok {
			continue
		}
		n := float64(len(indices))
		face[name] = proximity.Point{X: int(sx / n), Y: int(sy / n)}
	}
	return face
}

// RegionNames returns the monitored region names in sorted order.
func RegionNames() []string {
	names := make([]string, 0, len(FaceRegions))
	for name := range FaceRegions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MeshSize is the smallest face mesh that covers every region index.
func MeshSize() int {
	maxIdx := 0
	for _, indices := range FaceRegions {
		for _, idx := range indices {
			if idx > maxIdx {
				maxIdx = idx
			}
		}
	}
	return maxIdx + 1
}
