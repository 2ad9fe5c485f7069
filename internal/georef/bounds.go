// Package georef turns raster georeferencing (embedded affine transforms or
// six-line world files) into geographic bounds and maps between pixel and
// geographic coordinates.
package georef

import "math"

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Valid reports whether the box is well-formed (north above south, east
// beyond west).
func (b Bounds) Valid() bool {
	return b.North > b.South && b.East > b.West
}

// PlausibleDegrees reports whether the box could be geographic degrees at
// all. Projected coordinate systems (meters) blow past these limits, which
// is how an embedded projected bounding box is detected.
func (b Bounds) PlausibleDegrees() bool {
	return math.Abs(b.North) <= 90 && math.Abs(b.South) <= 90 &&
		math.Abs(b.East) <= 180 && math.Abs(b.West) <= 180
}
