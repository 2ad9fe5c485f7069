// Package raster decodes single-band flood-depth grids from GeoTIFF and
// ESRI ASCII files into an in-memory row-major grid.
package raster

import "math"

// nodataEpsilon is the tolerance used when comparing a cell against the
// sentinel no-data value. Float rasters frequently carry sentinels that
// survive transcoding with small rounding drift.
const nodataEpsilon = 1e-4

// Embedded holds georeferencing carried inside the raster file itself,
// expressed at the outer pixel edges of the upper-left corner. PixelSizeY is
// negative for north-up rasters.
type Embedded struct {
	OriginX    float64
	OriginY    float64
	PixelSizeX float64
	PixelSizeY float64
}

// Grid is a decoded single-band raster. Values are row-major, one float per
// cell, len(Values) == Width*Height. When HasNoData is set, cells equal to
// NoData (within tolerance) carry no measurement.
type Grid struct {
	Width  int
	Height int
	Values []float64

	NoData    float64
	HasNoData bool

	// Min and Max span the valid, non-sentinel, non-zero cells. When the
	// raster has no such cell they default to 0 and 5 so downstream
	// consumers always see a usable range.
	Min float64
	Max float64

	// Ref is the embedded georeferencing, nil when the file carries none.
	Ref *Embedded
}

// At returns the value at column x, row y. It panics on out-of-range
// indices, matching slice semantics.
func (g *Grid) At(x, y int) float64 {
	return g.Values[y*g.Width+x]
}

// Valid reports whether v carries a usable depth measurement: finite and not
// equal to the no-data sentinel. Zero is a valid measurement (it means "not
// flooded") even though it is excluded from the value range.
func (g *Grid) Valid(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if g.HasNoData && math.Abs(v-g.NoData) <= nodataEpsilon {
		return false
	}
	return true
}

// computeRange fills Min and Max from the valid, non-zero cells, defaulting
// to [0, 5] when no such cell exists (for example a raster that is entirely
// no-data).
func (g *Grid) computeRange() {
	min := math.Inf(1)
	max := math.Inf(-1)
	found := false
	for _, v := range g.Values {
		if !g.Valid(v) || v == 0 {
			continue
		}
		found = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !found {
		g.Min, g.Max = 0, 5
		return
	}
	g.Min, g.Max = min, max
}
