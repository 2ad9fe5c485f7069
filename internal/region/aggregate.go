// Package region computes flood statistics over an arbitrary geographic
// query box: pixel counts, depth average/min/max, and a five-bucket depth
// distribution.
package region

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/raster"
)

// ErrInvalidBounds rejects malformed query boxes (north <= south or
// east <= west).
var ErrInvalidBounds = eris.New("region: invalid query bounds")

// Bucket is one slot of the depth distribution.
type Bucket struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Distribution buckets valid pixels by depth in meters: exactly zero,
// (0,0.5], (0.5,1], (1,2], and above 2.
type Distribution struct {
	NoFlood  Bucket `json:"no_flood"`
	Shallow  Bucket `json:"shallow"`
	Moderate Bucket `json:"moderate"`
	Deep     Bucket `json:"deep"`
	VeryDeep Bucket `json:"very_deep"`
}

// Stats is the aggregation result for one query.
type Stats struct {
	Bounds       georef.Bounds `json:"bounds"`
	TotalPixels  int           `json:"total_pixels"`
	ValidPixels  int           `json:"valid_pixels"`
	AverageDepth float64       `json:"average_depth"`
	MinDepth     float64       `json:"min_depth"`
	MaxDepth     float64       `json:"max_depth"`
	Distribution Distribution  `json:"depth_distribution"`

	// Message explains degenerate results (no valid pixels) instead of an
	// error, so a query box off the edge of the raster still answers.
	Message string `json:"message,omitempty"`
}

// Aggregate scans the pixel rectangle covering query once. No-data and
// non-finite cells count toward TotalPixels only; every valid cell lands in
// exactly one distribution bucket and feeds the average and min/max.
func Aggregate(g *raster.Grid, gridBounds, query georef.Bounds) (*Stats, error) {
	if !query.Valid() {
		return nil, eris.Wrapf(ErrInvalidBounds, "region: north=%v south=%v east=%v west=%v",
			query.North, query.South, query.East, query.West)
	}

	x0, y0, x1, y1 := georef.PixelRect(query, gridBounds, g.Width, g.Height)

	stats := &Stats{Bounds: query, MinDepth: math.Inf(1), MaxDepth: math.Inf(-1)}
	var sum float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			stats.TotalPixels++
			v := g.At(x, y)
			if !g.Valid(v) {
				continue
			}
			stats.ValidPixels++
			sum += v
			if v < stats.MinDepth {
				stats.MinDepth = v
			}
			if v > stats.MaxDepth {
				stats.MaxDepth = v
			}
			bucketFor(&stats.Distribution, v).Count++
		}
	}

	if stats.ValidPixels == 0 {
		stats.MinDepth, stats.MaxDepth = 0, 0
		stats.Message = "no valid flood data within the requested bounds"
		return stats, nil
	}

	stats.AverageDepth = sum / float64(stats.ValidPixels)
	for _, b := range []*Bucket{
		&stats.Distribution.NoFlood,
		&stats.Distribution.Shallow,
		&stats.Distribution.Moderate,
		&stats.Distribution.Deep,
		&stats.Distribution.VeryDeep,
	} {
		b.Percentage = float64(b.Count) / float64(stats.ValidPixels) * 100
	}
	return stats, nil
}

func bucketFor(d *Distribution, v float64) *Bucket {
	switch {
	case v <= 0:
		return &d.NoFlood
	case v <= 0.5:
		return &d.Shallow
	case v <= 1.0:
		return &d.Moderate
	case v <= 2.0:
		return &d.Deep
	default:
		return &d.VeryDeep
	}
}
