// Package attribution computes per-ward flood statistics from a depth grid
// and a set of administrative boundary polygons. Two interchangeable
// strategies cover the precision/performance tradeoff: an exhaustive
// point-in-polygon scan and a seeded flood fill.
package attribution

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/floodwatch/floodmap/internal/boundary"
	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/raster"
)

// Summary is the per-ward result.
type Summary struct {
	WardID       int64   `json:"id"`
	Name         string  `json:"name,omitempty"`
	AverageDepth float64 `json:"depth"`
	PixelCount   int     `json:"pixel_count"`
}

// Strategy attributes flood depth to wards. Implementations must skip wards
// without a usable outer ring (more than two vertices) without failing the
// batch, and must ignore no-data and non-finite cells in all sums.
type Strategy interface {
	Attribute(ctx context.Context, g *raster.Grid, b georef.Bounds, wards []boundary.Ward) ([]Summary, error)
	Name() string
}

// Strategy names accepted by New.
const (
	StrategyFullScan  = "fullscan"
	StrategyFloodFill = "floodfill"
)

// New returns the named strategy. workers only applies to the full scan;
// zero means sequential.
func New(name string, workers int) (Strategy, error) {
	switch name {
	case StrategyFullScan, "":
		return &FullScan{Workers: workers}, nil
	case StrategyFloodFill:
		return &FloodFill{}, nil
	default:
		return nil, eris.Errorf("attribution: unknown strategy %q", name)
	}
}
