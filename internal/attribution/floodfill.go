package attribution

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/floodwatch/floodmap/internal/boundary"
	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/raster"
)

// FloodFill seeds each ward from its outer-ring vertices and grows
// 4-connected regions across valid flooded pixels. Each pixel belongs to at
// most one ward, first claim wins, so wards are processed in ascending ID
// order to keep shared-boundary results reproducible. Flooded areas not
// reachable from any boundary vertex are never claimed; that undercount is
// the accepted tradeoff for skipping the per-pixel polygon tests.
type FloodFill struct{}

// Name implements Strategy.
func (f *FloodFill) Name() string { return StrategyFloodFill }

type pixel struct{ x, y int }

// Attribute implements Strategy.
func (f *FloodFill) Attribute(ctx context.Context, g *raster.Grid, b georef.Bounds, wards []boundary.Ward) ([]Summary, error) {
	ordered := make([]boundary.Ward, len(wards))
	copy(ordered, wards)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	// claimed holds 1 + the position of the owning ward in the sorted order
	// per pixel, 0 = unclaimed. Positions cannot collide with the sentinel
	// regardless of ward IDs. Write-once per pixel within a run.
	claimed := make([]int32, g.Width*g.Height)

	wet := func(x, y int) bool {
		v := g.At(x, y)
		return g.Valid(v) && v > 0
	}

	summaries := make([]Summary, 0, len(ordered))
	for i, w := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		owner := int32(i + 1)

		rings := w.UsableOuter()
		if len(rings) == 0 {
			zap.L().Warn("attribution: ward has no usable outer ring, skipping",
				zap.Int64("ward", w.ID),
				zap.String("name", w.Name),
			)
			continue
		}

		var queue []pixel
		claim := func(x, y int) {
			claimed[y*g.Width+x] = owner
			queue = append(queue, pixel{x, y})
		}

		// Seed from boundary vertices that land on unclaimed flooded cells.
		for _, ring := range rings {
			for _, c := range ring {
				x, y, inside := georef.GeoToPixel(c[1], c[0], b, g.Width, g.Height)
				if !inside || claimed[y*g.Width+x] != 0 || !wet(x, y) {
					continue
				}
				claim(x, y)
			}
		}

		var sum float64
		var count int
		for head := 0; head < len(queue); head++ {
			p := queue[head]
			sum += g.At(p.x, p.y)
			count++

			for _, n := range [4]pixel{{p.x - 1, p.y}, {p.x + 1, p.y}, {p.x, p.y - 1}, {p.x, p.y + 1}} {
				if n.x < 0 || n.x >= g.Width || n.y < 0 || n.y >= g.Height {
					continue
				}
				if claimed[n.y*g.Width+n.x] != 0 || !wet(n.x, n.y) {
					continue
				}
				claim(n.x, n.y)
			}
		}

		s := Summary{WardID: w.ID, Name: w.Name, PixelCount: count}
		if count > 0 {
			s.AverageDepth = sum / float64(count)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
