package attribution

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/floodwatch/floodmap/internal/boundary"
	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/raster"
)

// FullScan classifies every pixel center against each ward's outer rings
// with the even-odd ray-casting rule. Containment across a ward's multiple
// outer rings combines with OR: a polygon split into exclaves contains a
// point when ANY of its outer rings does. Toggling an inside flag once per
// matching ring (XOR) silently cancels containment for two-ring wards and
// is exactly the bug this implementation exists to avoid.
type FullScan struct {
	// Workers bounds the per-ward parallelism; <= 1 runs sequentially.
	// The grid is read-only and each ward owns its accumulator, so
	// per-ward fan-out needs no further synchronization.
	Workers int
}

// Name implements Strategy.
func (f *FullScan) Name() string { return StrategyFullScan }

// Attribute implements Strategy.
func (f *FullScan) Attribute(ctx context.Context, g *raster.Grid, b georef.Bounds, wards []boundary.Ward) ([]Summary, error) {
	ordered := make([]boundary.Ward, len(wards))
	copy(ordered, wards)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	summaries := make([]Summary, 0, len(ordered))
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	if f.Workers > 1 {
		eg.SetLimit(f.Workers)
	} else {
		eg.SetLimit(1)
	}

	for _, w := range ordered {
		w := w
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, ok := f.scanWard(g, b, w)
			if !ok {
				return nil
			}
			mu.Lock()
			summaries = append(summaries, s)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].WardID < summaries[j].WardID })
	return summaries, nil
}

// scanWard accumulates depth over the pixels inside one ward. The pixel
// tally counts every contained pixel; only valid positive depths join the
// sum, so dry and no-data cells pull the average down rather than vanishing
// from the denominator.
func (f *FullScan) scanWard(g *raster.Grid, b georef.Bounds, w boundary.Ward) (Summary, bool) {
	rings := w.UsableOuter()
	if len(rings) == 0 {
		zap.L().Warn("attribution: ward has no usable outer ring, skipping",
			zap.Int64("ward", w.ID),
			zap.String("name", w.Name),
		)
		return Summary{}, false
	}

	// Restrict the scan to the pixel rectangle covering the ward envelope.
	west, south, east, north, _ := w.BBox()
	x0, y0, x1, y1 := georef.PixelRect(georef.Bounds{North: north, South: south, East: east, West: west}, b, g.Width, g.Height)

	var sum float64
	var count int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			lat, lon := georef.PixelToGeo(x, y, b, g.Width, g.Height)
			if !containsAny(rings, lon, lat) {
				continue
			}
			count++
			v := g.At(x, y)
			if g.Valid(v) && v > 0 {
				sum += v
			}
		}
	}

	s := Summary{WardID: w.ID, Name: w.Name, PixelCount: count}
	if count > 0 {
		s.AverageDepth = sum / float64(count)
	}
	return s, true
}

// containsAny ORs even-odd containment across independent outer rings.
func containsAny(rings []boundary.Ring, lon, lat float64) bool {
	for _, r := range rings {
		if pointInRing(r, lon, lat) {
			return true
		}
	}
	return false
}

// pointInRing is the standard even-odd ray cast: a horizontal ray from the
// point crosses an odd number of ring edges iff the point is inside.
func pointInRing(ring boundary.Ring, lon, lat float64) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
