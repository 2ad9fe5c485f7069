package attribution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floodwatch/floodmap/internal/boundary"
	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/raster"
)

func init() {
	// Replace global logger with no-op for tests (suppress warning output).
	zap.ReplaceGlobals(zap.NewNop())
}

// testBounds maps a 10x10 grid one pixel per degree: pixel (x, y) has its
// center at lon x+0.5, lat 10-(y+0.5).
var testBounds = georef.Bounds{North: 10, South: 0, East: 10, West: 0}

func uniformGrid(v float64) *raster.Grid {
	g := &raster.Grid{Width: 10, Height: 10, Values: make([]float64, 100), NoData: -9999, HasNoData: true}
	for i := range g.Values {
		g.Values[i] = v
	}
	return g
}

func set(g *raster.Grid, x, y int, v float64) {
	g.Values[y*g.Width+x] = v
}

// squareRing builds a ring over the lon/lat box, vertices as (lon, lat).
func squareRing(lon0, lat0, lon1, lat1 float64) boundary.Ring {
	return boundary.Ring{{lon0, lat0}, {lon1, lat0}, {lon1, lat1}, {lon0, lat1}}
}

func TestFullScan_SingleWard(t *testing.T) {
	g := uniformGrid(1)
	ward := boundary.Ward{ID: 1, Name: "Thuan Hoa", Outer: []boundary.Ring{squareRing(2, 2, 5, 5)}}

	got, err := (&FullScan{}).Attribute(context.Background(), g, testBounds, []boundary.Ward{ward})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, int64(1), got[0].WardID)
	assert.Equal(t, "Thuan Hoa", got[0].Name)
	assert.Equal(t, 9, got[0].PixelCount)
	assert.InDelta(t, 1.0, got[0].AverageDepth, 1e-9)
}

func TestFullScan_DryAndNoDataDiluteAverage(t *testing.T) {
	g := uniformGrid(0)
	// Three flooded cells and one no-data cell inside the ward. The average
	// divides by all nine contained pixels, not just the wet ones.
	set(g, 2, 5, 2)
	set(g, 3, 5, 2)
	set(g, 4, 5, 2)
	set(g, 2, 6, -9999)
	ward := boundary.Ward{ID: 1, Outer: []boundary.Ring{squareRing(2, 2, 5, 5)}}

	got, err := (&FullScan{}).Attribute(context.Background(), g, testBounds, []boundary.Ward{ward})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, 9, got[0].PixelCount)
	assert.InDelta(t, 6.0/9.0, got[0].AverageDepth, 1e-9)
}

func TestFullScan_ExclaveRingsCombineWithOr(t *testing.T) {
	g := uniformGrid(1)
	// One ward split into two disjoint territories. Both must contribute.
	ward := boundary.Ward{ID: 1, Outer: []boundary.Ring{
		squareRing(1, 1, 3, 3),
		squareRing(6, 6, 8, 8),
	}}

	got, err := (&FullScan{}).Attribute(context.Background(), g, testBounds, []boundary.Ward{ward})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 8, got[0].PixelCount)
}

func TestContainsAny_OverlappingRings(t *testing.T) {
	t.Parallel()
	rings := []boundary.Ring{squareRing(1, 1, 5, 5), squareRing(2, 2, 6, 6)}

	// A point covered by both rings stays inside. Toggling per ring would
	// cancel the two hits out.
	assert.True(t, containsAny(rings, 3, 3))
	assert.True(t, containsAny(rings, 1.5, 1.5))
	assert.True(t, containsAny(rings, 5.5, 5.5))
	assert.False(t, containsAny(rings, 8, 8))
}

func TestFullScan_SkipsDegenerateWard(t *testing.T) {
	g := uniformGrid(1)
	wards := []boundary.Ward{
		{ID: 1, Name: "broken", Outer: []boundary.Ring{{{2, 2}, {5, 5}}}},
		{ID: 2, Name: "whole", Outer: []boundary.Ring{squareRing(6, 6, 8, 8)}},
	}

	got, err := (&FullScan{}).Attribute(context.Background(), g, testBounds, wards)
	require.NoError(t, err)
	require.Len(t, got, 1, "two-vertex ring cannot enclose area")
	assert.Equal(t, int64(2), got[0].WardID)
}

func TestFullScan_ParallelMatchesSequential(t *testing.T) {
	g := uniformGrid(0)
	for i := range g.Values {
		g.Values[i] = float64(i%7) * 0.3
	}
	wards := []boundary.Ward{
		{ID: 3, Outer: []boundary.Ring{squareRing(0, 0, 4, 4)}},
		{ID: 1, Outer: []boundary.Ring{squareRing(3, 3, 9, 9)}},
		{ID: 2, Outer: []boundary.Ring{squareRing(5, 0, 10, 3)}},
	}

	seq, err := (&FullScan{Workers: 1}).Attribute(context.Background(), g, testBounds, wards)
	require.NoError(t, err)
	par, err := (&FullScan{Workers: 4}).Attribute(context.Background(), g, testBounds, wards)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
	require.Len(t, seq, 3)
	assert.Equal(t, int64(1), seq[0].WardID, "results ordered by ward id")
	assert.Equal(t, int64(2), seq[1].WardID)
	assert.Equal(t, int64(3), seq[2].WardID)
}

func TestPointInRing(t *testing.T) {
	t.Parallel()
	ring := squareRing(2, 2, 5, 5)

	assert.True(t, pointInRing(ring, 3.5, 3.5))
	assert.False(t, pointInRing(ring, 1.9, 3.5))
	assert.False(t, pointInRing(ring, 3.5, 5.1))
	assert.False(t, pointInRing(ring, 6, 6))
}

func TestPointInRing_RotationInvariant(t *testing.T) {
	t.Parallel()
	ring := squareRing(2, 2, 5, 5)
	for shift := 0; shift < len(ring); shift++ {
		rotated := append(boundary.Ring{}, ring[shift:]...)
		rotated = append(rotated, ring[:shift]...)
		assert.True(t, pointInRing(rotated, 3.5, 3.5), "shift %d", shift)
		assert.False(t, pointInRing(rotated, 6, 3.5), "shift %d", shift)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	s, err := New(StrategyFullScan, 4)
	require.NoError(t, err)
	assert.Equal(t, "fullscan", s.Name())

	s, err = New("", 0)
	require.NoError(t, err)
	assert.Equal(t, "fullscan", s.Name())

	s, err = New(StrategyFloodFill, 0)
	require.NoError(t, err)
	assert.Equal(t, "floodfill", s.Name())

	_, err = New("raycast", 0)
	assert.Error(t, err)
}
