package rastercache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/raster"
)

func entryFor(depth float64) *Entry {
	return &Entry{
		Grid:   &raster.Grid{Width: 1, Height: 1, Values: []float64{depth}},
		Bounds: georef.Bounds{North: 1, South: 0, East: 1, West: 0},
	}
}

func TestGetOrCompute(t *testing.T) {
	t.Parallel()
	c := New(4)
	var calls atomic.Int32
	compute := func() (*Entry, error) {
		calls.Add(1)
		return entryFor(1.5), nil
	}

	e, err := c.GetOrCompute("a.tif", compute)
	require.NoError(t, err)
	assert.Equal(t, 1.5, e.Grid.Values[0])
	assert.Equal(t, int32(1), calls.Load())

	// Second lookup is served from the cache.
	e, err = c.GetOrCompute("a.tif", compute)
	require.NoError(t, err)
	assert.Equal(t, 1.5, e.Grid.Values[0])
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	t.Parallel()
	c := New(4)
	broken := eris.New("decode failed")

	_, err := c.GetOrCompute("a.tif", func() (*Entry, error) { return nil, broken })
	assert.ErrorIs(t, err, broken)

	// The failure left nothing behind; the next call recomputes.
	e, err := c.GetOrCompute("a.tif", func() (*Entry, error) { return entryFor(2), nil })
	require.NoError(t, err)
	assert.Equal(t, 2.0, e.Grid.Values[0])
}

func TestGetOrCompute_SingleFlight(t *testing.T) {
	t.Parallel()
	c := New(4)
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := c.GetOrCompute("a.tif", func() (*Entry, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return entryFor(1), nil
			})
			assert.NoError(t, err)
			assert.NotNil(t, e)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent misses share one compute")
}

func TestLRUEviction(t *testing.T) {
	t.Parallel()
	c := New(2)
	for _, key := range []string{"a", "b"} {
		_, err := c.GetOrCompute(key, func() (*Entry, error) { return entryFor(1), nil })
		require.NoError(t, err)
	}

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	_, err := c.GetOrCompute("c", func() (*Entry, error) { return entryFor(3), nil })
	require.NoError(t, err)

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestInvalidateAndClear(t *testing.T) {
	t.Parallel()
	c := New(4)
	for _, key := range []string{"a", "b"} {
		_, err := c.GetOrCompute(key, func() (*Entry, error) { return entryFor(1), nil })
		require.NoError(t, err)
	}

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)

	// Invalidating an absent key is a no-op.
	c.Invalidate("zzz")

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestStats(t *testing.T) {
	t.Parallel()
	c := New(4)
	_, err := c.GetOrCompute("a", func() (*Entry, error) { return entryFor(1), nil })
	require.NoError(t, err)

	c.Get("a")
	c.Get("a")
	c.Get("absent")

	s := c.Stats()
	assert.Equal(t, 1, s.Entries)
	assert.Equal(t, 4, s.MaxEntries)
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(2), s.Misses, "initial fill and the absent key both count as misses")
	assert.InDelta(t, 0.5, s.HitRate, 1e-9)
}

func TestNew_MinimumCapacity(t *testing.T) {
	t.Parallel()
	c := New(0)
	assert.Equal(t, 1, c.Stats().MaxEntries)
}
