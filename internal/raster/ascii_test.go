package raster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const asciiFixture = `ncols 4
nrows 4
xllcorner 107.5
yllcorner 16.3
cellsize 0.05
NODATA_value -9999
0 1 -9999 0.25
0.5 2 0 0
1 1 1 1
0 0 0 0
`

func TestDecodeASCII(t *testing.T) {
	t.Parallel()
	g, err := decodeASCII([]byte(asciiFixture))
	require.NoError(t, err)

	assert.Equal(t, 4, g.Width)
	assert.Equal(t, 4, g.Height)
	assert.Equal(t, 0.25, g.At(3, 0))
	assert.Equal(t, 2.0, g.At(1, 1))
	assert.True(t, g.HasNoData)
	assert.Equal(t, -9999.0, g.NoData)

	require.NotNil(t, g.Ref)
	assert.InDelta(t, 107.5, g.Ref.OriginX, 1e-9)
	assert.InDelta(t, 16.5, g.Ref.OriginY, 1e-9)
	assert.InDelta(t, 0.05, g.Ref.PixelSizeX, 1e-9)
	assert.InDelta(t, -0.05, g.Ref.PixelSizeY, 1e-9)
}

func TestDecodeASCII_CenterOrigin(t *testing.T) {
	t.Parallel()
	src := "ncols 2\nnrows 2\nxllcenter 100.5\nyllcenter 10.5\ncellsize 1\n1 2 3 4\n"
	g, err := decodeASCII([]byte(src))
	require.NoError(t, err)

	// Center coordinates shift half a cell out to the corner.
	require.NotNil(t, g.Ref)
	assert.InDelta(t, 100.0, g.Ref.OriginX, 1e-9)
	assert.InDelta(t, 12.0, g.Ref.OriginY, 1e-9)
	assert.False(t, g.HasNoData)
}

func TestDecodeASCII_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"missing dimensions", "cellsize 30\n1 2 3\n"},
		{"truncated cells", "ncols 3\nnrows 3\ncellsize 1\n1 2 3 4\n"},
		{"non numeric cell", "ncols 2\nnrows 1\ncellsize 1\n1 wet\n"},
		{"header key without value", "ncols 2\nnrows 2\ncellsize\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeASCII([]byte(tc.src))
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestLoad_ASCIIByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flood.asc")
	require.NoError(t, os.WriteFile(path, []byte(asciiFixture), 0o644))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Width)
	assert.Equal(t, 0.25, g.Min)
	assert.Equal(t, 2.0, g.Max)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.tif"))
	assert.ErrorIs(t, err, ErrNotFound)
}
