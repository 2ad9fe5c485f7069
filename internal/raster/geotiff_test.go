package raster

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tiffEntry struct {
	tag, typ uint16
	count    uint32
	value    uint32
}

// buildFloatTIFF assembles a little-endian single-strip float32 TIFF, with
// optional GeoTIFF reference tags and a GDAL no-data string, byte by byte.
func buildFloatTIFF(t *testing.T, width, height int, vals []float32, geo bool, nodata string, extra ...tiffEntry) []byte {
	t.Helper()
	require.Len(t, vals, width*height)

	le := binary.LittleEndian
	buf := make([]byte, 8)
	copy(buf, "II")
	le.PutUint16(buf[2:], 42)

	stripOff := uint32(len(buf))
	for _, v := range vals {
		buf = le.AppendUint32(buf, math.Float32bits(v))
	}

	var scaleOff, tieOff, ndOff uint32
	if geo {
		scaleOff = uint32(len(buf))
		for _, d := range []float64{0.002, 0.002, 0} {
			buf = le.AppendUint64(buf, math.Float64bits(d))
		}
		tieOff = uint32(len(buf))
		for _, d := range []float64{0, 0, 0, 107.5, 16.5, 0} {
			buf = le.AppendUint64(buf, math.Float64bits(d))
		}
	}
	if nodata != "" {
		ndOff = uint32(len(buf))
		buf = append(buf, nodata...)
		buf = append(buf, 0)
	}

	entries := []tiffEntry{
		{tagImageWidth, 4, 1, uint32(width)},
		{tagImageLength, 4, 1, uint32(height)},
		{tagBitsPerSample, 3, 1, 32},
		{tagCompression, 3, 1, 1},
		{tagStripOffsets, 4, 1, stripOff},
		{tagSamplesPerPixel, 3, 1, 1},
		{tagRowsPerStrip, 4, 1, uint32(height)},
		{tagStripByteCounts, 4, 1, uint32(len(vals) * 4)},
		{tagSampleFormat, 3, 1, formatFloat},
	}
	if geo {
		entries = append(entries,
			tiffEntry{tagModelPixelScale, 12, 3, scaleOff},
			tiffEntry{tagModelTiepoint, 12, 6, tieOff},
		)
	}
	if nodata != "" {
		entries = append(entries, tiffEntry{tagGDALNoData, 2, uint32(len(nodata) + 1), ndOff})
	}
	entries = append(entries, extra...)

	le.PutUint32(buf[4:], uint32(len(buf)))
	buf = le.AppendUint16(buf, uint16(len(entries)))
	for _, e := range entries {
		buf = le.AppendUint16(buf, e.tag)
		buf = le.AppendUint16(buf, e.typ)
		buf = le.AppendUint32(buf, e.count)
		if e.typ == 3 {
			buf = le.AppendUint16(buf, uint16(e.value))
			buf = le.AppendUint16(buf, 0)
		} else {
			buf = le.AppendUint32(buf, e.value)
		}
	}
	buf = le.AppendUint32(buf, 0)
	return buf
}

func TestDecodeTIFF_Float32(t *testing.T) {
	t.Parallel()
	data := buildFloatTIFF(t, 2, 2, []float32{0.25, 1.5, -9999, 0}, true, "-9999")

	g, err := decodeTIFF(data)
	require.NoError(t, err)

	assert.Equal(t, 2, g.Width)
	assert.Equal(t, 2, g.Height)
	assert.InDelta(t, 0.25, g.At(0, 0), 1e-6)
	assert.InDelta(t, 1.5, g.At(1, 0), 1e-6)
	assert.Equal(t, 0.0, g.At(1, 1))

	assert.True(t, g.HasNoData)
	assert.Equal(t, -9999.0, g.NoData)
	assert.False(t, g.Valid(g.At(0, 1)))

	require.NotNil(t, g.Ref)
	assert.InDelta(t, 107.5, g.Ref.OriginX, 1e-9)
	assert.InDelta(t, 16.5, g.Ref.OriginY, 1e-9)
	assert.InDelta(t, 0.002, g.Ref.PixelSizeX, 1e-9)
	assert.InDelta(t, -0.002, g.Ref.PixelSizeY, 1e-9)
}

func TestDecodeTIFF_NoGeoTags(t *testing.T) {
	t.Parallel()
	data := buildFloatTIFF(t, 2, 1, []float32{1, 2}, false, "")

	g, err := decodeTIFF(data)
	require.NoError(t, err)
	assert.Nil(t, g.Ref)
	assert.False(t, g.HasNoData)
}

func TestDecodeTIFF_Rejections(t *testing.T) {
	t.Parallel()
	vals := []float32{1, 2, 3, 4}

	t.Run("tiled layout", func(t *testing.T) {
		data := buildFloatTIFF(t, 2, 2, vals, false, "", tiffEntry{tagTileWidth, 4, 1, 64})
		_, err := decodeTIFF(data)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("multi band", func(t *testing.T) {
		data := buildFloatTIFF(t, 2, 2, vals, false, "", tiffEntry{tagSamplesPerPixel, 3, 1, 3})
		_, err := decodeTIFF(data)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("bad byte-order mark", func(t *testing.T) {
		data := buildFloatTIFF(t, 2, 2, vals, false, "")
		data[0], data[1] = 'X', 'X'
		_, err := decodeTIFF(data)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("bad magic", func(t *testing.T) {
		data := buildFloatTIFF(t, 2, 2, vals, false, "")
		data[2] = 43
		_, err := decodeTIFF(data)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("truncated file", func(t *testing.T) {
		data := buildFloatTIFF(t, 2, 2, vals, false, "")
		_, err := decodeTIFF(data[:12])
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("short strip", func(t *testing.T) {
		// StripByteCounts smaller than width*height*4.
		data := buildFloatTIFF(t, 2, 2, vals, false, "", tiffEntry{tagStripByteCounts, 4, 1, 4})
		_, err := decodeTIFF(data)
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestLoad_TIFFByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flood.tif")
	data := buildFloatTIFF(t, 2, 2, []float32{0, 0.5, 3.5, -9999}, true, "-9999")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, g.Min)
	assert.Equal(t, 3.5, g.Max)
}
