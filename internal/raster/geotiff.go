package raster

import (
	"bytes"
	"encoding/binary"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	xtiff "golang.org/x/image/tiff"
)

// TIFF tags the decoder cares about. Geo tags follow the GeoTIFF spec;
// GDAL_NODATA is the de facto sentinel tag written by GDAL.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagTileWidth       = 322
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGDALNoData      = 42113
)

// TIFF sample formats.
const (
	formatUint  = 1
	formatInt   = 2
	formatFloat = 3
)

type ifdEntry struct {
	typ    uint16
	count  uint32
	raw    []byte // value bytes, already dereferenced
	order  binary.ByteOrder
	inline bool
}

// decodeTIFF parses a single-band TIFF. Uncompressed integer and IEEE float
// strips are read natively so that float flood-depth rasters survive intact;
// compressed integer images are handed to x/image/tiff. Georeferencing is
// taken from ModelPixelScale + ModelTiepoint when present.
func decodeTIFF(data []byte) (*Grid, error) {
	entries, order, err := parseIFD(data)
	if err != nil {
		return nil, err
	}

	width := int(entryUint(entries, tagImageWidth, 0))
	height := int(entryUint(entries, tagImageLength, 0))
	if width <= 0 || height <= 0 {
		return nil, eris.Wrap(ErrDecode, "tiff: missing image dimensions")
	}
	if _, tiled := entries[tagTileWidth]; tiled {
		return nil, eris.Wrap(ErrDecode, "tiff: tiled layout not supported")
	}
	if spp := entryUint(entries, tagSamplesPerPixel, 1); spp != 1 {
		return nil, eris.Wrapf(ErrDecode, "tiff: %d samples per pixel, want single band", spp)
	}

	g := &Grid{Width: width, Height: height}
	readGeoTags(entries, g)

	compression := entryUint(entries, tagCompression, 1)
	if compression == 1 {
		err = readStrips(data, entries, order, g)
	} else {
		err = readViaImage(data, g)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// parseIFD validates the TIFF header and collects the first IFD's entries.
func parseIFD(data []byte) (map[uint16]ifdEntry, binary.ByteOrder, error) {
	if len(data) < 8 {
		return nil, nil, eris.Wrap(ErrDecode, "tiff: short header")
	}
	var order binary.ByteOrder
	switch string(data[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, eris.Wrap(ErrDecode, "tiff: bad byte-order mark")
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, nil, eris.Wrap(ErrDecode, "tiff: bad magic")
	}

	off := int64(order.Uint32(data[4:8]))
	if off < 8 || off+2 > int64(len(data)) {
		return nil, nil, eris.Wrap(ErrDecode, "tiff: IFD offset out of range")
	}
	n := int(order.Uint16(data[off : off+2]))
	if off+2+int64(n)*12 > int64(len(data)) {
		return nil, nil, eris.Wrap(ErrDecode, "tiff: truncated IFD")
	}

	entries := make(map[uint16]ifdEntry, n)
	for i := 0; i < n; i++ {
		e := data[off+2+int64(i)*12:]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		count := order.Uint32(e[4:8])

		size := typeSize(typ) * int64(count)
		if size <= 0 {
			continue
		}
		var raw []byte
		if size <= 4 {
			raw = e[8 : 8+size]
		} else {
			valOff := int64(order.Uint32(e[8:12]))
			if valOff+size > int64(len(data)) {
				return nil, nil, eris.Wrapf(ErrDecode, "tiff: tag %d value out of range", tag)
			}
			raw = data[valOff : valOff+size]
		}
		entries[tag] = ifdEntry{typ: typ, count: count, raw: raw, order: order, inline: size <= 4}
	}
	return entries, order, nil
}

func typeSize(typ uint16) int64 {
	switch typ {
	case 1, 2, 6, 7: // BYTE, ASCII, SBYTE, UNDEFINED
		return 1
	case 3, 8: // SHORT, SSHORT
		return 2
	case 4, 9, 11: // LONG, SLONG, FLOAT
		return 4
	case 5, 10, 12: // RATIONAL, SRATIONAL, DOUBLE
		return 8
	default:
		return 0
	}
}

// entryUint returns the first value of an integer tag, or def if absent.
func entryUint(entries map[uint16]ifdEntry, tag uint16, def uint64) uint64 {
	vals := entryUints(entries, tag)
	if len(vals) == 0 {
		return def
	}
	return vals[0]
}

func entryUints(entries map[uint16]ifdEntry, tag uint16) []uint64 {
	e, ok := entries[tag]
	if !ok {
		return nil
	}
	out := make([]uint64, 0, e.count)
	for i := uint32(0); i < e.count; i++ {
		switch e.typ {
		case 1:
			out = append(out, uint64(e.raw[i]))
		case 3:
			out = append(out, uint64(e.order.Uint16(e.raw[i*2:])))
		case 4:
			out = append(out, uint64(e.order.Uint32(e.raw[i*4:])))
		default:
			return nil
		}
	}
	return out
}

func entryDoubles(entries map[uint16]ifdEntry, tag uint16) []float64 {
	e, ok := entries[tag]
	if !ok || e.typ != 12 {
		return nil
	}
	out := make([]float64, 0, e.count)
	for i := uint32(0); i < e.count; i++ {
		out = append(out, math.Float64frombits(e.order.Uint64(e.raw[i*8:])))
	}
	return out
}

func entryASCII(entries map[uint16]ifdEntry, tag uint16) string {
	e, ok := entries[tag]
	if !ok || e.typ != 2 {
		return ""
	}
	return strings.TrimRight(string(e.raw), "\x00")
}

// readGeoTags extracts the embedded affine reference and no-data sentinel.
// The tie point anchors raster point (i,j) at model coordinate (x,y); for
// north-up rasters this is the upper-left corner edge.
func readGeoTags(entries map[uint16]ifdEntry, g *Grid) {
	scale := entryDoubles(entries, tagModelPixelScale)
	tie := entryDoubles(entries, tagModelTiepoint)
	if len(scale) >= 2 && len(tie) >= 6 && scale[0] > 0 && scale[1] > 0 {
		g.Ref = &Embedded{
			OriginX:    tie[3] - tie[0]*scale[0],
			OriginY:    tie[4] + tie[1]*scale[1],
			PixelSizeX: scale[0],
			PixelSizeY: -scale[1],
		}
	}
	if s := entryASCII(entries, tagGDALNoData); s != "" {
		if nd, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			g.NoData = nd
			g.HasNoData = true
		}
	}
}

// readStrips decodes uncompressed strip data for the supported sample
// layouts: IEEE float 32/64 and signed/unsigned integers 8/16/32.
func readStrips(data []byte, entries map[uint16]ifdEntry, order binary.ByteOrder, g *Grid) error {
	bits := entryUint(entries, tagBitsPerSample, 1)
	format := entryUint(entries, tagSampleFormat, formatUint)

	var sample func([]byte) float64
	switch {
	case format == formatFloat && bits == 32:
		sample = func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }
	case format == formatFloat && bits == 64:
		sample = func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }
	case format == formatUint && bits == 8:
		sample = func(b []byte) float64 { return float64(b[0]) }
	case format == formatUint && bits == 16:
		sample = func(b []byte) float64 { return float64(order.Uint16(b)) }
	case format == formatUint && bits == 32:
		sample = func(b []byte) float64 { return float64(order.Uint32(b)) }
	case format == formatInt && bits == 8:
		sample = func(b []byte) float64 { return float64(int8(b[0])) }
	case format == formatInt && bits == 16:
		sample = func(b []byte) float64 { return float64(int16(order.Uint16(b))) }
	case format == formatInt && bits == 32:
		sample = func(b []byte) float64 { return float64(int32(order.Uint32(b))) }
	default:
		return eris.Wrapf(ErrDecode, "tiff: unsupported sample layout (format %d, %d bits)", format, bits)
	}
	bytesPer := int(bits / 8)

	offsets := entryUints(entries, tagStripOffsets)
	counts := entryUints(entries, tagStripByteCounts)
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return eris.Wrap(ErrDecode, "tiff: missing strip layout")
	}
	rps := int(entryUint(entries, tagRowsPerStrip, uint64(g.Height)))
	if rps <= 0 {
		rps = g.Height
	}

	g.Values = make([]float64, 0, g.Width*g.Height)
	for s, off := range offsets {
		rows := rps
		if remaining := g.Height - s*rps; remaining < rows {
			rows = remaining
		}
		if rows <= 0 {
			break
		}
		need := int64(rows) * int64(g.Width) * int64(bytesPer)
		if int64(off)+need > int64(len(data)) || int64(counts[s]) < need {
			return eris.Wrapf(ErrDecode, "tiff: strip %d truncated", s)
		}
		strip := data[off : int64(off)+need]
		for i := 0; i < rows*g.Width; i++ {
			g.Values = append(g.Values, sample(strip[i*bytesPer:]))
		}
	}
	if len(g.Values) != g.Width*g.Height {
		return eris.Wrapf(ErrDecode, "tiff: expected %d cells, got %d", g.Width*g.Height, len(g.Values))
	}
	return nil
}

// readViaImage decodes compressed integer rasters with x/image/tiff. Float
// payloads never take this path.
func readViaImage(data []byte, g *Grid) error {
	img, err := xtiff.Decode(bytes.NewReader(data))
	if err != nil {
		return eris.Wrapf(ErrDecode, "tiff: %s", err.Error())
	}
	b := img.Bounds()
	if b.Dx() != g.Width || b.Dy() != g.Height {
		return eris.Wrap(ErrDecode, "tiff: decoded dimensions disagree with IFD")
	}

	g.Values = make([]float64, 0, g.Width*g.Height)
	switch im := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				g.Values = append(g.Values, float64(im.GrayAt(x, y).Y))
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				g.Values = append(g.Values, float64(im.Gray16At(x, y).Y))
			}
		}
	default:
		return eris.Wrap(ErrDecode, "tiff: unsupported multi-band raster")
	}
	return nil
}
