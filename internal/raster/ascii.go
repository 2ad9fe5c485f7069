package raster

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// decodeASCII parses an ESRI ASCII grid: a short header of "key value" lines
// (ncols, nrows, xllcorner/xllcenter, yllcorner/yllcenter, cellsize,
// nodata_value) followed by nrows rows of whitespace-separated cell values,
// north row first.
func decodeASCII(data []byte) (*Grid, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	header := map[string]float64{}
	var firstValue string
	for {
		tok, ok := next()
		if !ok {
			return nil, eris.Wrap(ErrDecode, "ascii: truncated header")
		}
		key := strings.ToLower(tok)
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			// First data token reached.
			firstValue = tok
			break
		}
		val, ok := next()
		if !ok {
			return nil, eris.Wrapf(ErrDecode, "ascii: header key %q has no value", key)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, eris.Wrapf(ErrDecode, "ascii: header key %q has non-numeric value %q", key, val)
		}
		header[key] = f
	}

	ncols, okC := header["ncols"]
	nrows, okR := header["nrows"]
	cellsize, okS := header["cellsize"]
	if !okC || !okR || !okS || ncols < 1 || nrows < 1 || cellsize <= 0 {
		return nil, eris.Wrap(ErrDecode, "ascii: missing or invalid ncols/nrows/cellsize")
	}
	width, height := int(ncols), int(nrows)

	g := &Grid{
		Width:  width,
		Height: height,
		Values: make([]float64, 0, width*height),
	}
	if nd, ok := header["nodata_value"]; ok {
		g.NoData = nd
		g.HasNoData = true
	}

	// Lower-left corner in the source coordinate system. The *center
	// variants shift by half a cell.
	xll, okX := header["xllcorner"]
	yll, okY := header["yllcorner"]
	if !okX {
		if c, ok := header["xllcenter"]; ok {
			xll, okX = c-cellsize/2, true
		}
	}
	if !okY {
		if c, ok := header["yllcenter"]; ok {
			yll, okY = c-cellsize/2, true
		}
	}
	if okX && okY {
		g.Ref = &Embedded{
			OriginX:    xll,
			OriginY:    yll + nrows*cellsize,
			PixelSizeX: cellsize,
			PixelSizeY: -cellsize,
		}
	}

	appendValue := func(tok string) error {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return eris.Wrapf(ErrDecode, "ascii: non-numeric cell %q", tok)
		}
		g.Values = append(g.Values, f)
		return nil
	}

	if err := appendValue(firstValue); err != nil {
		return nil, err
	}
	for len(g.Values) < width*height {
		tok, ok := next()
		if !ok {
			return nil, eris.Wrapf(ErrDecode, "ascii: expected %d cells, got %d", width*height, len(g.Values))
		}
		if err := appendValue(tok); err != nil {
			return nil, err
		}
	}

	return g, nil
}
