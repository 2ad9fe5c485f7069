package raster

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Sentinel errors for the loader. Callers distinguish a missing file from a
// corrupt one with eris.Is.
var (
	ErrNotFound = eris.New("raster: file not found")
	ErrDecode   = eris.New("raster: decode failed")
)

// Load reads and decodes the raster at path. The format is chosen by
// extension: .asc/.txt are parsed as ESRI ASCII grids, everything else as
// single-band TIFF. Returns ErrNotFound when the file is missing and wraps
// ErrDecode for malformed payloads.
func Load(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "raster: %s", path)
		}
		return nil, eris.Wrapf(err, "raster: read %s", path)
	}

	var grid *Grid
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc", ".txt":
		grid, err = decodeASCII(data)
	default:
		grid, err = decodeTIFF(data)
	}
	if err != nil {
		return nil, err
	}

	grid.computeRange()
	zap.L().Debug("raster: loaded",
		zap.String("path", path),
		zap.Int("width", grid.Width),
		zap.Int("height", grid.Height),
		zap.Float64("min", grid.Min),
		zap.Float64("max", grid.Max),
		zap.Bool("georeferenced", grid.Ref != nil),
	)
	return grid, nil
}
