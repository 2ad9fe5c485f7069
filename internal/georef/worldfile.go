package georef

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Sentinel errors for the world-file path.
var (
	ErrNotFound   = eris.New("georef: world file not found")
	ErrValidation = eris.New("georef: invalid world file")
)

// WorldFile is the six-parameter affine transform from pixel space to a
// projected coordinate system. OriginX/OriginY locate the *center* of the
// upper-left pixel; PixelSizeY is conventionally negative.
type WorldFile struct {
	PixelSizeX float64
	RotationY  float64
	RotationX  float64
	PixelSizeY float64
	OriginX    float64
	OriginY    float64
}

// ParseWorldFile reads a sidecar world file: exactly six floating-point
// lines in the order pixelSizeX, rotationY, rotationX, pixelSizeY, originX,
// originY. Fewer than six lines or a non-numeric line is ErrValidation.
func ParseWorldFile(path string) (*WorldFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "georef: %s", path)
		}
		return nil, eris.Wrapf(err, "georef: open %s", path)
	}
	defer func() { _ = f.Close() }()

	var params []float64
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(params) < 6 {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, eris.Wrapf(ErrValidation, "georef: line %d is not numeric: %q", len(params)+1, line)
		}
		params = append(params, v)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "georef: read %s", path)
	}
	if len(params) < 6 {
		return nil, eris.Wrapf(ErrValidation, "georef: %d parameter lines, want 6", len(params))
	}

	return &WorldFile{
		PixelSizeX: params[0],
		RotationY:  params[1],
		RotationX:  params[2],
		PixelSizeY: params[3],
		OriginX:    params[4],
		OriginY:    params[5],
	}, nil
}

// ProjectedBounds converts the pixel-center origin to the outer pixel edges
// and spans the full image, still in the projected coordinate system.
// Returned as west, south, east, north.
func (w *WorldFile) ProjectedBounds(width, height int) (west, south, east, north float64) {
	west = w.OriginX - w.PixelSizeX/2
	north = w.OriginY - w.PixelSizeY/2
	east = west + float64(width)*w.PixelSizeX
	south = north + float64(height)*w.PixelSizeY
	return west, south, east, north
}
