package georef

import (
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/floodwatch/floodmap/internal/raster"
)

// Resolver derives geographic bounds for a raster, trying the embedded
// affine reference first, then a sidecar world file, and finally a
// configured default region. It never aborts the caller over missing
// georeferencing: a wrong-but-plausible default beats no answer for the
// degraded-visualization paths downstream.
type Resolver struct {
	transform Transform
	fallback  Bounds
	log       *zap.Logger
}

// NewResolver builds a Resolver for the given source projection and default
// region.
func NewResolver(p Projection, fallback Bounds) *Resolver {
	return &Resolver{
		transform: NewTransform(p),
		fallback:  fallback,
		log:       zap.L().With(zap.String("component", "georef")),
	}
}

// WithTransform overrides the projected-to-geographic transform. Tests use
// this to substitute an identity transform.
func (r *Resolver) WithTransform(t Transform) *Resolver {
	r.transform = t
	return r
}

// Resolve computes the geographic bounds for a decoded grid. rasterPath is
// used to locate sidecar world files (.tfw, .wld).
func (r *Resolver) Resolve(g *raster.Grid, rasterPath string) Bounds {
	if g.Ref != nil {
		b := boundsFromEmbedded(g.Ref, g.Width, g.Height)
		if b.Valid() && b.PlausibleDegrees() {
			return b
		}
		// Projected units or garbage. Fall back to the configured
		// default rather than serve a nonsensical degree box.
		r.log.Warn("embedded bounds are not plausible degrees, using default region",
			zap.String("raster", rasterPath),
			zap.Float64("north", b.North),
			zap.Float64("east", b.East),
		)
		return r.fallback
	}

	b, err := r.fromWorldFile(g, rasterPath)
	if err != nil {
		r.log.Warn("no usable georeferencing, using default region",
			zap.String("raster", rasterPath),
			zap.Error(err),
		)
		return r.fallback
	}
	return b
}

// FromWorldFile computes bounds from an explicit world-file path, without
// fallback. Callers wanting the typed ErrValidation/ErrNotFound use this.
func (r *Resolver) FromWorldFile(path string, width, height int) (Bounds, error) {
	wf, err := ParseWorldFile(path)
	if err != nil {
		return Bounds{}, err
	}
	return r.reproject(wf, width, height)
}

func (r *Resolver) fromWorldFile(g *raster.Grid, rasterPath string) (Bounds, error) {
	path, err := findWorldFile(rasterPath)
	if err != nil {
		return Bounds{}, err
	}
	return r.FromWorldFile(path, g.Width, g.Height)
}

// reproject converts the projected corner coordinates of the image to
// geographic degrees and takes the axis-aligned envelope of the two
// corners.
func (r *Resolver) reproject(wf *WorldFile, width, height int) (Bounds, error) {
	west, south, east, north := wf.ProjectedBounds(width, height)

	lon0, lat0 := r.transform(west, north)
	lon1, lat1 := r.transform(east, south)

	b := Bounds{
		North: math.Max(lat0, lat1),
		South: math.Min(lat0, lat1),
		East:  math.Max(lon0, lon1),
		West:  math.Min(lon0, lon1),
	}
	if !b.Valid() {
		return Bounds{}, eris.Wrapf(ErrValidation, "georef: degenerate bounds from world file")
	}
	return b, nil
}

// findWorldFile looks for the conventional sidecar names next to the
// raster: the raster path with its extension replaced by .tfw or .wld.
func findWorldFile(rasterPath string) (string, error) {
	base := strings.TrimSuffix(rasterPath, extOf(rasterPath))
	for _, ext := range []string{".tfw", ".wld"} {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", eris.Wrapf(ErrNotFound, "georef: no world file beside %s", rasterPath)
}

func extOf(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 && !strings.ContainsRune(path[i:], '/') {
		return path[i:]
	}
	return ""
}

// boundsFromEmbedded spans the full image from the upper-left edge origin.
func boundsFromEmbedded(ref *raster.Embedded, width, height int) Bounds {
	return Bounds{
		West:  ref.OriginX,
		North: ref.OriginY,
		East:  ref.OriginX + float64(width)*ref.PixelSizeX,
		South: ref.OriginY + float64(height)*ref.PixelSizeY,
	}
}
