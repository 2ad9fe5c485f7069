package georef

import "math"

// PixelToGeo returns the geographic coordinate of the center of cell (x, y)
// by linear interpolation across the bounding box.
func PixelToGeo(x, y int, b Bounds, width, height int) (lat, lon float64) {
	lon = b.West + (float64(x)+0.5)/float64(width)*(b.East-b.West)
	lat = b.North - (float64(y)+0.5)/float64(height)*(b.North-b.South)
	return lat, lon
}

// GeoToPixel maps a geographic coordinate to the cell containing it. The
// returned indices are clamped to [0,width) and [0,height); inside reports
// whether the point fell within the grid before clamping, so callers never
// mistake a wrapped coordinate for a hit.
func GeoToPixel(lat, lon float64, b Bounds, width, height int) (x, y int, inside bool) {
	fx := (lon - b.West) / (b.East - b.West) * float64(width)
	fy := (b.North - lat) / (b.North - b.South) * float64(height)

	x = int(math.Floor(fx))
	y = int(math.Floor(fy))
	inside = x >= 0 && x < width && y >= 0 && y < height

	x = clamp(x, 0, width-1)
	y = clamp(y, 0, height-1)
	return x, y, inside
}

// PixelRect converts a geographic query box to the pixel rectangle that
// fully covers it, using floor for the near edge and ceil for the far edge,
// clamped to the grid. The rectangle is half-open: [x0,x1) x [y0,y1). An
// empty intersection yields x0 >= x1 or y0 >= y1.
func PixelRect(query, grid Bounds, width, height int) (x0, y0, x1, y1 int) {
	fx0 := (query.West - grid.West) / (grid.East - grid.West) * float64(width)
	fx1 := (query.East - grid.West) / (grid.East - grid.West) * float64(width)
	fy0 := (grid.North - query.North) / (grid.North - grid.South) * float64(height)
	fy1 := (grid.North - query.South) / (grid.North - grid.South) * float64(height)

	x0 = clamp(int(math.Floor(fx0)), 0, width)
	x1 = clamp(int(math.Ceil(fx1)), 0, width)
	y0 = clamp(int(math.Floor(fy0)), 0, height)
	y1 = clamp(int(math.Ceil(fy1)), 0, height)
	return x0, y0, x1, y1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
