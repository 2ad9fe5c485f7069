// Package boundary loads administrative ward polygons from Overpass API
// JSON exports or from shapefiles. The package only reads boundary data;
// fetching it from a boundary service is someone else's job.
package boundary

import "github.com/twpayne/go-geom"

// Ring is one closed boundary loop, ordered vertices as go-geom XY coords
// (coord[0] = lon, coord[1] = lat).
type Ring []geom.Coord

// Ward is one administrative boundary polygon. Outer rings may be disjoint
// (exclaves); inner rings are holes.
type Ward struct {
	ID    int64
	Name  string
	Outer []Ring
	Inner []Ring
}

// UsableOuter returns the outer rings with enough vertices to enclose area.
// A ring of one or two points is degenerate boundary data, not an error.
func (w Ward) UsableOuter() []Ring {
	var out []Ring
	for _, r := range w.Outer {
		if len(r) > 2 {
			out = append(out, r)
		}
	}
	return out
}

// BBox returns the envelope of all outer-ring vertices as
// west, south, east, north. ok is false for wards with no vertices.
func (w Ward) BBox() (west, south, east, north float64, ok bool) {
	for _, ring := range w.Outer {
		for _, c := range ring {
			if !ok {
				west, east = c[0], c[0]
				south, north = c[1], c[1]
				ok = true
				continue
			}
			if c[0] < west {
				west = c[0]
			}
			if c[0] > east {
				east = c[0]
			}
			if c[1] < south {
				south = c[1]
			}
			if c[1] > north {
				north = c[1]
			}
		}
	}
	return west, south, east, north, ok
}
