package boundary

import (
	"sort"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadShapefile reads ward polygons from a shapefile. nameField selects the
// attribute used as the ward name (case-insensitive); when empty or absent
// the name is left blank. Ward IDs are taken from an "ID"-like numeric
// attribute when present, else the one-based record number.
//
// Shapefile ring winding distinguishes outer from inner rings: clockwise
// parts are outer boundaries, counter-clockwise parts are holes.
func LoadShapefile(path, nameField string) ([]Ward, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, nameField)
	idIdx := fieldIndex(reader, "id")

	var wards []Ward
	var skipped int
	record := 0
	for reader.Next() {
		record++
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly.NumParts == 0 {
			skipped++
			continue
		}

		w := Ward{ID: int64(record)}
		if idIdx >= 0 {
			if id, ok := parseID(reader.Attribute(idIdx)); ok {
				w.ID = id
			}
		}
		if nameIdx >= 0 {
			w.Name = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}

		for i := int32(0); i < poly.NumParts; i++ {
			start := poly.Parts[i]
			end := int32(len(poly.Points))
			if i+1 < poly.NumParts {
				end = poly.Parts[i+1]
			}
			ring := make(Ring, 0, end-start)
			for j := start; j < end; j++ {
				ring = append(ring, geom.Coord{poly.Points[j].X, poly.Points[j].Y})
			}
			if signedArea(ring) <= 0 {
				w.Outer = append(w.Outer, ring)
			} else {
				w.Inner = append(w.Inner, ring)
			}
		}
		if len(w.Outer) == 0 {
			skipped++
			continue
		}
		wards = append(wards, w)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	sort.Slice(wards, func(i, j int) bool { return wards[i].ID < wards[j].ID })
	return wards, nil
}

// signedArea is the shoelace sum; negative for clockwise rings, which is the
// shapefile convention for outer boundaries.
func signedArea(r Ring) float64 {
	var sum float64
	n := len(r)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i][0]*r[j][1] - r[j][0]*r[i][1]
	}
	return sum / 2
}

func fieldIndex(reader *shp.Reader, name string) int {
	if name == "" {
		return -1
	}
	for i, f := range reader.Fields() {
		got := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(got, name) {
			return i
		}
	}
	return -1
}

func parseID(s string) (int64, bool) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return 0, false
	}
	var id int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		id = id*10 + int64(r-'0')
	}
	return id, true
}
