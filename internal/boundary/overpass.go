package boundary

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// overpassPoint matches one vertex in a member geometry.
type overpassPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// overpassMember is one way of a boundary relation.
type overpassMember struct {
	Role     string          `json:"role"`
	Type     string          `json:"type"`
	Geometry []overpassPoint `json:"geometry"`
}

// overpassElement is one relation from an Overpass API response.
type overpassElement struct {
	ID      int64             `json:"id"`
	Type    string            `json:"type"`
	Tags    map[string]string `json:"tags"`
	Members []overpassMember  `json:"members"`
}

// overpassResponse is the top-level Overpass API payload. Elements stays
// raw so a present-but-empty array is distinguishable from a missing key.
type overpassResponse struct {
	Elements json.RawMessage `json:"elements"`
}

// ParseOverpass decodes Overpass JSON into wards. The payload may be a full
// response ({"elements": [...]}) or a single element object, matching both
// the raw API output and per-element exports. A response whose elements
// array is empty yields an empty ward list, not an error.
func ParseOverpass(r io.Reader) ([]Ward, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: read overpass payload")
	}

	var resp overpassResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, eris.Wrap(err, "boundary: decode overpass payload")
	}

	var elements []overpassElement
	if resp.Elements != nil {
		if err := json.Unmarshal(resp.Elements, &elements); err != nil {
			return nil, eris.Wrap(err, "boundary: decode overpass elements")
		}
	} else {
		var single overpassElement
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, eris.Wrap(err, "boundary: decode overpass element")
		}
		if single.ID == 0 {
			return nil, eris.New("boundary: overpass payload has no elements")
		}
		elements = []overpassElement{single}
	}

	wards := []Ward{}
	for _, el := range elements {
		w := elementToWard(el)
		if w == nil {
			continue
		}
		wards = append(wards, *w)
	}
	sort.Slice(wards, func(i, j int) bool { return wards[i].ID < wards[j].ID })
	return wards, nil
}

// elementToWard converts one relation. Elements without any member geometry
// are dropped with a diagnostic; degenerate rings stay on the ward so the
// attributor can report them.
func elementToWard(el overpassElement) *Ward {
	w := Ward{ID: el.ID, Name: el.Tags["name"]}
	for _, m := range el.Members {
		if m.Type != "way" || len(m.Geometry) == 0 {
			continue
		}
		ring := make(Ring, 0, len(m.Geometry))
		for _, p := range m.Geometry {
			ring = append(ring, geom.Coord{p.Lon, p.Lat})
		}
		switch m.Role {
		case "outer":
			w.Outer = append(w.Outer, ring)
		case "inner":
			w.Inner = append(w.Inner, ring)
		}
	}
	if len(w.Outer) == 0 {
		zap.L().Debug("boundary: element has no outer geometry, skipping",
			zap.Int64("id", el.ID),
			zap.String("name", w.Name),
		)
		return nil
	}
	return &w
}

// LoadOverpassFile reads wards from a single Overpass JSON file.
func LoadOverpassFile(path string) ([]Ward, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return ParseOverpass(f)
}

// LoadOverpassDir reads wards from a directory of per-element JSON files
// (one relation per file, named by element id).
func LoadOverpassDir(dir string) ([]Ward, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: read dir %s", dir)
	}

	var wards []Ward
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		got, err := LoadOverpassFile(filepath.Join(dir, e.Name()))
		if err != nil {
			zap.L().Warn("boundary: skipping unreadable element file",
				zap.String("file", e.Name()),
				zap.Error(err),
			)
			continue
		}
		wards = append(wards, got...)
	}
	sort.Slice(wards, func(i, j int) bool { return wards[i].ID < wards[j].ID })
	return wards, nil
}
