package boundary

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Load reads wards from path, auto-detecting the source: a directory of
// per-element Overpass JSON files, a single Overpass JSON file, or a
// shapefile. nameField only applies to shapefiles.
func Load(path, nameField string) ([]Ward, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: stat %s", path)
	}
	if info.IsDir() {
		return LoadOverpassDir(path)
	}
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return LoadShapefile(path, nameField)
	}
	return LoadOverpassFile(path)
}
