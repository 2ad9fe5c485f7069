package georef

import "github.com/wroge/wgs84"

// Projection identifies the source projected coordinate system of raster
// inputs. One configurable UTM zone covers the deployment area; anything
// fancier belongs to an upstream preprocessing step.
type Projection struct {
	Zone     int
	Northern bool
}

// Transform converts a projected coordinate to geographic degrees.
type Transform func(x, y float64) (lon, lat float64)

// NewTransform builds the forward transform from the configured UTM zone to
// WGS84 longitude/latitude.
func NewTransform(p Projection) Transform {
	to := wgs84.UTM(float64(p.Zone), p.Northern).To(wgs84.LonLat())
	return func(x, y float64) (lon, lat float64) {
		lon, lat, _ = to(x, y, 0)
		return lon, lat
	}
}
