// Package heatmap renders a flood-depth grid as an RGBA color-ramp image
// with legend metadata.
package heatmap

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/raster"
)

// floodAlpha is the opacity of flooded pixels (~70%). Dry, no-data, and
// non-finite cells render fully transparent.
const floodAlpha = 180

// nodataEpsilon tolerates sentinel drift in float payloads.
const nodataEpsilon = 1e-4

// rampStops is the five-stop depth ramp, shallow to deep.
var rampStops = [5]colorful.Color{
	mustHex("#0000ff"), // blue
	mustHex("#00ffff"), // cyan
	mustHex("#00ff00"), // green
	mustHex("#ffff00"), // yellow
	mustHex("#ff0000"), // red
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Legend pairs the five ramp colors with the depths they mark.
type Legend struct {
	Colors [5]string  `json:"colors"`
	Values [5]float64 `json:"values"`
}

// Metadata accompanies the rendered image.
type Metadata struct {
	Bounds    georef.Bounds `json:"bounds"`
	Timestamp time.Time     `json:"timestamp"`
	MaxDepth  float64       `json:"max_depth"`
	MinDepth  float64       `json:"min_depth"`
	Legend    Legend        `json:"legend"`
}

// Image is a rendered heatmap plus its metadata.
type Image struct {
	RGBA *image.NRGBA
	Meta Metadata
}

// Renderer maps depth values onto the ramp over the grid's [min, max]
// range, blending between stops in HCL so the perceived color gradient
// tracks depth linearly.
type Renderer struct {
	clock clockwork.Clock
}

// NewRenderer returns a Renderer stamping metadata with the real clock.
func NewRenderer() *Renderer {
	return &Renderer{clock: clockwork.NewRealClock()}
}

// NewRendererWithClock injects the clock, for tests.
func NewRendererWithClock(clock clockwork.Clock) *Renderer {
	return &Renderer{clock: clock}
}

// Render produces the RGBA heatmap for g with bounds b. Pixel rules, in
// priority order: no-data sentinel (within epsilon), non-finite, and
// exactly-zero cells are fully transparent; everything else gets the ramp
// color at floodAlpha.
func (r *Renderer) Render(g *raster.Grid, b georef.Bounds) *Image {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))

	span := g.Max - g.Min
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := g.At(x, y)
			if !transparent(g, v) {
				t := 0.0
				if span > 0 {
					t = (v - g.Min) / span
				}
				img.SetNRGBA(x, y, rampColor(t))
			}
		}
	}

	meta := Metadata{
		Bounds:    b,
		Timestamp: r.clock.Now().UTC(),
		MaxDepth:  g.Max,
		MinDepth:  g.Min,
	}
	for i := range rampStops {
		meta.Legend.Colors[i] = rampStops[i].Hex()
		meta.Legend.Values[i] = g.Min + float64(i)/4*span
	}
	return &Image{RGBA: img, Meta: meta}
}

func transparent(g *raster.Grid, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return true
	}
	if g.HasNoData && math.Abs(v-g.NoData) <= nodataEpsilon {
		return true
	}
	return v == 0
}

// rampColor interpolates the five-stop ramp at t in [0,1], blending in HCL
// and clamping back into sRGB.
func rampColor(t float64) color.NRGBA {
	if t <= 0 {
		return toNRGBA(rampStops[0])
	}
	if t >= 1 {
		return toNRGBA(rampStops[4])
	}
	seg := t * 4
	i := int(seg)
	c := rampStops[i].BlendHcl(rampStops[i+1], seg-float64(i)).Clamped()
	return toNRGBA(c)
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: floodAlpha}
}

// WritePNG encodes the rendered image.
func (i *Image) WritePNG(w io.Writer) error {
	if err := png.Encode(w, i.RGBA); err != nil {
		return eris.Wrap(err, "heatmap: encode png")
	}
	return nil
}

// WriteMetadata writes the JSON metadata sidecar.
func (i *Image) WriteMetadata(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(i.Meta); err != nil {
		return eris.Wrap(err, "heatmap: encode metadata")
	}
	return nil
}
