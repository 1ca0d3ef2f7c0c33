// Package heatmap colours sampled fields into images.
package heatmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/chazu/sigfield/pkg/field"
	"github.com/chazu/sigfield/pkg/grid"
)

// ErrLayer is returned when a requested layer does not exist.
var ErrLayer = errors.New("layer out of range")

// Palette assigns distinct colours to dominant sources.
var Palette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// NoSourceColor marks cells where no source beat the baseline.
var NoSourceColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// MaskedColor marks cells that were not evaluated.
var MaskedColor = color.RGBA{A: 0xff}

// Options controls how samples become colours.
type Options struct {
	// IndexMode colours cells by dominant source instead of density.
	IndexMode bool
	// Sources is the scene's source count, needed to recover the dominant
	// index from its normalized value.
	Sources int
}

// Render colours layer 0 of f. Pixel (x, z) is cell (x, 0, z).
func Render(f *grid.Field, opts Options) (*image.RGBA, error) {
	return RenderLayer(f, 0, opts)
}

// RenderLayer colours one Y layer of f. Density colours are normalized to
// the range of the whole field's evaluated cells so layers of one volume
// share a scale.
func RenderLayer(f *grid.Field, y int, opts Options) (*image.RGBA, error) {
	nx, ny, nz := f.Spec.Dims()
	if y < 0 || y >= ny {
		return nil, fmt.Errorf("%w: %d of %d", ErrLayer, y, ny)
	}
	st := f.Summarize()
	img := image.NewRGBA(image.Rect(0, 0, nx, nz))
	layer := f.Layer(y)
	for z := 0; z < nz; z++ {
		for x := 0; x < nx; x++ {
			var c color.RGBA
			switch {
			case f.Spec.MaskedCell(x, y, z):
				c = MaskedColor
			case opts.IndexMode:
				c = indexColor(layer[z*nx+x], opts.Sources)
			default:
				c = Ramp(normalize(layer[z*nx+x].Density, st.Min, st.Max))
			}
			img.SetRGBA(x, z, c)
		}
	}
	return img, nil
}

func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

func indexColor(s field.Sample, sources int) color.RGBA {
	if s.Dominant >= field.NoSource || sources <= 0 {
		return NoSourceColor
	}
	idx := int(s.Dominant*float64(sources) + 0.5)
	return parseHex(Palette[idx%len(Palette)])
}

// ramp stops, evenly spaced over [0,1].
var stops = []color.RGBA{
	{R: 0x00, G: 0x00, B: 0xff, A: 0xff},
	{R: 0x00, G: 0xff, B: 0xff, A: 0xff},
	{R: 0x00, G: 0xff, B: 0x00, A: 0xff},
	{R: 0xff, G: 0xff, B: 0x00, A: 0xff},
	{R: 0xff, G: 0x00, B: 0x00, A: 0xff},
}

// Ramp maps t in [0,1] onto blue, cyan, green, yellow, red. Values outside
// the range are clamped.
func Ramp(t float64) color.RGBA {
	if t != t || t <= 0 {
		return stops[0]
	}
	if t >= 1 {
		return stops[len(stops)-1]
	}
	seg := t * float64(len(stops)-1)
	i := int(seg)
	f := seg - float64(i)
	a, b := stops[i], stops[i+1]
	mix := func(p, q uint8) uint8 {
		return uint8(float64(p) + (float64(q)-float64(p))*f + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

func parseHex(s string) color.RGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return NoSourceColor
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// WritePNG writes img to path.
func WritePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return out.Close()
}
