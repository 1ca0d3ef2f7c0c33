package grid

import (
	"fmt"

	"github.com/chazu/sigfield/pkg/field"
)

// Field is the result of one sweep. Samples are in the Spec's enumeration
// order and owned by the caller.
type Field struct {
	Spec    Spec
	Samples []field.Sample
}

// At returns the sample at cell (x, y, z).
func (f *Field) At(x, y, z int) field.Sample {
	return f.Samples[f.Spec.Index(x, y, z)]
}

// Values returns one scalar per cell: the dominant index in index mode, the
// density otherwise.
func (f *Field) Values(indexMode bool) []float64 {
	out := make([]float64, len(f.Samples))
	for i, s := range f.Samples {
		out[i] = s.Value(indexMode)
	}
	return out
}

// Densities returns the density of every cell.
func (f *Field) Densities() []float64 {
	return f.Values(false)
}

// Layer returns the samples of layer y in z-major order. The slice aliases
// the field's buffer.
func (f *Field) Layer(y int) []field.Sample {
	nx, _, nz := f.Spec.Dims()
	start := y * nx * nz
	return f.Samples[start : start+nx*nz]
}

// Atlas tiles the Y layers of the field into a 2D image of columns tiles per
// row, each tile Nx wide and Nz tall. Layer y lands at tile (y%columns,
// y/columns). Tiles past the last layer are filled with the no-source
// sentinel.
func (f *Field) Atlas(columns int) (data []field.Sample, width, height int, err error) {
	if columns < 1 {
		return nil, 0, 0, fmt.Errorf("atlas columns must be positive, got %d", columns)
	}
	nx, ny, nz := f.Spec.Dims()
	if columns > ny {
		columns = ny
	}
	rows := (ny + columns - 1) / columns
	width, height = columns*nx, rows*nz

	data = make([]field.Sample, width*height)
	for i := range data {
		data[i] = field.Sample{Dominant: field.NoSource}
	}
	for y := 0; y < ny; y++ {
		tx, ty := y%columns, y/columns
		layer := f.Layer(y)
		for z := 0; z < nz; z++ {
			row := (ty*nz+z)*width + tx*nx
			copy(data[row:row+nx], layer[z*nx:(z+1)*nx])
		}
	}
	return data, width, height, nil
}
