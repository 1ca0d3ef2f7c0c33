// Package isosurface extracts level surfaces from sampled volumetric fields.
// A sampled field is exposed as an sdfx signed distance function and
// polygonized by sdfx's marching cubes.
package isosurface

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/sigfield/pkg/grid"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrNotVolumetric is returned for fields that cannot bound a surface.
var ErrNotVolumetric = errors.New("field is not a volumetric lattice")

// Compile-time interface check.
var _ sdf.SDF3 = (*Volume)(nil)

// Volume reads a volumetric field as an SDF: Evaluate returns
// level - density, negative inside the surface. Density between lattice
// points is trilinear; outside the sampled box it is 0.
type Volume struct {
	field *grid.Field
	level float64
	nx    int
	ny    int
	nz    int
	scale v3.Vec // lattice steps per world unit on each axis
	bb    sdf.Box3
}

// NewVolume wraps a sampled volumetric field. Every axis needs at least two
// lattice points.
func NewVolume(f *grid.Field, level float64) (*Volume, error) {
	if f == nil || f.Spec.Mode != grid.Volumetric {
		return nil, ErrNotVolumetric
	}
	nx, ny, nz := f.Spec.Dims()
	if nx < 2 || ny < 2 || nz < 2 {
		return nil, fmt.Errorf("%w: resolution %dx%dx%d needs at least 2 points per axis", ErrNotVolumetric, nx, ny, nz)
	}
	l := f.Spec.Lengths
	if l.X == 0 || l.Y == 0 || l.Z == 0 {
		return nil, fmt.Errorf("%w: zero extent %v", ErrNotVolumetric, l)
	}
	return &Volume{
		field: f,
		level: level,
		nx:    nx,
		ny:    ny,
		nz:    nz,
		scale: v3.Vec{
			X: float64(nx-1) / l.X,
			Y: float64(ny-1) / l.Y,
			Z: float64(nz-1) / l.Z,
		},
		bb: f.Spec.Bounds(),
	}, nil
}

// Level returns the density the surface sits at.
func (v *Volume) Level() float64 { return v.level }

// Evaluate implements sdf.SDF3.
func (v *Volume) Evaluate(p v3.Vec) float64 {
	return v.level - v.Density(p)
}

// BoundingBox implements sdf.SDF3.
func (v *Volume) BoundingBox() sdf.Box3 {
	return v.bb
}

// Density returns the trilinearly interpolated density at p.
func (v *Volume) Density(p v3.Vec) float64 {
	d := p.Sub(v.field.Spec.Origin)
	u := d.X * v.scale.X
	w := d.Y * v.scale.Y
	t := d.Z * v.scale.Z
	if !inRange(u, v.nx) || !inRange(w, v.ny) || !inRange(t, v.nz) {
		return 0
	}

	x0, fx := split(u, v.nx)
	y0, fy := split(w, v.ny)
	z0, fz := split(t, v.nz)

	at := func(x, y, z int) float64 { return v.field.At(x, y, z).Density }
	c00 := lerp(at(x0, y0, z0), at(x0+1, y0, z0), fx)
	c10 := lerp(at(x0, y0+1, z0), at(x0+1, y0+1, z0), fx)
	c01 := lerp(at(x0, y0, z0+1), at(x0+1, y0, z0+1), fx)
	c11 := lerp(at(x0, y0+1, z0+1), at(x0+1, y0+1, z0+1), fx)
	c0 := lerp(c00, c10, fy)
	c1 := lerp(c01, c11, fy)
	return lerp(c0, c1, fz)
}

func inRange(u float64, n int) bool {
	return u >= 0 && u <= float64(n-1)
}

// split returns the lower lattice index of the cell holding u and the
// fractional offset within it. The last point belongs to the last cell.
func split(u float64, n int) (int, float64) {
	i := int(math.Floor(u))
	if i >= n-1 {
		i = n - 2
	}
	return i, u - float64(i)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
