package geom

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Axis indexes a vector component.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Component returns the a-th component of v.
func Component(v v3.Vec, a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// Finite reports whether every component of v is a finite number.
func Finite(v v3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// ---------------------------------------------------------------------------
// Box
// ---------------------------------------------------------------------------

// Box is a solid axis-aligned occluder (walls, furniture).
type Box struct {
	Min v3.Vec `json:"min"`
	Max v3.Vec `json:"max"`
}

// Normalized returns the box with min/max swapped on every axis where the
// caller supplied them reversed, plus the list of axes that were swapped.
func (b Box) Normalized() (Box, []Axis) {
	var swapped []Axis
	out := b
	if out.Min.X > out.Max.X {
		out.Min.X, out.Max.X = out.Max.X, out.Min.X
		swapped = append(swapped, AxisX)
	}
	if out.Min.Y > out.Max.Y {
		out.Min.Y, out.Max.Y = out.Max.Y, out.Min.Y
		swapped = append(swapped, AxisY)
	}
	if out.Min.Z > out.Max.Z {
		out.Min.Z, out.Max.Z = out.Max.Z, out.Min.Z
		swapped = append(swapped, AxisZ)
	}
	return out, swapped
}

// Bounds returns the normalized box as an sdfx bounding box.
func (b Box) Bounds() sdf.Box3 {
	n, _ := b.Normalized()
	return sdf.Box3{Min: n.Min, Max: n.Max}
}

// Contains reports whether p lies inside or on the box.
func (b Box) Contains(p v3.Vec) bool {
	n, _ := b.Normalized()
	return p.X >= n.Min.X && p.X <= n.Max.X &&
		p.Y >= n.Min.Y && p.Y <= n.Max.Y &&
		p.Z >= n.Min.Z && p.Z <= n.Max.Z
}

// ---------------------------------------------------------------------------
// Slab
// ---------------------------------------------------------------------------

// Slab is a thin vertical rectangle given by two opposite corners. The
// horizontal edge runs from (Min.X, Min.Z) to (Max.X, Max.Z) and the vertical
// edge from Min.Y to Max.Y, so Min and Max are not per-axis extrema: swapping
// a single axis would mirror a diagonal wall.
type Slab struct {
	Min v3.Vec `json:"min"`
	Max v3.Vec `json:"max"`
}

// Corners expands the slab into the quad p0..p3 with
// p0=min, p1=(max.x,min.y,max.z), p2=max, p3=(min.x,max.y,min.z).
func (s Slab) Corners() [4]v3.Vec {
	return [4]v3.Vec{
		s.Min,
		{X: s.Max.X, Y: s.Min.Y, Z: s.Max.Z},
		s.Max,
		{X: s.Min.X, Y: s.Max.Y, Z: s.Min.Z},
	}
}

// Triangles splits the quad along the p0-p2 diagonal into (p0,p1,p2) and
// (p2,p3,p0).
func (s Slab) Triangles() [2][3]v3.Vec {
	c := s.Corners()
	return [2][3]v3.Vec{
		{c[0], c[1], c[2]},
		{c[2], c[3], c[0]},
	}
}

// Normalized swaps the two endpoints as a pair when the vertical order is
// reversed. The swapped slab describes the same rectangle.
func (s Slab) Normalized() (Slab, bool) {
	if s.Min.Y > s.Max.Y {
		return Slab{Min: s.Max, Max: s.Min}, true
	}
	return s, false
}

// Area returns the area of the rectangle spanned by the slab.
func (s Slab) Area() float64 {
	dx := s.Max.X - s.Min.X
	dz := s.Max.Z - s.Min.Z
	return math.Hypot(dx, dz) * math.Abs(s.Max.Y-s.Min.Y)
}

// Bounds returns the axis-aligned bounds of the slab.
func (s Slab) Bounds() sdf.Box3 {
	b, _ := Box{Min: s.Min, Max: s.Max}.Normalized()
	return sdf.Box3{Min: b.Min, Max: b.Max}
}

// ---------------------------------------------------------------------------
// Source
// ---------------------------------------------------------------------------

// Source is a point emitter. Intensity scales the decay distance and must
// be strictly positive.
type Source struct {
	Position  v3.Vec  `json:"position"`
	Intensity float64 `json:"intensity"`
}

// Valid reports whether the source can be evaluated without producing
// NaN or infinite densities.
func (s Source) Valid() bool {
	return Finite(s.Position) && s.Intensity > 0 && !math.IsInf(s.Intensity, 0)
}

// ---------------------------------------------------------------------------
// Scene
// ---------------------------------------------------------------------------

// Scene is the ordered set of sources and obstacles supplied by the caller.
// Source order defines the dominant index reported by the evaluator.
type Scene struct {
	Sources []Source `json:"sources"`
	Boxes   []Box    `json:"boxes"`
	Slabs   []Slab   `json:"slabs"`
}

// Bounds returns a box enclosing every source and obstacle. The second
// return value is false for an empty scene.
func (sc Scene) Bounds() (sdf.Box3, bool) {
	var bb sdf.Box3
	first := true
	include := func(p v3.Vec) {
		if first {
			bb = sdf.Box3{Min: p, Max: p}
			first = false
			return
		}
		bb.Min = bb.Min.Min(p)
		bb.Max = bb.Max.Max(p)
	}
	for _, s := range sc.Sources {
		include(s.Position)
	}
	for _, b := range sc.Boxes {
		include(b.Min)
		include(b.Max)
	}
	for _, s := range sc.Slabs {
		include(s.Min)
		include(s.Max)
	}
	return bb, !first
}
