// Package scene turns scene descriptions into evaluator inputs. Scenes are
// written either in a small Lisp (evaluated by a sandboxed zygomys
// interpreter) or as JSON.
package scene

import (
	"fmt"

	"github.com/chazu/sigfield/pkg/field"
	"github.com/chazu/sigfield/pkg/geom"
	"github.com/chazu/sigfield/pkg/grid"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Description is everything a scene file defines: the geometry, the
// evaluator configuration and the grids to sample.
type Description struct {
	Scene  geom.Scene
	Config field.Config
	Limits field.Limits
	Grids  []grid.Spec
}

// NewDescription returns an empty description with the default evaluator
// configuration and no capacity limits.
func NewDescription() *Description {
	return &Description{
		Config: field.DefaultConfig(),
		Limits: field.Unbounded,
	}
}

// Evaluator builds a field evaluator for the description.
func (d *Description) Evaluator() (*field.Evaluator, error) {
	return field.New(d.Scene, d.Config, d.Limits)
}

// DefaultPadding is the margin added around the scene bounds by
// DefaultGrid.
const DefaultPadding = 1.0

// DefaultGrid returns a planar res×res grid covering the scene bounds plus
// DefaultPadding, at the mean source height. ok is false for an empty scene.
func (d *Description) DefaultGrid(res int) (spec grid.Spec, ok bool) {
	bb, ok := d.Scene.Bounds()
	if !ok {
		return grid.Spec{}, false
	}
	height := bb.Min.Y
	if n := len(d.Scene.Sources); n > 0 {
		height = 0
		for _, s := range d.Scene.Sources {
			height += s.Position.Y
		}
		height /= float64(n)
	}
	pad := v3.Vec{X: DefaultPadding, Z: DefaultPadding}
	origin := bb.Min.Sub(pad)
	size := bb.Max.Add(pad).Sub(origin)
	origin.Y = height
	return grid.NewPlanar(origin, size.X, size.Z, res, res), true
}

// Targets returns the grids to sample: the ones the scene declares, or the
// default planar grid at res when it declares none.
func (d *Description) Targets(res int) []grid.Spec {
	if len(d.Grids) > 0 {
		return d.Grids
	}
	if g, ok := d.DefaultGrid(res); ok {
		return []grid.Spec{g}
	}
	return nil
}

// Ref identifies one element of a scene for error reporting.
type Ref struct {
	Kind  string // "source", "box", "slab", "grid" or "" for scene-level
	Index int
}

func (r Ref) String() string {
	if r.Kind == "" {
		return "scene"
	}
	return fmt.Sprintf("%s %d", r.Kind, r.Index)
}

// IsZero reports whether r refers to the scene as a whole.
func (r Ref) IsZero() bool { return r.Kind == "" }
