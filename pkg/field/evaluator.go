package field

import (
	"errors"
	"fmt"

	"github.com/chazu/sigfield/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrInvalidObstacle is returned for a box or slab with non-finite corners.
var ErrInvalidObstacle = errors.New("invalid obstacle")

// Sample is the field value at one point.
type Sample struct {
	Density  float64
	Dominant float64 // index of the dominant source divided by the source count
}

// Value returns the dominant index in index mode and the density otherwise.
func (s Sample) Value(indexMode bool) float64 {
	if indexMode {
		return s.Dominant
	}
	return s.Density
}

// Evaluator holds a validated, normalized copy of a scene. It has no mutable
// state after construction and is safe for concurrent use.
type Evaluator struct {
	cfg     Config
	sources []geom.Source
	boxes   []geom.Box
	slabs   [][2][3]v3.Vec
}

// New validates the scene against the limits and prepares it for
// evaluation. Boxes are normalized per axis and reversed slabs are flipped as
// a pair; the caller's scene is not modified.
func New(sc geom.Scene, cfg Config, limits Limits) (*Evaluator, error) {
	if err := limits.Check(len(sc.Sources), len(sc.Boxes), len(sc.Slabs)); err != nil {
		return nil, err
	}

	e := &Evaluator{
		cfg:     cfg,
		sources: make([]geom.Source, len(sc.Sources)),
		boxes:   make([]geom.Box, len(sc.Boxes)),
		slabs:   make([][2][3]v3.Vec, len(sc.Slabs)),
	}
	for i, s := range sc.Sources {
		if !s.Valid() {
			return nil, fmt.Errorf("%w: source %d has intensity %g at %v", ErrInvalidSource, i, s.Intensity, s.Position)
		}
		e.sources[i] = s
	}
	for i, b := range sc.Boxes {
		if !geom.Finite(b.Min) || !geom.Finite(b.Max) {
			return nil, fmt.Errorf("%w: box %d has non-finite corners", ErrInvalidObstacle, i)
		}
		e.boxes[i], _ = b.Normalized()
	}
	for i, s := range sc.Slabs {
		if !geom.Finite(s.Min) || !geom.Finite(s.Max) {
			return nil, fmt.Errorf("%w: slab %d has non-finite corners", ErrInvalidObstacle, i)
		}
		n, _ := s.Normalized()
		e.slabs[i] = n.Triangles()
	}
	return e, nil
}

// Config returns the configuration the evaluator was built with.
func (e *Evaluator) Config() Config { return e.cfg }

// SourceCount returns the number of sources.
func (e *Evaluator) SourceCount() int { return len(e.sources) }

// OccludedLength returns the occluded path length between the source at
// index i and p, and the straight-line distance between them.
func (e *Evaluator) OccludedLength(p v3.Vec, i int) (occluded, distance float64) {
	origin := e.sources[i].Position
	diff := p.Sub(origin)
	distance = diff.Length()
	if distance == 0 {
		return 0, 0
	}
	dir := diff.MulScalar(1 / distance)

	for _, b := range e.boxes {
		tNear, tFar := geom.IntersectAABB(origin, dir, b.Min, b.Max)
		if tNear <= tFar && tNear >= 0 && tNear < distance-geom.Tolerance {
			occluded += tFar - tNear
		}
	}
	for _, tris := range e.slabs {
		if geom.IntersectTriangle(origin, dir, tris[0][0], tris[0][1], tris[0][2], distance) ||
			geom.IntersectTriangle(origin, dir, tris[1][0], tris[1][1], tris[1][2], distance) {
			occluded += e.cfg.SlabPenalty
		}
	}
	return occluded, distance
}

// Contribution returns the density source i alone produces at p.
func (e *Evaluator) Contribution(p v3.Vec, i int) float64 {
	occluded, distance := e.OccludedLength(p, i)
	return Decay(distance-occluded, e.sources[i].Intensity) - WallPenalty(occluded, e.cfg.WallDecayFactor)
}

// Evaluate returns the maximum density over all sources at p and the
// normalized index of the source that produced it. Ties keep the earlier
// source. With no sources the result is {Baseline, NoSource}.
func (e *Evaluator) Evaluate(p v3.Vec) Sample {
	out := Sample{Density: Baseline, Dominant: NoSource}
	n := float64(len(e.sources))
	for i := range e.sources {
		d := e.Contribution(p, i)
		if d > out.Density {
			out.Density = d
			out.Dominant = float64(i) / n
		}
	}
	return out
}

// Evaluate is a convenience wrapper building a throwaway evaluator with
// unbounded limits.
func Evaluate(p v3.Vec, sc geom.Scene, cfg Config) (Sample, error) {
	e, err := New(sc, cfg, Unbounded)
	if err != nil {
		return Sample{}, err
	}
	return e.Evaluate(p), nil
}
