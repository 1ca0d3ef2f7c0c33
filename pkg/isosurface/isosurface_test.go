package isosurface

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/sigfield/pkg/field"
	"github.com/chazu/sigfield/pkg/geom"
	"github.com/chazu/sigfield/pkg/grid"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func vec(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }

// sampleSphere samples a single source at the origin over [-8,8]^3 with a
// one-unit lattice step.
func sampleSphere(t *testing.T) *grid.Field {
	t.Helper()
	sc := geom.Scene{Sources: []geom.Source{{Position: vec(0, 0, 0), Intensity: 4}}}
	ev, err := field.New(sc, field.DefaultConfig(), field.Unbounded)
	if err != nil {
		t.Fatal(err)
	}
	spec := grid.NewVolumetric(sdf.Box3{Min: vec(-8, -8, -8), Max: vec(8, 8, 8)}, 17)
	f, err := grid.Sample(context.Background(), spec, ev)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestVolumeDensityAtLatticePoints(t *testing.T) {
	f := sampleSphere(t)
	v, err := NewVolume(f, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range [][3]int{{8, 8, 8}, {9, 8, 8}, {5, 10, 7}, {0, 0, 0}, {16, 16, 16}} {
		p := f.Spec.Point(c[0], c[1], c[2])
		want := f.At(c[0], c[1], c[2]).Density
		if got := v.Density(p); math.Abs(got-want) > 1e-12 {
			t.Errorf("Density at lattice %v = %g, want %g", c, got, want)
		}
	}
	if got := v.Evaluate(vec(0, 0, 0)); math.Abs(got-(0.5-1)) > 1e-12 {
		t.Errorf("Evaluate at centre = %g, want -0.5", got)
	}
}

func TestVolumeInterpolates(t *testing.T) {
	f := sampleSphere(t)
	v, _ := NewVolume(f, 0.5)
	a := f.At(8, 8, 8).Density
	b := f.At(9, 8, 8).Density
	if got := v.Density(vec(0.25, 0, 0)); math.Abs(got-(a+(b-a)*0.25)) > 1e-12 {
		t.Errorf("Density(0.25,0,0) = %g", got)
	}
}

func TestVolumeOutsideReadsZero(t *testing.T) {
	f := sampleSphere(t)
	v, _ := NewVolume(f, 0.5)
	for _, p := range []v3.Vec{vec(9, 0, 0), vec(0, -8.5, 0), vec(0, 0, 100)} {
		if got := v.Evaluate(p); got != 0.5 {
			t.Errorf("Evaluate(%v) = %g, want level", p, got)
		}
	}
}

func TestNewVolumeRejects(t *testing.T) {
	planar := &grid.Field{Spec: grid.NewPlanar(vec(0, 0, 0), 1, 1, 4, 4)}
	if _, err := NewVolume(planar, 0.5); !errors.Is(err, ErrNotVolumetric) {
		t.Errorf("planar field: err = %v", err)
	}
	thin := &grid.Field{Spec: grid.Spec{Mode: grid.Volumetric, Lengths: vec(1, 1, 1), Resolution: [3]int{4, 1, 4}}}
	if _, err := NewVolume(thin, 0.5); !errors.Is(err, ErrNotVolumetric) {
		t.Errorf("single layer: err = %v", err)
	}
	if _, err := NewVolume(nil, 0.5); !errors.Is(err, ErrNotVolumetric) {
		t.Errorf("nil field: err = %v", err)
	}
}

func TestExtractSphere(t *testing.T) {
	f := sampleSphere(t)
	m, err := Extract(f, 0.5, NewMarchingCubes(32))
	if err != nil {
		t.Fatal(err)
	}
	if m.IsEmpty() || m.TriangleCount() == 0 {
		t.Fatal("expected a non-empty surface")
	}
	if m.Level != 0.5 {
		t.Errorf("Level = %g", m.Level)
	}
	if len(m.Vertices) != len(m.Normals) || len(m.Indices) != m.TriangleCount()*3 {
		t.Fatalf("inconsistent buffers: %d vertices, %d normals, %d indices",
			len(m.Vertices), len(m.Normals), len(m.Indices))
	}

	// decay(r, 4) = 0.5 at r = 4(sqrt 2 - 1) ~ 1.66.
	var sum float64
	for i := 0; i < len(m.Vertices); i += 3 {
		x, y, z := float64(m.Vertices[i]), float64(m.Vertices[i+1]), float64(m.Vertices[i+2])
		sum += math.Sqrt(x*x + y*y + z*z)
	}
	mean := sum / float64(m.VertexCount())
	if mean < 1.2 || mean > 2.2 {
		t.Errorf("mean vertex radius = %g, want near 1.66", mean)
	}

	lo, hi := m.Bounds()
	for a := 0; a < 3; a++ {
		if lo[a] < -7 || hi[a] > 7 {
			t.Errorf("surface reaches the masked boundary on axis %d: [%g, %g]", a, lo[a], hi[a])
		}
	}
}

func TestExtractAboveMaximumIsEmpty(t *testing.T) {
	f := sampleSphere(t)
	m, err := Extract(f, 2, NewMarchingCubes(16))
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsEmpty() {
		t.Errorf("expected empty mesh above the field maximum, got %d triangles", m.TriangleCount())
	}
}

func TestExtractLevels(t *testing.T) {
	f := sampleSphere(t)
	meshes, err := ExtractLevels(f, []float64{0.3, 0.7}, NewMarchingCubes(24))
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 {
		t.Fatalf("got %d meshes", len(meshes))
	}
	if meshes[0].Level != 0.3 || meshes[1].Level != 0.7 {
		t.Errorf("levels = %g, %g", meshes[0].Level, meshes[1].Level)
	}
	lo0, hi0 := meshes[0].Bounds()
	lo1, hi1 := meshes[1].Bounds()
	if !(hi0[0]-lo0[0] > hi1[0]-lo1[0]) {
		t.Errorf("lower level should enclose a larger region: %v..%v vs %v..%v", lo0, hi0, lo1, hi1)
	}

	planar := &grid.Field{Spec: grid.NewPlanar(vec(0, 0, 0), 1, 1, 2, 2)}
	if _, err := ExtractLevels(planar, []float64{0.5}, nil); !errors.Is(err, ErrNotVolumetric) {
		t.Errorf("err = %v", err)
	}
}

func TestMeshBoundsEmpty(t *testing.T) {
	lo, hi := (&Mesh{}).Bounds()
	if lo != [3]float32{} || hi != [3]float32{} {
		t.Errorf("empty bounds = %v %v", lo, hi)
	}
}
