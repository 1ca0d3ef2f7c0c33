package isosurface

import (
	"fmt"

	"github.com/chazu/sigfield/pkg/grid"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// DefaultCells is the marching cubes resolution along the longest axis of
// the volume.
const DefaultCells = 64

// Extractor polygonizes the zero level set of an SDF.
type Extractor interface {
	Extract(s sdf.SDF3) *Mesh
}

// MarchingCubes is an Extractor backed by sdfx's uniform marching cubes.
type MarchingCubes struct {
	Cells int
}

// Compile-time interface check.
var _ Extractor = (*MarchingCubes)(nil)

// NewMarchingCubes returns an extractor with the given number of cells
// along the longest axis. A count below 1 uses DefaultCells.
func NewMarchingCubes(cells int) *MarchingCubes {
	if cells < 1 {
		cells = DefaultCells
	}
	return &MarchingCubes{Cells: cells}
}

// Extract converts s to a triangle mesh with flat per-face normals.
func (m *MarchingCubes) Extract(s sdf.SDF3) *Mesh {
	renderer := render.NewMarchingCubesUniform(m.Cells)
	triangles := render.ToTriangles(s, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}
}

// Extract returns the surface where the sampled density equals level. A nil
// extractor uses marching cubes at DefaultCells.
func Extract(f *grid.Field, level float64, ex Extractor) (*Mesh, error) {
	vol, err := NewVolume(f, level)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		ex = NewMarchingCubes(DefaultCells)
	}
	m := ex.Extract(vol)
	m.Level = level
	return m, nil
}

// ExtractLevels returns one mesh per level, in the order given.
func ExtractLevels(f *grid.Field, levels []float64, ex Extractor) ([]*Mesh, error) {
	meshes := make([]*Mesh, 0, len(levels))
	for _, level := range levels {
		m, err := Extract(f, level, ex)
		if err != nil {
			return nil, fmt.Errorf("isosurface: level %g: %w", level, err)
		}
		meshes = append(meshes, m)
	}
	return meshes, nil
}
