// Package grid samples a density field over regular planar and volumetric
// lattices.
package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/sigfield/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrInvalidGridSpec is returned before any sampling work when a Spec has a
// non-positive resolution or non-finite placement.
var ErrInvalidGridSpec = errors.New("invalid grid spec")

// Mode selects the lattice layout.
type Mode int

const (
	// Planar is a W×H grid of cell centres in the XZ plane at Origin.Y.
	Planar Mode = iota
	// Volumetric is an X×Y×Z lattice spanning the box inclusively.
	Volumetric
)

func (m Mode) String() string {
	switch m {
	case Planar:
		return "planar"
	case Volumetric:
		return "volumetric"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case Planar, Volumetric:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("unknown grid mode %d", int(m))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "planar", "plane", "2d":
		*m = Planar
	case "volumetric", "volume", "3d":
		*m = Volumetric
	default:
		return fmt.Errorf("unknown grid mode %q", string(b))
	}
	return nil
}

// Spec describes one lattice. For Planar grids Resolution[1] is ignored and
// Lengths.Y is unused.
type Spec struct {
	Mode       Mode   `json:"mode"`
	Origin     v3.Vec `json:"origin"`
	Lengths    v3.Vec `json:"lengths"`
	Resolution [3]int `json:"resolution"`
	// Masked forces cells within two lattice steps of any edge to zero.
	Masked bool `json:"masked,omitempty"`
}

// NewPlanar returns a planar spec of w×h cells covering sizeX×sizeZ from
// origin.
func NewPlanar(origin v3.Vec, sizeX, sizeZ float64, w, h int) Spec {
	return Spec{
		Mode:       Planar,
		Origin:     origin,
		Lengths:    v3.Vec{X: sizeX, Z: sizeZ},
		Resolution: [3]int{w, 1, h},
	}
}

// NewVolumetric returns a masked volumetric spec with n points per axis over
// the given box.
func NewVolumetric(bounds sdf.Box3, n int) Spec {
	return Spec{
		Mode:       Volumetric,
		Origin:     bounds.Min,
		Lengths:    bounds.Max.Sub(bounds.Min),
		Resolution: [3]int{n, n, n},
		Masked:     true,
	}
}

// MaxCells caps the number of cells in one grid.
const MaxCells = 1 << 26

// Validate reports ErrInvalidGridSpec for unusable specs.
func (s Spec) Validate() error {
	switch s.Mode {
	case Planar, Volumetric:
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidGridSpec, int(s.Mode))
	}
	nx, ny, nz := s.Dims()
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return fmt.Errorf("%w: resolution %dx%dx%d must be positive", ErrInvalidGridSpec, nx, ny, nz)
	}
	// Checked per factor so the product never overflows.
	if nx > MaxCells || ny > MaxCells/nx || nz > MaxCells/(nx*ny) {
		return fmt.Errorf("%w: resolution %dx%dx%d exceeds %d cells", ErrInvalidGridSpec, nx, ny, nz, MaxCells)
	}
	if !geom.Finite(s.Origin) || !geom.Finite(s.Lengths) {
		return fmt.Errorf("%w: origin %v lengths %v must be finite", ErrInvalidGridSpec, s.Origin, s.Lengths)
	}
	return nil
}

// Dims returns the effective resolution per axis. Planar grids have one
// layer.
func (s Spec) Dims() (nx, ny, nz int) {
	if s.Mode == Planar {
		return s.Resolution[0], 1, s.Resolution[2]
	}
	return s.Resolution[0], s.Resolution[1], s.Resolution[2]
}

// Len returns the number of cells.
func (s Spec) Len() int {
	nx, ny, nz := s.Dims()
	return nx * ny * nz
}

// Rows returns the number of contiguous x-runs in the enumeration order.
func (s Spec) Rows() int {
	_, ny, nz := s.Dims()
	return ny * nz
}

// Index returns the flat offset of cell (x, y, z): z*W+x for planar grids
// and (y*Nz+z)*Nx+x for volumetric ones.
func (s Spec) Index(x, y, z int) int {
	nx, _, nz := s.Dims()
	return (y*nz+z)*nx + x
}

// Cell is the inverse of Index.
func (s Spec) Cell(i int) (x, y, z int) {
	nx, _, nz := s.Dims()
	x = i % nx
	z = (i / nx) % nz
	y = i / (nx * nz)
	return x, y, z
}

// Point returns the world position sampled for cell (x, y, z).
func (s Spec) Point(x, y, z int) v3.Vec {
	nx, ny, nz := s.Dims()
	if s.Mode == Planar {
		return v3.Vec{
			X: s.Origin.X + (float64(x)+0.5)/float64(nx)*s.Lengths.X,
			Y: s.Origin.Y,
			Z: s.Origin.Z + (float64(z)+0.5)/float64(nz)*s.Lengths.Z,
		}
	}
	return v3.Vec{
		X: s.Origin.X + lattice(x, nx)*s.Lengths.X,
		Y: s.Origin.Y + lattice(y, ny)*s.Lengths.Y,
		Z: s.Origin.Z + lattice(z, nz)*s.Lengths.Z,
	}
}

func lattice(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

// MaskedCell reports whether cell (x, y, z) lies in the boundary band of a
// masked spec. Planar grids are masked on X and Z only.
func (s Spec) MaskedCell(x, y, z int) bool {
	if !s.Masked {
		return false
	}
	nx, ny, nz := s.Dims()
	if edge(x, nx) || edge(z, nz) {
		return true
	}
	return s.Mode == Volumetric && edge(y, ny)
}

func edge(i, n int) bool {
	return i <= 1 || i >= n-2
}

// Bounds returns the region covered by the lattice.
func (s Spec) Bounds() sdf.Box3 {
	return geom.Box{Min: s.Origin, Max: s.Origin.Add(s.Lengths)}.Bounds()
}
