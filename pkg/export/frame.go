// Package export packs sampled fields into binary frames for files and
// transport.
//
// A frame is little endian:
//
//	magic      "SGF1"
//	mode       uint8   (0 planar, 1 volumetric)
//	flags      uint8   (bit0 masked, bit1 index mode)
//	resolution 3×uint32
//	origin     3×float64
//	lengths    3×float64
//	count      uint32
//	samples    count × (float32 density, float32 dominant)
package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/chazu/sigfield/pkg/field"
	"github.com/chazu/sigfield/pkg/grid"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrBadFrame is returned for data that is not a well-formed frame.
var ErrBadFrame = errors.New("bad field frame")

// Magic opens every frame.
const Magic = "SGF1"

const (
	flagMasked = 1 << iota
	flagIndex
)

const headerSize = 4 + 1 + 1 + 3*4 + 6*8 + 4

// Frame is one sampled field plus the output mode it was produced for.
type Frame struct {
	Field     *grid.Field
	IndexMode bool
}

// Encode serializes fr. Samples are narrowed to float32.
func Encode(fr Frame) ([]byte, error) {
	f := fr.Field
	if f == nil {
		return nil, fmt.Errorf("%w: nil field", ErrBadFrame)
	}
	if len(f.Samples) != f.Spec.Len() {
		return nil, fmt.Errorf("%w: %d samples for %d cells", ErrBadFrame, len(f.Samples), f.Spec.Len())
	}

	buf := make([]byte, headerSize+8*len(f.Samples))
	copy(buf, Magic)
	buf[4] = byte(f.Spec.Mode)
	var flags byte
	if f.Spec.Masked {
		flags |= flagMasked
	}
	if fr.IndexMode {
		flags |= flagIndex
	}
	buf[5] = flags

	off := 6
	for _, r := range f.Spec.Resolution {
		binary.LittleEndian.PutUint32(buf[off:], uint32(r))
		off += 4
	}
	for _, v := range []float64{
		f.Spec.Origin.X, f.Spec.Origin.Y, f.Spec.Origin.Z,
		f.Spec.Lengths.X, f.Spec.Lengths.Y, f.Spec.Lengths.Z,
	} {
		binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
		off += 8
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(f.Samples)))
	off += 4

	for _, s := range f.Samples {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(s.Density)))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(s.Dominant)))
		off += 8
	}
	return buf, nil
}

// Decode parses a frame produced by Encode.
func Decode(data []byte) (Frame, error) {
	if len(data) < headerSize {
		return Frame{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrBadFrame, len(data))
	}
	if string(data[:4]) != Magic {
		return Frame{}, fmt.Errorf("%w: magic %q", ErrBadFrame, data[:4])
	}

	var spec grid.Spec
	switch grid.Mode(data[4]) {
	case grid.Planar, grid.Volumetric:
		spec.Mode = grid.Mode(data[4])
	default:
		return Frame{}, fmt.Errorf("%w: mode %d", ErrBadFrame, data[4])
	}
	flags := data[5]
	spec.Masked = flags&flagMasked != 0

	off := 6
	for i := range spec.Resolution {
		spec.Resolution[i] = int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	var vals [6]float64
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		off += 8
	}
	spec.Origin = v3.Vec{X: vals[0], Y: vals[1], Z: vals[2]}
	spec.Lengths = v3.Vec{X: vals[3], Y: vals[4], Z: vals[5]}
	if err := spec.Validate(); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}

	count := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	if count != spec.Len() {
		return Frame{}, fmt.Errorf("%w: %d samples for %d cells", ErrBadFrame, count, spec.Len())
	}
	if len(data)-off != 8*count {
		return Frame{}, fmt.Errorf("%w: payload is %d bytes, want %d", ErrBadFrame, len(data)-off, 8*count)
	}

	samples := make([]field.Sample, count)
	for i := range samples {
		samples[i] = field.Sample{
			Density:  float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))),
			Dominant: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))),
		}
		off += 8
	}
	return Frame{
		Field:     &grid.Field{Spec: spec, Samples: samples},
		IndexMode: flags&flagIndex != 0,
	}, nil
}
