package field

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSource is returned for a source whose intensity is not
	// strictly positive or whose position is not finite.
	ErrInvalidSource = errors.New("invalid source")
	// ErrCapacityExceeded is returned when a scene holds more sources or
	// obstacles than the configured Limits allow.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// Config selects between the evaluator variants that differ only in
// constants and output mode.
type Config struct {
	// IndexMode makes Sample.Value report the dominant source index
	// instead of the density.
	IndexMode bool `json:"indexMode,omitempty"`
	// SlabPenalty is the flat occluded length charged per slab crossed.
	SlabPenalty float64 `json:"slabPenalty"`
	// WallDecayFactor scales the occluded length subtracted from density.
	WallDecayFactor float64 `json:"wallDecayFactor"`
}

// DefaultConfig returns the density-mode configuration used by the
// reference renderer.
func DefaultConfig() Config {
	return Config{
		SlabPenalty:     0.15,
		WallDecayFactor: 0.2,
	}
}

// Limits caps scene sizes for backends with fixed-size uniform buffers.
// A zero field means unbounded.
type Limits struct {
	MaxSources int `json:"maxSources,omitempty"`
	MaxBoxes   int `json:"maxBoxes,omitempty"`
	MaxSlabs   int `json:"maxSlabs,omitempty"`
}

// GPULimits matches the fixed array sizes of the shader backend.
var GPULimits = Limits{MaxSources: 15, MaxBoxes: 50, MaxSlabs: 20}

// Unbounded imposes no caps.
var Unbounded = Limits{}

// Check returns ErrCapacityExceeded if any count is over its cap.
func (l Limits) Check(sources, boxes, slabs int) error {
	if l.MaxSources > 0 && sources > l.MaxSources {
		return fmt.Errorf("%w: %d sources, limit %d", ErrCapacityExceeded, sources, l.MaxSources)
	}
	if l.MaxBoxes > 0 && boxes > l.MaxBoxes {
		return fmt.Errorf("%w: %d boxes, limit %d", ErrCapacityExceeded, boxes, l.MaxBoxes)
	}
	if l.MaxSlabs > 0 && slabs > l.MaxSlabs {
		return fmt.Errorf("%w: %d slabs, limit %d", ErrCapacityExceeded, slabs, l.MaxSlabs)
	}
	return nil
}
