package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/sigfield/pkg/field"
	"github.com/chazu/sigfield/pkg/geom"
	"github.com/chazu/sigfield/pkg/grid"
)

// ValidationSeverity indicates whether a validation finding blocks
// evaluation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks evaluation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single blocking finding.
type ValidationError struct {
	Ref      Ref
	Message  string
	Severity ValidationSeverity
	Err      error // sentinel from pkg/field or pkg/grid, if any
}

func (e ValidationError) Error() string {
	if e.Ref.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Ref, e.Message)
}

func (e ValidationError) Unwrap() error { return e.Err }

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Ref     Ref
	Message string
}

func (w ValidationWarning) String() string {
	if w.Ref.IsZero() {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Ref, w.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err joins the blocking errors into one error, or returns nil.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Validate checks a description without modifying it. Errors cover
// everything the evaluator or sampler would reject; warnings cover input the
// evaluator silently normalizes or that is probably a mistake.
func Validate(d *Description) ValidationResult {
	var r ValidationResult
	r.Errors = append(r.Errors, validateSources(d.Scene)...)
	r.Errors = append(r.Errors, validateObstacles(d.Scene)...)
	r.Errors = append(r.Errors, validateCapacity(d)...)
	r.Errors = append(r.Errors, validateGrids(d)...)
	r.Errors = append(r.Errors, validateConfig(d)...)

	r.Warnings = append(r.Warnings, warnBoxes(d.Scene)...)
	r.Warnings = append(r.Warnings, warnSlabs(d.Scene)...)
	r.Warnings = append(r.Warnings, warnSourcesInside(d.Scene)...)
	if len(d.Scene.Sources) == 0 {
		r.Warnings = append(r.Warnings, ValidationWarning{Message: "scene has no sources; every cell reads the baseline density"})
	}
	return r
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func validateSources(sc geom.Scene) []ValidationError {
	var errs []ValidationError
	for i, s := range sc.Sources {
		ref := Ref{Kind: "source", Index: i}
		if !geom.Finite(s.Position) {
			errs = append(errs, ValidationError{
				Ref:      ref,
				Message:  fmt.Sprintf("position %v is not finite", s.Position),
				Severity: SeverityError,
				Err:      field.ErrInvalidSource,
			})
		}
		if !(s.Intensity > 0) || math.IsInf(s.Intensity, 0) {
			errs = append(errs, ValidationError{
				Ref:      ref,
				Message:  fmt.Sprintf("intensity is %g, must be positive and finite", s.Intensity),
				Severity: SeverityError,
				Err:      field.ErrInvalidSource,
			})
		}
	}
	return errs
}

func validateObstacles(sc geom.Scene) []ValidationError {
	var errs []ValidationError
	for i, b := range sc.Boxes {
		if !geom.Finite(b.Min) || !geom.Finite(b.Max) {
			errs = append(errs, ValidationError{
				Ref:      Ref{Kind: "box", Index: i},
				Message:  "corners are not finite",
				Severity: SeverityError,
				Err:      field.ErrInvalidObstacle,
			})
		}
	}
	for i, s := range sc.Slabs {
		if !geom.Finite(s.Min) || !geom.Finite(s.Max) {
			errs = append(errs, ValidationError{
				Ref:      Ref{Kind: "slab", Index: i},
				Message:  "corners are not finite",
				Severity: SeverityError,
				Err:      field.ErrInvalidObstacle,
			})
		}
	}
	return errs
}

func validateCapacity(d *Description) []ValidationError {
	if err := d.Limits.Check(len(d.Scene.Sources), len(d.Scene.Boxes), len(d.Scene.Slabs)); err != nil {
		return []ValidationError{{
			Message:  err.Error(),
			Severity: SeverityError,
			Err:      field.ErrCapacityExceeded,
		}}
	}
	return nil
}

func validateGrids(d *Description) []ValidationError {
	var errs []ValidationError
	for i, g := range d.Grids {
		if err := g.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Ref:      Ref{Kind: "grid", Index: i},
				Message:  err.Error(),
				Severity: SeverityError,
				Err:      grid.ErrInvalidGridSpec,
			})
		}
	}
	return errs
}

func validateConfig(d *Description) []ValidationError {
	var errs []ValidationError
	c := d.Config
	if c.SlabPenalty < 0 || math.IsNaN(c.SlabPenalty) || math.IsInf(c.SlabPenalty, 0) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("slab penalty is %g, must be a non-negative number", c.SlabPenalty),
			Severity: SeverityError,
		})
	}
	if c.WallDecayFactor < 0 || math.IsNaN(c.WallDecayFactor) || math.IsInf(c.WallDecayFactor, 0) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("wall decay factor is %g, must be a non-negative number", c.WallDecayFactor),
			Severity: SeverityError,
		})
	}
	return errs
}

// ---------------------------------------------------------------------------
// Warnings
// ---------------------------------------------------------------------------

func warnBoxes(sc geom.Scene) []ValidationWarning {
	var warnings []ValidationWarning
	for i, b := range sc.Boxes {
		ref := Ref{Kind: "box", Index: i}
		_, swapped := b.Normalized()
		for _, a := range swapped {
			warnings = append(warnings, ValidationWarning{
				Ref:     ref,
				Message: fmt.Sprintf("min/max swapped on axis %s", a),
			})
		}
	}
	return warnings
}

func warnSlabs(sc geom.Scene) []ValidationWarning {
	var warnings []ValidationWarning
	for i, s := range sc.Slabs {
		ref := Ref{Kind: "slab", Index: i}
		if _, swapped := s.Normalized(); swapped {
			warnings = append(warnings, ValidationWarning{
				Ref:     ref,
				Message: "endpoints given top first; treated as the same rectangle",
			})
		}
		if geom.Finite(s.Min) && geom.Finite(s.Max) && s.Area() == 0 {
			warnings = append(warnings, ValidationWarning{
				Ref:     ref,
				Message: "slab has zero area and never occludes",
			})
		}
	}
	return warnings
}

func warnSourcesInside(sc geom.Scene) []ValidationWarning {
	var warnings []ValidationWarning
	for i, s := range sc.Sources {
		for j, b := range sc.Boxes {
			if b.Contains(s.Position) {
				warnings = append(warnings, ValidationWarning{
					Ref:     Ref{Kind: "source", Index: i},
					Message: fmt.Sprintf("source lies inside box %d", j),
				})
			}
		}
	}
	return warnings
}
