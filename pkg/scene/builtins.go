package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/sigfield/pkg/field"
	"github.com/chazu/sigfield/pkg/geom"
	"github.com/chazu/sigfield/pkg/grid"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites scene source before passing it to zygomys:
//
//  1. :keyword -> "__kw_keyword" (string literal), so keywords need no
//     global bindings.
//  2. slab-penalty -> slab_penalty outside strings and comments, since
//     zygomys reads a hyphen inside an identifier as subtraction.
//  3. ; line comments -> // line comments.
//
// String literals are copied through untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is kebab-case, not minus.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpRef is returned by the forms that add an element to the scene.
type sexpRef struct {
	ref Ref
}

func (r *sexpRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %d)", r.ref.Kind, r.ref.Index)
}
func (r *sexpRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates keyword and positional arguments. A trailing keyword
// with no value is recorded as a flag bound to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
		i++
	}
	return result
}

// arg returns the value bound to keyword key, or the positional argument at
// pos when the keyword is absent. pos < 0 disables the positional fallback.
func (pa kwArgs) arg(key string, pos int) (zygo.Sexp, bool) {
	if v, ok := pa.kw[key]; ok {
		return v, true
	}
	if pos >= 0 && pos < len(pa.positional) {
		return pa.positional[pos], true
	}
	return nil, false
}

func (pa kwArgs) flag(key string) bool {
	_, ok := pa.kw[key]
	return ok
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected integer, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool accepts true/false, numbers (non-zero is true) and a bare keyword
// flag.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func vecArg(pa kwArgs, form, key string, pos int) (v3.Vec, error) {
	s, ok := pa.arg(key, pos)
	if !ok {
		return v3.Vec{}, fmt.Errorf("%s requires :%s", form, key)
	}
	v, err := toVec3(s)
	if err != nil {
		return v3.Vec{}, fmt.Errorf("%s: %s: %w", form, key, err)
	}
	return v, nil
}

func numArg(pa kwArgs, form, key string, pos int, def float64, required bool) (float64, error) {
	s, ok := pa.arg(key, pos)
	if !ok {
		if required {
			return 0, fmt.Errorf("%s requires :%s", form, key)
		}
		return def, nil
	}
	f, err := toFloat64(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", form, key, err)
	}
	return f, nil
}

func intArg(pa kwArgs, form, key string, def int) (int, error) {
	s, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	n, err := toInt(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", form, key, err)
	}
	return n, nil
}

func boolArg(pa kwArgs, form, key string, def bool) (bool, error) {
	s, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	b, err := toBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: %s: %w", form, key, err)
	}
	return b, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// DefaultPlaneResolution and DefaultVolumeResolution apply when a grid form
// omits its resolution.
const (
	DefaultPlaneResolution  = 64
	DefaultVolumeResolution = 32
)

// registerBuiltins installs the scene forms into env. Each form appends to d
// as it runs. Source must go through preprocessSource first so keywords
// reach the builtins as recognizable strings.
func registerBuiltins(env *zygo.Zlisp, d *Description) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (source (vec3 0 1.1 -4) 10)
	// (source :at (vec3 0 1.1 -4) :intensity 10)
	// -----------------------------------------------------------------------
	env.AddFunction("source", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pos, err := vecArg(pa, "source", "at", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		intensity, err := numArg(pa, "source", "intensity", 1, 0, true)
		if err != nil {
			return zygo.SexpNull, err
		}
		d.Scene.Sources = append(d.Scene.Sources, geom.Source{Position: pos, Intensity: intensity})
		return &sexpRef{ref: Ref{Kind: "source", Index: len(d.Scene.Sources) - 1}}, nil
	})

	// -----------------------------------------------------------------------
	// (box (vec3 -1 0 -1) (vec3 1 2.5 1))
	// (box :min (vec3 -1 0 -1) :max (vec3 1 2.5 1))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lo, err := vecArg(pa, "box", "min", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		hi, err := vecArg(pa, "box", "max", 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		d.Scene.Boxes = append(d.Scene.Boxes, geom.Box{Min: lo, Max: hi})
		return &sexpRef{ref: Ref{Kind: "box", Index: len(d.Scene.Boxes) - 1}}, nil
	})

	// -----------------------------------------------------------------------
	// (slab :min (vec3 -4 0 0) :max (vec3 4 2.5 0))
	// -----------------------------------------------------------------------
	env.AddFunction("slab", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lo, err := vecArg(pa, "slab", "min", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		hi, err := vecArg(pa, "slab", "max", 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		d.Scene.Slabs = append(d.Scene.Slabs, geom.Slab{Min: lo, Max: hi})
		return &sexpRef{ref: Ref{Kind: "slab", Index: len(d.Scene.Slabs) - 1}}, nil
	})

	// -----------------------------------------------------------------------
	// (plane :origin (vec3 -5 1 -5) :size-x 10 :size-z 10
	//        :width 128 :height 128 :masked false)
	// -----------------------------------------------------------------------
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		origin, err := vecArg(pa, "plane", "origin", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		sx, err := numArg(pa, "plane", "size-x", -1, 0, true)
		if err != nil {
			return zygo.SexpNull, err
		}
		sz, err := numArg(pa, "plane", "size-z", -1, 0, true)
		if err != nil {
			return zygo.SexpNull, err
		}
		w, err := intArg(pa, "plane", "width", DefaultPlaneResolution)
		if err != nil {
			return zygo.SexpNull, err
		}
		h, err := intArg(pa, "plane", "height", DefaultPlaneResolution)
		if err != nil {
			return zygo.SexpNull, err
		}
		masked, err := boolArg(pa, "plane", "masked", false)
		if err != nil {
			return zygo.SexpNull, err
		}
		spec := grid.NewPlanar(origin, sx, sz, w, h)
		spec.Masked = masked
		d.Grids = append(d.Grids, spec)
		return &sexpRef{ref: Ref{Kind: "grid", Index: len(d.Grids) - 1}}, nil
	})

	// -----------------------------------------------------------------------
	// (volume :min (vec3 -5 0 -5) :max (vec3 5 3 5) :resolution 32)
	// (volume :min ... :max ... :nx 64 :ny 16 :nz 64 :masked false)
	// -----------------------------------------------------------------------
	env.AddFunction("volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lo, err := vecArg(pa, "volume", "min", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		hi, err := vecArg(pa, "volume", "max", 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		n, err := intArg(pa, "volume", "resolution", DefaultVolumeResolution)
		if err != nil {
			return zygo.SexpNull, err
		}
		var res [3]int
		for i, key := range []string{"nx", "ny", "nz"} {
			if res[i], err = intArg(pa, "volume", key, n); err != nil {
				return zygo.SexpNull, err
			}
		}
		masked, err := boolArg(pa, "volume", "masked", true)
		if err != nil {
			return zygo.SexpNull, err
		}
		d.Grids = append(d.Grids, grid.Spec{
			Mode:       grid.Volumetric,
			Origin:     lo,
			Lengths:    hi.Sub(lo),
			Resolution: res,
			Masked:     masked,
		})
		return &sexpRef{ref: Ref{Kind: "grid", Index: len(d.Grids) - 1}}, nil
	})

	// -----------------------------------------------------------------------
	// (evaluator :index-mode true :slab-penalty 0.15 :wall-decay 0.2)
	// -----------------------------------------------------------------------
	env.AddFunction("evaluator", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		cfg := d.Config
		var err error
		if cfg.IndexMode, err = boolArg(pa, "evaluator", "index-mode", cfg.IndexMode); err != nil {
			return zygo.SexpNull, err
		}
		if cfg.SlabPenalty, err = numArg(pa, "evaluator", "slab-penalty", -1, cfg.SlabPenalty, false); err != nil {
			return zygo.SexpNull, err
		}
		if cfg.WallDecayFactor, err = numArg(pa, "evaluator", "wall-decay", -1, cfg.WallDecayFactor, false); err != nil {
			return zygo.SexpNull, err
		}
		d.Config = cfg
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (limits :gpu)
	// (limits :sources 8 :boxes 32 :slabs 0)
	// -----------------------------------------------------------------------
	env.AddFunction("limits", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lim := d.Limits
		switch {
		case pa.flag("gpu"):
			lim = field.GPULimits
		case pa.flag("unbounded"):
			lim = field.Unbounded
		}
		var err error
		if lim.MaxSources, err = intArg(pa, "limits", "sources", lim.MaxSources); err != nil {
			return zygo.SexpNull, err
		}
		if lim.MaxBoxes, err = intArg(pa, "limits", "boxes", lim.MaxBoxes); err != nil {
			return zygo.SexpNull, err
		}
		if lim.MaxSlabs, err = intArg(pa, "limits", "slabs", lim.MaxSlabs); err != nil {
			return zygo.SexpNull, err
		}
		d.Limits = lim
		return zygo.SexpNull, nil
	})
}
