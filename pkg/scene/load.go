package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/sigfield/pkg/field"
	"github.com/chazu/sigfield/pkg/geom"
	"github.com/chazu/sigfield/pkg/grid"
)

// File is the JSON form of a scene. Vectors are objects with X, Y and Z
// keys, matched case-insensitively on input.
type File struct {
	Sources   []geom.Source `json:"sources"`
	Boxes     []geom.Box    `json:"boxes,omitempty"`
	Slabs     []geom.Slab   `json:"slabs,omitempty"`
	Evaluator *field.Config `json:"evaluator,omitempty"`
	Limits    *field.Limits `json:"limits,omitempty"`
	GPULimits bool          `json:"gpuLimits,omitempty"`
	Grids     []grid.Spec   `json:"grids,omitempty"`
}

// Description converts the file into a Description, filling defaults for
// omitted sections.
func (f *File) Description() *Description {
	d := NewDescription()
	d.Scene = geom.Scene{Sources: f.Sources, Boxes: f.Boxes, Slabs: f.Slabs}
	if f.Evaluator != nil {
		d.Config = *f.Evaluator
	}
	switch {
	case f.Limits != nil:
		d.Limits = *f.Limits
	case f.GPULimits:
		d.Limits = field.GPULimits
	}
	d.Grids = f.Grids
	return d
}

// FileFrom is the inverse of File.Description.
func FileFrom(d *Description) *File {
	cfg := d.Config
	lim := d.Limits
	return &File{
		Sources:   d.Scene.Sources,
		Boxes:     d.Scene.Boxes,
		Slabs:     d.Scene.Slabs,
		Evaluator: &cfg,
		Limits:    &lim,
		Grids:     d.Grids,
	}
}

// DecodeJSON reads a JSON scene. Unknown fields are rejected. Evaluator
// constants omitted from a partial "evaluator" object keep their defaults.
func DecodeJSON(r io.Reader) (*Description, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	cfg := field.DefaultConfig()
	f := File{Evaluator: &cfg}
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return f.Description(), nil
}

// EncodeJSON writes d as an indented JSON scene.
func EncodeJSON(w io.Writer, d *Description) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(FileFrom(d))
}

// LoadError is returned by Load when a DSL scene has user errors.
type LoadError struct {
	Path   string
	Errors []EvalError
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(msgs, "; "))
}

// Load reads a scene file. Files ending in .json are decoded as JSON;
// everything else is evaluated as a scene program.
func Load(eng *Engine, path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		d, err := DecodeJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return d, nil
	}
	d, evalErrs, err := eng.Evaluate(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		return nil, &LoadError{Path: path, Errors: evalErrs}
	}
	return d, nil
}
