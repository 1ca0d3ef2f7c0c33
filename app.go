package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/chazu/sigfield/pkg/export"
	"github.com/chazu/sigfield/pkg/grid"
	"github.com/chazu/sigfield/pkg/heatmap"
	"github.com/chazu/sigfield/pkg/isosurface"
	"github.com/chazu/sigfield/pkg/scene"
)

// DefaultLevels are the densities volumetric grids are contoured at.
var DefaultLevels = []float64{0.5}

// App ties scene evaluation, sampling and the consumers together. Its
// Evaluate method is the single entry point used by the CLI and by tests.
type App struct {
	ctx       context.Context
	engine    *scene.Engine
	sampler   *grid.Sampler
	extractor isosurface.Extractor

	// Resolution is the planar resolution of the default grid used for
	// scenes that declare none.
	Resolution int
	// Levels are the iso-densities extracted from every volumetric grid.
	Levels []float64
}

// HeatmapData is one coloured planar grid.
type HeatmapData struct {
	Grid   int        `json:"grid"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	PNG    []byte     `json:"png"`
	Stats  grid.Stats `json:"stats"`
}

// MeshData is one iso-surface of a volumetric grid.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Grid     int       `json:"grid"`
	Level    float64   `json:"level"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating one scene.
type EvalResult struct {
	Heatmaps []HeatmapData  `json:"heatmaps"`
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`

	// Frames holds the sampled fields in grid order.
	Frames []export.Frame `json:"-"`
}

// NewApp creates an App sampling with the given number of workers (one per
// CPU when workers < 1) and extracting surfaces with marching cubes at cells
// resolution.
func NewApp(workers, cells int) *App {
	return &App{
		ctx:        context.Background(),
		engine:     scene.NewEngine(),
		sampler:    grid.NewSampler(workers),
		extractor:  isosurface.NewMarchingCubes(cells),
		Resolution: scene.DefaultPlaneResolution,
		Levels:     DefaultLevels,
	}
}

// startup replaces the context sampling runs under. Cancelling it stops an
// in-flight sweep.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

func newResult() EvalResult {
	return EvalResult{
		Heatmaps: []HeatmapData{},
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

// Evaluate takes a scene program and returns heatmaps, meshes and errors.
func (a *App) Evaluate(source string) EvalResult {
	result := newResult()

	// Step 1: Evaluate the program into a scene description.
	d, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	return a.Render(d)
}

// EvaluateFile loads a .sig or .json scene file and renders it.
func (a *App) EvaluateFile(path string) EvalResult {
	d, err := scene.Load(a.engine, path)
	if err != nil {
		result := newResult()
		var le *scene.LoadError
		if errors.As(err, &le) {
			for _, e := range le.Errors {
				result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
			}
			return result
		}
		log.Printf("Load %s: %v", path, err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	return a.Render(d)
}

// Render validates a description, samples its grids and hands each field to
// its consumer: planar grids become heatmaps, volumetric grids become
// iso-surfaces at every level.
func (a *App) Render(d *scene.Description) EvalResult {
	result := newResult()

	// Step 2: Validate. Warnings never block rendering.
	v := scene.Validate(d)
	for _, w := range v.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.String()})
	}
	if !v.OK() {
		for _, e := range v.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Message: e.Error()})
		}
		return result
	}

	ev, err := d.Evaluator()
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 3: Sample every grid.
	for i, spec := range d.Targets(a.Resolution) {
		f, err := a.sampler.Sample(a.ctx, spec, ev)
		if err != nil {
			log.Printf("Sample grid %d: %v", i, err)
			result.Errors = append(result.Errors, EvalErrorData{Message: fmt.Sprintf("grid %d: %v", i, err)})
			return result
		}
		result.Frames = append(result.Frames, export.Frame{Field: f, IndexMode: d.Config.IndexMode})

		// Step 4: Convert the field for its consumer.
		switch spec.Mode {
		case grid.Planar:
			hm, err := a.heatmap(i, f, d.Config.IndexMode, ev.SourceCount())
			if err != nil {
				result.Errors = append(result.Errors, EvalErrorData{Message: fmt.Sprintf("grid %d: %v", i, err)})
				return result
			}
			result.Heatmaps = append(result.Heatmaps, hm)
		case grid.Volumetric:
			meshes, err := isosurface.ExtractLevels(f, a.Levels, a.extractor)
			if err != nil {
				result.Warnings = append(result.Warnings, EvalErrorData{Message: fmt.Sprintf("grid %d: %v", i, err)})
				continue
			}
			for _, m := range meshes {
				result.Meshes = append(result.Meshes, MeshData{
					Vertices: m.Vertices,
					Normals:  m.Normals,
					Indices:  m.Indices,
					Grid:     i,
					Level:    m.Level,
					Color:    heatmap.Palette[len(result.Meshes)%len(heatmap.Palette)],
				})
			}
		}
	}
	return result
}

func (a *App) heatmap(i int, f *grid.Field, indexMode bool, sources int) (HeatmapData, error) {
	img, err := heatmap.Render(f, heatmap.Options{IndexMode: indexMode, Sources: sources})
	if err != nil {
		return HeatmapData{}, err
	}
	var buf bytes.Buffer
	if err := heatmap.Encode(&buf, img); err != nil {
		return HeatmapData{}, err
	}
	b := img.Bounds()
	return HeatmapData{
		Grid:   i,
		Width:  b.Dx(),
		Height: b.Dy(),
		PNG:    buf.Bytes(),
		Stats:  f.Summarize(),
	}, nil
}
