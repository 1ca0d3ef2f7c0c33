package grid

import (
	"context"
	"runtime"
	"sync"

	"github.com/chazu/sigfield/pkg/field"
	"github.com/chazu/sigfield/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Evaluator is the per-point field function the sampler maps over a grid.
// *field.Evaluator satisfies it.
type Evaluator interface {
	Evaluate(p v3.Vec) field.Sample
}

// Sampler evaluates a field over every cell of a Spec using a fixed pool of
// workers. Rows (contiguous x-runs) are the unit of work and of
// cancellation.
type Sampler struct {
	Workers int
}

// NewSampler returns a sampler with the given worker count. A count below 1
// uses one worker per CPU.
func NewSampler(workers int) *Sampler {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Sampler{Workers: workers}
}

// Sample evaluates ev over spec. The spec is validated before any work
// starts. If ctx is cancelled mid-sweep the partial buffer is discarded and
// ctx.Err() is returned.
func (s *Sampler) Sample(ctx context.Context, spec Spec, ev Evaluator) (*Field, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]field.Sample, spec.Len())
	rows := spec.Rows()
	workers := s.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > rows {
		workers = rows
	}

	jobs := make(chan int, rows)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, jobs, spec, ev, out)
	}

produce:
	for r := 0; r < rows; r++ {
		select {
		case jobs <- r:
		case <-ctx.Done():
			break produce
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Field{Spec: spec, Samples: out}, nil
}

func (s *Sampler) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan int, spec Spec, ev Evaluator, out []field.Sample) {
	defer wg.Done()
	nx, _, nz := spec.Dims()
	for {
		select {
		case r, ok := <-jobs:
			if !ok {
				return
			}
			y, z := r/nz, r%nz
			base := r * nx
			for x := 0; x < nx; x++ {
				if spec.MaskedCell(x, y, z) {
					out[base+x] = field.Sample{Density: 0, Dominant: field.NoSource}
					continue
				}
				out[base+x] = ev.Evaluate(spec.Point(x, y, z))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sample evaluates ev over spec with one worker per CPU.
func Sample(ctx context.Context, spec Spec, ev Evaluator) (*Field, error) {
	return NewSampler(0).Sample(ctx, spec, ev)
}

// SampleScene validates sc, builds an evaluator and samples it over spec.
func SampleScene(ctx context.Context, spec Spec, sc geom.Scene, cfg field.Config, limits field.Limits) (*Field, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	ev, err := field.New(sc, cfg, limits)
	if err != nil {
		return nil, err
	}
	return Sample(ctx, spec, ev)
}
