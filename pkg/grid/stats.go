package grid

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the densities of the unmasked cells of a field.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Median float64 `json:"median"`
}

// Summarize computes Stats over the densities of the cells that were
// evaluated. Masked cells are skipped. An empty field yields zero Stats.
func (f *Field) Summarize() Stats {
	vals := f.evaluated()
	return Summarize(vals)
}

// Summarize computes Stats for vals.
func Summarize(vals []float64) Stats {
	if len(vals) == 0 {
		return Stats{}
	}
	st := Stats{
		Count: len(vals),
		Min:   floats.Min(vals),
		Max:   floats.Max(vals),
	}
	if len(vals) == 1 {
		st.Mean = vals[0]
		st.Median = vals[0]
		return st
	}
	st.Mean, st.StdDev = stat.MeanStdDev(vals, nil)

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	st.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return st
}

// Coverage returns the fraction of evaluated cells whose density is at
// least threshold.
func (f *Field) Coverage(threshold float64) float64 {
	vals := f.evaluated()
	if len(vals) == 0 {
		return 0
	}
	n := 0
	for _, v := range vals {
		if v >= threshold {
			n++
		}
	}
	return float64(n) / float64(len(vals))
}

// SourceShare returns, per source index, the fraction of evaluated cells
// that source dominates. Cells where no source beat the baseline are not
// counted.
func (f *Field) SourceShare(sourceCount int) []float64 {
	share := make([]float64, sourceCount)
	if sourceCount == 0 {
		return share
	}
	total := 0
	for i, s := range f.Samples {
		if f.Spec.MaskedCell(f.Spec.Cell(i)) {
			continue
		}
		total++
		if s.Dominant >= 1 {
			continue
		}
		idx := int(s.Dominant*float64(sourceCount) + 0.5)
		if idx >= 0 && idx < sourceCount {
			share[idx]++
		}
	}
	if total > 0 {
		floats.Scale(1/float64(total), share)
	}
	return share
}

func (f *Field) evaluated() []float64 {
	vals := make([]float64, 0, len(f.Samples))
	for i, s := range f.Samples {
		if f.Spec.MaskedCell(f.Spec.Cell(i)) {
			continue
		}
		vals = append(vals, s.Density)
	}
	return vals
}
