// Package query holds the per-life cleanup applied when a life is read back.
package query

import (
	"fmt"
	"math"

	"github.com/lucianolorenti/rul-pm/internal/domain"
)

// PostFilter keeps the rows recorded while the tool was running and whose
// usage counters advanced since the previous kept row.
type PostFilter struct {
	StatusColumn string
	StatusActive float64
	UsageColumns []string
}

// Apply returns a filtered copy of f. The status test and NaN removal run
// first, then each usage column in turn drops rows whose value did not change.
func (p PostFilter) Apply(f *domain.Frame) (*domain.Frame, error) {
	status, err := numColumn(f, p.StatusColumn)
	if err != nil {
		return nil, err
	}
	for _, name := range p.UsageColumns {
		if _, err := numColumn(f, name); err != nil {
			return nil, err
		}
	}

	keep := make([]bool, f.Len())
	for i, v := range status {
		keep[i] = v == p.StatusActive
	}
	out := f.Filter(keep).DropNA()

	for _, name := range p.UsageColumns {
		vals, _ := out.Num(name)
		out = out.Filter(changed(vals))
	}
	return out, nil
}

// changed marks the first row and every row that differs from its predecessor.
func changed(vals []float64) []bool {
	keep := make([]bool, len(vals))
	for i := range vals {
		keep[i] = i == 0 || vals[i]-vals[i-1] != 0 || math.IsNaN(vals[i]-vals[i-1])
	}
	return keep
}

func numColumn(f *domain.Frame, name string) ([]float64, error) {
	vals, ok := f.Num(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrMissingColumn, name)
	}
	return vals, nil
}

// CountdownRUL assigns (n-1-i)*step to row i, so the last row is zero.
func CountdownRUL(n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(n-1-i) * step
	}
	return out
}
