// Package imputer fills or drops non-finite sensor readings before training.
package imputer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrNotFitted is returned by Transform on a Rolling imputer that was never fitted.
var ErrNotFitted = errors.New("imputer: not fitted")

// Imputer learns column statistics from training data and repairs a matrix.
// Transform never modifies its argument.
type Imputer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (*mat.Dense, error)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// NaNRemoval drops rows in which no value is finite.
type NaNRemoval struct{}

func (NaNRemoval) Fit(mat.Matrix) error { return nil }

// Keep marks the rows holding at least one finite value.
func (NaNRemoval) Keep(X mat.Matrix) []bool {
	r, c := X.Dims()
	keep := make([]bool, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if finite(X.At(i, j)) {
				keep[i] = true
				break
			}
		}
	}
	return keep
}

func (n NaNRemoval) Transform(X mat.Matrix) (*mat.Dense, error) {
	keep := n.Keep(X)
	_, c := X.Dims()
	var rows [][]float64
	for i, k := range keep {
		if k {
			rows = append(rows, mat.Row(nil, i, X))
		}
	}
	if len(rows) == 0 || c == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		out.SetRow(i, row)
	}
	return out, nil
}

// Aggregate reduces the finite values of a window to one replacement.
type Aggregate func(values []float64) float64

// Mean is the arithmetic mean of the window.
func Mean(values []float64) float64 { return stat.Mean(values, nil) }

// Median is the midpoint of the sorted window, averaging the two central
// values when the window is even. Neither stat.Quantile rule averages the
// central pair, so the midpoint is taken here.
func Median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Rolling replaces each non-finite cell with Agg over the finite values of
// rows [r-Window, r+Window) in the same column. Cells are visited in row
// order and repaired values feed later windows. When a window has no finite
// value the column default learned by Fit is used.
type Rolling struct {
	Window int
	Agg    Aggregate

	defaults []float64
}

// NewRollingMean returns a Rolling imputer aggregating with Mean.
func NewRollingMean(window int) *Rolling { return &Rolling{Window: window, Agg: Mean} }

// NewRollingMedian returns a Rolling imputer aggregating with Median.
func NewRollingMedian(window int) *Rolling { return &Rolling{Window: window, Agg: Median} }

// Fit stores the mean of the finite values of each column, 0 when none.
func (ri *Rolling) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	ri.defaults = make([]float64, c)
	col := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		col = col[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); finite(v) {
				col = append(col, v)
			}
		}
		if len(col) > 0 {
			ri.defaults[j] = floats.Sum(col) / float64(len(col))
		}
	}
	return nil
}

// Defaults returns the fitted per-column fallback values.
func (ri *Rolling) Defaults() []float64 { return append([]float64(nil), ri.defaults...) }

func (ri *Rolling) Transform(X mat.Matrix) (*mat.Dense, error) {
	if ri.defaults == nil {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if c != len(ri.defaults) {
		return nil, mat.ErrShape
	}
	if r == 0 || c == 0 {
		return &mat.Dense{}, nil
	}
	agg := ri.Agg
	if agg == nil {
		agg = Mean
	}

	out := mat.DenseCopyOf(X)
	window := make([]float64, 0, 2*ri.Window)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if finite(out.At(i, j)) {
				continue
			}
			lo, hi := max(i-ri.Window, 0), min(i+ri.Window, r)
			window = window[:0]
			for k := lo; k < hi; k++ {
				if v := out.At(k, j); finite(v) {
					window = append(window, v)
				}
			}
			v := ri.defaults[j]
			if len(window) > 0 {
				if a := agg(window); finite(a) {
					v = a
				}
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// ForwardFill copies the last non-NaN value down each column. Leading gaps
// have nothing to copy and stay as they are.
type ForwardFill struct{}

func (ForwardFill) Fit(mat.Matrix) error { return nil }

func (ForwardFill) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.DenseCopyOf(X)
	for j := 0; j < c; j++ {
		last, seen := 0.0, false
		for i := 0; i < r; i++ {
			v := out.At(i, j)
			if !math.IsNaN(v) {
				last, seen = v, true
				continue
			}
			if seen {
				out.Set(i, j, last)
			}
		}
	}
	return out, nil
}

// Parse builds an imputer by name: "nan", "mean", "median" or "ffill".
// window only applies to the rolling kinds.
func Parse(kind string, window int) (Imputer, error) {
	switch kind {
	case "nan":
		return NaNRemoval{}, nil
	case "mean":
		return NewRollingMean(window), nil
	case "median":
		return NewRollingMedian(window), nil
	case "ffill":
		return ForwardFill{}, nil
	}
	return nil, fmt.Errorf("imputer: unknown kind %q", kind)
}
