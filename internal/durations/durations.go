// Package durations summarizes and plots run-to-failure cycle lengths.
package durations

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series is one labelled list of life durations, usually one dataset split.
type Series struct {
	Label  string
	Values []float64
}

// Summary describes a duration list. Every statistic is NaN when Count is zero.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func Summarize(values []float64) Summary {
	if len(values) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, Median: nan, Q1: nan, Q3: nan, Min: nan, Max: nan}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Summary{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: Quantile(sorted, 0.5),
		Q1:     Quantile(sorted, 0.25),
		Q3:     Quantile(sorted, 0.75),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
	}
}

// Quantile interpolates linearly between the closest ranks of an ascending
// slice, placing p=0 on the first value and p=1 on the last.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}

// Transform maps fn over values, returning a new slice.
func Transform(values []float64, fn func(float64) float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = fn(v)
	}
	return out
}

// Below keeps the values strictly lower than threshold.
func Below(values []float64, threshold float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v < threshold {
			out = append(out, v)
		}
	}
	return out
}

// Bin is one histogram bucket covering [Lo, Hi); the last bucket includes Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram splits the range of values into n equal-width bins. A constant
// list is centred in a range of width one.
func Histogram(values []float64, n int) []Bin {
	if len(values) == 0 || n <= 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := floats.Span(make([]float64, n+1), lo, hi)
	edges := append([]float64(nil), dividers...)
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lo: edges[i], Hi: edges[i+1], Count: int(counts[i])}
	}
	return bins
}
