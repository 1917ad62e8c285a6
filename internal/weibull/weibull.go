// Package weibull turns unconstrained network outputs into Weibull RUL
// distributions and scores them against right-censored observations.
package weibull

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInvalidSample = errors.New("weibull: observations must be finite and positive")
	ErrLength        = errors.New("weibull: mismatched input lengths")
)

// Regression picks the point estimate a head reports as RUL.
type Regression int

const (
	Mode Regression = iota
	Mean
	Median
)

func (r Regression) String() string {
	switch r {
	case Mode:
		return "mode"
	case Mean:
		return "mean"
	case Median:
		return "median"
	}
	return fmt.Sprintf("Regression(%d)", int(r))
}

func ParseRegression(s string) (Regression, error) {
	switch s {
	case "mode", "":
		return Mode, nil
	case "mean":
		return Mean, nil
	case "median":
		return Median, nil
	}
	return 0, fmt.Errorf("weibull: unknown regression %q", s)
}

// Params is a Weibull distribution with scale Lambda and shape K.
type Params struct {
	Lambda float64 `json:"lambda"`
	K      float64 `json:"k"`
}

// Softplus is log(1+e^x), evaluated without overflow for large x.
func Softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

// Activate maps raw outputs to valid parameters: λ = exp(zλ) and
// k = softplus(zk) + 1, so the shape is at least one. At k = 1 the mode is 0.
func Activate(zLambda, zK float64) Params {
	return Params{Lambda: math.Exp(zLambda), K: Softplus(zK) + 1}
}

func (p Params) Dist() distuv.Weibull {
	return distuv.Weibull{K: p.K, Lambda: p.Lambda}
}

// Mean is λΓ(1+1/k).
func (p Params) Mean() float64 { return p.Dist().Mean() }

// Median is λ(ln 2)^(1/k).
func (p Params) Median() float64 { return p.Dist().Median() }

// Mode is λ((k-1)/k)^(1/k) for k > 1 and zero otherwise.
func (p Params) Mode() float64 {
	if !(p.K > 1) {
		return 0
	}
	m := p.Lambda * math.Pow((p.K-1)/p.K, 1/p.K)
	if math.IsNaN(m) {
		return 0
	}
	return m
}

func (p Params) Predict(r Regression) float64 {
	switch r {
	case Mean:
		return p.Mean()
	case Median:
		return p.Median()
	default:
		return p.Mode()
	}
}

// NegLogLikelihood scores one RUL value. An observed failure contributes
// -log f(t); a censored one, where the unit was still running at t,
// contributes -log S(t) = (t/λ)^k.
func (p Params) NegLogLikelihood(t float64, observed bool) float64 {
	if observed {
		return -p.Dist().LogProb(t)
	}
	return -p.Dist().LogSurvival(t)
}

// Head applies the activations to batches of raw outputs and reports the
// chosen point estimate next to the parameters.
type Head struct {
	Regression Regression
}

func (h Head) Forward(zLambda, zK []float64) ([]float64, []Params, error) {
	if len(zLambda) != len(zK) {
		return nil, nil, ErrLength
	}
	rul := make([]float64, len(zLambda))
	params := make([]Params, len(zLambda))
	for i := range zLambda {
		params[i] = Activate(zLambda[i], zK[i])
		rul[i] = params[i].Predict(h.Regression)
	}
	return rul, params, nil
}

// Loss is the mean negative log-likelihood of a batch.
func Loss(params []Params, t []float64, observed []bool) (float64, error) {
	if len(params) != len(t) || len(t) != len(observed) {
		return 0, ErrLength
	}
	if len(t) == 0 {
		return 0, nil
	}
	terms := make([]float64, len(t))
	for i := range t {
		terms[i] = params[i].NegLogLikelihood(t[i], observed[i])
	}
	return floats.Sum(terms) / float64(len(terms)), nil
}

// Fit finds the single distribution maximizing the likelihood of t by
// Nelder-Mead over the raw outputs, so the result satisfies the same
// constraints as a trained head. observed may be nil when every value is a
// failure.
func Fit(t []float64, observed []bool) (Params, error) {
	if len(t) == 0 {
		return Params{}, ErrInvalidSample
	}
	if observed == nil {
		observed = make([]bool, len(t))
		for i := range observed {
			observed[i] = true
		}
	}
	if len(observed) != len(t) {
		return Params{}, ErrLength
	}
	for _, v := range t {
		if !(v > 0) || math.IsInf(v, 0) {
			return Params{}, ErrInvalidSample
		}
	}

	nll := func(x []float64) float64 {
		p := Activate(x[0], x[1])
		var sum float64
		for i, v := range t {
			sum += p.NegLogLikelihood(v, observed[i])
		}
		if math.IsNaN(sum) {
			return math.Inf(1)
		}
		return sum
	}

	x0 := []float64{math.Log(floats.Sum(t) / float64(len(t))), 0}
	res, err := optimize.Minimize(optimize.Problem{Func: nll}, x0, nil, &optimize.NelderMead{})
	if res == nil {
		return Params{}, fmt.Errorf("weibull fit: %w", err)
	}
	return Activate(res.X[0], res.X[1]), nil
}
