package imputer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/lucianolorenti/rul-pm/internal/domain"
)

// Matrix copies the named numeric columns of f into a rows x len(names) matrix.
// It returns nil for an empty selection since gonum has no zero-sized Dense.
func Matrix(f *domain.Frame, names []string) (*mat.Dense, error) {
	cols := make([][]float64, len(names))
	for j, name := range names {
		vals, ok := f.Num(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrMissingColumn, name)
		}
		cols[j] = vals
	}
	if f.Len() == 0 || len(names) == 0 {
		return nil, nil
	}
	out := mat.NewDense(f.Len(), len(names), nil)
	for j, vals := range cols {
		out.SetCol(j, vals)
	}
	return out, nil
}

// FeatureColumns lists the numeric channels of f other than the RUL target.
func FeatureColumns(f *domain.Frame) []string {
	var names []string
	for _, c := range f.Columns {
		if c.IsText() || c.Name == domain.RULColumn {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

// ApplyFrame fits imp on f's feature columns and returns a repaired copy. Row
// dropping imputers such as NaNRemoval filter every column, text included.
func ApplyFrame(f *domain.Frame, imp Imputer) (*domain.Frame, error) {
	names := FeatureColumns(f)
	X, err := Matrix(f, names)
	if err != nil {
		return nil, err
	}
	if X == nil {
		return f.Take(allRows(f.Len())), nil
	}

	if nr, ok := imp.(NaNRemoval); ok {
		return f.Filter(nr.Keep(X)), nil
	}

	if err := imp.Fit(X); err != nil {
		return nil, err
	}
	out, err := imp.Transform(X)
	if err != nil {
		return nil, err
	}

	res := f.Take(allRows(f.Len()))
	for j, name := range names {
		res.SetNum(name, mat.Col(nil, j, out))
	}
	return res, nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
