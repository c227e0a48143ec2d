package table

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotNumeric is returned when a text value is found while building a matrix
	ErrNotNumeric = errors.New("column is not numeric")

	// ErrEmptyMatrix is returned when the requested matrix has no rows or columns
	ErrEmptyMatrix = errors.New("matrix would be empty")
)

// Matrix returns the named columns (all columns when none are given) as a dense
// row-major matrix. Bools become 1/0 and missing values become NaN.
func (t *Table) Matrix(names ...string) (*mat.Dense, []string, error) {
	if len(names) == 0 {
		names = t.Names()
	}
	if t.Rows() == 0 || len(names) == 0 {
		return nil, nil, ErrEmptyMatrix
	}

	data := make([]float64, t.rows*len(names))
	for j, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		for r, v := range t.columns[i].Values {
			if v.IsMissing() {
				data[r*len(names)+j] = math.NaN()
				continue
			}
			f, ok := v.Float()
			if !ok {
				return nil, nil, fmt.Errorf("%w: %q row %d holds %s", ErrNotNumeric, name, r, v.Kind())
			}
			data[r*len(names)+j] = f
		}
	}

	out := make([]string, len(names))
	copy(out, names)
	return mat.NewDense(t.rows, len(names), data), out, nil
}
