package transform

import (
	"fmt"
	"math"
	"sort"

	"github.com/oonisim/ml-credit-risk/internal/table"
)

// BinSpec defines n ordered intervals by n+1 strictly increasing boundaries and n labels.
// Intervals are closed on the left; the last interval is also closed on the right.
type BinSpec struct {
	Boundaries []float64 `json:"boundaries" yaml:"boundaries"`
	Labels     []string  `json:"labels" yaml:"labels"`
}

// Validate checks the boundary and label sequences
func (b BinSpec) Validate() error {
	return b.validate("")
}

func (b BinSpec) validate(column string) error {
	if len(b.Boundaries) < 2 {
		return NewInvalidBoundaryError(StageDiscretize, column, fmt.Sprintf("need at least 2 boundaries, got %d", len(b.Boundaries)))
	}
	for i, v := range b.Boundaries {
		if math.IsNaN(v) {
			return NewInvalidBoundaryError(StageDiscretize, column, fmt.Sprintf("boundary %d is NaN", i))
		}
		if i > 0 && !(v > b.Boundaries[i-1]) {
			return NewInvalidBoundaryError(StageDiscretize, column,
				fmt.Sprintf("boundaries must be strictly increasing: %v follows %v", v, b.Boundaries[i-1]))
		}
	}
	if len(b.Labels) != len(b.Boundaries)-1 {
		return NewInvalidBoundaryError(StageDiscretize, column,
			fmt.Sprintf("%d boundaries need %d labels, got %d", len(b.Boundaries), len(b.Boundaries)-1, len(b.Labels)))
	}
	seen := make(map[string]bool, len(b.Labels))
	for _, l := range b.Labels {
		if l == "" {
			return NewInvalidBoundaryError(StageDiscretize, column, "labels must not be empty")
		}
		if seen[l] {
			return NewInvalidBoundaryError(StageDiscretize, column, fmt.Sprintf("label %q is repeated", l))
		}
		seen[l] = true
	}
	return nil
}

// Assign returns the label of the interval holding x.
// The second result is false when x is NaN or outside the outer boundaries.
func (b BinSpec) Assign(x float64) (string, bool) {
	n := len(b.Boundaries)
	if math.IsNaN(x) || n < 2 || x < b.Boundaries[0] || x > b.Boundaries[n-1] {
		return "", false
	}
	// first boundary strictly greater than x
	i := sort.Search(n, func(i int) bool { return b.Boundaries[i] > x })
	if i == n {
		// x equals the last boundary
		return b.Labels[n-2], true
	}
	return b.Labels[i-1], true
}

// DiscretizeConfig bins one numeric Source column into a new categorical Target column
type DiscretizeConfig struct {
	Source string  `json:"source" yaml:"source" validate:"required"`
	Target string  `json:"target" yaml:"target" validate:"required"`
	Bins   BinSpec `json:"bins" yaml:"bins"`
}

// Validate checks the bin specification and that Source and Target differ
func (c DiscretizeConfig) Validate() error {
	if err := c.Bins.validate(c.Source); err != nil {
		return err
	}
	if c.Source == c.Target {
		return NewDuplicateColumnError(StageDiscretize, c.Target, "bin target must differ from its source")
	}
	return nil
}

// BinReport describes how the rows of one discretization were assigned
type BinReport struct {
	Source         string         `json:"source"`
	Target         string         `json:"target"`
	Counts         map[string]int `json:"counts"`
	Unassigned     int            `json:"unassigned"`
	UnassignedRows []int          `json:"unassigned_rows,omitempty"`
}

// Discretize appends cfg.Target holding the bin label of each cfg.Source value.
// Missing, non-numeric and out-of-range values are left unassigned (missing) and
// counted in the report; they are not an error. Role lists are not touched.
func Discretize(t *table.Table, cfg DiscretizeConfig) (*table.Table, BinReport, error) {
	report := BinReport{Source: cfg.Source, Target: cfg.Target, Counts: make(map[string]int)}

	if err := cfg.Validate(); err != nil {
		return nil, report, err
	}
	src, ok := t.Column(cfg.Source)
	if !ok {
		return nil, report, NewColumnNotFoundError(StageDiscretize, cfg.Source)
	}
	if t.Has(cfg.Target) {
		return nil, report, NewDuplicateColumnError(StageDiscretize, cfg.Target, "bin target column already exists")
	}

	values := make([]table.Value, len(src.Values))
	for i, v := range src.Values {
		x, numeric := v.Float()
		if !numeric || v.Kind() == table.KindBool {
			values[i] = table.Missing()
			report.Unassigned++
			report.UnassignedRows = append(report.UnassignedRows, i)
			continue
		}
		label, ok := cfg.Bins.Assign(x)
		if !ok {
			values[i] = table.Missing()
			report.Unassigned++
			report.UnassignedRows = append(report.UnassignedRows, i)
			continue
		}
		values[i] = table.Text(label)
		report.Counts[label]++
	}

	out, err := t.WithColumns(table.Column{
		Name:   cfg.Target,
		Values: values,
		Levels: cloneStrings(cfg.Bins.Labels),
	})
	if err != nil {
		return nil, report, fromTableError(StageDiscretize, cfg.Target, err)
	}
	return out, report, nil
}
