package pipeline

import (
	"encoding/json"

	"gonum.org/v1/gonum/mat"

	"github.com/oonisim/ml-credit-risk/internal/table"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// Result is the output of one successful run
type Result struct {
	RunID     string
	Table     *table.Table
	Roles     transform.Roles
	Targets   []string
	Encodings transform.EncodingManifest
	Bins      []transform.BinReport
	Imputed   transform.ImputeReport
	Manifest  *RunManifest
}

// Matrix returns the numeric feature columns as a dense matrix, one row per
// table row, together with the column names in matrix order
func (r *Result) Matrix() (*mat.Dense, []string, error) {
	return r.Table.Matrix(r.Roles.Numeric()...)
}

// Unassigned returns the number of values left without a bin, per bin target
func (r *Result) Unassigned() map[string]int {
	out := make(map[string]int, len(r.Bins))
	for _, b := range r.Bins {
		out[b.Target] = b.Unassigned
	}
	return out
}

// Summary is the JSON form of a Result without the table data
type Summary struct {
	RunID      string                     `json:"run_id"`
	Rows       int                        `json:"rows"`
	Columns    []string                   `json:"columns"`
	Roles      transform.Roles            `json:"roles"`
	Targets    []string                   `json:"targets,omitempty"`
	Encodings  transform.EncodingManifest `json:"encodings"`
	Bins       []transform.BinReport      `json:"bins,omitempty"`
	Imputed    transform.ImputeReport     `json:"imputed"`
	Unassigned map[string]int             `json:"unassigned,omitempty"`
	Manifest   *RunManifest               `json:"manifest"`
}

// Summary returns the run metadata
func (r *Result) Summary() Summary {
	return Summary{
		RunID:      r.RunID,
		Rows:       r.Table.Rows(),
		Columns:    r.Table.Names(),
		Roles:      r.Roles,
		Targets:    r.Targets,
		Encodings:  r.Encodings,
		Bins:       r.Bins,
		Imputed:    r.Imputed,
		Unassigned: r.Unassigned(),
		Manifest:   r.Manifest,
	}
}

// MarshalJSON encodes the summary together with the table
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Summary
		Table *table.Table `json:"table"`
	}{
		Summary: r.Summary(),
		Table:   r.Table,
	})
}

// StageConform names errors raised by ConformTo
const StageConform = "conform"

// ConformTo returns a copy of r whose table has exactly the columns of ref, in
// ref's order, and ref's roles. Indicator columns that ref generated but r
// did not are filled with 0. A missing non-indicator column, or a column ref
// does not have, is a column_not_found error.
func (r *Result) ConformTo(ref *Result) (*Result, error) {
	indicators := make(map[string]bool)
	for _, name := range ref.Encodings.Columns() {
		indicators[name] = true
	}

	for _, name := range r.Table.Names() {
		if !ref.Table.Has(name) {
			return nil, &transform.Error{
				Kind:    transform.KindColumnNotFound,
				Stage:   StageConform,
				Column:  name,
				Message: "column is not in the reference schema",
			}
		}
	}

	columns := make([]table.Column, 0, ref.Table.Width())
	for _, name := range ref.Table.Names() {
		if col, ok := r.Table.Column(name); ok {
			columns = append(columns, col)
			continue
		}
		if !indicators[name] {
			return nil, transform.NewColumnNotFoundError(StageConform, name)
		}
		zeros := make([]table.Value, r.Table.Rows())
		for i := range zeros {
			zeros[i] = table.Number(0)
		}
		columns = append(columns, table.Column{Name: name, Values: zeros})
	}

	t, err := table.New(columns...)
	if err != nil {
		return nil, err
	}

	out := *r
	out.Table = t
	out.Roles = ref.Roles
	out.Targets = append([]string(nil), ref.Targets...)
	return &out, nil
}
