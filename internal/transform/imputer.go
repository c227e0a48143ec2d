package transform

import (
	"github.com/oonisim/ml-credit-risk/internal/table"
)

// DefaultSentinel is the category substituted for missing categorical values
const DefaultSentinel = "no_inf"

// ImputeConfig names the categorical columns to fill and the sentinel to fill them with.
// An empty Sentinel means DefaultSentinel.
type ImputeConfig struct {
	Columns  []string `json:"columns" yaml:"columns"`
	Sentinel string   `json:"sentinel,omitempty" yaml:"sentinel"`
}

// SentinelValue returns the effective sentinel
func (c ImputeConfig) SentinelValue() string {
	if c.Sentinel == "" {
		return DefaultSentinel
	}
	return c.Sentinel
}

// ImputeReport counts the filled cells per column
type ImputeReport struct {
	Sentinel string         `json:"sentinel"`
	Filled   map[string]int `json:"filled"`
}

// Impute replaces every missing value of the configured columns with the sentinel.
// Other columns and non-missing values are unchanged, so the operation is idempotent.
func Impute(t *table.Table, cfg ImputeConfig) (*table.Table, ImputeReport, error) {
	sentinel := cfg.SentinelValue()
	report := ImputeReport{Sentinel: sentinel, Filled: make(map[string]int)}

	for _, name := range cfg.Columns {
		if !t.Has(name) {
			return nil, report, NewColumnNotFoundError(StageImpute, name)
		}
	}

	out := t
	for _, name := range cfg.Columns {
		col, _ := out.Column(name)
		filled := 0
		for i, v := range col.Values {
			if v.IsMissing() {
				col.Values[i] = table.Text(sentinel)
				filled++
			}
		}
		report.Filled[name] = filled
		if filled == 0 {
			continue
		}
		if len(col.Levels) > 0 && !contains(col.Levels, sentinel) {
			col.Levels = append(col.Levels, sentinel)
		}

		var err error
		out, err = out.ReplaceColumn(col)
		if err != nil {
			return nil, report, fromTableError(StageImpute, name, err)
		}
	}
	return out, report, nil
}
