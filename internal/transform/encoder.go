package transform

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/oonisim/ml-credit-risk/internal/table"
)

// EmptyPolicy decides what the encoder does with a column that has no
// non-missing values. A column with declared Levels is always dropped: it is
// a discretizer output whose values all fell outside the bins.
type EmptyPolicy string

const (
	// EmptyReject fails with an empty_categorical_column error
	EmptyReject EmptyPolicy = "reject"
	// EmptyDrop removes the column without emitting indicators and records it
	EmptyDrop EmptyPolicy = "drop"
)

// EncodeConfig names the categorical columns to one-hot encode
type EncodeConfig struct {
	Columns     []string    `json:"columns" yaml:"columns"`
	EmptyPolicy EmptyPolicy `json:"empty_policy,omitempty" yaml:"empty_policy" validate:"omitempty,oneof=reject drop"`
}

// MarshalYAML leaves out a nil Columns list so that reading the document
// back still selects every categorical column
func (c EncodeConfig) MarshalYAML() (interface{}, error) {
	out := struct {
		Columns     *[]string   `yaml:"columns,omitempty"`
		EmptyPolicy EmptyPolicy `yaml:"empty_policy,omitempty"`
	}{EmptyPolicy: c.EmptyPolicy}
	if c.Columns != nil {
		out.Columns = &c.Columns
	}
	return out, nil
}

// EncodedColumn lists the indicator columns generated for one source column.
// Categories[i] is the category behind Columns[i].
type EncodedColumn struct {
	Source     string   `json:"source"`
	Categories []string `json:"categories"`
	Columns    []string `json:"columns"`
}

// EncodingManifest describes every column generated by one Encode call
type EncodingManifest struct {
	Encoded []EncodedColumn `json:"encoded"`
	Dropped []string        `json:"dropped,omitempty"`
}

// Columns returns all generated indicator names in output order
func (m EncodingManifest) Columns() []string {
	var out []string
	for _, e := range m.Encoded {
		out = append(out, e.Columns...)
	}
	return out
}

// Sources returns the names of the encoded source columns, including dropped ones
func (m EncodingManifest) Sources() []string {
	out := make([]string, 0, len(m.Encoded)+len(m.Dropped))
	for _, e := range m.Encoded {
		out = append(out, e.Source)
	}
	return append(out, m.Dropped...)
}

// Lookup returns the entry for a source column
func (m EncodingManifest) Lookup(source string) (EncodedColumn, bool) {
	for _, e := range m.Encoded {
		if e.Source == source {
			return e, true
		}
	}
	return EncodedColumn{}, false
}

// NormalizeName lower-cases s and replaces each whitespace character with '_'
func NormalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return unicode.ToLower(r)
	}, s)
}

// IndicatorName returns the indicator column name for a source column and category
func IndicatorName(source, category string) string {
	return NormalizeName(source + "_" + category)
}

// Encode replaces each configured column with one Number(1)/Number(0) indicator
// column per distinct observed value. Categories are compared by their text form.
// Indicators follow the column's declared Levels when it has them, otherwise
// numbers ascending then text in byte order. Indicators are appended after the
// remaining columns, grouped by source column in configuration order.
func Encode(t *table.Table, cfg EncodeConfig) (*table.Table, EncodingManifest, error) {
	var manifest EncodingManifest

	seenSource := make(map[string]bool, len(cfg.Columns))
	for _, name := range cfg.Columns {
		if !t.Has(name) {
			return nil, manifest, NewColumnNotFoundError(StageEncode, name)
		}
		if seenSource[name] {
			return nil, manifest, NewDuplicateColumnError(StageEncode, name, "column listed twice for encoding")
		}
		seenSource[name] = true
	}

	// names that survive encoding, used for collision checks
	taken := make(map[string]string)
	for _, name := range t.Names() {
		if !seenSource[name] {
			taken[name] = name
		}
	}

	var indicators []table.Column
	for _, name := range cfg.Columns {
		col, _ := t.Column(name)
		categories := observedCategories(col)

		if len(categories) == 0 {
			if cfg.EmptyPolicy == EmptyDrop || len(col.Levels) > 0 {
				manifest.Dropped = append(manifest.Dropped, name)
				continue
			}
			return nil, manifest, NewEmptyCategoricalColumnError(StageEncode, name)
		}

		entry := EncodedColumn{Source: name}
		for _, category := range categories {
			indicator := IndicatorName(name, category)
			if owner, exists := taken[indicator]; exists {
				return nil, manifest, NewDuplicateColumnError(StageEncode, indicator,
					fmt.Sprintf("indicator for %q=%q collides with %q", name, category, owner))
			}
			taken[indicator] = name + "=" + category

			values := make([]table.Value, len(col.Values))
			for i, v := range col.Values {
				if !v.IsMissing() && v.String() == category {
					values[i] = table.Number(1)
				} else {
					values[i] = table.Number(0)
				}
			}
			indicators = append(indicators, table.Column{Name: indicator, Values: values})
			entry.Categories = append(entry.Categories, category)
			entry.Columns = append(entry.Columns, indicator)
		}
		manifest.Encoded = append(manifest.Encoded, entry)
	}

	out := t
	if len(cfg.Columns) > 0 {
		var err error
		out, err = t.Drop(cfg.Columns...)
		if err != nil {
			return nil, manifest, fromTableError(StageEncode, "", err)
		}
	}
	out, err := out.WithColumns(indicators...)
	if err != nil {
		return nil, manifest, fromTableError(StageEncode, "", err)
	}
	return out, manifest, nil
}

type category struct {
	text    string
	num     float64
	numeric bool
}

// observedCategories returns the distinct non-missing categories of col in encoding order
func observedCategories(col table.Column) []string {
	seen := make(map[string]bool)
	var found []category
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		c := category{text: key}
		if v.Kind() == table.KindNumber {
			c.num, _ = v.Float()
			c.numeric = true
		}
		found = append(found, c)
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.numeric != b.numeric {
			return a.numeric
		}
		if a.numeric {
			return a.num < b.num
		}
		return a.text < b.text
	})

	out := make([]string, 0, len(found))
	if len(col.Levels) > 0 {
		for _, level := range col.Levels {
			if seen[level] {
				out = append(out, level)
				delete(seen, level)
			}
		}
	}
	for _, c := range found {
		if seen[c.text] {
			out = append(out, c.text)
		}
	}
	return out
}
