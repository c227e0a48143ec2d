package table

import (
	"encoding/json"
	"fmt"
	"math"
)

// MarshalJSON encodes numbers and bools natively, text as strings and
// missing or non-finite values as null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes null, number, string and bool literals
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Missing()
	case float64:
		*v = Number(x)
	case string:
		*v = Text(x)
	case bool:
		*v = Bool(x)
	default:
		return fmt.Errorf("unsupported cell value %s", string(data))
	}
	return nil
}

type jsonColumn struct {
	Name   string   `json:"name"`
	Values []Value  `json:"values"`
	Levels []string `json:"levels,omitempty"`
}

type jsonTable struct {
	Columns []jsonColumn `json:"columns"`
}

// MarshalJSON encodes the table column by column
func (t *Table) MarshalJSON() ([]byte, error) {
	out := jsonTable{Columns: make([]jsonColumn, len(t.columns))}
	for i, c := range t.columns {
		values := c.Values
		if values == nil {
			values = []Value{}
		}
		out.Columns[i] = jsonColumn{Name: c.Name, Values: values, Levels: c.Levels}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a table and validates column names and lengths
func (t *Table) UnmarshalJSON(data []byte) error {
	var in jsonTable
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	cols := make([]Column, len(in.Columns))
	for i, c := range in.Columns {
		cols[i] = Column{Name: c.Name, Values: c.Values, Levels: c.Levels}
	}
	built, err := build(cols)
	if err != nil {
		return err
	}
	*t = *built
	return nil
}
