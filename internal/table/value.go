package table

import (
	"math"
	"strconv"
)

// Kind identifies the semantic type of a cell value
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
	KindBool
)

// String returns the lower-case name of the kind
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "missing"
	}
}

// Value is a single table cell. The zero Value is missing.
type Value struct {
	kind Kind
	num  float64
	text string
	flag bool
}

// Missing returns a missing value
func Missing() Value {
	return Value{}
}

// Number returns a numeric value. NaN is stored as a number but reports IsMissing.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Text returns a text (categorical) value
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Bool returns a boolean value
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// Kind returns the kind of the value
func (v Value) Kind() Kind {
	return v.kind
}

// IsMissing reports whether the value is absent or a NaN number
func (v Value) IsMissing() bool {
	if v.kind == KindMissing {
		return true
	}
	return v.kind == KindNumber && math.IsNaN(v.num)
}

// Float returns the numeric form of the value. Bools map to 1 and 0.
// The second result is false for text and missing values.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) {
			return 0, false
		}
		return v.num, true
	case KindBool:
		if v.flag {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Text returns the text of a text value
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// String returns the category form of the value. Missing values render as "".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) {
			return ""
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content.
// Two missing values are equal.
func (v Value) Equal(o Value) bool {
	if v.IsMissing() || o.IsMissing() {
		return v.IsMissing() && o.IsMissing()
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindBool:
		return v.flag == o.flag
	}
	return true
}
