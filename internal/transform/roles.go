package transform

import (
	"encoding/json"

	"github.com/oonisim/ml-credit-risk/internal/table"
)

// Roles names which table columns are numeric and which are categorical.
// Roles is a value: every method returns a new Roles and never edits the receiver.
type Roles struct {
	numeric     []string
	categorical []string
}

// NewRoles creates role lists from copies of the given names.
// The lists must be free of duplicates and disjoint.
func NewRoles(numeric, categorical []string) (Roles, error) {
	r := Roles{
		numeric:     cloneStrings(numeric),
		categorical: cloneStrings(categorical),
	}
	if err := r.Validate(); err != nil {
		return Roles{}, err
	}
	return r, nil
}

// MustRoles is like NewRoles but panics on error
func MustRoles(numeric, categorical []string) Roles {
	r, err := NewRoles(numeric, categorical)
	if err != nil {
		panic(err)
	}
	return r
}

// Numeric returns a copy of the numeric column names
func (r Roles) Numeric() []string {
	return cloneStrings(r.numeric)
}

// Categorical returns a copy of the categorical column names
func (r Roles) Categorical() []string {
	return cloneStrings(r.categorical)
}

// All returns numeric names followed by categorical names
func (r Roles) All() []string {
	out := make([]string, 0, len(r.numeric)+len(r.categorical))
	out = append(out, r.numeric...)
	return append(out, r.categorical...)
}

// IsNumeric reports whether name is in the numeric list
func (r Roles) IsNumeric(name string) bool {
	return contains(r.numeric, name)
}

// IsCategorical reports whether name is in the categorical list
func (r Roles) IsCategorical(name string) bool {
	return contains(r.categorical, name)
}

// WithNumeric returns roles with names appended to the numeric list
func (r Roles) WithNumeric(names ...string) Roles {
	return Roles{
		numeric:     append(cloneStrings(r.numeric), names...),
		categorical: cloneStrings(r.categorical),
	}
}

// WithoutNumeric returns roles with names removed from the numeric list
func (r Roles) WithoutNumeric(names ...string) Roles {
	return Roles{
		numeric:     without(r.numeric, names),
		categorical: cloneStrings(r.categorical),
	}
}

// WithCategorical returns roles with names appended to the categorical list
func (r Roles) WithCategorical(names ...string) Roles {
	return Roles{
		numeric:     cloneStrings(r.numeric),
		categorical: append(cloneStrings(r.categorical), names...),
	}
}

// WithoutCategorical returns roles with names removed from the categorical list
func (r Roles) WithoutCategorical(names ...string) Roles {
	return Roles{
		numeric:     cloneStrings(r.numeric),
		categorical: without(r.categorical, names),
	}
}

// Renamed returns roles with every name passed through mapping
func (r Roles) Renamed(mapping map[string]string) Roles {
	return Roles{
		numeric:     renameAll(r.numeric, mapping),
		categorical: renameAll(r.categorical, mapping),
	}
}

// Validate checks that neither list holds duplicates and that the lists are disjoint
func (r Roles) Validate() error {
	seen := make(map[string]string, len(r.numeric)+len(r.categorical))
	for _, list := range []struct {
		role  string
		names []string
	}{{"numeric", r.numeric}, {"categorical", r.categorical}} {
		for _, name := range list.names {
			if prev, ok := seen[name]; ok {
				if prev == list.role {
					return NewRoleListInvariantError("", name, "name listed twice in "+list.role+" roles")
				}
				return NewRoleListInvariantError("", name, "name listed as both numeric and categorical")
			}
			seen[name] = list.role
		}
	}
	return nil
}

// Check validates the lists and confirms every name is a column of t
func (r Roles) Check(t *table.Table) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for _, name := range r.All() {
		if !t.Has(name) {
			return NewRoleListInvariantError("", name, "role list names a column that is not in the table")
		}
	}
	return nil
}

// MarshalJSON encodes the lists as {"numeric": [...], "categorical": [...]}
func (r Roles) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Numeric     []string `json:"numeric"`
		Categorical []string `json:"categorical"`
	}{
		Numeric:     nonNil(r.numeric),
		Categorical: nonNil(r.categorical),
	})
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func without(list, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, n := range remove {
		drop[n] = true
	}
	out := make([]string, 0, len(list))
	for _, n := range list {
		if !drop[n] {
			out = append(out, n)
		}
	}
	return out
}

func renameAll(list []string, mapping map[string]string) []string {
	out := make([]string, len(list))
	for i, n := range list {
		if to, ok := mapping[n]; ok {
			out[i] = to
		} else {
			out[i] = n
		}
	}
	return out
}
