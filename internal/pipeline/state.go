package pipeline

import (
	"fmt"

	"github.com/oonisim/ml-credit-risk/internal/table"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// State is the value threaded from stage to stage.
// Stages return a new State; slices are never shared between the input and
// output of a stage.
type State struct {
	Table *table.Table
	Roles transform.Roles

	// Absorbed lists discretized source columns still in the table.
	// They are removed by the drop_absorbed stage.
	Absorbed []string

	// Targets are pass-through columns such as the label
	Targets []string

	Bins      []transform.BinReport
	Imputed   transform.ImputeReport
	Encodings transform.EncodingManifest
}

// check verifies that every table column has exactly one role and that every
// role name is a table column
func (s State) check(stage string) error {
	seen := make(map[string]string, s.Table.Width())
	groups := []struct {
		role  string
		names []string
	}{
		{"numeric", s.Roles.Numeric()},
		{"categorical", s.Roles.Categorical()},
		{"absorbed", s.Absorbed},
		{"target", s.Targets},
	}
	for _, g := range groups {
		for _, name := range g.names {
			if prev, ok := seen[name]; ok {
				return transform.NewRoleListInvariantError(stage, name,
					fmt.Sprintf("column listed as both %s and %s", prev, g.role))
			}
			seen[name] = g.role
			if !s.Table.Has(name) {
				return transform.NewRoleListInvariantError(stage, name,
					fmt.Sprintf("%s column is not in the table", g.role))
			}
		}
	}
	for _, name := range s.Table.Names() {
		if _, ok := seen[name]; !ok {
			return transform.NewRoleListInvariantError(stage, name, "table column has no role")
		}
	}
	return nil
}

func appendCopy(list []string, names ...string) []string {
	out := make([]string, 0, len(list)+len(names))
	out = append(out, list...)
	return append(out, names...)
}

func hasName(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func renameList(list []string, mapping map[string]string) []string {
	if list == nil {
		return nil
	}
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
