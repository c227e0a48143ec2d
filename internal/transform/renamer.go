package transform

import (
	"fmt"
	"sort"

	"github.com/oonisim/ml-credit-risk/internal/table"
)

// Rename returns t with columns renamed per mapping. Unmapped columns pass through
// and keys that are not columns of t are ignored. Two output columns sharing a name
// is a duplicate_column error.
func Rename(t *table.Table, mapping map[string]string) (*table.Table, error) {
	if err := checkRename(t.Names(), mapping); err != nil {
		return nil, err
	}
	out, err := t.Rename(mapping)
	if err != nil {
		return nil, fromTableError(StageRename, "", err)
	}
	return out, nil
}

// checkRename reports the first output name produced by more than one input column
func checkRename(names []string, mapping map[string]string) error {
	owner := make(map[string]string, len(names))
	for _, name := range names {
		to := name
		if mapped, ok := mapping[name]; ok {
			to = mapped
		}
		if to == "" {
			return NewDuplicateColumnError(StageRename, name, "column renamed to an empty name")
		}
		if prev, ok := owner[to]; ok {
			return NewDuplicateColumnError(StageRename, to,
				fmt.Sprintf("columns %q and %q would both be named %q", prev, name, to))
		}
		owner[to] = name
	}
	return nil
}

// InvertRenameMap returns the inverse of mapping. It fails with a duplicate_column
// error when mapping is not injective.
func InvertRenameMap(mapping map[string]string) (map[string]string, error) {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	inverse := make(map[string]string, len(mapping))
	for _, from := range keys {
		to := mapping[from]
		if prev, ok := inverse[to]; ok {
			return nil, NewDuplicateColumnError(StageRename, to,
				fmt.Sprintf("columns %q and %q both map to %q", prev, from, to))
		}
		inverse[to] = from
	}
	return inverse, nil
}
