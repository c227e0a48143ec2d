package transform

import (
	"github.com/oonisim/ml-credit-risk/internal/table"
)

// Stage identifiers used in errors, logs and manifests
const (
	StageSelect     = "select"
	StageDiscretize = "discretize"
	StageImpute     = "impute"
	StageEncode     = "encode"
	StageRename     = "rename"
)

// Select returns a deep copy of t holding exactly the keep columns in their
// original relative order
func Select(t *table.Table, keep []string) (*table.Table, error) {
	for _, name := range keep {
		if !t.Has(name) {
			return nil, NewColumnNotFoundError(StageSelect, name)
		}
	}
	out, err := t.Select(keep...)
	if err != nil {
		return nil, fromTableError(StageSelect, "", err)
	}
	return out.Clone(), nil
}
