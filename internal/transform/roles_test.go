package transform

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoles(t *testing.T) {
	tests := []struct {
		name        string
		numeric     []string
		categorical []string
		wantErr     bool
	}{
		{"valid", []string{"Age", "Duration"}, []string{"Sex"}, false},
		{"empty", nil, nil, false},
		{"duplicate numeric", []string{"Age", "Age"}, nil, true},
		{"duplicate categorical", nil, []string{"Sex", "Sex"}, true},
		{"overlap", []string{"Age"}, []string{"Age"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRoles(tt.numeric, tt.categorical)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrRoleListInvariant))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRolesAreValues(t *testing.T) {
	numeric := []string{"Age", "Credit amount"}
	r := MustRoles(numeric, []string{"Sex"})
	numeric[0] = "changed"
	assert.Equal(t, []string{"Age", "Credit amount"}, r.Numeric())

	moved := r.WithoutNumeric("Age").WithCategorical("Generation")
	assert.Equal(t, []string{"Age", "Credit amount"}, r.Numeric())
	assert.Equal(t, []string{"Sex"}, r.Categorical())
	assert.Equal(t, []string{"Credit amount"}, moved.Numeric())
	assert.Equal(t, []string{"Sex", "Generation"}, moved.Categorical())
	assert.True(t, moved.IsCategorical("Generation"))
	assert.False(t, moved.IsNumeric("Age"))

	got := r.Numeric()
	got[0] = "mutated"
	assert.Equal(t, "Age", r.Numeric()[0])

	renamed := moved.Renamed(map[string]string{"Credit amount": "credit_amount"})
	assert.Equal(t, []string{"credit_amount", "Sex", "Generation"}, renamed.All())
}

func TestRolesCheck(t *testing.T) {
	tbl := applicants(t)

	require.NoError(t, MustRoles([]string{"Age", "Credit amount"}, []string{"Sex", "Saving accounts"}).Check(tbl))

	err := MustRoles([]string{"Age", "Duration"}, nil).Check(tbl)
	assert.True(t, errors.Is(err, ErrRoleListInvariant))
	assert.Equal(t, "Duration", err.(*Error).Column)
}

func TestRolesMarshalJSON(t *testing.T) {
	data, err := json.Marshal(MustRoles([]string{"Age"}, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"numeric":["Age"],"categorical":[]}`, string(data))
}
