package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetValue(t *testing.T) {
	path := writeFile(t, "feature_store.yaml", "project: credit_risk\nregistry: data/registry.db\nonline_store:\n  type: postgres\n")

	v, err := GetValue(path, "project", "")
	require.NoError(t, err)
	assert.Equal(t, "credit_risk", v)

	v, err = GetValue(path, "offline_store", "file")
	require.NoError(t, err)
	assert.Equal(t, "file", v)

	v, err = GetValue(path, "online_store", nil)
	require.NoError(t, err)
	assert.Equal(t, map[interface{}]interface{}{"type": "postgres"}, v)
}

func TestGetValueErrors(t *testing.T) {
	_, err := GetValue(filepath.Join(t.TempDir(), "missing.yaml"), "project", "")
	assert.Error(t, err)

	_, err = GetValue(writeFile(t, "bad.yaml", "project: [unclosed"), "project", "")
	assert.Error(t, err)

	_, err = GetValue(writeFile(t, "list.yaml", "- a\n- b\n"), "project", "")
	assert.True(t, errors.Is(err, ErrNotMapping))
}

func TestReadYAML(t *testing.T) {
	def := map[string]interface{}{"database": map[string]interface{}{"host": "localhost"}}

	tests := []struct {
		name string
		path func(t *testing.T) string
		def  map[string]interface{}
		want map[string]interface{}
	}{
		{
			name: "valid mapping",
			path: func(t *testing.T) string { return writeFile(t, "ok.yaml", "a: 1\nb: two\n") },
			def:  def,
			want: map[string]interface{}{"a": 1, "b": "two"},
		},
		{
			name: "missing file returns default",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
			def:  def,
			want: def,
		},
		{
			name: "missing file without default returns empty map",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
			want: map[string]interface{}{},
		},
		{
			name: "directory returns default",
			path: func(t *testing.T) string { return t.TempDir() },
			def:  def,
			want: def,
		},
		{
			name: "empty file returns default",
			path: func(t *testing.T) string { return writeFile(t, "empty.yaml", "  \n\n") },
			def:  def,
			want: def,
		},
		{
			name: "invalid yaml returns default",
			path: func(t *testing.T) string { return writeFile(t, "bad.yaml", "a: [1, 2\n") },
			def:  def,
			want: def,
		},
		{
			name: "non-mapping root returns default",
			path: func(t *testing.T) string { return writeFile(t, "list.yaml", "- 1\n- 2\n") },
			want: map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadYAML(tt.path(t), tt.def))
		})
	}
}
