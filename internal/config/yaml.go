package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// ErrNotMapping is returned when a YAML document's root is not a mapping
var ErrNotMapping = errors.New("yaml root is not a mapping")

// GetValue returns the top-level key of the YAML file at path, or def when
// the key is absent. Read and parse failures are logged and returned.
func GetValue(path, key string, def interface{}) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("get_yaml_value_failed", "path", path, "error", err)
		return nil, fmt.Errorf("failed to read yaml file: %w", err)
	}

	doc, err := decodeMapping(data)
	if err != nil {
		slog.Error("get_yaml_value_failed", "path", path, "error", err)
		return nil, err
	}

	if v, ok := doc[key]; ok {
		return v, nil
	}
	return def, nil
}

// ReadYAML returns the mapping in the YAML file at path. It never fails: a
// missing file, a directory, an empty file, invalid YAML or a non-mapping
// root is logged and def is returned (an empty map when def is nil).
func ReadYAML(path string, def map[string]interface{}) map[string]interface{} {
	if def == nil {
		def = map[string]interface{}{}
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Error("yaml_file_missing", "path", path, "error", err)
		return def
	}
	if !info.Mode().IsRegular() {
		slog.Error("yaml_path_not_file", "path", path)
		return def
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("yaml_read_failed", "path", path, "error", err)
		return def
	}
	if strings.TrimSpace(string(data)) == "" {
		slog.Error("yaml_file_empty", "path", path)
		return def
	}

	doc, err := decodeMapping(data)
	if err != nil {
		slog.Error("yaml_parse_failed", "path", path, "error", err)
		return def
	}

	slog.Info("yaml_loaded", "path", path, "keys", len(doc))
	return doc
}

// decodeMapping parses data and requires a mapping root. Top-level keys are
// converted to strings; nested values are left as yaml.v2 decodes them.
func decodeMapping(data []byte) (map[string]interface{}, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	m, ok := raw.(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotMapping, raw)
	}

	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out, nil
}
