package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oonisim/ml-credit-risk/internal/pipeline"
)

// WriteSummaryFile writes the run summary (roles, encodings, bin reports and
// the stage manifest) of res as indented JSON
func WriteSummaryFile(filePath string, res *pipeline.Result) error {
	return writeJSONFile(filePath, res.Summary())
}

// WriteResultFile writes the summary together with the transformed table
func WriteResultFile(filePath string, res *pipeline.Result) error {
	return writeJSONFile(filePath, res)
}

func writeJSONFile(filePath string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(filePath), err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filePath), err)
	}
	return nil
}
