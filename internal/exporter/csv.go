package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oonisim/ml-credit-risk/internal/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes tables as CSV
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer. A nil logger uses slog.Default.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix    bool   // Add UTF-8 BOM for Excel compatibility
	MissingToken string // Written for missing cells
	Precision    int    // Decimal places for numbers; negative keeps the shortest exact form
}

// DefaultWriteOptions writes numbers exactly and missing cells as empty fields
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Precision: -1}
}

// WriteTable writes the header row and every table row to w
func (cw *CSVWriter) WriteTable(w io.Writer, t *table.Table, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if err := writer.Write(t.Names()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, t.Width())
	for i := 0; i < t.Rows(); i++ {
		for j, v := range t.Row(i) {
			record[j] = formatValue(v, options)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTableFile writes t to filePath, creating parent directories and
// truncating an existing file
func (cw *CSVWriter) WriteTableFile(filePath string, t *table.Table, options WriteOptions) error {
	cw.logger.Info("csv_write",
		slog.String("file_path", filePath),
		slog.Int("rows", t.Rows()),
		slog.Int("columns", t.Width()))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := cw.WriteTable(file, t, options); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
