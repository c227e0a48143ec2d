// Package exporter writes pipeline output to files.
//
// CSVWriter writes a table as CSV with a header row, optionally prefixed
// with a UTF-8 BOM so that Excel detects the encoding. WriteSummaryFile and
// WriteResultFile write the run metadata, and optionally the table, as JSON.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(logger)
//	err := w.WriteTableFile("out/features.csv", res.Table, exporter.DefaultWriteOptions())
//
//	err = exporter.WriteSummaryFile("out/run.json", res)
package exporter
