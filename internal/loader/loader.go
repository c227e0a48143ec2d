package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/oonisim/ml-credit-risk/internal/infrastructure"
	"github.com/oonisim/ml-credit-risk/internal/table"
)

var (
	// ErrUnsupportedFormat is returned for file extensions other than .csv and .xlsx
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrNoHeader is returned when the input has no header row
	ErrNoHeader = errors.New("input has no header row")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultMissingTokens are the cell values read as missing
var DefaultMissingTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"}

// Options configures how raw records become a table
type Options struct {
	// MissingTokens are compared against trimmed cell text
	MissingTokens []string
	// DropIndexColumn removes a leading unnamed column such as pandas' "Unnamed: 0"
	DropIndexColumn bool
	// Sheet selects the XLSX worksheet; empty reads the first sheet
	Sheet string
}

// DefaultOptions returns the options used for pandas-exported credit data
func DefaultOptions() Options {
	return Options{
		MissingTokens:   DefaultMissingTokens,
		DropIndexColumn: true,
	}
}

// Loader reads CSV and XLSX files into tables
type Loader struct {
	options Options
	missing map[string]struct{}
	logger  *slog.Logger
}

// NewLoader creates a loader. A nil logger uses slog.Default.
func NewLoader(options Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	missing := make(map[string]struct{}, len(options.MissingTokens))
	for _, tok := range options.MissingTokens {
		missing[strings.TrimSpace(tok)] = struct{}{}
	}
	return &Loader{
		options: options,
		missing: missing,
		logger:  infrastructure.WithComponent(logger, "loader"),
	}
}

// LoadFile reads path, choosing the format from its extension
func (l *Loader) LoadFile(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	var t *table.Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		t, err = l.ReadCSV(f)
	case ".xlsx", ".xlsm":
		t, err = l.ReadXLSX(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.logger.Info("table_loaded",
		slog.String("path", path),
		slog.Int("rows", t.Rows()),
		slog.Int("columns", t.Width()))
	return t, nil
}

// ReadCSV reads a CSV document with a header row. A leading UTF-8 BOM is ignored.
func (l *Loader) ReadCSV(r io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	return l.FromRecords(records[0], records[1:])
}

// ReadXLSX reads the configured worksheet of an XLSX workbook. The first row
// is the header; short rows are padded with missing cells.
func (l *Loader) ReadXLSX(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := l.options.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoHeader
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := rows[0]
	body := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, fmt.Errorf("sheet %q row %d has %d cells, header has %d", sheet, i+2, len(row), len(header))
		}
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		body = append(body, row)
	}
	return l.FromRecords(header, body)
}

// FromRecords builds a table from a header and string rows. A column whose
// non-missing cells all parse as numbers becomes numeric; any other column
// keeps its cells as text. In a numeric column, cells such as "inf" or
// "Infinity" that parse to a non-finite number are missing.
func (l *Loader) FromRecords(header []string, rows [][]string) (*table.Table, error) {
	if len(header) == 0 {
		return nil, ErrNoHeader
	}

	start := 0
	if l.options.DropIndexColumn && isIndexHeader(header[0]) {
		start = 1
	}

	columns := make([]table.Column, 0, len(header)-start)
	for j := start; j < len(header); j++ {
		cells := make([]string, len(rows))
		for i, row := range rows {
			if len(row) != len(header) {
				return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(header))
			}
			cells[i] = row[j]
		}
		columns = append(columns, table.Column{
			Name:   strings.TrimSpace(header[j]),
			Values: l.inferColumn(cells),
		})
	}

	t, err := table.New(columns...)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}
	return t, nil
}

func (l *Loader) inferColumn(cells []string) []table.Value {
	values := make([]table.Value, len(cells))
	numeric := true
	for i, cell := range cells {
		if l.isMissing(cell) {
			values[i] = table.Missing()
			continue
		}
		if numeric {
			f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err == nil {
				if math.IsInf(f, 0) || math.IsNaN(f) {
					values[i] = table.Missing()
				} else {
					values[i] = table.Number(f)
				}
				continue
			}
			numeric = false
		}
	}
	if numeric {
		return values
	}

	for i, cell := range cells {
		if l.isMissing(cell) {
			continue
		}
		values[i] = table.Text(cell)
	}
	return values
}

func (l *Loader) isMissing(cell string) bool {
	_, ok := l.missing[strings.TrimSpace(cell)]
	return ok
}

func isIndexHeader(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.HasPrefix(name, "Unnamed: 0")
}
