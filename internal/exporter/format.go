package exporter

import (
	"strconv"

	"github.com/oonisim/ml-credit-risk/internal/table"
)

// formatValue renders a cell for CSV output
func formatValue(v table.Value, options WriteOptions) string {
	if v.IsMissing() {
		return options.MissingToken
	}
	if v.Kind() == table.KindNumber && options.Precision >= 0 {
		f, _ := v.Float()
		return formatFloat(f, options.Precision)
	}
	return v.String()
}

// formatFloat formats f with a fixed number of decimal places
func formatFloat(f float64, precision int) string {
	return strconv.FormatFloat(f, 'f', precision, 64)
}
