// Package loader reads raw applicant records from CSV or XLSX files into a
// table.Table.
//
// Each column is typed from its contents: when every non-missing cell parses
// as a number the column holds numbers, otherwise text. Cells equal to one of
// the missing tokens (after trimming) are missing in either case. A leading
// unnamed column, the row index pandas writes by default, is dropped unless
// disabled.
//
//	l := loader.NewLoader(loader.DefaultOptions(), logger)
//	t, err := l.LoadFile("data/german_credit_data.csv")
package loader
