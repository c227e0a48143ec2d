// Package table provides the in-memory tabular data model used by the feature
// transformation pipeline.
//
// A Table is an ordered set of uniquely named columns of equal length. Each cell is
// a Value that is either missing, a number, a text category or a bool. NaN numbers
// are treated as missing so that data read from CSV exports behaves like the
// original data frames.
//
// Tables are immutable: Select, Drop, WithColumns, ReplaceColumn and Rename all
// return a new Table, and the receiver is left untouched. Columns that an operation
// does not change share storage with the source table, which keeps stage-to-stage
// hand-off cheap without allowing one stage to observe another's edits.
//
// Example:
//
//	t := table.MustNew(
//		table.Column{Name: "Age", Values: []table.Value{table.Number(20), table.Number(70)}},
//		table.Column{Name: "Saving accounts", Values: []table.Value{table.Missing(), table.Text("rich")}},
//	)
//	m, names, err := t.Matrix("Age")
package table
