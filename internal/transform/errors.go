package transform

import (
	"errors"
	"fmt"

	"github.com/oonisim/ml-credit-risk/internal/table"
)

// ErrorKind represents the kind of a transformation error
type ErrorKind string

const (
	KindColumnNotFound         ErrorKind = "column_not_found"
	KindInvalidBoundary        ErrorKind = "invalid_boundary"
	KindDuplicateColumn        ErrorKind = "duplicate_column"
	KindRoleListInvariant      ErrorKind = "role_list_invariant"
	KindEmptyCategoricalColumn ErrorKind = "empty_categorical_column"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrColumnNotFound         = &Error{Kind: KindColumnNotFound, Message: "column not found"}
	ErrInvalidBoundary        = &Error{Kind: KindInvalidBoundary, Message: "invalid bin specification"}
	ErrDuplicateColumn        = &Error{Kind: KindDuplicateColumn, Message: "duplicate column"}
	ErrRoleListInvariant      = &Error{Kind: KindRoleListInvariant, Message: "role list invariant violated"}
	ErrEmptyCategoricalColumn = &Error{Kind: KindEmptyCategoricalColumn, Message: "categorical column has no values"}
)

// Error represents a transformation-stage error
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Stage   string    `json:"stage,omitempty"`
	Column  string    `json:"column,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "unknown transform error"
	}
	msg := fmt.Sprintf("[%s] ", e.Kind)
	if e.Stage != "" {
		msg += e.Stage + ": "
	}
	msg += e.Message
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %q)", e.Column)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches errors of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// NewColumnNotFoundError creates a column-not-found error
func NewColumnNotFoundError(stage, column string) *Error {
	return &Error{
		Kind:    KindColumnNotFound,
		Stage:   stage,
		Column:  column,
		Message: "column not found",
	}
}

// NewInvalidBoundaryError creates a bin-specification error
func NewInvalidBoundaryError(stage, column, message string) *Error {
	return &Error{
		Kind:    KindInvalidBoundary,
		Stage:   stage,
		Column:  column,
		Message: message,
	}
}

// NewDuplicateColumnError creates a name-collision error
func NewDuplicateColumnError(stage, column, message string) *Error {
	return &Error{
		Kind:    KindDuplicateColumn,
		Stage:   stage,
		Column:  column,
		Message: message,
	}
}

// NewRoleListInvariantError creates a role bookkeeping error
func NewRoleListInvariantError(stage, column, message string) *Error {
	return &Error{
		Kind:    KindRoleListInvariant,
		Stage:   stage,
		Column:  column,
		Message: message,
	}
}

// NewEmptyCategoricalColumnError creates an error for a column with no categories to encode
func NewEmptyCategoricalColumnError(stage, column string) *Error {
	return &Error{
		Kind:    KindEmptyCategoricalColumn,
		Stage:   stage,
		Column:  column,
		Message: "categorical column has no non-missing values to encode",
	}
}

// GetErrorKind returns the kind of a transformation error, or "" for other errors
func GetErrorKind(err error) ErrorKind {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Kind
	}
	return ""
}

// fromTableError maps a table package error onto the matching kind
func fromTableError(stage, column string, err error) error {
	if err == nil {
		return nil
	}
	var kind ErrorKind
	switch {
	case errors.Is(err, table.ErrColumnNotFound):
		kind = KindColumnNotFound
	case errors.Is(err, table.ErrDuplicateColumn):
		kind = KindDuplicateColumn
	default:
		return fmt.Errorf("%s: %w", stage, err)
	}
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Column:  column,
		Message: err.Error(),
		Cause:   err,
	}
}
