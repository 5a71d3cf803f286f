// Package errors provides standardized error types for DataFrame and
// feature preparation operations.
//
// Every error raised by the core is a *DataFrameError carrying a Kind. The
// predefined Err* values act as kind sentinels, so callers can write
// errors.Is(err, errors.ErrMissingColumn) regardless of the operation or
// column that failed.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a DataFrameError.
type Kind int

const (
	// KindUnknown is the zero Kind.
	KindUnknown Kind = iota
	// KindMissingColumn marks a required column absent from a table.
	KindMissingColumn
	// KindLengthMismatch marks a value sequence whose length differs from the row count.
	KindLengthMismatch
	// KindDegenerateRange marks a scaling request with equal bounds.
	KindDegenerateRange
	// KindInvalidOperator marks an unrecognized comparison operator token.
	KindInvalidOperator
	// KindInvalidCleaningMethod marks an unrecognized cleaning method.
	KindInvalidCleaningMethod
	// KindDuplicateColumn marks a column name that already exists.
	KindDuplicateColumn
	// KindUnsupportedType marks a column type an operation cannot handle.
	KindUnsupportedType
	// KindIndexMismatch marks row index labels that do not line up across tables.
	KindIndexMismatch
	// KindStrategyUnavailable marks a cleaning strategy with no registered implementation.
	KindStrategyUnavailable
	// KindMissingBinding marks a model or splitter name that is not configured.
	KindMissingBinding
	// KindInvalidInput marks any other rejected input.
	KindInvalidInput
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindMissingColumn:         "missing column",
	KindLengthMismatch:        "length mismatch",
	KindDegenerateRange:       "degenerate range",
	KindInvalidOperator:       "invalid operator",
	KindInvalidCleaningMethod: "invalid cleaning method",
	KindDuplicateColumn:       "duplicate column",
	KindUnsupportedType:       "unsupported type",
	KindIndexMismatch:         "index mismatch",
	KindStrategyUnavailable:   "strategy unavailable",
	KindMissingBinding:        "missing binding",
	KindInvalidInput:          "invalid input",
}

// String returns the human readable kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// DataFrameError represents standardized errors across all operations
type DataFrameError struct {
	Kind    Kind   // Error classification
	Op      string // Operation name (e.g., "KeepColumns", "FilterRows")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Hint    string // Optional remediation hint
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DataFrameError) Error() string {
	var msg string
	if e.Column != "" {
		msg = fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, e.Message)
	} else {
		msg = fmt.Sprintf("%s operation failed: %s", e.Op, e.Message)
	}
	if e.Hint != "" {
		msg += ". Hint: " + e.Hint
	}
	return msg
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DataFrameError) Unwrap() error {
	return e.Cause
}

// Is matches kind sentinels (errors with only Kind set) by kind, and other
// DataFrameErrors by kind, operation, column and message.
func (e *DataFrameError) Is(target error) bool {
	t, ok := target.(*DataFrameError)
	if !ok {
		return false
	}
	if t.isSentinel() {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op && e.Column == t.Column && e.Message == t.Message
}

func (e *DataFrameError) isSentinel() bool {
	return e.Op == "" && e.Column == "" && e.Message == "" && e.Cause == nil
}

// WithHint returns a copy of the error carrying a remediation hint.
func (e *DataFrameError) WithHint(hint string) *DataFrameError {
	c := *e
	c.Hint = hint
	return &c
}

// Kind sentinels for errors.Is.
var (
	ErrMissingColumn         = &DataFrameError{Kind: KindMissingColumn}
	ErrLengthMismatch        = &DataFrameError{Kind: KindLengthMismatch}
	ErrDegenerateRange       = &DataFrameError{Kind: KindDegenerateRange}
	ErrInvalidOperator       = &DataFrameError{Kind: KindInvalidOperator}
	ErrInvalidCleaningMethod = &DataFrameError{Kind: KindInvalidCleaningMethod}
	ErrDuplicateColumn       = &DataFrameError{Kind: KindDuplicateColumn}
	ErrUnsupportedType       = &DataFrameError{Kind: KindUnsupportedType}
	ErrIndexMismatch         = &DataFrameError{Kind: KindIndexMismatch}
	ErrStrategyUnavailable   = &DataFrameError{Kind: KindStrategyUnavailable}
	ErrMissingBinding        = &DataFrameError{Kind: KindMissingBinding}
	ErrInvalidInput          = &DataFrameError{Kind: KindInvalidInput}
)

// Common error constructors for consistent error creation

// NewMissingColumnError creates an error for operations on non-existent columns
func NewMissingColumnError(op, column string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindMissingColumn,
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewMissingColumnErrorWithAvailable adds the available column names as a hint.
func NewMissingColumnErrorWithAvailable(op, column string, available []string) *DataFrameError {
	return NewMissingColumnError(op, column).
		WithHint(fmt.Sprintf("available columns: [%s]", strings.Join(available, ", ")))
}

// NewLengthMismatchError creates an error for a sequence of the wrong length
func NewLengthMismatchError(op, context string, expected, actual int) *DataFrameError {
	return &DataFrameError{
		Kind:    KindLengthMismatch,
		Op:      op,
		Message: fmt.Sprintf("%s: expected length %d, got %d", context, expected, actual),
	}
}

// NewDegenerateRangeError creates an error for scaling with max == min
func NewDegenerateRangeError(op, column string, bound float64) *DataFrameError {
	return &DataFrameError{
		Kind:    KindDegenerateRange,
		Op:      op,
		Column:  column,
		Message: fmt.Sprintf("range is degenerate: min and max are both %g", bound),
	}
}

// NewInvalidOperatorError creates an error for an unknown comparison operator
func NewInvalidOperatorError(op, token string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindInvalidOperator,
		Op:      op,
		Message: fmt.Sprintf("unrecognized operator %q", token),
		Hint:    "use one of <, >, =, <=, >=, <>",
	}
}

// NewInvalidCleaningMethodError creates an error for an unknown cleaning method
func NewInvalidCleaningMethodError(method string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindInvalidCleaningMethod,
		Op:      "Clean",
		Message: fmt.Sprintf("invalid cleaning method %q", method),
		Hint:    "choose from: remove, imputation, or ppca",
	}
}

// NewDuplicateColumnError creates an error for a column name that already exists
func NewDuplicateColumnError(op, column string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindDuplicateColumn,
		Op:      op,
		Column:  column,
		Message: "column already exists",
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, column, typeName string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindUnsupportedType,
		Op:      op,
		Column:  column,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewIndexMismatchError creates an error for misaligned row index labels
func NewIndexMismatchError(op, message string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindIndexMismatch,
		Op:      op,
		Message: message,
	}
}

// NewStrategyUnavailableError creates an error for an unregistered cleaning strategy
func NewStrategyUnavailableError(method string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindStrategyUnavailable,
		Op:      "Clean",
		Message: fmt.Sprintf("no strategy registered for cleaning method %q", method),
	}
}

// NewMissingBindingError creates an error for a selector referencing an unknown binding
func NewMissingBindingError(op, selector, section, name string) *DataFrameError {
	return &DataFrameError{
		Kind: KindMissingBinding,
		Op:   op,
		Message: fmt.Sprintf("selector %s specified %s, which was not found in the [%s] section",
			selector, name, section),
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *DataFrameError {
	return &DataFrameError{
		Kind:    KindInvalidInput,
		Op:      op,
		Message: message,
	}
}

// NewInternalError wraps an unexpected failure of a dependency
func NewInternalError(op string, cause error) *DataFrameError {
	return &DataFrameError{
		Kind:    KindUnknown,
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}
