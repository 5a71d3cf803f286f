// Package validation provides input validation utilities for DataFrame operations.
// This package implements reusable validators for column existence, absence,
// length consistency and column types. Every validator reports failures with
// the typed errors from the internal errors package.
package validation

import (
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/series"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(name string) bool
	Columns() []string
	Len() int
	Width() int
}

// TypedColumnProvider additionally exposes column data for type checks.
type TypedColumnProvider interface {
	ColumnProvider
	Column(name string) (series.Column, bool)
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	df      ColumnProvider
	columns []string
	op      string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(df ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		df:      df,
		columns: columns,
		op:      op,
	}
}

// Validate checks if all columns exist in the DataFrame
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.df.HasColumn(column) {
			return errors.NewMissingColumnErrorWithAvailable(v.op, column, v.df.Columns())
		}
	}
	return nil
}

// AbsentColumnValidator validates that new column names are not taken
type AbsentColumnValidator struct {
	df      ColumnProvider
	columns []string
	op      string
}

// NewAbsentColumnValidator creates a validator for column additions
func NewAbsentColumnValidator(df ColumnProvider, op string, columns ...string) *AbsentColumnValidator {
	return &AbsentColumnValidator{
		df:      df,
		columns: columns,
		op:      op,
	}
}

// Validate checks that no column exists yet and that names are not repeated
func (v *AbsentColumnValidator) Validate() error {
	seen := make(map[string]bool, len(v.columns))
	for _, column := range v.columns {
		if v.df.HasColumn(column) || seen[column] {
			return errors.NewDuplicateColumnError(v.op, column)
		}
		seen[column] = true
	}
	return nil
}

// LengthValidator validates array length consistency
type LengthValidator struct {
	expected int
	actual   int
	op       string
	context  string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, context string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		context:  context,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		return errors.NewLengthMismatchError(v.op, v.context, v.expected, v.actual)
	}
	return nil
}

// NumericColumnValidator validates that columns hold int64 or float64 data
type NumericColumnValidator struct {
	df      TypedColumnProvider
	columns []string
	op      string
}

// NewNumericColumnValidator creates a validator for numeric-only operations
func NewNumericColumnValidator(df TypedColumnProvider, op string, columns ...string) *NumericColumnValidator {
	return &NumericColumnValidator{
		df:      df,
		columns: columns,
		op:      op,
	}
}

// Validate checks column existence and numeric type
func (v *NumericColumnValidator) Validate() error {
	for _, column := range v.columns {
		c, ok := v.df.Column(column)
		if !ok {
			return errors.NewMissingColumnErrorWithAvailable(v.op, column, v.df.Columns())
		}
		if !series.IsNumeric(c) {
			return errors.NewUnsupportedTypeError(v.op, column, c.DataType().String())
		}
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateColumns is a convenience function for column validation
func ValidateColumns(df ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(df, op, columns...).Validate()
}

// ValidateAbsent is a convenience function for new column names
func ValidateAbsent(df ColumnProvider, op string, columns ...string) error {
	return NewAbsentColumnValidator(df, op, columns...).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, context string) error {
	return NewLengthValidator(expected, actual, op, context).Validate()
}

// ValidateNumeric is a convenience function for numeric column validation
func ValidateNumeric(df TypedColumnProvider, op string, columns ...string) error {
	return NewNumericColumnValidator(df, op, columns...).Validate()
}
