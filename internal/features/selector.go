package features

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/series"
	"github.com/paveg/mlprep/internal/validation"
)

// Selector adds, removes, keeps and filters columns and rows of a table.
type Selector struct {
	logger *slog.Logger
	mem    memory.Allocator
}

// NewSelector creates a Selector.
func NewSelector(opts ...Option) *Selector {
	o := applyOptions(opts)
	return &Selector{
		logger: o.logger,
		mem:    o.mem,
	}
}

// RemoveDuplicateRows collapses rows with identical values in every column
// to their first occurrence. Surviving rows keep their order and labels.
// Columns holding identical data under different names are not touched.
func (s *Selector) RemoveDuplicateRows(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	cols := frameColumns(df)
	seen := newRowKeySet(df.Len())

	keep := make([]int, 0, df.Len())
	var buf []byte
	for i := range df.Len() {
		buf = encodeRow(buf[:0], cols, i)
		if seen.add(buf) {
			keep = append(keep, i)
		}
	}

	if dropped := df.Len() - len(keep); dropped > 0 {
		s.logger.Info("removed duplicate rows", "dropped", dropped, "remaining", len(keep))
	}
	return df.Take(keep)
}

// RemoveColumns deletes each named column. Every name must exist.
func (s *Selector) RemoveColumns(df *dataframe.DataFrame, names ...string) (*dataframe.DataFrame, error) {
	if err := validation.ValidateColumns(df, "RemoveColumns", names...); err != nil {
		return nil, err
	}
	s.logger.Debug("removing columns", "columns", names)
	return df.Drop(names...), nil
}

// KeepColumns returns exactly the named columns followed by the target, in
// the order given. The target is not repeated when names already lists it.
func (s *Selector) KeepColumns(df *dataframe.DataFrame, names []string, target string) (*dataframe.DataFrame, error) {
	ordered := make([]string, 0, len(names)+1)
	ordered = append(ordered, names...)
	listed := false
	for _, name := range names {
		if name == target {
			listed = true
		}
	}
	if !listed {
		ordered = append(ordered, target)
	}

	if err := validation.ValidateColumns(df, "KeepColumns", ordered...); err != nil {
		return nil, err
	}
	return df.Select(ordered...), nil
}

// AddColumns adds one column per name, each holding the same values in row
// order. values must match the row count and names must be new.
func (s *Selector) AddColumns(df *dataframe.DataFrame, names []string, values []any) (*dataframe.DataFrame, error) {
	err := validation.NewCompoundValidator(
		validation.NewLengthValidator(df.Len(), len(values), "AddColumns", "column values"),
		validation.NewAbsentColumnValidator(df, "AddColumns", names...),
	).Validate()
	if err != nil {
		return nil, err
	}

	added := make([]dataframe.ISeries, 0, len(names))
	for _, name := range names {
		c, err := series.FromAny(name, values, s.mem)
		if err != nil {
			for _, a := range added {
				a.Release()
			}
			return nil, errors.NewUnsupportedTypeError("AddColumns", name, err.Error())
		}
		added = append(added, c)
	}

	out, err := df.AppendColumns(added...)
	if err != nil {
		for _, a := range added {
			a.Release()
		}
		return nil, err
	}
	return out, nil
}

// FilterRows removes the rows where column <op> threshold holds.
//
// Cells are coerced to float64 first: numbers directly, booleans as 0 or 1,
// strings through strconv.ParseFloat. Nulls and strings that do not parse
// compare like NaN, so they are removed only by "<>". Positions to remove
// are collected over the unfiltered table and dropped in one pass.
func (s *Selector) FilterRows(
	df *dataframe.DataFrame, column, op string, threshold float64,
) (*dataframe.DataFrame, error) {
	operator, err := ParseOperator(op)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateColumns(df, "FilterRows", column); err != nil {
		return nil, err
	}

	col, _ := df.Column(column)
	var remove []int
	uncoerced := 0
	for i := range col.Len() {
		v, ok := col.Float64(i)
		if !ok {
			v = math.NaN()
			uncoerced++
		}
		if operator.Holds(v, threshold) {
			remove = append(remove, i)
		}
	}

	if uncoerced > 0 {
		s.logger.Warn("cells compared as NaN while filtering",
			"column", column, "count", uncoerced)
	}
	s.logger.Info("filtered rows",
		"condition", fmt.Sprintf("%s %s %g", column, operator, threshold),
		"removed", len(remove))

	return df.DropRows(remove)
}

// RemoveConstantColumns drops every column whose cells all equal the first
// row's cell. A column containing a null is never constant, and a table
// without rows is returned unchanged.
func (s *Selector) RemoveConstantColumns(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	s.logger.Info("removing constant features")

	before := df.Columns()
	if df.Len() == 0 {
		return df.Select(before...), nil
	}

	var removed []string
	for _, name := range before {
		col, _ := df.Column(name)
		if isConstant(col) {
			removed = append(removed, name)
		}
	}

	if len(removed) > 0 {
		s.logger.Warn(fmt.Sprintf("removed %d/%d constant columns", len(removed), len(before)))
		s.logger.Debug("removed constant columns", "columns", removed)
	}
	return df.Drop(removed...), nil
}

func isConstant(col series.Column) bool {
	if col.NullN() > 0 {
		return false
	}
	first := encodeCell(nil, col, 0)
	var buf []byte
	for i := 1; i < col.Len(); i++ {
		buf = encodeCell(buf[:0], col, i)
		if string(buf) != string(first) {
			return false
		}
	}
	return true
}
