// Package dataframe provides the in-memory table all feature preparation
// components read and write.
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/series"
)

// DataFrame represents a table of data with typed columns sharing one row index
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
	index   *Index
	mem     memory.Allocator
}

// New creates a new DataFrame from a slice of ISeries with a 0..n-1 index.
// It panics when the columns have different lengths or repeated names; use
// NewSafe for untrusted input.
func New(series ...ISeries) *DataFrame {
	df, err := NewSafe(series...)
	if err != nil {
		panic(err.Error())
	}
	return df
}

// NewSafe creates a new DataFrame, validating equal column lengths and
// unique column names.
func NewSafe(series ...ISeries) (*DataFrame, error) {
	rows := 0
	if len(series) > 0 {
		rows = series[0].Len()
	}
	return build(series, NewRangeIndex(rows), nil, "New")
}

// NewWithIndex creates a DataFrame whose rows carry the given labels.
func NewWithIndex(labels []int64, series ...ISeries) (*DataFrame, error) {
	idx, err := NewIndex(labels)
	if err != nil {
		return nil, errors.NewIndexMismatchError("New", err.Error())
	}
	return build(series, idx, nil, "New")
}

func build(series []ISeries, idx *Index, mem memory.Allocator, op string) (*DataFrame, error) {
	columns := make(map[string]ISeries, len(series))
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		if _, dup := columns[name]; dup {
			return nil, errors.NewDuplicateColumnError(op, name)
		}
		if s.Len() != idx.Len() {
			return nil, errors.NewLengthMismatchError(op, "column "+name, idx.Len(), s.Len())
		}
		columns[name] = s
		order = append(order, name)
	}

	return &DataFrame{
		columns: columns,
		order:   order,
		index:   idx,
		mem:     mem,
	}, nil
}

// SetAllocator sets the allocator for columns derived from df by Take,
// TakeLabels, DropRows and AlignTo. Frames derived from df inherit it.
func (df *DataFrame) SetAllocator(mem memory.Allocator) {
	df.mem = mem
}

// Allocator returns the allocator for derived columns, the Go allocator
// when none was set.
func (df *DataFrame) Allocator() memory.Allocator {
	if df.mem == nil {
		return memory.DefaultAllocator
	}
	return df.mem
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// Len returns the number of rows
func (df *DataFrame) Len() int {
	return df.index.Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Index returns the row index
func (df *DataFrame) Index() *Index {
	return df.index
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	series, exists := df.columns[name]
	return series, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame with only the specified columns, in the
// order given. Names that do not exist are skipped.
func (df *DataFrame) Select(names ...string) *DataFrame {
	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(names))

	for _, name := range names {
		if s, exists := df.columns[name]; exists {
			if _, seen := newColumns[name]; seen {
				continue
			}
			newColumns[name] = share(s)
			newOrder = append(newOrder, name)
		}
	}

	return &DataFrame{
		columns: newColumns,
		order:   newOrder,
		index:   df.index,
		mem:     df.mem,
	}
}

// Drop returns a new DataFrame without the specified columns
func (df *DataFrame) Drop(names ...string) *DataFrame {
	dropSet := make(map[string]bool)
	for _, name := range names {
		dropSet[name] = true
	}

	kept := make([]string, 0, len(df.order))
	for _, name := range df.order {
		if !dropSet[name] {
			kept = append(kept, name)
		}
	}
	return df.Select(kept...)
}

// AppendColumns returns a new DataFrame with the given columns added after
// the existing ones. Every new column must match the row count and use a
// name not already present.
func (df *DataFrame) AppendColumns(cols ...ISeries) (*DataFrame, error) {
	all := make([]ISeries, 0, len(df.order)+len(cols))
	for _, name := range df.order {
		all = append(all, share(df.columns[name]))
	}
	all = append(all, cols...)
	out, err := build(all, df.index, df.mem, "AppendColumns")
	if err != nil {
		for _, s := range all[:len(df.order)] {
			s.Release()
		}
		return nil, err
	}
	return out, nil
}

// Take returns the rows at the given positions, in the order given. Row
// labels travel with their rows, so a position may appear only once.
func (df *DataFrame) Take(positions []int) (*DataFrame, error) {
	for _, p := range positions {
		if p < 0 || p >= df.Len() {
			return nil, errors.NewInvalidInputError("Take",
				fmt.Sprintf("index %d out of bounds [0, %d)", p, df.Len()))
		}
	}

	idx, err := df.index.take(positions)
	if err != nil {
		return nil, errors.NewIndexMismatchError("Take", err.Error())
	}

	mem := df.Allocator()
	taken := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		s, err := series.Take(df.columns[name], positions, mem)
		if err != nil {
			releaseAll(taken)
			return nil, errors.NewInternalError("Take", err)
		}
		taken = append(taken, s)
	}

	return build(taken, idx, df.mem, "Take")
}

// TakeLabels returns the rows carrying the given labels, in the order given.
func (df *DataFrame) TakeLabels(labels []int64) (*DataFrame, error) {
	positions := make([]int, len(labels))
	for i, l := range labels {
		pos, ok := df.index.Position(l)
		if !ok {
			return nil, errors.NewIndexMismatchError("TakeLabels",
				fmt.Sprintf("row label %d not present in index", l))
		}
		positions[i] = pos
	}
	return df.Take(positions)
}

// DropRows returns the DataFrame without the rows at the given positions.
// Positions refer to the current row order and are applied in one pass.
func (df *DataFrame) DropRows(positions []int) (*DataFrame, error) {
	drop := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= df.Len() {
			return nil, errors.NewInvalidInputError("DropRows",
				fmt.Sprintf("index %d out of bounds [0, %d)", p, df.Len()))
		}
		drop[p] = true
	}

	keep := make([]int, 0, df.Len()-len(drop))
	for i := 0; i < df.Len(); i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	return df.Take(keep)
}

// AlignTo returns df's columns reordered to follow the given labels. Labels
// missing from df produce null cells.
func (df *DataFrame) AlignTo(labels []int64) (*DataFrame, error) {
	positions := make([]int, len(labels))
	for i, l := range labels {
		pos, ok := df.index.Position(l)
		if !ok {
			pos = -1
		}
		positions[i] = pos
	}

	idx, err := NewIndex(labels)
	if err != nil {
		return nil, errors.NewIndexMismatchError("AlignTo", err.Error())
	}

	mem := df.Allocator()
	aligned := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		s, err := series.Take(df.columns[name], positions, mem)
		if err != nil {
			releaseAll(aligned)
			return nil, errors.NewInternalError("AlignTo", err)
		}
		aligned = append(aligned, s)
	}
	return build(aligned, idx, df.mem, "AlignTo")
}

// Row returns the cells of row i in column order; nulls are nil.
func (df *DataFrame) Row(i int) []any {
	row := make([]any, len(df.order))
	for j, name := range df.order {
		row[j] = df.columns[name].Any(i)
	}
	return row
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}

	for _, name := range df.order {
		s := df.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s", name, s.DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, s := range df.columns {
		s.Release()
	}
}

// share returns a handle on s holding its own Arrow reference, so frames
// that share a column can be released independently.
func share(s ISeries) ISeries {
	return series.Rename(s, s.Name())
}

func releaseAll(cols []ISeries) {
	for _, s := range cols {
		s.Release()
	}
}
