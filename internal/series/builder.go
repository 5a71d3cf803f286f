package series

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/exp/constraints"
)

// Column is the type-erased view of a Series of any element type.
type Column interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	NullN() int
	String() string
	Array() arrow.Array
	Release()
	GetAsString(index int) string
	Any(index int) any
	Float64(index int) (float64, bool)
}

// Number is any Go integer or floating point type.
type Number interface {
	constraints.Integer | constraints.Float
}

// FromNumbers converts a slice of any numeric type into a float64 series.
func FromNumbers[N Number](name string, values []N, mem memory.Allocator) *Series[float64] {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return New(name, out, mem)
}

// IsString reports whether the column stores text.
func IsString(c Column) bool {
	return c.DataType().ID() == arrow.STRING
}

// IsNumeric reports whether the column stores int64 or float64 values.
func IsNumeric(c Column) bool {
	id := c.DataType().ID()
	return id == arrow.INT64 || id == arrow.FLOAT64
}

// FromAny builds a column from loosely typed scalar values. nil marks a null.
// The element type is inferred column-wide: any string makes a string column
// (other values are formatted as text), all booleans make a bool column, all
// integers make an int64 column, and any other numeric mix becomes float64.
func FromAny(name string, values []any, mem memory.Allocator) (Column, error) {
	hasString, allBool, allInt, hasValue := false, true, true, false
	for _, v := range values {
		if v == nil {
			continue
		}
		hasValue = true
		switch v.(type) {
		case string:
			hasString = true
			allBool, allInt = false, false
		case bool:
			allInt = false
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			allBool = false
		case float32, float64:
			allBool, allInt = false, false
		default:
			return nil, fmt.Errorf("unsupported cell type %T in column %s", v, name)
		}
	}

	valid := make([]bool, len(values))
	for i, v := range values {
		valid[i] = v != nil
	}

	switch {
	case hasString:
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = formatCell(v)
		}
		return column(NewNullable(name, out, valid, mem))
	case hasValue && allBool:
		out := make([]bool, len(values))
		for i, v := range values {
			if b, ok := v.(bool); ok {
				out[i] = b
			}
		}
		return column(NewNullable(name, out, valid, mem))
	case hasValue && allInt:
		out := make([]int64, len(values))
		for i, v := range values {
			if v != nil {
				out[i] = int64(toFloat(v))
			}
		}
		return column(NewNullable(name, out, valid, mem))
	default:
		out := make([]float64, len(values))
		for i, v := range values {
			if v != nil {
				out[i] = toFloat(v)
			}
		}
		return column(NewNullable(name, out, valid, mem))
	}
}

func column[T any](s *Series[T], err error) (Column, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func asFloat[N Number](v N) float64 {
	return float64(v)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return asFloat(n)
	case int8:
		return asFloat(n)
	case int16:
		return asFloat(n)
	case int32:
		return asFloat(n)
	case int64:
		return asFloat(n)
	case uint:
		return asFloat(n)
	case uint8:
		return asFloat(n)
	case uint16:
		return asFloat(n)
	case uint32:
		return asFloat(n)
	case uint64:
		return asFloat(n)
	case float32:
		return asFloat(n)
	case float64:
		return n
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case bool:
		return strconv.FormatBool(c)
	case float32, float64:
		return strconv.FormatFloat(toFloat(c), 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", c)
	}
}

// Take builds a new column holding the rows of c at the given positions, in
// the order given. Null cells stay null, and a position of -1 yields a null.
func Take(c Column, positions []int, mem memory.Allocator) (Column, error) {
	arr := c.Array()
	if arr == nil {
		return nil, fmt.Errorf("column %s has no backing array", c.Name())
	}
	defer arr.Release()

	for _, p := range positions {
		if p < -1 || p >= arr.Len() {
			return nil, fmt.Errorf("position %d out of bounds [0, %d) in column %s", p, arr.Len(), c.Name())
		}
	}

	switch typed := arr.(type) {
	case *array.String:
		return takeTyped(c.Name(), typed, positions, typed.Value, mem)
	case *array.Int64:
		return takeTyped(c.Name(), typed, positions, typed.Value, mem)
	case *array.Float64:
		return takeTyped(c.Name(), typed, positions, typed.Value, mem)
	case *array.Boolean:
		return takeTyped(c.Name(), typed, positions, typed.Value, mem)
	default:
		return nil, fmt.Errorf("unsupported array type %s in column %s", arr.DataType(), c.Name())
	}
}

func takeTyped[T any](
	name string, arr arrow.Array, positions []int, get func(int) T, mem memory.Allocator,
) (Column, error) {
	values := make([]T, len(positions))
	valid := make([]bool, len(positions))
	for i, p := range positions {
		if p == -1 || arr.IsNull(p) {
			continue
		}
		values[i] = get(p)
		valid[i] = true
	}
	return column(NewNullable(name, values, valid, mem))
}

// Rename returns a column sharing c's data under a new name.
func Rename(c Column, name string) Column {
	arr := c.Array()
	switch arr.(type) {
	case *array.String:
		return &Series[string]{name: name, array: arr}
	case *array.Int64:
		return &Series[int64]{name: name, array: arr}
	case *array.Float64:
		return &Series[float64]{name: name, array: arr}
	case *array.Boolean:
		return &Series[bool]{name: name, array: arr}
	default:
		return &Series[any]{name: name, array: arr}
	}
}

// Copy returns an independent copy of c.
func Copy(c Column, mem memory.Allocator) (Column, error) {
	positions := make([]int, c.Len())
	for i := range positions {
		positions[i] = i
	}
	return Take(c, positions, mem)
}

// FromArray wraps an existing Arrow array as a column, retaining it.
// Integer and floating point arrays narrower than 64 bits are widened into a
// new int64 or float64 array.
func FromArray(name string, arr arrow.Array, mem memory.Allocator) (Column, error) {
	switch typed := arr.(type) {
	case *array.String:
		arr.Retain()
		return &Series[string]{name: name, array: arr}, nil
	case *array.Int64:
		arr.Retain()
		return &Series[int64]{name: name, array: arr}, nil
	case *array.Float64:
		arr.Retain()
		return &Series[float64]{name: name, array: arr}, nil
	case *array.Boolean:
		arr.Retain()
		return &Series[bool]{name: name, array: arr}, nil
	case *array.Int32:
		return widen(name, typed, typed.Value, func(v int32) int64 { return int64(v) }, mem)
	case *array.Int16:
		return widen(name, typed, typed.Value, func(v int16) int64 { return int64(v) }, mem)
	case *array.Int8:
		return widen(name, typed, typed.Value, func(v int8) int64 { return int64(v) }, mem)
	case *array.Float32:
		return widen(name, typed, typed.Value, func(v float32) float64 { return float64(v) }, mem)
	default:
		return nil, fmt.Errorf("unsupported array type %s in column %s", arr.DataType(), name)
	}
}

func widen[S any, T int64 | float64](
	name string, arr arrow.Array, get func(int) S, conv func(S) T, mem memory.Allocator,
) (Column, error) {
	values := make([]T, arr.Len())
	valid := make([]bool, arr.Len())
	for i := range values {
		if arr.IsNull(i) {
			continue
		}
		values[i] = conv(get(i))
		valid[i] = true
	}
	return column(NewNullable(name, values, valid, mem))
}
