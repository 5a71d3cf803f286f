package dataframe

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDataFrame(t *testing.T) *DataFrame {
	t.Helper()
	mem := memory.NewGoAllocator()

	names := series.New("name", []string{"Alice", "Bob", "Charlie"}, mem)
	ages := series.New("age", []int64{25, 30, 35}, mem)
	salaries := series.New("salary", []float64{50000, 60000, 70000}, mem)

	// DataFrame takes ownership of the series - no need to release them manually
	return New(names, ages, salaries)
}

func TestNewDataFrame(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	assert.Equal(t, 3, df.Len())
	assert.Equal(t, 3, df.Width())
	assert.Equal(t, []string{"name", "age", "salary"}, df.Columns())
	assert.Equal(t, []int64{0, 1, 2}, df.Index().Labels())
}

func TestNewSafeRejectsInvalidColumns(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("mismatched length", func(t *testing.T) {
		_, err := NewSafe(
			series.New("name", []string{"Alice", "Bob"}, mem),
			series.New("age", []int64{25, 30, 35}, mem),
		)
		assert.ErrorIs(t, err, errors.ErrLengthMismatch)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := NewSafe(
			series.New("a", []int64{1}, mem),
			series.New("a", []int64{2}, mem),
		)
		assert.ErrorIs(t, err, errors.ErrDuplicateColumn)
	})

	t.Run("New panics", func(t *testing.T) {
		assert.Panics(t, func() {
			New(series.New("a", []int64{1}, mem), series.New("b", []int64{}, mem))
		})
	})
}

func TestNewWithIndex(t *testing.T) {
	mem := memory.NewGoAllocator()

	df, err := NewWithIndex([]int64{10, 20}, series.New("x", []float64{1, 2}, mem))
	require.NoError(t, err)
	defer df.Release()

	pos, ok := df.Index().Position(20)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
	_, ok = df.Index().Position(0)
	assert.False(t, ok)

	_, err = NewWithIndex([]int64{1, 1}, series.New("x", []float64{1, 2}, mem))
	assert.ErrorIs(t, err, errors.ErrIndexMismatch)
}

func TestDataFrameSelectAndDrop(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	selected := df.Select("salary", "nonexistent", "name")
	defer selected.Release()
	assert.Equal(t, []string{"salary", "name"}, selected.Columns())
	assert.Equal(t, 3, selected.Len())

	dropped := df.Drop("age")
	defer dropped.Release()
	assert.Equal(t, []string{"name", "salary"}, dropped.Columns())
	assert.False(t, dropped.HasColumn("age"))

	// The source frame keeps its columns after derived frames are released
	tmp := df.Select("salary")
	tmp.Release()
	col, ok := df.Column("salary")
	require.True(t, ok)
	assert.Equal(t, 50000.0, col.Any(0))
}

func TestDataFrameTake(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	taken, err := df.Take([]int{2, 0})
	require.NoError(t, err)
	defer taken.Release()

	assert.Equal(t, []int64{2, 0}, taken.Index().Labels())
	assert.Equal(t, []any{"Charlie", int64(35), 70000.0}, taken.Row(0))

	byLabel, err := taken.TakeLabels([]int64{0})
	require.NoError(t, err)
	defer byLabel.Release()
	assert.Equal(t, []any{"Alice", int64(25), 50000.0}, byLabel.Row(0))

	_, err = taken.TakeLabels([]int64{1})
	assert.ErrorIs(t, err, errors.ErrIndexMismatch)

	_, err = df.Take([]int{3})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = df.Take([]int{0, 0})
	assert.ErrorIs(t, err, errors.ErrIndexMismatch)
}

func TestDataFrameDerivedColumnsUseAllocator(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	df := New(
		series.New("x", []float64{1, 2, 3}, mem),
		series.New("site", []string{"a", "b", "a"}, mem),
	)
	df.SetAllocator(mem)
	defer df.Release()
	view := df.Select("x")
	assert.Same(t, mem, view.Allocator())
	view.Release()

	before := mem.CurrentAlloc()
	taken, err := df.Take([]int{2, 1})
	require.NoError(t, err)
	assert.Greater(t, mem.CurrentAlloc(), before)
	assert.Same(t, mem, taken.Allocator())

	aligned, err := taken.AlignTo([]int64{1, 9})
	require.NoError(t, err)
	assert.Equal(t, []any{2.0, "b"}, aligned.Row(0))

	aligned.Release()
	taken.Release()
	assert.Equal(t, before, mem.CurrentAlloc())
}

func TestDataFrameDropRows(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	out, err := df.DropRows([]int{0, 2})
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, 1, out.Len())
	assert.Equal(t, []int64{1}, out.Index().Labels())
	assert.Equal(t, "Bob", out.Row(0)[0])
}

func TestDataFrameAlignTo(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	aligned, err := df.AlignTo([]int64{1, 7, 0})
	require.NoError(t, err)
	defer aligned.Release()

	assert.Equal(t, []any{"Bob", int64(30), 60000.0}, aligned.Row(0))
	assert.Equal(t, []any{nil, nil, nil}, aligned.Row(1))
	assert.Equal(t, "Alice", aligned.Row(2)[0])
}

func TestDataFrameAppendColumns(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()
	mem := memory.NewGoAllocator()

	out, err := df.AppendColumns(series.New("bonus", []float64{1, 2, 3}, mem))
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []string{"name", "age", "salary", "bonus"}, out.Columns())

	_, err = df.AppendColumns(series.New("age", []float64{1, 2, 3}, mem))
	assert.ErrorIs(t, err, errors.ErrDuplicateColumn)

	_, err = df.AppendColumns(series.New("short", []float64{1}, mem))
	assert.ErrorIs(t, err, errors.ErrLengthMismatch)
}

func TestDataFrameString(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	str := df.String()
	assert.Contains(t, str, "DataFrame[3x3]")
	assert.Contains(t, str, "name: utf8")
	assert.Contains(t, str, "age: int64")
	assert.Contains(t, str, "salary: float64")

	empty := New()
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, []string{}, empty.Columns())
	assert.Contains(t, empty.String(), "DataFrame[empty]")
}
