package features_test

import (
	"testing"

	dferrors "github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/features"
	"github.com/paveg/mlprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateRowsThenKeepColumns(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.CreateSimpleTestDataFrame(mem.Allocator)
	defer df.Release()

	sel := features.NewSelector(features.WithLogger(testutil.NewTestLogger(t)))

	deduped, err := sel.RemoveDuplicateRows(df)
	require.NoError(t, err)
	defer deduped.Release()
	assert.Equal(t, 2, deduped.Len())
	assert.Equal(t, []int64{0, 1}, deduped.Index().Labels())

	kept, err := sel.KeepColumns(df, []string{"a"}, "y")
	require.NoError(t, err)
	defer kept.Release()

	assert.Equal(t, []string{"a", "y"}, kept.Columns())
	assert.Equal(t, []any{int64(1), int64(100)}, kept.Row(0))
	assert.Equal(t, []any{int64(2), int64(200)}, kept.Row(1))
	assert.Equal(t, []any{int64(2), int64(200)}, kept.Row(2))
}

func TestRemoveDuplicateRows(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	sel := features.NewSelector()

	t.Run("idempotent", func(t *testing.T) {
		df := testutil.FromRows(t, mem.Allocator, []string{"x", "label"}, [][]any{
			{1.0, "a"}, {2.0, "b"}, {1.0, "a"}, {2.0, "c"}, {2.0, "b"},
		})
		defer df.Release()

		once, err := sel.RemoveDuplicateRows(df)
		require.NoError(t, err)
		defer once.Release()
		twice, err := sel.RemoveDuplicateRows(once)
		require.NoError(t, err)
		defer twice.Release()

		assert.Equal(t, []int64{0, 1, 3}, once.Index().Labels())
		testutil.AssertDataFrameEqual(t, once, twice)
	})

	t.Run("nulls match nulls only", func(t *testing.T) {
		df := testutil.FromRows(t, mem.Allocator, []string{"x"}, [][]any{
			{nil}, {0.0}, {nil}, {0.0},
		})
		defer df.Release()

		out, err := sel.RemoveDuplicateRows(df)
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, []any{nil, 0.0}, testutil.ColumnValues(t, out, "x"))
	})

	t.Run("same data under different names is kept", func(t *testing.T) {
		df := testutil.FromRows(t, mem.Allocator, []string{"p", "q"}, [][]any{
			{int64(1), int64(1)}, {int64(2), int64(2)},
		})
		defer df.Release()

		out, err := sel.RemoveDuplicateRows(df)
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, []string{"p", "q"}, out.Columns())
		assert.Equal(t, 2, out.Len())
	})
}

func TestKeepColumnsIsComplementOfRemoveColumns(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.CreateTestDataFrame(mem.Allocator, testutil.WithHoldoutColumns())
	defer df.Release()
	sel := features.NewSelector()

	subsets := [][]string{
		{},
		{"x1"},
		{"x1", "site"},
		{"x1", "x2", "site", "holdout_a", "holdout_b"},
	}

	for _, keep := range subsets {
		kept, err := sel.KeepColumns(df, keep, "y")
		require.NoError(t, err)

		drop := complement(df.Columns(), append(append([]string(nil), keep...), "y"))
		removed, err := sel.RemoveColumns(df, drop...)
		require.NoError(t, err)

		assert.ElementsMatch(t, kept.Columns(), removed.Columns(), "keep %v", keep)
		for _, name := range kept.Columns() {
			assert.Equal(t, testutil.ColumnValues(t, kept, name), testutil.ColumnValues(t, removed, name))
		}
		kept.Release()
		removed.Release()
	}
}

func TestKeepAndRemoveColumnsMissing(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.CreateTestDataFrame(mem.Allocator)
	defer df.Release()
	sel := features.NewSelector()

	_, err := sel.RemoveColumns(df, "x1", "ghost")
	require.ErrorIs(t, err, dferrors.ErrMissingColumn)

	_, err = sel.KeepColumns(df, []string{"x1"}, "missing_target")
	require.ErrorIs(t, err, dferrors.ErrMissingColumn)

	kept, err := sel.KeepColumns(df, []string{"y", "x1"}, "y")
	require.NoError(t, err)
	defer kept.Release()
	assert.Equal(t, []string{"y", "x1"}, kept.Columns())
}

func TestAddColumns(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.CreateTestDataFrame(mem.Allocator)
	defer df.Release()
	sel := features.NewSelector(features.WithAllocator(mem.Allocator))

	t.Run("broadcasts values to every new column", func(t *testing.T) {
		out, err := sel.AddColumns(df, []string{"f1", "f2"}, []any{1.0, 2.0, nil, 4.0})
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"x1", "x2", "site", "y", "f1", "f2"}, out.Columns())
		assert.Equal(t, []any{1.0, 2.0, nil, 4.0}, testutil.ColumnValues(t, out, "f1"))
		assert.Equal(t, testutil.ColumnValues(t, out, "f1"), testutil.ColumnValues(t, out, "f2"))
		assert.Equal(t, df.Index().Labels(), out.Index().Labels())
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := sel.AddColumns(df, []string{"f1"}, []any{1.0, 2.0})
		require.ErrorIs(t, err, dferrors.ErrLengthMismatch)
	})

	t.Run("existing name", func(t *testing.T) {
		_, err := sel.AddColumns(df, []string{"x1"}, []any{1, 2, 3, 4})
		require.ErrorIs(t, err, dferrors.ErrDuplicateColumn)
	})

	t.Run("unsupported value type", func(t *testing.T) {
		_, err := sel.AddColumns(df, []string{"f"}, []any{1, 2, 3, struct{}{}})
		require.ErrorIs(t, err, dferrors.ErrUnsupportedType)
	})
}

func TestFilterRows(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.FromRows(t, mem.Allocator, []string{"x", "id"}, [][]any{
		{1, int64(0)}, {6, int64(1)}, {3, int64(2)}, {"bad", int64(3)},
	})
	defer df.Release()

	logger, logs := testutil.NewCaptureLogger()
	sel := features.NewSelector(features.WithLogger(logger))

	tests := []struct {
		name      string
		op        string
		threshold float64
		wantIDs   []any
	}{
		{"less removes coercible matches and keeps unparseable", "<", 5, []any{int64(1), int64(3)}},
		{"greater", ">", 5, []any{int64(0), int64(2), int64(3)}},
		{"equal", "=", 6, []any{int64(0), int64(2), int64(3)}},
		{"less equal", "<=", 3, []any{int64(1), int64(3)}},
		{"greater equal", ">=", 3, []any{int64(0), int64(3)}},
		{"not equal removes unparseable", "<>", 6, []any{int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := sel.FilterRows(df, "x", tt.op, tt.threshold)
			require.NoError(t, err)
			defer out.Release()
			assert.Equal(t, tt.wantIDs, testutil.ColumnValues(t, out, "id"))
		})
	}

	assert.Contains(t, logs.String(), "compared as NaN")

	t.Run("labels survive", func(t *testing.T) {
		out, err := sel.FilterRows(df, "x", "<", 5)
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, []int64{1, 3}, out.Index().Labels())
	})

	t.Run("invalid operator", func(t *testing.T) {
		_, err := sel.FilterRows(df, "x", "!=", 5)
		require.ErrorIs(t, err, dferrors.ErrInvalidOperator)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := sel.FilterRows(df, "ghost", "<", 5)
		require.ErrorIs(t, err, dferrors.ErrMissingColumn)
	})
}

func TestFilterRowsComputesPositionsOnce(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.FromRows(t, mem.Allocator, []string{"x"}, [][]any{{5.0}, {5.0}, {1.0}, {5.0}})
	defer df.Release()

	out, err := features.NewSelector().FilterRows(df, "x", "=", 5)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []int64{2}, out.Index().Labels())
}

func TestRemoveConstantColumns(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.FromRows(t, mem.Allocator, []string{"c", "v", "s", "n"}, [][]any{
		{1.0, 1.0, "k", nil},
		{1.0, 2.0, "k", nil},
		{1.0, 3.0, "k", nil},
	})
	defer df.Release()

	logger, logs := testutil.NewCaptureLogger()
	out, err := features.NewSelector(features.WithLogger(logger)).RemoveConstantColumns(df)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"v", "n"}, out.Columns())
	assert.Contains(t, logs.String(), "removed 2/4 constant columns")
}

func TestParseOperator(t *testing.T) {
	for _, token := range []string{"<", ">", "=", "<=", ">=", "<>"} {
		op, err := features.ParseOperator(token)
		require.NoError(t, err)
		assert.Equal(t, token, op.String())
	}

	_, err := features.ParseOperator("==")
	var dfErr *dferrors.DataFrameError
	require.ErrorAs(t, err, &dfErr)
	assert.Contains(t, dfErr.Error(), `"=="`)
}

func complement(all, exclude []string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	var out []string
	for _, name := range all {
		if !skip[name] {
			out = append(out, name)
		}
	}
	return out
}
