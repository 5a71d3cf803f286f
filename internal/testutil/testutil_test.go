package testutil_test

import (
	"testing"

	"github.com/paveg/mlprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMemoryTest(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	require.NotNil(t, mem.Allocator)

	df := testutil.CreateTestDataFrame(mem.Allocator)
	defer df.Release()
	assert.NotNil(t, df)
}

func TestCreateTestDataFrame(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	t.Run("default configuration", func(t *testing.T) {
		df := testutil.CreateTestDataFrame(mem.Allocator)
		defer df.Release()

		assert.Equal(t, 4, df.Len())
		testutil.AssertDataFrameHasColumns(t, df, []string{"x1", "x2", "site", "y"})
	})

	t.Run("with holdout columns", func(t *testing.T) {
		df := testutil.CreateTestDataFrame(mem.Allocator, testutil.WithHoldoutColumns())
		defer df.Release()

		assert.Equal(t, 6, df.Width())
		assert.Equal(t, []any{int64(1), int64(0), int64(0), int64(1)}, testutil.ColumnValues(t, df, "holdout_a"))
	})

	t.Run("with nulls and custom row count", func(t *testing.T) {
		df := testutil.CreateTestDataFrame(mem.Allocator, testutil.WithRowCount(6), testutil.WithNulls())
		defer df.Release()

		assert.Equal(t, 6, df.Len())
		col, ok := df.Column("x1")
		require.True(t, ok)
		assert.Equal(t, 2, col.NullN())
	})
}

func TestFromRows(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := testutil.FromRows(t, mem.Allocator, []string{"x", "label"}, [][]any{
		{1.0, "a"},
		{nil, "b"},
	})
	defer df.Release()

	assert.Equal(t, []any{1.0, nil}, testutil.ColumnValues(t, df, "x"))
	assert.Equal(t, []any{"a", "b"}, testutil.ColumnValues(t, df, "label"))
}

func TestAssertDataFrameEqual(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df1 := testutil.CreateSimpleTestDataFrame(mem.Allocator)
	defer df1.Release()
	df2 := testutil.CreateSimpleTestDataFrame(mem.Allocator)
	defer df2.Release()

	testutil.AssertDataFrameEqual(t, df1, df2)
}

func TestCaptureLogger(t *testing.T) {
	logger, buf := testutil.NewCaptureLogger()
	logger.Info("excluded column", "column", "site")

	assert.Contains(t, buf.String(), "excluded column")
	assert.Contains(t, buf.String(), "column=site")

	testutil.NewTestLogger(t).Debug("visible with -v")
}
