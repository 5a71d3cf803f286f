package cleaning_test

import (
	"context"
	"testing"

	"github.com/paveg/mlprep/internal/cleaning"
	"github.com/paveg/mlprep/internal/dataframe"
	dferrors "github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirtyFrame(t *testing.T) *dataframe.DataFrame {
	t.Helper()
	mem := testutil.SetupMemoryTest(t)
	return testutil.FromRows(t, mem.Allocator,
		[]string{"a", "b", "label", "holdout", "y"},
		[][]any{
			{1.0, 4.0, "x", nil, 10.0},
			{nil, 5.0, nil, int64(1), 20.0},
			{3.0, 6.0, "x", int64(0), nil},
			{4.0, 6.0, "z", int64(0), 40.0},
		})
}

func TestParseMethod(t *testing.T) {
	for _, name := range []string{"remove", "imputation", "ppca"} {
		m, err := cleaning.ParseMethod(name)
		require.NoError(t, err)
		assert.Equal(t, cleaning.Method(name), m)
	}

	_, err := cleaning.ParseMethod("drop")
	require.ErrorIs(t, err, dferrors.ErrInvalidCleaningMethod)
	assert.Contains(t, err.Error(), "choose from: remove, imputation, or ppca")
}

func TestCleanRemove(t *testing.T) {
	df := dirtyFrame(t)
	defer df.Release()

	logger, logs := testutil.NewCaptureLogger()
	c := cleaning.NewCleaner(cleaning.WithLogger(logger))

	out, err := c.Clean(context.Background(), df, "remove",
		cleaning.Request{Target: "y", Exclude: []string{"holdout"}})
	require.NoError(t, err)
	defer out.Release()

	// Row 2 lacks the target; after it is gone column b has no nulls left
	assert.Equal(t, []int64{0, 1, 3}, out.Index().Labels())
	assert.Equal(t, []string{"b", "holdout", "y"}, out.Columns())
	assert.Contains(t, logs.String(), "removed columns containing nulls")
}

func TestCleanDefaultsToRemove(t *testing.T) {
	df := dirtyFrame(t)
	defer df.Release()

	logger, logs := testutil.NewCaptureLogger()
	out, err := cleaning.NewCleaner(cleaning.WithLogger(logger)).
		Clean(context.Background(), df, "", cleaning.Request{Target: "y"})
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"b", "y"}, out.Columns())
	assert.Contains(t, logs.String(), "no cleaning method specified")
}

func TestCleanImputation(t *testing.T) {
	df := dirtyFrame(t)
	defer df.Release()

	tests := []struct {
		strategy  cleaning.ImputeStrategy
		wantA     float64
		wantLabel any
	}{
		{cleaning.ImputeMean, 8.0 / 3, nil},
		{cleaning.ImputeMedian, 3.0, nil},
		{cleaning.ImputeMostFrequent, 1.0, "x"},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			c := cleaning.NewCleaner(
				cleaning.WithImputeStrategy(tt.strategy),
				cleaning.WithLogger(testutil.NewTestLogger(t)),
			)
			out, err := c.Clean(context.Background(), df, "imputation",
				cleaning.Request{Target: "y", Exclude: []string{"holdout"}})
			require.NoError(t, err)
			defer out.Release()

			assert.Equal(t, df.Columns(), out.Columns())
			a := testutil.FloatValues(t, out, "a")
			assert.InDelta(t, tt.wantA, a[1], 1e-12)
			assert.Equal(t, tt.wantLabel, testutil.ColumnValues(t, out, "label")[1])

			// Target and excluded columns keep their nulls
			assert.Nil(t, testutil.ColumnValues(t, out, "y")[2])
			assert.Nil(t, testutil.ColumnValues(t, out, "holdout")[0])
		})
	}
}

func TestCleanPPCA(t *testing.T) {
	df := dirtyFrame(t)
	defer df.Release()

	_, err := cleaning.NewCleaner().Clean(context.Background(), df, "ppca", cleaning.Request{Target: "y"})
	require.ErrorIs(t, err, dferrors.ErrStrategyUnavailable)

	called := false
	ppca := cleaning.StrategyFunc(func(_ context.Context, df *dataframe.DataFrame, _ cleaning.Request) (*dataframe.DataFrame, error) {
		called = true
		return df.Select(df.Columns()...), nil
	})
	out, err := cleaning.NewCleaner(cleaning.WithStrategy(cleaning.MethodPPCA, ppca)).
		Clean(context.Background(), df, "ppca", cleaning.Request{Target: "y"})
	require.NoError(t, err)
	defer out.Release()
	assert.True(t, called)
}

func TestCleanInvalidMethod(t *testing.T) {
	df := dirtyFrame(t)
	defer df.Release()

	_, err := cleaning.NewCleaner().Clean(context.Background(), df, "interpolate", cleaning.Request{})
	require.ErrorIs(t, err, dferrors.ErrInvalidCleaningMethod)
}

func TestParseImputeStrategy(t *testing.T) {
	s, err := cleaning.ParseImputeStrategy("")
	require.NoError(t, err)
	assert.Equal(t, cleaning.ImputeMean, s)

	s, err = cleaning.ParseImputeStrategy("most_frequent")
	require.NoError(t, err)
	assert.Equal(t, cleaning.ImputeMostFrequent, s)

	_, err = cleaning.ParseImputeStrategy("mode")
	require.ErrorIs(t, err, dferrors.ErrInvalidInput)
}

func TestImputerWithoutValues(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	df := testutil.FromRows(t, mem.Allocator, []string{"empty", "y"}, [][]any{{nil, 1.0}, {nil, 2.0}})
	defer df.Release()

	out, err := cleaning.NewImputer(cleaning.ImputeMean, nil).
		Clean(context.Background(), df, cleaning.Request{Target: "y"})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []any{nil, nil}, testutil.ColumnValues(t, out, "empty"))
}
