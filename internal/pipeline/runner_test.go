package pipeline_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/cleaning"
	"github.com/paveg/mlprep/internal/config"
	"github.com/paveg/mlprep/internal/dataframe"
	dferrors "github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/monitoring"
	"github.com/paveg/mlprep/internal/pipeline"
	"github.com/paveg/mlprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var experimentColumns = []string{"x1", "x2", "c", "txt", "hold", "site", "y"}

func experimentRows() [][]any {
	return [][]any{
		{1.0, 10.0, 1.0, "p", 0, "a", 0.1},
		{2.0, nil, 1.0, "q", 0, "b", 0.2},
		{3.0, 30.0, 1.0, "p", 1, "a", 0.3},
		{4.0, 40.0, 1.0, "q", 0, "b", nil},
		{5.0, 50.0, 1.0, "p", 0, "a", 0.5},
		{6.0, 60.0, 1.0, "q", 1, "b", 0.6},
	}
}

func experimentConfig() config.Config {
	cfg := config.NewConfig()
	cfg.Target = "y"
	cfg.ValidationColumns = []string{"hold"}
	cfg.GroupingColumn = "site"
	cfg.CleaningMethod = "remove"
	cfg.RemoveConstant = true
	cfg.Workers = 2
	return cfg
}

func TestProcess(t *testing.T) {
	mem := memory.NewGoAllocator()
	raw := testutil.FromRows(t, mem, experimentColumns, experimentRows())
	defer raw.Release()

	metrics := monitoring.NewMetricsCollector(true)
	runner := pipeline.NewRunner(experimentConfig(),
		pipeline.WithLogger(testutil.NewTestLogger(t)),
		pipeline.WithAllocator(mem),
		pipeline.WithMetrics(metrics),
	)

	res, err := runner.Process(context.Background(), raw)
	require.NoError(t, err)
	defer res.Release()

	// x2 holds a null and c is constant; txt stays out of the scaler
	mean, scale := 8.0/3, math.Sqrt(78.0/27)
	assert.Equal(t, []string{"x1"}, res.Features)
	assert.Equal(t, []string{"x1", "y"}, res.Dataset.Columns())
	assert.Equal(t, []int64{0, 1, 4}, res.Dataset.Index().Labels())
	assert.InDeltaSlice(t, []float64{(1 - mean) / scale, (2 - mean) / scale, (5 - mean) / scale},
		testutil.FloatValues(t, res.Dataset, "x1"), 1e-9)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.5}, testutil.FloatValues(t, res.Dataset, "y"), 1e-12)

	require.NotNil(t, res.Scaler)
	require.Equal(t, 1, res.Scaler.Len())
	assert.Equal(t, "x1", res.Scaler.Param(0).Column)
	assert.InDelta(t, mean, res.Scaler.Param(0).Mean, 1e-9)
	assert.InDelta(t, scale, res.Scaler.Param(0).Scale, 1e-9)

	assert.Equal(t, []string{"hold"}, res.Indicators)
	held := res.HeldOut["hold"]
	require.NotNil(t, held)
	assert.Equal(t, []int64{2, 5}, held.Index().Labels())
	assert.InDeltaSlice(t, []float64{(3 - mean) / scale, (6 - mean) / scale},
		testutil.FloatValues(t, held, "x1"), 1e-9)
	assert.InDeltaSlice(t, []float64{0.3, 0.6}, testutil.FloatValues(t, held, "y"), 1e-12)

	require.NotNil(t, res.Groups)
	assert.Equal(t, []any{int64(1), int64(2), int64(1)}, testutil.ColumnValues(t, res.Groups, "site"))
	assert.Equal(t, []int64{0, 1, 4}, res.Groups.Index().Labels())

	var stages []string
	for _, m := range metrics.GetMetrics() {
		stages = append(stages, m.Operation)
	}
	assert.Equal(t, []string{
		pipeline.StageBind, pipeline.StageClean, pipeline.StageSelect,
		pipeline.StagePartition, pipeline.StageNormalize,
	}, stages)
}

func TestProcessWithoutNormalization(t *testing.T) {
	mem := memory.NewGoAllocator()
	raw := testutil.FromRows(t, mem, experimentColumns, experimentRows())
	defer raw.Release()

	cfg := config.NewConfig()
	cfg.Target = "y"
	cfg.CleaningMethod = "remove"
	cfg.Features = []string{"x1", "txt", "x2"}
	cfg.Normalize = false
	cfg.Filters = []config.FilterConfig{{Column: "x1", Op: ">", Threshold: 5}}

	logger, logs := testutil.NewCaptureLogger()
	res, err := pipeline.NewRunner(cfg, pipeline.WithLogger(logger)).Process(context.Background(), raw)
	require.NoError(t, err)
	defer res.Release()

	assert.Nil(t, res.Scaler)
	assert.Nil(t, res.Groups)
	assert.Empty(t, res.HeldOut)
	assert.Equal(t, []string{"x1", "txt"}, res.Features)
	assert.Equal(t, []string{"x1", "txt", "y"}, res.Dataset.Columns())
	// label 3 misses the target and label 5 is filtered out
	assert.Equal(t, []int64{0, 1, 2, 4}, res.Dataset.Index().Labels())
	assert.Equal(t, []any{"p", "q", "p", "p"}, testutil.ColumnValues(t, res.Dataset, "txt"))
	assert.Contains(t, logs.String(), "feature removed during cleaning")
}

func TestProcessDeduplicates(t *testing.T) {
	mem := memory.NewGoAllocator()
	raw := testutil.FromRows(t, mem, []string{"x", "y"}, [][]any{
		{1.0, 1.0}, {1.0, 1.0}, {2.0, 3.0},
	})
	defer raw.Release()

	cfg := config.NewConfig()
	cfg.Target = "y"
	cfg.RemoveDuplicates = true
	cfg.Normalize = false

	res, err := pipeline.NewRunner(cfg).Process(context.Background(), raw)
	require.NoError(t, err)
	defer res.Release()
	assert.Equal(t, []int64{0, 2}, res.Dataset.Index().Labels())
}

func TestProcessErrors(t *testing.T) {
	mem := memory.NewGoAllocator()
	raw := testutil.FromRows(t, mem, experimentColumns, experimentRows())
	defer raw.Release()

	tests := []struct {
		name   string
		modify func(*config.Config)
		want   error
	}{
		{
			name:   "missing target column",
			modify: func(c *config.Config) { c.Target = "nope" },
			want:   dferrors.ErrMissingColumn,
		},
		{
			name:   "missing validation column",
			modify: func(c *config.Config) { c.ValidationColumns = []string{"fold"} },
			want:   dferrors.ErrMissingColumn,
		},
		{
			name:   "missing configured feature",
			modify: func(c *config.Config) { c.Features = []string{"x1", "x9"} },
			want:   dferrors.ErrMissingColumn,
		},
		{
			name: "selector without its model",
			modify: func(c *config.Config) {
				c.Selectors = map[string]config.SelectorConfig{"rfe": {Kind: "rfe", Estimator: "lasso"}}
			},
			want: dferrors.ErrMissingBinding,
		},
		{
			name:   "unregistered strategy",
			modify: func(c *config.Config) { c.CleaningMethod = "ppca" },
			want:   dferrors.ErrStrategyUnavailable,
		},
		{
			name:   "nothing left to use as a feature",
			modify: func(c *config.Config) { c.Features = []string{"c"} },
			want:   dferrors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := experimentConfig()
			tt.modify(&cfg)
			_, err := pipeline.NewRunner(cfg).Process(context.Background(), raw)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProcessCustomStrategy(t *testing.T) {
	mem := memory.NewGoAllocator()
	raw := testutil.FromRows(t, mem, experimentColumns, experimentRows())
	defer raw.Release()

	cfg := experimentConfig()
	cfg.CleaningMethod = "ppca"

	called := false
	passthrough := cleaning.StrategyFunc(func(_ context.Context, df *dataframe.DataFrame, req cleaning.Request) (*dataframe.DataFrame, error) {
		called = true
		assert.Equal(t, "y", req.Target)
		// drop the row without a target so the scaler still fits
		return df.DropRows([]int{3})
	})

	res, err := pipeline.NewRunner(cfg, pipeline.WithCleaningStrategy(cleaning.MethodPPCA, passthrough)).
		Process(context.Background(), raw)
	require.NoError(t, err)
	defer res.Release()

	assert.True(t, called)
	// x2 keeps its null since the strategy left it in place
	assert.Equal(t, []string{"x1", "x2"}, res.Features)
}

func TestProcessBindings(t *testing.T) {
	mem := memory.NewGoAllocator()
	raw := testutil.FromRows(t, mem, experimentColumns, experimentRows())
	defer raw.Release()

	cfg := experimentConfig()
	cfg.GroupingColumn = ""
	cfg.Models = map[string]config.ModelConfig{
		"lasso":  {Kind: "lasso"},
		"forest": {Kind: "random_forest"},
	}
	cfg.Splitters = map[string]config.SplitterConfig{
		"grouped": {Kind: "group_kfold", GroupingColumn: "site"},
	}
	cfg.Selectors = map[string]config.SelectorConfig{
		"rfe": {Kind: "rfe", Estimator: "lasso", CV: "grouped"},
	}

	res, err := pipeline.NewRunner(cfg).Process(context.Background(), raw)
	require.NoError(t, err)
	defer res.Release()

	rfe := res.Selectors["rfe"]
	require.NotNil(t, rfe.Model)
	require.NotNil(t, rfe.Splitter)
	assert.Equal(t, "lasso", rfe.Model.Kind)
	assert.Empty(t, rfe.Splitter.GroupingColumn)
	assert.Equal(t, []string{"forest"}, keys(res.Models))
	assert.Empty(t, res.Splitters)

	// the splitter's grouping column still produces group numbers
	require.NotNil(t, res.Groups)
	assert.Equal(t, []string{"site"}, res.Groups.Columns())
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "experiment.csv")
	require.NoError(t, os.WriteFile(data, []byte(
		"x1,x2,hold,site,y\n"+
			"1,10,0,a,0.1\n"+
			"2,21,0,b,0.2\n"+
			"3,29,1,a,0.3\n"+
			"4,42,0,b,\n"+
			"5,50,0,a,0.5\n"), 0o644))

	cfg := experimentConfig()
	cfg.DataPath = data
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.OutputFormat = "parquet"

	runner := pipeline.NewRunner(cfg)
	written, err := runner.Run(context.Background())
	require.NoError(t, err)

	out := cfg.OutputDir
	assert.Equal(t, []string{
		filepath.Join(out, "dataset.parquet"),
		filepath.Join(out, "heldout_hold.parquet"),
		filepath.Join(out, "groups.parquet"),
		filepath.Join(out, "scaler.yaml"),
		filepath.Join(out, "config.yaml"),
	}, written)

	for _, m := range runner.Metrics().GetMetrics() {
		assert.False(t, m.Failed, m.Operation)
	}

	scaler, target, err := pipeline.LoadScaler(filepath.Join(out, "scaler.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "y", target)
	assert.Equal(t, []string{"x1", "x2"}, scaler.Columns())

	resolved, _, err := config.Load(filepath.Join(out, "config.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "y", resolved.Target)
	assert.Equal(t, []string{"hold"}, resolved.ValidationColumns)
}

func TestRunTreatsMissingMarkersAsNulls(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "experiment.csv")
	require.NoError(t, os.WriteFile(data, []byte(
		"a,b,x,hold,site,y\n"+
			"1,1,1,0,a,10\n"+
			"NaN,NA,2,0,b,20\n"+
			"3,3,4,1,a,30\n"+
			"4,4,6,0,b,40\n"), 0o644))

	cfg := experimentConfig()
	cfg.DataPath = data
	cfg.OutputDir = filepath.Join(dir, "out")

	_, err := pipeline.NewRunner(cfg).Run(context.Background())
	require.NoError(t, err)

	scaler, _, err := pipeline.LoadScaler(filepath.Join(cfg.OutputDir, "scaler.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, scaler.Columns())
	assert.InDelta(t, 3.0, scaler.Param(0).Mean, 1e-12)
}

func TestRunRequiresDataPath(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Target = "y"
	_, err := pipeline.NewRunner(cfg).Run(context.Background())
	require.ErrorIs(t, err, dferrors.ErrInvalidInput)
}

func TestLoadScalerErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := pipeline.LoadScaler(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("target: y\nparams: []\n"), 0o644))
	_, _, err = pipeline.LoadScaler(empty)
	require.ErrorIs(t, err, dferrors.ErrInvalidInput)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
