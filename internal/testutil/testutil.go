// Package testutil provides common testing utilities shared by the
// feature preparation packages.
//
// It covers:
//   - Memory allocator setup and cleanup
//   - Standard experiment DataFrame fixtures
//   - Structured log capture
//   - Common DataFrame assertions
package testutil

import (
	"bytes"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// defaultRowCount is the default number of rows in test DataFrames.
	defaultRowCount = 4

	// floatTolerance is the absolute tolerance used by AssertDataFrameEqual.
	floatTolerance = 1e-9
)

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator with automatic cleanup for tests.
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	allocator := memory.NewGoAllocator()

	return &TestMemoryContext{
		Allocator: allocator,
		cleanup: func() {
			// Go allocator memory is reclaimed by the GC
		},
	}
}

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// LogBuffer collects log output for assertions.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewCaptureLogger returns a debug level logger writing into the returned buffer.
func NewCaptureLogger() (*slog.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// TestDataFrameOption configures test DataFrame creation.
type TestDataFrameOption func(*testDataFrameConfig)

type testDataFrameConfig struct {
	includeNulls bool
	rowCount     int
	withHoldout  bool
}

// WithNulls makes every third x1 cell null.
func WithNulls() TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.includeNulls = true
	}
}

// WithRowCount sets the number of rows in test data.
func WithRowCount(count int) TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.rowCount = count
	}
}

// WithHoldoutColumns includes the 0/1 indicator columns "holdout_a" and "holdout_b".
func WithHoldoutColumns() TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.withHoldout = true
	}
}

// CreateTestDataFrame creates a standard experiment DataFrame.
//
// Default DataFrame includes:
//   - x1 (float64): [1.5, 2.0, 3.5, 4.0]
//   - x2 (int64): [10, 20, 30, 40]
//   - site (string): ["north", "south", "north", "east"]
//   - y (float64): [0.1, 0.4, 0.35, 0.8]
//
// WithHoldoutColumns adds holdout_a = [1,0,0,1] and holdout_b = [0,0,1,0].
func CreateTestDataFrame(allocator memory.Allocator, opts ...TestDataFrameOption) *dataframe.DataFrame {
	cfg := &testDataFrameConfig{
		rowCount: defaultRowCount,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	x1 := cycle(cfg.rowCount, []float64{1.5, 2.0, 3.5, 4.0, 5.5, 6.0, 7.5, 8.0})
	valid := make([]bool, cfg.rowCount)
	for i := range valid {
		valid[i] = !cfg.includeNulls || i%3 != 2
	}
	x1Series, _ := series.NewNullable("x1", x1, valid, allocator)

	seriesList := []dataframe.ISeries{
		x1Series,
		series.New("x2", cycle(cfg.rowCount, []int64{10, 20, 30, 40, 50, 60, 70, 80}), allocator),
		series.New("site", cycle(cfg.rowCount, []string{"north", "south", "north", "east"}), allocator),
		series.New("y", cycle(cfg.rowCount, []float64{0.1, 0.4, 0.35, 0.8, 0.55, 0.2, 0.9, 0.3}), allocator),
	}

	if cfg.withHoldout {
		seriesList = append(seriesList,
			series.New("holdout_a", cycle(cfg.rowCount, []int64{1, 0, 0, 1}), allocator),
			series.New("holdout_b", cycle(cfg.rowCount, []int64{0, 0, 1, 0}), allocator),
		)
	}

	df := dataframe.New(seriesList...)
	df.SetAllocator(allocator)
	return df
}

// CreateSimpleTestDataFrame creates the three row [a, b, y] table with one
// duplicated row.
func CreateSimpleTestDataFrame(allocator memory.Allocator) *dataframe.DataFrame {
	df := dataframe.New(
		series.New("a", []int64{1, 2, 2}, allocator),
		series.New("b", []int64{10, 20, 20}, allocator),
		series.New("y", []int64{100, 200, 200}, allocator),
	)
	df.SetAllocator(allocator)
	return df
}

// FromRows builds a DataFrame from loosely typed rows. nil cells are nulls.
func FromRows(tb testing.TB, allocator memory.Allocator, columns []string, rows [][]any) *dataframe.DataFrame {
	tb.Helper()

	cols := make([]dataframe.ISeries, len(columns))
	for j, name := range columns {
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = row[j]
		}
		c, err := series.FromAny(name, values, allocator)
		require.NoError(tb, err)
		cols[j] = c
	}

	df, err := dataframe.NewSafe(cols...)
	require.NoError(tb, err)
	df.SetAllocator(allocator)
	return df
}

// AssertDataFrameEqual compares column names, row labels and cell values.
// Float cells match within a small absolute tolerance; NaN equals NaN.
func AssertDataFrameEqual(t *testing.T, expected, actual *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, expected, "expected DataFrame should not be nil")
	require.NotNil(t, actual, "actual DataFrame should not be nil")

	require.Equal(t, expected.Columns(), actual.Columns(), "DataFrame columns should match")
	require.Equal(t, expected.Len(), actual.Len(), "DataFrame lengths should match")
	assert.Equal(t, expected.Index().Labels(), actual.Index().Labels(), "row labels should match")

	for i := range expected.Len() {
		want, got := expected.Row(i), actual.Row(i)
		for j, name := range expected.Columns() {
			assertCellEqual(t, want[j], got[j], "column %s row %d", name, i)
		}
	}
}

func assertCellEqual(t *testing.T, want, got any, msgAndArgs ...any) {
	t.Helper()
	wf, wok := want.(float64)
	gf, gok := got.(float64)
	if wok && gok {
		if math.IsNaN(wf) {
			assert.True(t, math.IsNaN(gf), msgAndArgs...)
			return
		}
		assert.InDelta(t, wf, gf, floatTolerance, msgAndArgs...)
		return
	}
	assert.Equal(t, want, got, msgAndArgs...)
}

// AssertDataFrameHasColumns verifies that a DataFrame has exactly the expected columns in order.
func AssertDataFrameHasColumns(t *testing.T, df *dataframe.DataFrame, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Equal(t, expectedColumns, df.Columns())
}

// ColumnValues returns the cells of one column, nil for nulls.
func ColumnValues(t *testing.T, df *dataframe.DataFrame, name string) []any {
	t.Helper()

	col, ok := df.Column(name)
	require.True(t, ok, "column %s should exist", name)
	out := make([]any, col.Len())
	for i := range out {
		out[i] = col.Any(i)
	}
	return out
}

// FloatValues returns the float coercion of one column; NaN marks cells that
// do not coerce.
func FloatValues(t *testing.T, df *dataframe.DataFrame, name string) []float64 {
	t.Helper()

	col, ok := df.Column(name)
	require.True(t, ok, "column %s should exist", name)
	out := make([]float64, col.Len())
	for i := range out {
		f, ok := col.Float64(i)
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

func cycle[T any](count int, base []T) []T {
	out := make([]T, count)
	for i := range count {
		out[i] = base[i%len(base)]
	}
	return out
}
