// Package mlprep prepares tabular experiment data for model training. It
// cleans missing values, drops validation rows marked by indicator columns,
// selects features, standardizes them with an invertible scaler and numbers
// groups for grouped cross validation.
//
// This package is the public API; the implementation lives in internal
// packages and is re-exported here through aliases.
package mlprep

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/cleaning"
	"github.com/paveg/mlprep/internal/config"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/features"
	mlio "github.com/paveg/mlprep/internal/io"
	"github.com/paveg/mlprep/internal/partition"
	"github.com/paveg/mlprep/internal/pipeline"
	"github.com/paveg/mlprep/internal/series"
)

type (
	// DataFrame is a labeled table of Arrow-backed columns.
	DataFrame = dataframe.DataFrame
	// Column is a type-erased column.
	Column = series.Column

	Config         = config.Config
	FilterConfig   = config.FilterConfig
	ModelConfig    = config.ModelConfig
	SplitterConfig = config.SplitterConfig
	SelectorConfig = config.SelectorConfig

	Cleaner         = cleaning.Cleaner
	CleaningRequest = cleaning.Request
	CleaningMethod  = cleaning.Method
	Strategy        = cleaning.Strategy

	Selector    = features.Selector
	Normalizer  = features.Normalizer
	Scaler      = features.Scaler
	ScalerParam = features.ScalerParam

	Partitioner     = partition.Partitioner
	Partition       = partition.Partition
	PartitionInputs = partition.Inputs
	IndexSet        = partition.IndexSet

	Runner       = pipeline.Runner
	Result       = pipeline.Result
	RunnerOption = pipeline.Option
)

// WithLogger routes every pipeline stage's logs to logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return pipeline.WithLogger(logger)
}

// WithAllocator sets the Arrow allocator used by the pipeline.
func WithAllocator(mem memory.Allocator) RunnerOption {
	return pipeline.WithAllocator(mem)
}

// WithCleaningStrategy registers a cleaning strategy for method, such as a
// ppca implementation.
func WithCleaningStrategy(method CleaningMethod, s Strategy) RunnerOption {
	return pipeline.WithCleaningStrategy(method, s)
}

// NewDataFrame builds a table with a 0..n-1 index. It takes ownership of
// cols.
func NewDataFrame(cols ...Column) *DataFrame {
	return dataframe.New(cols...)
}

// NewDataFrameWithIndex builds a table with the given row labels.
func NewDataFrameWithIndex(labels []int64, cols ...Column) (*DataFrame, error) {
	return dataframe.NewWithIndex(labels, cols...)
}

// NewSeries creates a column without nulls.
func NewSeries[T any](name string, values []T, mem memory.Allocator) Column {
	return series.New(name, values, mem)
}

// NewNullableSeries creates a column whose cells are null where valid is false.
func NewNullableSeries[T any](name string, values []T, valid []bool, mem memory.Allocator) (Column, error) {
	s, err := series.NewNullable(name, values, valid, mem)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ReadFile reads a .csv or .parquet file.
func ReadFile(path string) (*DataFrame, error) {
	return mlio.ReadFile(path, nil)
}

// WriteFile writes df to a .csv or .parquet path, storing its row labels in
// an "index" column.
func WriteFile(df *DataFrame, path string) error {
	return mlio.NewFileSink().Write(df, path)
}

// NewConfig returns a configuration with defaults applied.
func NewConfig() Config {
	return config.NewConfig()
}

// LoadConfig reads a YAML configuration file, applying MLPREP_ environment
// overrides, defaults and validation.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := config.Load(path, nil)
	return cfg, err
}

// NewRunner creates a pipeline runner for cfg.
func NewRunner(cfg Config, opts ...RunnerOption) *Runner {
	return pipeline.NewRunner(cfg, opts...)
}

// Prepare runs the preparation pipeline over an in-memory table.
func Prepare(ctx context.Context, cfg Config, df *DataFrame, opts ...RunnerOption) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cfg, opts...).Process(ctx, df)
}

// NewCleaner creates a cleaner with the remove and imputation strategies.
func NewCleaner(opts ...cleaning.Option) *Cleaner {
	return cleaning.NewCleaner(opts...)
}

// NewSelector creates a row and column selector.
func NewSelector(opts ...features.Option) *Selector {
	return features.NewSelector(opts...)
}

// NewNormalizer creates a standard scaler front end.
func NewNormalizer(opts ...features.Option) *Normalizer {
	return features.NewNormalizer(opts...)
}

// NewPartitioner creates a validation partitioner.
func NewPartitioner(opts ...partition.Option) *Partitioner {
	return partition.NewPartitioner(opts...)
}

// LoadScaler reads a scaler saved by a pipeline run, with its target name.
func LoadScaler(path string) (*Scaler, string, error) {
	return pipeline.LoadScaler(path)
}
