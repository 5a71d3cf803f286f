// Package features implements the feature selection and normalization
// operations applied to an experiment table before model fitting.
//
// Every operation returns a new DataFrame and leaves its input untouched;
// the caller owns and releases both.
package features

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/parallel"
)

// Sink persists a table to a destination path.
type Sink interface {
	Write(df *dataframe.DataFrame, path string) error
}

// Option configures a Selector or a Normalizer.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	mem          memory.Allocator
	pool         *parallel.WorkerPool
	zeroVariance ZeroVariancePolicy
	sink         Sink
	snapshotPath string
}

func defaultOptions() *options {
	return &options{
		logger:       slog.New(slog.DiscardHandler),
		mem:          memory.NewGoAllocator(),
		pool:         parallel.NewWorkerPool(0),
		zeroVariance: ZeroVarianceUnitScale,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for informational and warning messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAllocator sets the Arrow allocator for new columns.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		if mem != nil {
			o.mem = mem
		}
	}
}

// WithWorkers bounds the goroutines used for per-column work.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.pool = parallel.NewWorkerPool(n)
	}
}

// WithZeroVariance sets how zero variance columns are standardized.
func WithZeroVariance(policy ZeroVariancePolicy) Option {
	return func(o *options) {
		o.zeroVariance = policy
	}
}

// WithSnapshot writes every normalized table to path through sink.
func WithSnapshot(sink Sink, path string) Option {
	return func(o *options) {
		o.sink = sink
		o.snapshotPath = path
	}
}
