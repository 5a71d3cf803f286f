package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/parallel"
	"github.com/paveg/mlprep/internal/series"
	"gonum.org/v1/gonum/stat"
)

// ImputeStrategy is the statistic used to fill nulls.
type ImputeStrategy string

const (
	ImputeMean         ImputeStrategy = "mean"
	ImputeMedian       ImputeStrategy = "median"
	ImputeMostFrequent ImputeStrategy = "most_frequent"
)

// ParseImputeStrategy validates a configured strategy. The empty string
// selects ImputeMean.
func ParseImputeStrategy(s string) (ImputeStrategy, error) {
	switch st := ImputeStrategy(s); st {
	case "":
		return ImputeMean, nil
	case ImputeMean, ImputeMedian, ImputeMostFrequent:
		return st, nil
	}
	return "", errors.NewInvalidInputError("ParseImputeStrategy",
		fmt.Sprintf("unknown imputation strategy %q", s)).
		WithHint("choose from: mean, median, most_frequent")
}

// Imputer fills nulls column by column. Numeric and boolean columns are
// filled with the mean, median or most frequent value of their non-null
// cells and become float64. Text columns are filled only by most_frequent.
type Imputer struct {
	logger   *slog.Logger
	pool     *parallel.WorkerPool
	strategy ImputeStrategy
	mem      memory.Allocator
}

// NewImputer creates an Imputer.
func NewImputer(strategy ImputeStrategy, logger *slog.Logger) *Imputer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Imputer{
		logger:   logger,
		pool:     parallel.NewWorkerPool(0),
		strategy: strategy,
	}
}

// Clean implements Strategy.
func (im *Imputer) Clean(ctx context.Context, df *dataframe.DataFrame, req Request) (*dataframe.DataFrame, error) {
	mem := im.mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	pool := im.pool
	if pool == nil {
		pool = parallel.NewWorkerPool(0)
	}

	cols, err := parallel.ProcessIndexed(ctx, pool, df.Columns(),
		func(_ context.Context, _ int, name string) (dataframe.ISeries, error) {
			col, _ := df.Column(name)
			if req.skips(name) || col.NullN() == 0 {
				return series.Rename(col, name), nil
			}
			return im.fill(col, mem), nil
		})
	if err != nil {
		return nil, err
	}
	return dataframe.NewWithIndex(df.Index().Labels(), cols...)
}

func (im *Imputer) fill(col dataframe.ISeries, mem memory.Allocator) dataframe.ISeries {
	if series.IsString(col) {
		if im.strategy != ImputeMostFrequent {
			im.logger.Warn("cannot impute text column with "+string(im.strategy)+", leaving nulls", "column", col.Name())
			return series.Rename(col, col.Name())
		}
		values := make([]string, 0, col.Len())
		for i := range col.Len() {
			if !col.IsNull(i) {
				values = append(values, col.GetAsString(i))
			}
		}
		fillValue := mostFrequent(values)
		out := make([]string, col.Len())
		for i := range out {
			if col.IsNull(i) {
				out[i] = fillValue
			} else {
				out[i] = col.GetAsString(i)
			}
		}
		im.logger.Debug("imputed column", "column", col.Name(), "value", fillValue)
		return series.New(col.Name(), out, mem)
	}

	values := make([]float64, 0, col.Len())
	for i := range col.Len() {
		if v, ok := col.Float64(i); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		im.logger.Warn("column has no values to impute from, leaving nulls", "column", col.Name())
		return series.Rename(col, col.Name())
	}

	var fillValue float64
	switch im.strategy {
	case ImputeMedian:
		fillValue = median(values)
	case ImputeMostFrequent:
		fillValue = mostFrequent(values)
	default:
		fillValue = stat.Mean(values, nil)
	}

	out := make([]float64, col.Len())
	for i := range out {
		if v, ok := col.Float64(i); ok {
			out[i] = v
		} else {
			out[i] = fillValue
		}
	}
	im.logger.Debug("imputed column", "column", col.Name(), "value", fillValue)
	return series.New(col.Name(), out, mem)
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mostFrequent returns the most common value; ties go to the smallest.
func mostFrequent[T float64 | string](values []T) T {
	counts := make(map[T]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	var best T
	bestCount := 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}
