// Package cleaning resolves missing values in an experiment table before
// feature selection and normalization run.
//
// The Cleaner dispatches on a configured method name to a Strategy. The
// "remove" and "imputation" strategies are built in; "ppca" is recognized
// but has no implementation unless one is registered with WithStrategy.
package cleaning

import (
	"context"
	"log/slog"

	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/parallel"
)

// Method names a cleaning strategy.
type Method string

const (
	MethodRemove     Method = "remove"
	MethodImputation Method = "imputation"
	MethodPPCA       Method = "ppca"
)

// ParseMethod validates a configured method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodRemove, MethodImputation, MethodPPCA:
		return m, nil
	}
	return "", errors.NewInvalidCleaningMethodError(s)
}

// Request describes the columns a strategy works on.
type Request struct {
	// Target is the target column name; rows missing it may be dropped but
	// it is never imputed.
	Target string
	// Exclude lists columns the strategy leaves untouched, such as
	// validation and grouping columns.
	Exclude []string
}

func (r Request) skips(name string) bool {
	if name == r.Target {
		return true
	}
	for _, e := range r.Exclude {
		if e == name {
			return true
		}
	}
	return false
}

// Strategy transforms a table with missing values into one without. The
// returned table keeps the input's row labels and target column name.
type Strategy interface {
	Clean(ctx context.Context, df *dataframe.DataFrame, req Request) (*dataframe.DataFrame, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, df *dataframe.DataFrame, req Request) (*dataframe.DataFrame, error)

// Clean calls f.
func (f StrategyFunc) Clean(ctx context.Context, df *dataframe.DataFrame, req Request) (*dataframe.DataFrame, error) {
	return f(ctx, df, req)
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets the logger for warnings about the chosen method.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStrategy registers s for method, replacing any built-in strategy.
func WithStrategy(method Method, s Strategy) Option {
	return func(c *Cleaner) {
		c.strategies[method] = s
	}
}

// WithImputeStrategy selects the fill statistic of the imputation method.
func WithImputeStrategy(s ImputeStrategy) Option {
	return func(c *Cleaner) {
		c.impute = s
	}
}

// WithWorkers bounds the goroutines used for per-column imputation.
func WithWorkers(n int) Option {
	return func(c *Cleaner) {
		c.pool = parallel.NewWorkerPool(n)
	}
}

// Cleaner dispatches cleaning requests by method name.
type Cleaner struct {
	logger     *slog.Logger
	pool       *parallel.WorkerPool
	impute     ImputeStrategy
	strategies map[Method]Strategy
}

// NewCleaner creates a Cleaner with the built-in strategies registered.
func NewCleaner(opts ...Option) *Cleaner {
	c := &Cleaner{
		logger:     slog.New(slog.DiscardHandler),
		pool:       parallel.NewWorkerPool(0),
		impute:     ImputeMean,
		strategies: make(map[Method]Strategy),
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, ok := c.strategies[MethodRemove]; !ok {
		c.strategies[MethodRemove] = &Remover{logger: c.logger}
	}
	if _, ok := c.strategies[MethodImputation]; !ok {
		c.strategies[MethodImputation] = &Imputer{logger: c.logger, pool: c.pool, strategy: c.impute}
	}
	return c
}

// Clean applies the strategy registered for method. An empty method
// selects "remove".
func (c *Cleaner) Clean(
	ctx context.Context, df *dataframe.DataFrame, method string, req Request,
) (*dataframe.DataFrame, error) {
	if method == "" {
		c.logger.Warn("no cleaning method specified; features containing nulls " +
			"and rows missing the target will be removed")
		method = string(MethodRemove)
	}

	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}

	switch m {
	case MethodImputation:
		c.logger.Warn("imputation does not resolve missing target data; removing those rows is recommended")
	case MethodPPCA:
		c.logger.Warn("ppca does not estimate missing target values; removing those rows is recommended")
	}

	strategy, ok := c.strategies[m]
	if !ok {
		return nil, errors.NewStrategyUnavailableError(string(m))
	}
	return strategy.Clean(ctx, df, req)
}
