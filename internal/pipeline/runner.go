// Package pipeline runs the full preparation of one experiment table: bind
// the configured selectors, clean, select rows, partition out validation
// rows, normalize and persist.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/cleaning"
	"github.com/paveg/mlprep/internal/config"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/features"
	mlio "github.com/paveg/mlprep/internal/io"
	"github.com/paveg/mlprep/internal/monitoring"
	"github.com/paveg/mlprep/internal/partition"
	"github.com/paveg/mlprep/internal/series"
	"github.com/paveg/mlprep/internal/validation"
)

// Stage names recorded in the metrics collector.
const (
	StageLoad      = "load"
	StageBind      = "bind"
	StageClean     = "clean"
	StageSelect    = "select"
	StagePartition = "partition"
	StageNormalize = "normalize"
	StagePersist   = "persist"
)

// Result is the prepared experiment data. The caller releases it.
type Result struct {
	// Dataset holds the kept rows: feature columns, normalized when
	// enabled, followed by the target.
	Dataset  *dataframe.DataFrame
	Features []string
	Target   string
	// Scaler is nil when normalization is disabled.
	Scaler *features.Scaler

	// Indicators lists the validation columns in configuration order and
	// HeldOut holds, per indicator, the rows it marks with 1 in Dataset's
	// layout.
	Indicators []string
	HeldOut    map[string]*dataframe.DataFrame

	// Groups holds one int64 group number column per grouping column for
	// the kept rows; nil without grouping columns.
	Groups *dataframe.DataFrame

	// Resolved bindings. Models and Splitters are the entries left after
	// selectors took theirs; splitters no longer carry grouping columns.
	Selectors map[string]config.SelectorConfig
	Models    map[string]config.ModelConfig
	Splitters map[string]config.SplitterConfig
}

// Release releases every table of the result.
func (r *Result) Release() {
	if r == nil {
		return
	}
	for _, df := range r.HeldOut {
		df.Release()
	}
	for _, df := range []*dataframe.DataFrame{r.Dataset, r.Groups} {
		if df != nil {
			df.Release()
		}
	}
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger passed to every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAllocator sets the Arrow allocator for loaded and derived columns.
func WithAllocator(mem memory.Allocator) Option {
	return func(r *Runner) {
		if mem != nil {
			r.mem = mem
		}
	}
}

// WithMetrics records every stage in mc.
func WithMetrics(mc *monitoring.MetricsCollector) Option {
	return func(r *Runner) {
		if mc != nil {
			r.metrics = mc
		}
	}
}

// WithSink sets where tables are persisted.
func WithSink(sink features.Sink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithCleaningStrategy registers a cleaning strategy, such as ppca.
func WithCleaningStrategy(method cleaning.Method, s cleaning.Strategy) Option {
	return func(r *Runner) {
		r.strategies[method] = s
	}
}

// Runner executes the preparation pipeline for one configuration.
type Runner struct {
	cfg        config.Config
	logger     *slog.Logger
	mem        memory.Allocator
	metrics    *monitoring.MetricsCollector
	sink       features.Sink
	strategies map[cleaning.Method]cleaning.Strategy
}

// NewRunner creates a Runner. cfg should already be validated.
func NewRunner(cfg config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:        cfg.WithDefaults(),
		logger:     slog.New(slog.DiscardHandler),
		mem:        memory.NewGoAllocator(),
		metrics:    monitoring.NewMetricsCollector(true),
		sink:       mlio.NewFileSink(),
		strategies: map[cleaning.Method]cleaning.Strategy{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns the collector the runner records into.
func (r *Runner) Metrics() *monitoring.MetricsCollector {
	return r.metrics
}

// Run loads the configured data file, prepares it and persists the result
// to the output directory. It returns the paths written.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	if r.cfg.DataPath == "" {
		return nil, errors.NewInvalidInputError("Run", "data_path must be set")
	}

	var raw *dataframe.DataFrame
	err := r.metrics.RecordOperation(StageLoad, func(c *monitoring.RowCounts) error {
		var err error
		raw, err = mlio.ReadFile(r.cfg.DataPath, r.mem)
		if err != nil {
			return err
		}
		c.Out = raw.Len()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	defer raw.Release()
	r.logger.Info("loaded dataset", "path", r.cfg.DataPath, "rows", raw.Len(), "columns", raw.Width())

	res, err := r.Process(ctx, raw)
	if err != nil {
		return nil, err
	}
	defer res.Release()

	return r.Persist(res)
}

// Process prepares an in-memory table.
func (r *Runner) Process(ctx context.Context, raw *dataframe.DataFrame) (_ *Result, err error) {
	cfg := r.cfg
	res := &Result{Target: cfg.Target, HeldOut: map[string]*dataframe.DataFrame{}}
	defer func() {
		if err != nil {
			res.Release()
		}
	}()

	if err := r.metrics.RecordOperation(StageBind, func(*monitoring.RowCounts) error {
		return r.bind(res)
	}); err != nil {
		return nil, fmt.Errorf("bind: %w", err)
	}

	// Derived columns come from the runner's allocator.
	raw = raw.Select(raw.Columns()...)
	raw.SetAllocator(r.mem)
	defer raw.Release()

	groupCols := cfg.GroupingColumns()
	required := append(append([]string{cfg.Target}, cfg.ValidationColumns...), groupCols...)
	if err := validation.ValidateColumns(raw, "Run", required...); err != nil {
		return nil, err
	}

	// clean
	var cur *dataframe.DataFrame
	err = r.metrics.RecordOperation(StageClean, func(c *monitoring.RowCounts) error {
		c.In = raw.Len()
		cleaner := cleaning.NewCleaner(r.cleanerOptions()...)
		req := cleaning.Request{Target: cfg.Target, Exclude: cfg.RoleColumns()}
		var err error
		if cur, err = cleaner.Clean(ctx, raw, cfg.CleaningMethod, req); err != nil {
			return err
		}
		c.Out = cur.Len()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	defer func() { cur.Release() }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// select
	var featureNames []string
	err = r.metrics.RecordOperation(StageSelect, func(c *monitoring.RowCounts) error {
		c.In = cur.Len()
		var err error
		if cur, featureNames, err = r.selectRows(raw, cur); err != nil {
			return err
		}
		c.Out = cur.Len()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// partition
	var part *partition.Partition
	err = r.metrics.RecordOperation(StagePartition, func(c *monitoring.RowCounts) error {
		c.In = cur.Len()
		in := partition.Inputs{
			Raw:      cur,
			Features: cur.Select(featureNames...),
			Target:   cur.Select(cfg.Target),
		}
		if len(groupCols) > 0 {
			in.Grouping = cur.Select(groupCols...)
		}
		defer releaseInputs(in)

		var err error
		p := partition.NewPartitioner(partition.WithLogger(r.logger))
		if part, err = p.Partition(in, cfg.ValidationColumns); err != nil {
			return err
		}
		c.Out = part.Target.Len()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	defer part.Release()
	res.Indicators = part.IndicatorNames

	// normalize
	err = r.metrics.RecordOperation(StageNormalize, func(c *monitoring.RowCounts) error {
		c.In = part.Target.Len()
		if err := r.normalize(res, part, cur, featureNames); err != nil {
			return err
		}
		c.Out = res.Dataset.Len()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	if part.Grouping != nil {
		if res.Groups, err = r.groupNumbers(part.Grouping); err != nil {
			return nil, err
		}
	}

	r.logger.Info("prepared dataset",
		"rows", res.Dataset.Len(), "features", len(res.Features), "held_out", len(res.HeldOut))
	return res, nil
}

func (r *Runner) bind(res *Result) error {
	splitters, groups := config.ExtractGroupingColumns(r.cfg.Splitters)
	for name, col := range groups {
		r.logger.Debug("splitter grouping column", "splitter", name, "column", col)
	}

	selectors, models, err := config.SnatchModels(r.cfg.Models, r.cfg.Selectors)
	if err != nil {
		return err
	}
	selectors, splitters, err = config.SnatchSplitters(splitters, selectors)
	if err != nil {
		return err
	}
	res.Selectors, res.Models, res.Splitters = selectors, models, splitters
	return nil
}

func (r *Runner) cleanerOptions() []cleaning.Option {
	strategy, _ := cleaning.ParseImputeStrategy(r.cfg.ImputationStrategy)
	opts := []cleaning.Option{
		cleaning.WithLogger(r.logger),
		cleaning.WithImputeStrategy(strategy),
		cleaning.WithWorkers(r.cfg.Workers),
	}
	for m, s := range r.strategies {
		opts = append(opts, cleaning.WithStrategy(m, s))
	}
	return opts
}

// selectRows applies deduplication and row filters to cur, releasing it,
// and resolves the feature columns. Constant columns are judged later, on
// the non-validation rows only.
func (r *Runner) selectRows(raw, cur *dataframe.DataFrame) (*dataframe.DataFrame, []string, error) {
	cfg := r.cfg
	sel := features.NewSelector(features.WithLogger(r.logger), features.WithAllocator(r.mem))

	step := func(next *dataframe.DataFrame, err error) error {
		if err != nil {
			return err
		}
		cur.Release()
		cur = next
		return nil
	}

	if cfg.RemoveDuplicates {
		if err := step(sel.RemoveDuplicateRows(cur)); err != nil {
			return cur, nil, err
		}
	}
	for _, f := range cfg.Filters {
		if err := step(sel.FilterRows(cur, f.Column, f.Op, f.Threshold)); err != nil {
			return cur, nil, err
		}
	}

	names, err := r.resolveFeatures(raw, cur)
	if err != nil {
		return cur, nil, err
	}
	if len(names) == 0 {
		return cur, nil, errNoFeatures()
	}
	return cur, names, nil
}

func errNoFeatures() error {
	return errors.NewInvalidInputError("Run", "no feature columns left after cleaning and selection")
}

// resolveFeatures returns the configured features still present after
// cleaning, or every non-role column when none are configured. A configured
// feature absent from the raw table is an error.
func (r *Runner) resolveFeatures(raw, cur *dataframe.DataFrame) ([]string, error) {
	roles := r.cfg.RoleColumns()
	if len(r.cfg.Features) == 0 {
		var names []string
		for _, name := range cur.Columns() {
			if !slices.Contains(roles, name) {
				names = append(names, name)
			}
		}
		return names, nil
	}

	if err := validation.ValidateColumns(raw, "KeepColumns", r.cfg.Features...); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.cfg.Features))
	for _, name := range r.cfg.Features {
		switch {
		case slices.Contains(roles, name):
			r.logger.Warn("ignoring feature that is also a role column", "column", name)
		case !cur.HasColumn(name):
			r.logger.Warn("feature removed during cleaning", "column", name)
		case !slices.Contains(names, name):
			names = append(names, name)
		}
	}
	return names, nil
}

func (r *Runner) normalize(res *Result, part *partition.Partition, cur *dataframe.DataFrame, featureNames []string) error {
	cfg := r.cfg
	feats := part.Features
	if cfg.RemoveConstant {
		sel := features.NewSelector(features.WithLogger(r.logger), features.WithAllocator(r.mem))
		varying, err := sel.RemoveConstantColumns(feats)
		if err != nil {
			return err
		}
		defer varying.Release()
		feats, featureNames = varying, varying.Columns()
		if len(featureNames) == 0 {
			return errNoFeatures()
		}
	}

	targetCol, _ := part.Target.Column(cfg.Target)
	joined, err := feats.AppendColumns(series.Rename(targetCol, cfg.Target))
	if err != nil {
		return err
	}

	var norm *features.Normalizer
	if cfg.Normalize {
		policy, _ := features.ParseZeroVariancePolicy(cfg.ZeroVariance)
		opts := []features.Option{
			features.WithLogger(r.logger),
			features.WithAllocator(r.mem),
			features.WithWorkers(cfg.Workers),
			features.WithZeroVariance(policy),
		}
		if cfg.SnapshotPath != "" {
			opts = append(opts, features.WithSnapshot(r.sink, cfg.SnapshotPath))
		}
		norm = features.NewNormalizer(opts...)

		out, scaler, err := norm.FitAndNormalize(joined, featureNames, cfg.Target)
		joined.Release()
		if err != nil {
			return err
		}
		res.Dataset, res.Scaler = out, scaler
	} else {
		res.Dataset = joined
	}

	for _, name := range res.Dataset.Columns() {
		if name != cfg.Target {
			res.Features = append(res.Features, name)
		}
	}

	layout := append(slices.Clone(res.Features), cfg.Target)
	block := cur.Select(layout...)
	defer block.Release()
	for _, name := range part.IndicatorNames {
		held, err := block.TakeLabels(part.HeldOut[name].Labels())
		if err != nil {
			return err
		}
		if norm != nil {
			scaled, err := norm.Apply(held, res.Scaler)
			held.Release()
			if err != nil {
				return err
			}
			held = scaled
		}
		res.HeldOut[name] = held
	}
	return nil
}

func (r *Runner) groupNumbers(grouping *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	cols := make([]dataframe.ISeries, 0, grouping.Width())
	for _, name := range grouping.Columns() {
		col, _ := grouping.Column(name)
		ids, err := partition.GroupNumbers(col, r.mem)
		if err != nil {
			for _, c := range cols {
				c.Release()
			}
			return nil, err
		}
		cols = append(cols, ids)
	}
	out, err := dataframe.NewWithIndex(grouping.Index().Labels(), cols...)
	if err != nil {
		for _, c := range cols {
			c.Release()
		}
		return nil, err
	}
	return out, nil
}

func releaseInputs(in partition.Inputs) {
	for _, df := range []*dataframe.DataFrame{in.Features, in.Target, in.Grouping} {
		if df != nil {
			df.Release()
		}
	}
}
