package features

import (
	"context"
	"log/slog"
	"math"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/parallel"
	"github.com/paveg/mlprep/internal/series"
	"github.com/paveg/mlprep/internal/validation"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NormalizedSuffix is appended to column names by NormalizeAndMerge.
const NormalizedSuffix = "_normalized"

// Normalizer fits, applies and inverts per-column standardization.
type Normalizer struct {
	logger       *slog.Logger
	mem          memory.Allocator
	pool         *parallel.WorkerPool
	zeroVariance ZeroVariancePolicy
	sink         Sink
	snapshotPath string
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	o := applyOptions(opts)
	return &Normalizer{
		logger:       o.logger,
		mem:          o.mem,
		pool:         o.pool,
		zeroVariance: o.zeroVariance,
		sink:         o.sink,
		snapshotPath: o.snapshotPath,
	}
}

// ExcludeStringColumns removes every text column from candidates. It returns
// the remaining names and a table without the excluded columns. One string
// cell disqualifies a whole column, since such columns are stored as text.
func (n *Normalizer) ExcludeStringColumns(
	df *dataframe.DataFrame, candidates []string,
) ([]string, *dataframe.DataFrame, error) {
	if err := validation.ValidateColumns(df, "ExcludeStringColumns", candidates...); err != nil {
		return nil, nil, err
	}

	kept := make([]string, 0, len(candidates))
	var excluded []string
	for _, name := range candidates {
		col, _ := df.Column(name)
		if series.IsString(col) {
			n.logger.Info("excluding feature containing strings from normalization", "column", name)
			excluded = append(excluded, name)
			continue
		}
		kept = append(kept, name)
	}
	return kept, df.Drop(excluded...), nil
}

// FitAndNormalize fits a standard scaler on the numeric features of df and
// transforms the same rows with it. The result holds the transformed
// features in their original order followed by the untouched target, under
// df's row labels. Standard deviations are population (ddof 0) values and
// nulls are skipped during the fit and stay null.
func (n *Normalizer) FitAndNormalize(
	df *dataframe.DataFrame, features []string, target string,
) (*dataframe.DataFrame, *Scaler, error) {
	if err := validation.ValidateColumns(df, "FitAndNormalize", target); err != nil {
		return nil, nil, err
	}
	numeric, pruned, err := n.ExcludeStringColumns(df, withoutName(features, target))
	if err != nil {
		return nil, nil, err
	}
	defer pruned.Release()

	type fitted struct {
		col   dataframe.ISeries
		param ScalerParam
	}
	results, err := parallel.ProcessIndexed(context.Background(), n.pool, numeric,
		func(_ context.Context, _ int, name string) (fitted, error) {
			col, _ := pruned.Column(name)
			param, err := n.fit(col)
			if err != nil {
				return fitted{}, err
			}
			return fitted{col: mapFloat(col, name, param.Transform, n.mem), param: param}, nil
		})
	if err != nil {
		return nil, nil, err
	}

	cols := make([]dataframe.ISeries, 0, len(results)+1)
	params := make([]ScalerParam, 0, len(results))
	for _, r := range results {
		cols = append(cols, r.col)
		params = append(params, r.param)
	}
	targetCol, _ := df.Column(target)
	cols = append(cols, series.Rename(targetCol, target))

	out, err := dataframe.NewWithIndex(df.Index().Labels(), cols...)
	if err != nil {
		releaseColumns(cols)
		return nil, nil, err
	}

	n.logger.Debug("fitted scaler", "columns", len(params), "rows", df.Len())

	if n.sink != nil && n.snapshotPath != "" {
		if err := n.sink.Write(out, n.snapshotPath); err != nil {
			out.Release()
			return nil, nil, err
		}
		n.logger.Info("wrote normalized table", "path", n.snapshotPath)
	}
	return out, NewScaler(params...), nil
}

// fit ignores null and NaN cells.
func (n *Normalizer) fit(col dataframe.ISeries) (ScalerParam, error) {
	values := make([]float64, 0, col.Len())
	for i := range col.Len() {
		if v, ok := col.Float64(i); ok && !math.IsNaN(v) {
			values = append(values, v)
		}
	}

	param := ScalerParam{Column: col.Name(), Scale: 1}
	if len(values) == 0 {
		n.logger.Warn("no values to fit, leaving column unscaled", "column", col.Name())
		return param, nil
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	param.Mean = mean
	param.Scale = std
	if std == 0 {
		switch n.zeroVariance {
		case ZeroVarianceError:
			return ScalerParam{}, errors.NewDegenerateRangeError("FitAndNormalize", col.Name(), mean)
		case ZeroVarianceNaN:
			param.Scale = math.NaN()
		default:
			param.Scale = 1
		}
		n.logger.Warn("zero variance column", "column", col.Name(), "policy", n.zeroVariance.String())
	}
	return param, nil
}

// Apply standardizes the scaler's columns of df with already fitted
// parameters, keeping every other column as is.
func (n *Normalizer) Apply(df *dataframe.DataFrame, scaler *Scaler) (*dataframe.DataFrame, error) {
	if err := validation.ValidateColumns(df, "Apply", scaler.Columns()...); err != nil {
		return nil, err
	}

	byName := make(map[string]ScalerParam, scaler.Len())
	for _, p := range scaler.Params() {
		byName[p.Column] = p
	}

	cols := make([]dataframe.ISeries, 0, df.Width())
	for _, name := range df.Columns() {
		col, _ := df.Column(name)
		if p, ok := byName[name]; ok {
			cols = append(cols, mapFloat(col, name, p.Transform, n.mem))
			continue
		}
		cols = append(cols, series.Rename(col, name))
	}
	out, err := dataframe.NewWithIndex(df.Index().Labels(), cols...)
	if err != nil {
		releaseColumns(cols)
		return nil, err
	}
	return out, nil
}

// InvertNormalize undoes a standardization. The i-th feature is mapped back
// with the scaler's i-th parameters; column names are not matched against
// the scaler, so passing the scaler that produced df is the caller's duty.
// The result holds the features followed by the untouched target.
func (n *Normalizer) InvertNormalize(
	df *dataframe.DataFrame, features []string, target string, scaler *Scaler,
) (*dataframe.DataFrame, error) {
	err := validation.NewCompoundValidator(
		validation.NewColumnValidator(df, "InvertNormalize", append(append([]string(nil), features...), target)...),
		validation.NewLengthValidator(scaler.Len(), len(features), "InvertNormalize", "scaler columns"),
	).Validate()
	if err != nil {
		return nil, err
	}

	cols := make([]dataframe.ISeries, 0, len(features)+1)
	for i, name := range features {
		col, _ := df.Column(name)
		cols = append(cols, mapFloat(col, name, scaler.Param(i).Inverse, n.mem))
	}
	targetCol, _ := df.Column(target)
	cols = append(cols, series.Rename(targetCol, target))

	out, err := dataframe.NewWithIndex(df.Index().Labels(), cols...)
	if err != nil {
		releaseColumns(cols)
		return nil, err
	}
	return out, nil
}

// MinMaxScale maps a numeric column onto (v - min) / (max - min). Bounds
// default to the column's observed minimum and maximum.
func (n *Normalizer) MinMaxScale(
	df *dataframe.DataFrame, feature string, opts ...ScaleOption,
) (*series.Series[float64], error) {
	if err := validation.ValidateNumeric(df, "MinMaxScale", feature); err != nil {
		return nil, err
	}
	cfg := &scaleBounds{}
	for _, opt := range opts {
		opt(cfg)
	}

	col, _ := df.Column(feature)
	if cfg.min == nil || cfg.max == nil {
		values := make([]float64, 0, col.Len())
		for i := range col.Len() {
			if v, ok := col.Float64(i); ok && !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return nil, errors.NewInvalidInputError("MinMaxScale", "column has no values to derive bounds from")
		}
		if cfg.min == nil {
			lo := floats.Min(values)
			cfg.min = &lo
		}
		if cfg.max == nil {
			hi := floats.Max(values)
			cfg.max = &hi
		}
	}

	lo, hi := *cfg.min, *cfg.max
	if hi == lo {
		return nil, errors.NewDegenerateRangeError("MinMaxScale", feature, lo)
	}
	return mapFloat(col, feature, func(v float64) float64 {
		return (v - lo) / (hi - lo)
	}, n.mem), nil
}

// ScaleOption overrides a MinMaxScale bound.
type ScaleOption func(*scaleBounds)

type scaleBounds struct {
	min *float64
	max *float64
}

// WithMin fixes the lower bound.
func WithMin(v float64) ScaleOption {
	return func(b *scaleBounds) { b.min = &v }
}

// WithMax fixes the upper bound.
func WithMax(v float64) ScaleOption {
	return func(b *scaleBounds) { b.max = &v }
}

// NormalizeAndMerge appends the standardized features to df as
// "<name>_normalized" columns. Rows are matched by index label.
func (n *Normalizer) NormalizeAndMerge(
	df *dataframe.DataFrame, features []string, target string,
) (*dataframe.DataFrame, error) {
	normalized, _, err := n.FitAndNormalize(df, features, target)
	if err != nil {
		return nil, err
	}
	defer normalized.Release()

	aligned, err := normalized.AlignTo(df.Index().Labels())
	if err != nil {
		return nil, err
	}
	defer aligned.Release()

	var merged []dataframe.ISeries
	for _, name := range aligned.Columns() {
		if name == target {
			continue
		}
		col, _ := aligned.Column(name)
		merged = append(merged, series.Rename(col, name+NormalizedSuffix))
	}

	out, err := df.AppendColumns(merged...)
	if err != nil {
		releaseColumns(merged)
		return nil, err
	}
	return out, nil
}

// mapFloat applies fn to every non-null cell of col, producing a float64
// column. Cells that do not coerce to a number become null.
func mapFloat(col dataframe.ISeries, name string, fn func(float64) float64, mem memory.Allocator) *series.Series[float64] {
	values := make([]float64, col.Len())
	valid := make([]bool, col.Len())
	for i := range values {
		if v, ok := col.Float64(i); ok {
			values[i] = fn(v)
			valid[i] = true
		}
	}
	out, _ := series.NewNullable(name, values, valid, mem)
	return out
}

func withoutName(names []string, drop string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name != drop {
			out = append(out, name)
		}
	}
	return out
}

func releaseColumns(cols []dataframe.ISeries) {
	for _, c := range cols {
		c.Release()
	}
}
