// Package partition splits an experiment dataset into the rows usable for
// training and the rows held out by validation indicator columns.
package partition

import (
	"fmt"
	"log/slog"

	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/series"
	"github.com/paveg/mlprep/internal/validation"
)

// Inputs are the tables a partition is computed over. Raw holds the
// indicator columns; Features, Target and Grouping are projected. Grouping
// may be nil.
type Inputs struct {
	Raw      *dataframe.DataFrame
	Features *dataframe.DataFrame
	Target   *dataframe.DataFrame
	Grouping *dataframe.DataFrame
}

// Partition is the non-validation view of a dataset.
type Partition struct {
	// Indicators holds the indicator columns of the raw table, for reporting.
	Indicators     *dataframe.DataFrame
	IndicatorNames []string

	Features *dataframe.DataFrame
	Target   *dataframe.DataFrame
	Grouping *dataframe.DataFrame

	// Kept are the labels surviving every indicator, in target order.
	Kept IndexSet
	// HeldOut maps each indicator to the target labels it marks with 1.
	HeldOut map[string]IndexSet
}

// Release releases every table of the partition.
func (p *Partition) Release() {
	for _, df := range []*dataframe.DataFrame{p.Indicators, p.Features, p.Target, p.Grouping} {
		if df != nil {
			df.Release()
		}
	}
}

// Option configures a Partitioner.
type Option func(*Partitioner)

// WithLogger sets the logger for informational messages.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Partitioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Partitioner computes validation partitions.
type Partitioner struct {
	logger *slog.Logger
}

// NewPartitioner creates a Partitioner.
func NewPartitioner(opts ...Option) *Partitioner {
	p := &Partitioner{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Partition keeps the rows that no indicator column marks with 1.
//
// Each indicator is read from the raw table at the target's row labels.
// The per-indicator non-validation sets are intersected in target order,
// and features, target and grouping are projected onto the result by
// label. Without indicators the inputs pass through unchanged. An
// indicator holding only 1s empties the result, which is not an error.
func (p *Partitioner) Partition(in Inputs, indicators []string) (*Partition, error) {
	if in.Target == nil || in.Features == nil {
		return nil, errors.NewInvalidInputError("Partition", "features and target tables are required")
	}

	if len(indicators) == 0 {
		p.logger.Debug("no validation columns configured")
		return &Partition{
			Indicators: dataframe.New(),
			Features:   passThrough(in.Features),
			Target:     passThrough(in.Target),
			Grouping:   passThrough(in.Grouping),
			Kept:       NewIndexSet(in.Target.Index().Labels()),
			HeldOut:    map[string]IndexSet{},
		}, nil
	}

	if in.Raw == nil {
		return nil, errors.NewInvalidInputError("Partition", "raw table is required to read validation columns")
	}
	if err := validation.ValidateColumns(in.Raw, "Partition", indicators...); err != nil {
		return nil, err
	}

	labels := in.Target.Index().Labels()
	nonValidation := make([]IndexSet, 0, len(indicators))
	heldOut := make(map[string]IndexSet, len(indicators))

	for _, name := range indicators {
		col, _ := in.Raw.Column(name)
		held := make([]int64, 0)
		free := make([]int64, 0, len(labels))
		for _, l := range labels {
			pos, ok := in.Raw.Index().Position(l)
			if !ok {
				return nil, errors.NewIndexMismatchError("Partition",
					fmt.Sprintf("target row label %d not present in the table holding %s", l, name))
			}
			if IsValidation(col, pos) {
				held = append(held, l)
			} else {
				free = append(free, l)
			}
		}
		p.logger.Info("validation column", "column", name, "held_out", len(held), "trainable", len(free))
		heldOut[name] = NewIndexSet(held)
		nonValidation = append(nonValidation, NewIndexSet(free))
	}

	kept := IntersectAll(nonValidation...)
	if kept.Len() == 0 {
		p.logger.Warn("validation columns leave no trainable rows", "columns", indicators)
	}

	out := &Partition{
		Indicators:     in.Raw.Select(indicators...),
		IndicatorNames: append([]string(nil), indicators...),
		Kept:           kept,
		HeldOut:        heldOut,
	}

	var err error
	if out.Features, err = in.Features.TakeLabels(kept.Labels()); err != nil {
		out.Release()
		return nil, err
	}
	if out.Target, err = in.Target.TakeLabels(kept.Labels()); err != nil {
		out.Release()
		return nil, err
	}
	if in.Grouping != nil {
		if out.Grouping, err = in.Grouping.TakeLabels(kept.Labels()); err != nil {
			out.Release()
			return nil, err
		}
	}
	return out, nil
}

// IsValidation reports whether the indicator cell at pos equals 1. Numbers
// compare numerically and true counts as 1; text and nulls never match.
func IsValidation(col series.Column, pos int) bool {
	switch v := col.Any(pos).(type) {
	case int64:
		return v == 1
	case float64:
		return v == 1
	case bool:
		return v
	}
	return false
}

func passThrough(df *dataframe.DataFrame) *dataframe.DataFrame {
	if df == nil {
		return nil
	}
	return df.Select(df.Columns()...)
}
