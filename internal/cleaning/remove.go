package cleaning

import (
	"context"
	"log/slog"

	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/validation"
)

// Remover drops rows missing the target, then every other column that
// still contains a null.
type Remover struct {
	logger *slog.Logger
}

// NewRemover creates a Remover.
func NewRemover(logger *slog.Logger) *Remover {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Remover{logger: logger}
}

// Clean implements Strategy.
func (r *Remover) Clean(_ context.Context, df *dataframe.DataFrame, req Request) (*dataframe.DataFrame, error) {
	rows := df
	if req.Target != "" {
		if err := validation.ValidateColumns(df, "Clean", req.Target); err != nil {
			return nil, err
		}
		target, _ := df.Column(req.Target)
		var missing []int
		for i := range target.Len() {
			if target.IsNull(i) {
				missing = append(missing, i)
			}
		}
		var err error
		if rows, err = df.DropRows(missing); err != nil {
			return nil, err
		}
		defer rows.Release()
		if len(missing) > 0 {
			r.logger.Info("removed rows missing the target", "target", req.Target, "rows", len(missing))
		}
	}

	var drop []string
	for _, name := range rows.Columns() {
		if req.skips(name) {
			continue
		}
		col, _ := rows.Column(name)
		if col.NullN() > 0 {
			drop = append(drop, name)
		}
	}
	if len(drop) > 0 {
		r.logger.Warn("removed columns containing nulls", "columns", drop)
	}
	return rows.Drop(drop...), nil
}
