package config

import (
	"maps"
	"slices"

	"github.com/paveg/mlprep/internal/errors"
)

// ModelConfig declares an estimator by kind and constructor parameters.
type ModelConfig struct {
	Kind   string         `koanf:"kind" yaml:"kind"`
	Params map[string]any `koanf:"params" yaml:"params,omitempty"`
}

// SplitterConfig declares a cross validation splitter. GroupingColumn names
// the column whose values define groups for group-aware splitters.
type SplitterConfig struct {
	Kind           string         `koanf:"kind" yaml:"kind"`
	GroupingColumn string         `koanf:"grouping_column" yaml:"grouping_column,omitempty"`
	Params         map[string]any `koanf:"params" yaml:"params,omitempty"`
}

// SelectorConfig declares a feature selector. Estimator and CV reference
// entries of the models and splitters sections by name; Model and Splitter
// hold the referenced configs once bound.
type SelectorConfig struct {
	Kind      string         `koanf:"kind" yaml:"kind"`
	Estimator string         `koanf:"estimator" yaml:"estimator,omitempty"`
	CV        string         `koanf:"cv" yaml:"cv,omitempty"`
	Params    map[string]any `koanf:"params" yaml:"params,omitempty"`

	Model    *ModelConfig    `koanf:"-" yaml:"-"`
	Splitter *SplitterConfig `koanf:"-" yaml:"-"`
}

// SnatchModels binds each selector's estimator to its model config and
// removes bound models from the pool. Selectors are visited in name order
// and each model can be bound once; a second reference, or a reference to
// an unknown model, fails with MissingBinding. Neither input is modified.
func SnatchModels(
	models map[string]ModelConfig, selectors map[string]SelectorConfig,
) (map[string]SelectorConfig, map[string]ModelConfig, error) {
	pool := maps.Clone(models)
	if pool == nil {
		pool = map[string]ModelConfig{}
	}
	bound := make(map[string]SelectorConfig, len(selectors))

	for _, name := range slices.Sorted(maps.Keys(selectors)) {
		sel := selectors[name]
		if sel.Estimator != "" {
			m, ok := pool[sel.Estimator]
			if !ok {
				return nil, nil, errors.NewMissingBindingError("SnatchModels", name, "models", sel.Estimator)
			}
			m.Params = maps.Clone(m.Params)
			sel.Model = &m
			delete(pool, sel.Estimator)
		}
		sel.Params = maps.Clone(sel.Params)
		bound[name] = sel
	}
	return bound, pool, nil
}

// SnatchSplitters binds each selector's cv reference to its splitter config
// and removes bound splitters from the pool, with the same rules as
// SnatchModels.
func SnatchSplitters(
	splitters map[string]SplitterConfig, selectors map[string]SelectorConfig,
) (map[string]SelectorConfig, map[string]SplitterConfig, error) {
	pool := maps.Clone(splitters)
	if pool == nil {
		pool = map[string]SplitterConfig{}
	}
	bound := make(map[string]SelectorConfig, len(selectors))

	for _, name := range slices.Sorted(maps.Keys(selectors)) {
		sel := selectors[name]
		if sel.CV != "" {
			s, ok := pool[sel.CV]
			if !ok {
				return nil, nil, errors.NewMissingBindingError("SnatchSplitters", name, "splitters", sel.CV)
			}
			s.Params = maps.Clone(s.Params)
			sel.Splitter = &s
			delete(pool, sel.CV)
		}
		sel.Params = maps.Clone(sel.Params)
		bound[name] = sel
	}
	return bound, pool, nil
}

// ExtractGroupingColumns returns the splitters with GroupingColumn cleared,
// since splitters do not take it, and a map from splitter name to the
// grouping column it declared. The input is not modified.
func ExtractGroupingColumns(splitters map[string]SplitterConfig) (map[string]SplitterConfig, map[string]string) {
	stripped := make(map[string]SplitterConfig, len(splitters))
	groups := make(map[string]string)
	for name, s := range splitters {
		if s.GroupingColumn != "" {
			groups[name] = s.GroupingColumn
			s.GroupingColumn = ""
		}
		s.Params = maps.Clone(s.Params)
		stripped[name] = s
	}
	return stripped, groups
}

// GroupingColumns returns the distinct grouping columns named by the config
// and its splitters, sorted, with the top level column first.
func (c *Config) GroupingColumns() []string {
	_, bySplitter := ExtractGroupingColumns(c.Splitters)
	seen := map[string]bool{}
	var out []string
	if c.GroupingColumn != "" {
		seen[c.GroupingColumn] = true
		out = append(out, c.GroupingColumn)
	}
	rest := slices.Sorted(maps.Values(bySplitter))
	for _, col := range rest {
		if !seen[col] {
			seen[col] = true
			out = append(out, col)
		}
	}
	return out
}
