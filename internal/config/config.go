// Package config provides configuration management for mlprep experiment runs
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paveg/mlprep/internal/cleaning"
	"github.com/paveg/mlprep/internal/features"
	"gopkg.in/yaml.v3"
)

// Config describes one experiment run: where the data lives, which columns
// play which role and how the table is prepared.
type Config struct {
	// Input and output
	DataPath     string `koanf:"data_path" yaml:"data_path"`
	OutputDir    string `koanf:"output_dir" yaml:"output_dir"`
	OutputFormat string `koanf:"output_format" yaml:"output_format"` // csv or parquet

	// Column roles
	Target            string   `koanf:"target" yaml:"target"`
	Features          []string `koanf:"features" yaml:"features,omitempty"` // empty = every non-role column
	ValidationColumns []string `koanf:"validation_columns" yaml:"validation_columns,omitempty"`
	GroupingColumn    string   `koanf:"grouping_column" yaml:"grouping_column,omitempty"`

	// Cleaning
	CleaningMethod     string `koanf:"cleaning_method" yaml:"cleaning_method,omitempty"` // empty = remove, with a warning
	ImputationStrategy string `koanf:"imputation_strategy" yaml:"imputation_strategy"`

	// Selection
	Filters          []FilterConfig `koanf:"filters" yaml:"filters,omitempty"`
	RemoveDuplicates bool           `koanf:"remove_duplicates" yaml:"remove_duplicates"`
	RemoveConstant   bool           `koanf:"remove_constant" yaml:"remove_constant"`

	// Normalization
	Normalize    bool   `koanf:"normalize" yaml:"normalize"`
	ZeroVariance string `koanf:"zero_variance" yaml:"zero_variance"`
	SnapshotPath string `koanf:"snapshot_path" yaml:"snapshot_path,omitempty"`

	// Bindings resolved by SnatchModels, SnatchSplitters and ExtractGroupingColumns
	Models    map[string]ModelConfig    `koanf:"models" yaml:"models,omitempty"`
	Splitters map[string]SplitterConfig `koanf:"splitters" yaml:"splitters,omitempty"`
	Selectors map[string]SelectorConfig `koanf:"selectors" yaml:"selectors,omitempty"`

	// Runtime
	Workers int  `koanf:"workers" yaml:"workers"` // 0 = runtime.NumCPU()
	Verbose bool `koanf:"verbose" yaml:"verbose"`
}

// FilterConfig is one row filter applied during feature selection.
type FilterConfig struct {
	Column    string  `koanf:"column" yaml:"column"`
	Op        string  `koanf:"op" yaml:"op"`
	Threshold float64 `koanf:"threshold" yaml:"threshold"`
}

// Default configuration values
const (
	DefaultOutputDir          = "results"
	DefaultOutputFormat       = "csv"
	DefaultImputationStrategy = string(cleaning.ImputeMean)
	DefaultZeroVariance       = "unit_scale"
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		OutputDir:          DefaultOutputDir,
		OutputFormat:       DefaultOutputFormat,
		ImputationStrategy: DefaultImputationStrategy,
		ZeroVariance:       DefaultZeroVariance,
		Normalize:          true,
		Workers:            0, // Auto-detect
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target must be set")
	}

	if c.CleaningMethod != "" {
		if _, err := cleaning.ParseMethod(c.CleaningMethod); err != nil {
			return err
		}
	}

	if _, err := cleaning.ParseImputeStrategy(c.ImputationStrategy); err != nil {
		return err
	}

	if _, err := features.ParseZeroVariancePolicy(c.ZeroVariance); err != nil {
		return err
	}

	switch strings.ToLower(c.OutputFormat) {
	case "", "csv", "parquet":
	default:
		return fmt.Errorf("output_format must be csv or parquet, got %q", c.OutputFormat)
	}

	for i, f := range c.Filters {
		if f.Column == "" {
			return fmt.Errorf("filters[%d]: column must be set", i)
		}
		if _, err := features.ParseOperator(f.Op); err != nil {
			return fmt.Errorf("filters[%d]: %w", i, err)
		}
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}

	for _, v := range c.ValidationColumns {
		if v == c.Target {
			return fmt.Errorf("validation column %q is also the target", v)
		}
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.OutputDir == "" {
		c.OutputDir = defaults.OutputDir
	}
	if c.OutputFormat == "" {
		c.OutputFormat = defaults.OutputFormat
	}
	if c.ImputationStrategy == "" {
		c.ImputationStrategy = defaults.ImputationStrategy
	}
	if c.ZeroVariance == "" {
		c.ZeroVariance = defaults.ZeroVariance
	}

	// CleaningMethod stays empty so the cleaner can warn that it fell back
	// to remove. Booleans keep their explicit values.

	return c
}

// EffectiveWorkers resolves Workers to a concrete goroutine count.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// RoleColumns returns the target, validation and grouping columns, in that
// order, without repeats. None of them is treated as a feature.
func (c *Config) RoleColumns() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	add(c.Target)
	for _, v := range c.ValidationColumns {
		add(v)
	}
	for _, g := range c.GroupingColumns() {
		add(g)
	}
	return out
}

// WriteResolved writes c as YAML to path, creating parent directories.
func WriteResolved(c Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding resolved config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing resolved config %s: %w", path, err)
	}
	return nil
}
