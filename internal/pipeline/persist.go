package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paveg/mlprep/internal/config"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/features"
	mlio "github.com/paveg/mlprep/internal/io"
	"github.com/paveg/mlprep/internal/monitoring"
	"gopkg.in/yaml.v3"
)

// File names written to the output directory, before the format extension.
const (
	DatasetFile     = "dataset"
	HeldOutPrefix   = "heldout_"
	GroupsFile      = "groups"
	ScalerFile      = "scaler.yaml"
	ResolvedCfgFile = "config.yaml"
)

// Persist writes res to the configured output directory and returns the
// written paths in write order.
func (r *Runner) Persist(res *Result) ([]string, error) {
	var written []string
	err := r.metrics.RecordOperation(StagePersist, func(c *monitoring.RowCounts) error {
		c.In = res.Dataset.Len()
		var err error
		written, err = r.persist(res)
		c.Out = len(written)
		return err
	})
	if err != nil {
		return written, fmt.Errorf("persist: %w", err)
	}
	return written, nil
}

func (r *Runner) persist(res *Result) ([]string, error) {
	dir := r.cfg.OutputDir
	ext := mlio.Format(r.cfg.OutputFormat).Extension()

	var written []string
	write := func(name string, fn func(path string) error) error {
		path := filepath.Join(dir, name)
		if err := fn(path); err != nil {
			return err
		}
		r.logger.Info("wrote output", "path", path)
		written = append(written, path)
		return nil
	}

	if err := write(DatasetFile+ext, func(p string) error { return r.sink.Write(res.Dataset, p) }); err != nil {
		return written, err
	}

	for _, name := range res.Indicators {
		df, ok := res.HeldOut[name]
		if !ok {
			continue
		}
		if err := write(HeldOutPrefix+name+ext, func(p string) error { return r.sink.Write(df, p) }); err != nil {
			return written, err
		}
	}

	if res.Groups != nil {
		if err := write(GroupsFile+ext, func(p string) error { return r.sink.Write(res.Groups, p) }); err != nil {
			return written, err
		}
	}

	if res.Scaler != nil {
		if err := write(ScalerFile, func(p string) error { return SaveScaler(res.Scaler, res.Target, p) }); err != nil {
			return written, err
		}
	}

	if err := write(ResolvedCfgFile, func(p string) error { return config.WriteResolved(r.cfg, p) }); err != nil {
		return written, err
	}
	return written, nil
}

// scalerDocument is the on-disk form of a fitted scaler.
type scalerDocument struct {
	Target string                 `yaml:"target"`
	Params []features.ScalerParam `yaml:"params"`
}

// SaveScaler writes scaler and the target it was fitted next to as YAML.
func SaveScaler(scaler *features.Scaler, target, path string) error {
	data, err := yaml.Marshal(scalerDocument{Target: target, Params: scaler.Params()})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadScaler reads a scaler written by SaveScaler. It returns the scaler
// and its target column name.
func LoadScaler(path string) (*features.Scaler, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var doc scalerDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "", errors.NewInvalidInputError("LoadScaler", err.Error())
	}
	if len(doc.Params) == 0 {
		return nil, "", errors.NewInvalidInputError("LoadScaler", "scaler file "+path+" has no parameters")
	}
	return features.NewScaler(doc.Params...), doc.Target, nil
}
