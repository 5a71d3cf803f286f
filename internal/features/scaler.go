package features

import (
	"fmt"
	"strings"

	"github.com/paveg/mlprep/internal/errors"
)

// ZeroVariancePolicy decides how a column with zero standard deviation is
// standardized.
type ZeroVariancePolicy int

const (
	// ZeroVarianceUnitScale uses a scale of 1, so the column maps to 0.
	ZeroVarianceUnitScale ZeroVariancePolicy = iota
	// ZeroVarianceNaN divides by zero, so the column becomes NaN.
	ZeroVarianceNaN
	// ZeroVarianceError fails the fit with a DegenerateRange error.
	ZeroVarianceError
)

var zeroVarianceNames = []string{"unit_scale", "nan", "error"}

func (p ZeroVariancePolicy) String() string {
	if int(p) >= 0 && int(p) < len(zeroVarianceNames) {
		return zeroVarianceNames[p]
	}
	return fmt.Sprintf("ZeroVariancePolicy(%d)", int(p))
}

// ParseZeroVariancePolicy parses "unit_scale", "nan" or "error". The empty
// string selects ZeroVarianceUnitScale.
func ParseZeroVariancePolicy(s string) (ZeroVariancePolicy, error) {
	if s == "" {
		return ZeroVarianceUnitScale, nil
	}
	for i, name := range zeroVarianceNames {
		if strings.EqualFold(s, name) {
			return ZeroVariancePolicy(i), nil
		}
	}
	return 0, errors.NewInvalidInputError("ParseZeroVariancePolicy",
		fmt.Sprintf("unknown zero variance policy %q", s)).
		WithHint("choose from: " + strings.Join(zeroVarianceNames, ", "))
}

// ScalerParam is the fitted location and scale of one column.
type ScalerParam struct {
	Column string  `json:"column" yaml:"column"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Scale  float64 `json:"scale" yaml:"scale"`
}

// Scaler holds fitted standardization parameters. It is immutable; the
// caller keeps it for later inversion.
type Scaler struct {
	params []ScalerParam
}

// NewScaler builds a Scaler from previously fitted parameters.
func NewScaler(params ...ScalerParam) *Scaler {
	return &Scaler{params: append([]ScalerParam(nil), params...)}
}

// Len returns the number of fitted columns.
func (s *Scaler) Len() int {
	return len(s.params)
}

// Columns returns the fitted column names in fit order.
func (s *Scaler) Columns() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Column
	}
	return names
}

// Params returns a copy of the fitted parameters.
func (s *Scaler) Params() []ScalerParam {
	return append([]ScalerParam(nil), s.params...)
}

// Param returns the parameters at position i.
func (s *Scaler) Param(i int) ScalerParam {
	return s.params[i]
}

// Transform maps v to (v - mean) / scale.
func (p ScalerParam) Transform(v float64) float64 {
	return (v - p.Mean) / p.Scale
}

// Inverse maps v to v*scale + mean.
func (p ScalerParam) Inverse(v float64) float64 {
	return v*p.Scale + p.Mean
}
