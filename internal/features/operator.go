package features

import (
	"github.com/paveg/mlprep/internal/errors"
)

// Operator is a row filter comparison.
type Operator int

const (
	OpLess Operator = iota
	OpGreater
	OpEqual
	OpLessEqual
	OpGreaterEqual
	OpNotEqual
)

var operatorTokens = map[string]Operator{
	"<":  OpLess,
	">":  OpGreater,
	"=":  OpEqual,
	"<=": OpLessEqual,
	">=": OpGreaterEqual,
	"<>": OpNotEqual,
}

// ParseOperator maps a token such as "<=" to its Operator.
func ParseOperator(token string) (Operator, error) {
	op, ok := operatorTokens[token]
	if !ok {
		return 0, errors.NewInvalidOperatorError("FilterRows", token)
	}
	return op, nil
}

func (op Operator) String() string {
	for token, o := range operatorTokens {
		if o == op {
			return token
		}
	}
	return "?"
}

// Holds evaluates value <op> threshold with IEEE semantics: a NaN operand
// fails every comparison except <>.
func (op Operator) Holds(value, threshold float64) bool {
	switch op {
	case OpLess:
		return value < threshold
	case OpGreater:
		return value > threshold
	case OpEqual:
		return value == threshold
	case OpLessEqual:
		return value <= threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpNotEqual:
		return value != threshold
	}
	return false
}
