package worker

import (
	"errors"
	"fmt"
)

var ErrUnsupportedCondition = errors.New("unsupported condition")

// EvaluateCondition tests a polled value against a rule threshold. Equality
// is exact float64 comparison, no tolerance.
func EvaluateCondition(value float64, operator string, threshold float64) (bool, error) {
	switch operator {
	case ">":
		return value > threshold, nil
	case "<":
		return value < threshold, nil
	case ">=":
		return value >= threshold, nil
	case "<=":
		return value <= threshold, nil
	case "=":
		return value == threshold, nil
	case "!=":
		return value != threshold, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedCondition, operator)
	}
}
