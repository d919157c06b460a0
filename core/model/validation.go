package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// CheckFit validates a training pair: non-empty, finite, one label per row,
// labels in {0, 1}. It returns the shape of X.
func CheckFit(op string, X mat.Matrix, y mat.Vector) (rows, cols int, err error) {
	if X == nil || y == nil {
		return 0, 0, errors.NewValueError(op, "training data is nil")
	}
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.NewValueError(op, "training data is empty")
	}
	if y.Len() != rows {
		return 0, 0, errors.NewDimensionError(op, rows, y.Len(), 0)
	}
	for i := 0; i < rows; i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return 0, 0, errors.NewValueError(op, fmt.Sprintf("label %v at row %d is not 0 or 1", v, i))
		}
		for j := 0; j < cols; j++ {
			if v := X.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, 0, errors.NewValueError(op, fmt.Sprintf("non-finite feature at row %d, column %d", i, j))
			}
		}
	}
	return rows, cols, nil
}

// CheckPredict validates a query matrix against the fitted feature count and
// returns its row count.
func CheckPredict(op string, X mat.Matrix, nFeatures int) (int, error) {
	if X == nil {
		return 0, errors.NewValueError(op, "input is nil")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return 0, errors.NewValueError(op, "input is empty")
	}
	if cols != nFeatures {
		return 0, errors.NewDimensionError(op, nFeatures, cols, 1)
	}
	return rows, nil
}

// Threshold maps probabilities to classes: p >= t is 1.
func Threshold(proba mat.Vector, t float64) *mat.VecDense {
	out := mat.NewVecDense(proba.Len(), nil)
	for i := 0; i < proba.Len(); i++ {
		if proba.AtVec(i) >= t {
			out.SetVec(i, 1)
		}
	}
	return out
}

// PositiveFraction returns the share of labels equal to 1.
func PositiveFraction(y mat.Vector) float64 {
	n := y.Len()
	if n == 0 {
		return 0
	}
	pos := 0.0
	for i := 0; i < n; i++ {
		pos += y.AtVec(i)
	}
	return pos / float64(n)
}

// ParamFloat reads a numeric hyperparameter from a decoded config map.
// YAML and JSON decoders produce int, int64 or float64 for numbers.
func ParamFloat(name string, v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, errors.NewValidationError(name, "must be a number", v)
	}
}

// ParamInt reads an integral hyperparameter. Floats must be whole numbers.
func ParamInt(name string, v interface{}) (int, error) {
	f, err := ParamFloat(name, v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, errors.NewValidationError(name, "must be an integer", v)
	}
	return int(f), nil
}

// ParamInts reads a list of integers, e.g. hidden layer sizes.
func ParamInts(name string, v interface{}) ([]int, error) {
	switch list := v.(type) {
	case []int:
		return append([]int(nil), list...), nil
	case []interface{}:
		out := make([]int, len(list))
		for i, item := range list {
			n, err := ParamInt(name, item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		n, err := ParamInt(name, v)
		if err != nil {
			return nil, errors.NewValidationError(name, "must be a list of integers", v)
		}
		return []int{n}, nil
	}
}
