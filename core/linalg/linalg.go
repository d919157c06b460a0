// Package linalg holds the vector and matrix helpers every model builds on.
// Matrices are gonum mat types; vectors are plain []float64 so inner loops
// can use gonum/floats directly.
package linalg

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// LogitEpsilon bounds probabilities away from 0 and 1 before taking logits.
const LogitEpsilon = 1e-7

// Dot returns a·b. It panics when the lengths differ; public entry points
// validate shapes first.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

// Normalize returns v scaled to unit length. A zero vector is returned as a
// zero copy.
func Normalize(v []float64) []float64 {
	out := append([]float64(nil), v...)
	n := Norm(out)
	if n == 0 {
		return out
	}
	floats.Scale(1/n, out)
	return out
}

// Transpose returns a new dense transpose of X.
func Transpose(X mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(X.T())
}

// Row returns a copy of row i.
func Row(X mat.Matrix, i int) []float64 {
	return mat.Row(nil, i, X)
}

// Column returns a copy of column j.
func Column(X mat.Matrix, j int) []float64 {
	return mat.Col(nil, j, X)
}

// VecData returns a copy of the elements of v.
func VecData(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// SelectRows returns a new matrix holding rows idx of X in that order.
// Indices may repeat, as in a bootstrap sample.
func SelectRows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	if len(idx) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	for r, i := range idx {
		for j := 0; j < c; j++ {
			out.Set(r, j, X.At(i, j))
		}
	}
	return out
}

// SelectColumns returns a new matrix holding columns idx of X in that order.
func SelectColumns(X mat.Matrix, idx []int) *mat.Dense {
	r, _ := X.Dims()
	if len(idx) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(r, len(idx), nil)
	for i := 0; i < r; i++ {
		for c, j := range idx {
			out.Set(i, c, X.At(i, j))
		}
	}
	return out
}

// SelectVec returns the elements idx of v.
func SelectVec(v mat.Vector, idx []int) *mat.VecDense {
	if len(idx) == 0 {
		return &mat.VecDense{}
	}
	out := mat.NewVecDense(len(idx), nil)
	for k, i := range idx {
		out.SetVec(k, v.AtVec(i))
	}
	return out
}

// StackRows builds a matrix from equal-length rows.
func StackRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.NewValueError("StackRows", "no rows")
	}
	c := len(rows[0])
	data := make([]float64, 0, len(rows)*c)
	for _, row := range rows {
		if len(row) != c {
			return nil, errors.NewDimensionError("StackRows", c, len(row), 1)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), c, data), nil
}

// Affine returns X·w + b for every row of X.
func Affine(X mat.Matrix, w []float64, b float64) []float64 {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		s := b
		for j, wj := range w {
			s += X.At(i, j) * wj
		}
		out[i] = s
	}
	return out
}

// Sigmoid is the logistic function, evaluated without overflow for large |z|.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Logit is the inverse of Sigmoid with p clipped to
// [LogitEpsilon, 1-LogitEpsilon].
func Logit(p float64) float64 {
	p = errors.ClipValue(p, LogitEpsilon, 1-LogitEpsilon)
	return math.Log(p / (1 - p))
}

// ReLU returns max(0, z).
func ReLU(z float64) float64 {
	if z > 0 {
		return z
	}
	return 0
}
