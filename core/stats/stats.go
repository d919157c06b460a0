// Package stats provides the descriptive statistics used by scaling,
// calibration and drift detection, built on gonum/stat.
package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Variance returns the population variance (divides by n), 0 for empty input.
func Variance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(x, nil)
	return v
}

// SampleVariance returns the unbiased variance (divides by n-1), 0 for fewer
// than two values.
func SampleVariance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.Variance(x, nil)
}

// Std is the population standard deviation.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// SampleStd is the sample standard deviation.
func SampleStd(x []float64) float64 {
	return math.Sqrt(SampleVariance(x))
}

// Covariance returns the sample covariance of x and y, 0 when they are
// shorter than two or differ in length.
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation returns the Pearson correlation, 0 when either side is constant.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	if SampleVariance(x) == 0 || SampleVariance(y) == 0 {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// CovarianceMatrix returns the sample covariance matrix of the columns of X.
func CovarianceMatrix(X mat.Matrix) *mat.SymDense {
	_, c := X.Dims()
	cov := mat.NewSymDense(c, nil)
	stat.CovarianceMatrix(cov, X, nil)
	return cov
}

// ColumnMeanStd returns per-column population mean and standard deviation.
func ColumnMeanStd(X mat.Matrix) (means, stds []float64) {
	r, c := X.Dims()
	means = make([]float64, c)
	stds = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		means[j] = Mean(col)
		stds[j] = Std(col)
	}
	return means, stds
}

// ColumnMinMax returns per-column minimum and maximum.
func ColumnMinMax(X mat.Matrix) (mins, maxs []float64) {
	r, c := X.Dims()
	mins = make([]float64, c)
	maxs = make([]float64, c)
	for j := 0; j < c; j++ {
		mins[j] = math.Inf(1)
		maxs[j] = math.Inf(-1)
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			mins[j] = math.Min(mins[j], v)
			maxs[j] = math.Max(maxs[j], v)
		}
	}
	return mins, maxs
}

// MeanStd returns the mean and sample standard deviation of x.
func MeanStd(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return 0, 0
	}
	if len(x) == 1 {
		return x[0], 0
	}
	mean, std = stat.MeanStdDev(x, nil)
	return mean, std
}
