// Package inspection explains fitted classifiers with model-agnostic
// permutation importance and partial dependence.
package inspection

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/core/parallel"
	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/metrics"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// DefaultRepeats is the shuffle count per feature.
const DefaultRepeats = 10

// DefaultGridPoints is the partial dependence resolution.
const DefaultGridPoints = 20

// Importance holds the accuracy drop per feature when that feature's column
// is shuffled.
type Importance struct {
	Baseline float64     `json:"baseline_accuracy"`
	Mean     []float64   `json:"mean"`
	Std      []float64   `json:"std"`
	Drops    [][]float64 `json:"drops"`
}

// PermutationImportance shuffles one column of a copy of X at a time, nRepeats
// times, and records baseline accuracy minus shuffled accuracy. Each feature
// draws from its own seed derived from seed, so results do not depend on
// scheduling. nRepeats <= 0 uses DefaultRepeats.
func PermutationImportance(m model.Predictor, X mat.Matrix, y mat.Vector, nRepeats int, seed int64) (*Importance, error) {
	nSamples, nFeatures, err := model.CheckFit("PermutationImportance", X, y)
	if err != nil {
		return nil, err
	}
	if nRepeats <= 0 {
		nRepeats = DefaultRepeats
	}
	baseline, err := score(m, X, y)
	if err != nil {
		return nil, err
	}

	seeds := stats.DeriveSeeds(seed, nFeatures)
	drops := make([][]float64, nFeatures)
	errs := make([]error, nFeatures)
	parallel.ForEach(nFeatures, func(j int) {
		rng := stats.NewRand(seeds[j])
		Xp := mat.DenseCopyOf(X)
		col := mat.Col(nil, j, X)
		drops[j] = make([]float64, nRepeats)
		for r := 0; r < nRepeats; r++ {
			rng.Shuffle(nSamples, func(a, b int) { col[a], col[b] = col[b], col[a] })
			Xp.SetCol(j, col)
			acc, err := score(m, Xp, y)
			if err != nil {
				errs[j] = err
				return
			}
			drops[j][r] = baseline - acc
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	imp := &Importance{
		Baseline: baseline,
		Mean:     make([]float64, nFeatures),
		Std:      make([]float64, nFeatures),
		Drops:    drops,
	}
	for j, d := range drops {
		imp.Mean[j], imp.Std[j] = stats.MeanStd(d)
	}
	return imp, nil
}

func score(m model.Predictor, X mat.Matrix, y mat.Vector) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// PartialDependence sweeps feature over gridPoints evenly spaced values
// between its observed min and max. At each grid value every row's feature
// is overwritten and the model's mean probability is recorded; the other
// features keep their values. gridPoints <= 0 uses DefaultGridPoints; a
// constant column yields a single grid point.
func PartialDependence(m model.Predictor, X mat.Matrix, feature, gridPoints int) (grid, average []float64, err error) {
	if X == nil {
		return nil, nil, errors.NewValueError("PartialDependence", "input is nil")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, nil, errors.NewValueError("PartialDependence", "input is empty")
	}
	if feature < 0 || feature >= cols {
		return nil, nil, errors.NewValidationError("feature", "out of range", feature)
	}
	if gridPoints <= 0 {
		gridPoints = DefaultGridPoints
	}

	col := mat.Col(nil, feature, X)
	lo, hi := floats.Min(col), floats.Max(col)
	if lo == hi {
		grid = []float64{lo}
	} else {
		grid = make([]float64, gridPoints)
		floats.Span(grid, lo, hi)
	}

	average = make([]float64, len(grid))
	Xp := mat.DenseCopyOf(X)
	fill := make([]float64, rows)
	for g, v := range grid {
		for i := range fill {
			fill[i] = v
		}
		Xp.SetCol(feature, fill)
		proba, err := m.PredictProba(Xp)
		if err != nil {
			return nil, nil, err
		}
		average[g] = mat.Sum(proba) / float64(rows)
	}
	return grid, average, nil
}
