package model_selection

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/core/parallel"
	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/metrics"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
)

// ValidationReport summarizes a cross-validation run. Confusion sums the
// held-out predictions of every fold, so its cells add up to the number of
// evaluated rows; MeanConfusion is the per-fold average.
type ValidationReport struct {
	FoldAccuracies []float64               `json:"fold_accuracies"`
	MeanAccuracy   float64                 `json:"mean_accuracy"`
	StdAccuracy    float64                 `json:"std_accuracy"`
	Confusion      metrics.ConfusionMatrix `json:"confusion"`
	MeanConfusion  metrics.MeanConfusion   `json:"mean_confusion"`
	FoldSizes      []int                   `json:"fold_sizes"`
	TrainSizes     []int                   `json:"train_sizes"`
	SkippedFolds   int                     `json:"skipped_folds,omitempty"`
}

// NFolds returns the number of evaluated folds.
func (r *ValidationReport) NFolds() int {
	return len(r.FoldAccuracies)
}

type foldResult struct {
	skipped   bool
	confusion metrics.ConfusionMatrix
	trainSize int
	err       error
}

// CrossValidate fits a clone of est on every fold's training rows and scores
// it on the test rows. Folds with an empty train or test set are skipped.
// Folds run concurrently and results are collected in fold order.
func CrossValidate(est model.Classifier, X mat.Matrix, y mat.Vector, splitter Splitter) (*ValidationReport, error) {
	nSamples, _, err := model.CheckFit("CrossValidate", X, y)
	if err != nil {
		return nil, err
	}
	folds, err := splitter.Split(nSamples)
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("CrossValidate")
	start := time.Now()

	results := make([]foldResult, len(folds))
	parallel.ForEach(len(folds), func(k int) {
		f := folds[k]
		if len(f.Train) == 0 || len(f.Test) == 0 {
			results[k].skipped = true
			return
		}
		m := est.Clone()
		if ferr := m.Fit(linalg.SelectRows(X, f.Train), linalg.SelectVec(y, f.Train)); ferr != nil {
			results[k].err = errors.Wrapf(ferr, "fold %d", k)
			return
		}
		pred, perr := m.Predict(linalg.SelectRows(X, f.Test))
		if perr != nil {
			results[k].err = errors.Wrapf(perr, "fold %d", k)
			return
		}
		cm, cerr := metrics.NewConfusionMatrix(linalg.SelectVec(y, f.Test), pred)
		if cerr != nil {
			results[k].err = cerr
			return
		}
		results[k].confusion = cm
		results[k].trainSize = len(f.Train)
	})

	report := &ValidationReport{}
	var perFold []metrics.ConfusionMatrix
	for k, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if r.skipped {
			report.SkippedFolds++
			continue
		}
		acc := r.confusion.Accuracy()
		report.FoldAccuracies = append(report.FoldAccuracies, acc)
		report.FoldSizes = append(report.FoldSizes, r.confusion.Total())
		report.TrainSizes = append(report.TrainSizes, r.trainSize)
		report.Confusion = report.Confusion.Add(r.confusion)
		perFold = append(perFold, r.confusion)

		logger.Debug("fold evaluated",
			log.OperationKey, log.OperationValidate,
			log.FoldKey, k,
			log.SamplesKey, r.confusion.Total(),
			log.AccuracyKey, acc,
		)
	}
	if len(perFold) == 0 {
		return nil, errors.NewValueError("CrossValidate", "every fold was empty")
	}
	report.MeanAccuracy, report.StdAccuracy = stats.MeanStd(report.FoldAccuracies)
	report.MeanConfusion = metrics.AverageConfusion(perFold)

	logger.Debug("cross-validation finished",
		log.OperationKey, log.OperationValidate,
		log.FoldsKey, len(perFold),
		log.AccuracyKey, report.MeanAccuracy,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return report, nil
}
