// Package signalprob estimates the probability that a trading signal
// succeeds, with a family of binary classifiers behind one uniform API.
//
// The toolkit takes rows of numeric features (indicator values, momentum,
// volume ratios, ...) with 0/1 outcomes and produces calibrated
// probabilities, validation reports and explanations.
//
// # Quick Start
//
//	cfg := pipeline.DefaultConfig()
//	cfg.Model = pipeline.ModelRandomForest
//	cfg.Hyperparameters = map[string]interface{}{"num_trees": 50}
//	cfg.Calibration = "platt"
//
//	p, err := pipeline.Train(examples, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := pipeline.Score(p, []float64{0.4, 1.2, -0.3})
//	fmt.Println(res.Probability, res.Band)
//
// # Packages
//
//   - pipeline: configuration, scaling, model, calibration and export
//   - preprocessing: standard and min-max scaling, polynomial features, PCA
//   - sklearn/linear_model: batch and online logistic regression
//   - sklearn/tree: decision trees (entropy or Gini) and regression trees
//   - sklearn/ensemble: random forest, gradient boosting, voting, stacking
//   - sklearn/neural_network: feed-forward network trained by SGD
//   - sklearn/model_selection: k-fold and walk-forward validation, grid and random search
//   - sklearn/calibration: Platt, binned isotonic and temperature scaling
//   - sklearn/drift: concept drift on accuracy streams and DDM on per-prediction errors
//   - sklearn/inspection: permutation importance and partial dependence
//   - metrics: confusion matrix, ROC/AUC, precision-recall, Brier score, log-loss
//   - visualization: ROC, reliability and partial dependence plots
//   - pkg/store: bbolt persistence of pipeline exports and drift state
//   - pkg/monitor: Prometheus metrics
//   - pkg/errors, pkg/log: structured errors and logging
//   - core: shared interfaces, linear algebra, statistics and parallel helpers
//
// # Error Handling
//
// Errors carry stack traces (github.com/cockroachdb/errors) and typed
// details: DimensionError, NotFittedError, ValidationError, ValueError and
// ModelError. Panics inside Fit are converted to errors.
//
// # Concurrency
//
// Fit is single-owner. A fitted model or pipeline serves concurrent
// predictions. Internal parallelism (forest trees, CV folds, search
// candidates) draws seeds before workers start, so results do not depend on
// scheduling.
package signalprob
