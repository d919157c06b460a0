// Package model defines the contracts shared by every classifier, transformer
// and online learner in the toolkit, plus the fitted-state bookkeeping they
// embed.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能な二値分類モデルのインターフェース
type Fitter interface {
	// Fit resets the model and trains it on X (rows are samples) and labels
	// y in {0, 1}.
	Fit(X mat.Matrix, y mat.Vector) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// PredictProba returns the positive-class probability for each row.
	PredictProba(X mat.Matrix) (*mat.VecDense, error)

	// Predict returns the predicted class (0 or 1) for each row.
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// Classifier is the uniform contract ensembles, validation, search and the
// pipeline dispatch on.
type Classifier interface {
	Fitter
	Predictor
	ParameterGetter

	// Clone returns an unfitted copy with identical hyperparameters.
	Clone() Classifier
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (*mat.Dense, error)
	FitTransform(X mat.Matrix) (*mat.Dense, error)
}

// IncrementalClassifier is a Classifier that can learn from new batches
// without retraining from scratch.
type IncrementalClassifier interface {
	Classifier

	// PartialFit performs one update per row against the current weights.
	PartialFit(X mat.Matrix, y mat.Vector) error
}
