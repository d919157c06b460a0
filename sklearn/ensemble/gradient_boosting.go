package ensemble

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/tree"
)

// GradientBoostingClassifier starts every row at the training-label mean,
// then for each round fits a shallow regression tree to the residual
// label - sigmoid(raw) and adds the tree's output scaled by the learning
// rate to raw. The probability is sigmoid(raw).
//
// Residuals are fit by squared error with no Newton step, which approximates
// log-loss boosting. There is no early stopping; refit with fewer rounds
// after checking a held-out split.
type GradientBoostingClassifier struct {
	state *model.StateManager

	numTrees        int
	learningRate    float64
	maxDepth        int
	minSamplesSplit int

	init_        float64
	trees_       []*tree.RegressionTree
	lossHistory_ []float64
}

// BoostingOption is a functional option for GradientBoostingClassifier.
type BoostingOption func(*GradientBoostingClassifier)

// NewGradientBoostingClassifier creates a booster with 100 rounds of depth 3
// trees and learning rate 0.1.
func NewGradientBoostingClassifier(opts ...BoostingOption) *GradientBoostingClassifier {
	gb := &GradientBoostingClassifier{
		state:           model.NewStateManager(),
		numTrees:        100,
		learningRate:    0.1,
		maxDepth:        3,
		minSamplesSplit: 2,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

// WithBoostingRounds sets the number of trees.
func WithBoostingRounds(n int) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.numTrees = n }
}

// WithBoostingLearningRate sets the shrinkage applied to each tree.
func WithBoostingLearningRate(rate float64) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.learningRate = rate }
}

// WithBoostingMaxDepth sets the depth of each regression tree.
func WithBoostingMaxDepth(depth int) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.maxDepth = depth }
}

// WithBoostingMinSamplesSplit sets min_samples_split on each tree.
func WithBoostingMinSamplesSplit(n int) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.minSamplesSplit = n }
}

func (gb *GradientBoostingClassifier) validate() error {
	if gb.numTrees < 1 {
		return errors.NewValidationError("num_trees", "must be at least 1", gb.numTrees)
	}
	if gb.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", gb.learningRate)
	}
	if gb.maxDepth < 1 {
		return errors.NewValidationError("max_depth", "must be at least 1", gb.maxDepth)
	}
	return nil
}

// Fit runs numTrees boosting rounds.
func (gb *GradientBoostingClassifier) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "GradientBoostingClassifier.Fit")

	nSamples, nFeatures, err := model.CheckFit("GradientBoostingClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := gb.validate(); err != nil {
		return err
	}
	gb.state.Reset()

	logger := log.GetLoggerWithName("GradientBoostingClassifier")
	start := time.Now()
	logger.Debug("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
	)

	Xd := mat.DenseCopyOf(X)
	labels := linalg.VecData(y)
	// raw is on the logit scale so sigmoid(raw) starts at the label mean
	base := linalg.Logit(model.PositiveFraction(y))
	raw := make([]float64, nSamples)
	for i := range raw {
		raw[i] = base
	}

	trees := make([]*tree.RegressionTree, 0, gb.numTrees)
	history := make([]float64, 0, gb.numTrees)
	residual := mat.NewVecDense(nSamples, nil)
	for round := 0; round < gb.numTrees; round++ {
		mse := 0.0
		for i := range raw {
			r := labels[i] - linalg.Sigmoid(raw[i])
			residual.SetVec(i, r)
			mse += r * r
		}
		history = append(history, mse/float64(nSamples))

		rt := tree.NewRegressionTree(gb.maxDepth, gb.minSamplesSplit)
		if ferr := rt.Fit(Xd, residual); ferr != nil {
			return errors.NewModelError("GradientBoostingClassifier.Fit", "regression tree", ferr)
		}
		out, perr := rt.Predict(Xd)
		if perr != nil {
			return perr
		}
		for i := range raw {
			raw[i] += gb.learningRate * out.AtVec(i)
		}
		trees = append(trees, rt)
	}

	gb.init_ = base
	gb.trees_ = trees
	gb.lossHistory_ = history
	gb.state.SetDimensions(nFeatures, nSamples)
	gb.state.SetFitted()

	logger.Debug("fit finished",
		log.OperationKey, log.OperationFit,
		log.IterationKey, gb.numTrees,
		log.LossKey, history[len(history)-1],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// DecisionFunction returns the raw additive score (logit scale) for each row.
func (gb *GradientBoostingClassifier) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	if err := gb.state.RequireFitted("GradientBoostingClassifier", "DecisionFunction"); err != nil {
		return nil, err
	}
	nFeatures, _ := gb.state.GetDimensions()
	rows, err := model.CheckPredict("GradientBoostingClassifier.DecisionFunction", X, nFeatures)
	if err != nil {
		return nil, err
	}
	raw := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		raw.SetVec(i, gb.init_)
	}
	for _, rt := range gb.trees_ {
		out, err := rt.Predict(X)
		if err != nil {
			return nil, err
		}
		raw.AddScaledVec(raw, gb.learningRate, out)
	}
	return raw, nil
}

// PredictProba returns sigmoid of the raw score.
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	raw, err := gb.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	for i := 0; i < raw.Len(); i++ {
		raw.SetVec(i, linalg.Sigmoid(raw.AtVec(i)))
	}
	return raw, nil
}

// Predict returns 1 where the probability is at least 0.5.
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := gb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.Threshold(proba, 0.5), nil
}

// LossHistory returns the mean squared probability residual before each
// round.
func (gb *GradientBoostingClassifier) LossHistory() []float64 {
	return append([]float64(nil), gb.lossHistory_...)
}

// Clone implements model.Classifier.
func (gb *GradientBoostingClassifier) Clone() model.Classifier {
	return NewGradientBoostingClassifier(
		WithBoostingRounds(gb.numTrees),
		WithBoostingLearningRate(gb.learningRate),
		WithBoostingMaxDepth(gb.maxDepth),
		WithBoostingMinSamplesSplit(gb.minSamplesSplit),
	)
}

// GetParams returns the model's hyperparameters.
func (gb *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"num_trees":         gb.numTrees,
		"learning_rate":     gb.learningRate,
		"max_depth":         gb.maxDepth,
		"min_samples_split": gb.minSamplesSplit,
	}
}

// SetParams sets hyperparameters from a decoded config map.
func (gb *GradientBoostingClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "num_trees", "n_estimators":
			gb.numTrees, err = model.ParamInt(key, value)
		case "learning_rate":
			gb.learningRate, err = model.ParamFloat(key, value)
		case "max_depth":
			gb.maxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			gb.minSamplesSplit, err = model.ParamInt(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter for GradientBoostingClassifier", value)
		}
		if err != nil {
			return err
		}
	}
	return gb.validate()
}
