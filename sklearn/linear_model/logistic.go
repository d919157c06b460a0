// Package linear_model implements batch and online logistic regression for
// binary outcomes.
package linear_model

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
)

// LogisticRegression is trained by full-batch gradient descent on the
// L2-regularized log-loss. Weights start at zero, so training is fully
// deterministic.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	learningRate float64
	maxIter      int
	l2           float64
	tol          float64 // loss change above which a ConvergenceWarning is raised; 0 disables

	// Model parameters
	coef_        []float64
	intercept_   float64
	lossHistory_ []float64
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a classifier with learning rate 0.1,
// 1000 iterations and no regularization.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		learningRate: 0.1,
		maxIter:      1000,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRLearningRate sets the gradient step size.
func WithLRLearningRate(rate float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.learningRate = rate
	}
}

// WithLRMaxIter sets the number of gradient iterations.
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRL2 sets the L2 coefficient λ.
func WithLRL2(lambda float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.l2 = lambda
	}
}

// WithLRTol enables a ConvergenceWarning when the loss still moved by more
// than tol in the final iteration.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

func (lr *LogisticRegression) validate() error {
	if lr.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", lr.learningRate)
	}
	if lr.maxIter < 1 {
		return errors.NewValidationError("iterations", "must be at least 1", lr.maxIter)
	}
	if lr.l2 < 0 {
		return errors.NewValidationError("l2", "must be non-negative", lr.l2)
	}
	return nil
}

// Fit trains the model. Each iteration applies
//
//	w -= lr * (grad/m + λw)
//	b -= lr * grad_b/m
//
// and records the regularized log-loss of the pre-update weights. Weights
// that overflow stop the descent early: the last finite iterate is kept and
// a ConvergenceWarning is emitted.
func (lr *LogisticRegression) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")

	nSamples, nFeatures, err := model.CheckFit("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	if err := lr.validate(); err != nil {
		return err
	}
	lr.state.Reset()

	logger := log.GetLoggerWithName("LogisticRegression")
	start := time.Now()
	logger.Debug("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
	)

	Xd := mat.DenseCopyOf(X)
	labels := linalg.VecData(y)
	w := make([]float64, nFeatures)
	b := 0.0
	gradW := make([]float64, nFeatures)
	m := float64(nSamples)
	history := make([]float64, 0, lr.maxIter)
	prevW := make([]float64, nFeatures)
	prevB := 0.0
	diverged := -1

	for it := 0; it < lr.maxIter; it++ {
		for j := range gradW {
			gradW[j] = 0
		}
		gradB, loss := 0.0, 0.0
		for i := 0; i < nSamples; i++ {
			row := Xd.RawRowView(i)
			p := linalg.Sigmoid(linalg.Dot(w, row) + b)
			diff := p - labels[i]
			for j, xj := range row {
				gradW[j] += diff * xj
			}
			gradB += diff
			if labels[i] == 1 {
				loss -= errors.StabilizeLog(p)
			} else {
				loss -= errors.StabilizeLog(1 - p)
			}
		}
		loss = loss/m + 0.5*lr.l2*linalg.Dot(w, w)
		if cerr := errors.CheckScalar("LogisticRegression.Fit", loss, it); cerr != nil {
			if it == 0 {
				// zero weights cannot diverge; the input itself is not finite
				return cerr
			}
			copy(w, prevW)
			b = prevB
			diverged = it
			break
		}
		history = append(history, loss)

		copy(prevW, w)
		prevB = b
		for j := range w {
			w[j] -= lr.learningRate * (gradW[j]/m + lr.l2*w[j])
		}
		b -= lr.learningRate * (gradB / m)

		if errors.CheckNumericalStability("LogisticRegression.Fit", w, it) != nil ||
			errors.CheckScalar("LogisticRegression.Fit", b, it) != nil {
			copy(w, prevW)
			b = prevB
			diverged = it
			break
		}
	}

	if diverged >= 0 {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", diverged,
			"weights became non-finite; keeping the last finite iterate"))
	} else if lr.tol > 0 && len(history) > 1 {
		if delta := math.Abs(history[len(history)-1] - history[len(history)-2]); delta > lr.tol {
			errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
		}
	}

	lr.coef_ = w
	lr.intercept_ = b
	lr.lossHistory_ = history
	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()

	logger.Debug("fit finished",
		log.OperationKey, log.OperationFit,
		log.IterationKey, lr.maxIter,
		log.LossKey, history[len(history)-1],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// PredictProba returns sigmoid(w·x + b) for each row.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "PredictProba"); err != nil {
		return nil, err
	}
	if _, err := model.CheckPredict("LogisticRegression.PredictProba", X, len(lr.coef_)); err != nil {
		return nil, err
	}
	z := linalg.Affine(X, lr.coef_, lr.intercept_)
	for i := range z {
		z[i] = linalg.Sigmoid(z[i])
	}
	return mat.NewVecDense(len(z), z), nil
}

// Predict returns 1 where the probability is at least 0.5.
func (lr *LogisticRegression) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.Threshold(proba, 0.5), nil
}

// Coef returns a copy of the fitted weights.
func (lr *LogisticRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the fitted bias.
func (lr *LogisticRegression) Intercept() float64 {
	return lr.intercept_
}

// LossHistory implements model.LossReporter.
func (lr *LogisticRegression) LossHistory() []float64 {
	return append([]float64(nil), lr.lossHistory_...)
}

// Clone implements model.Classifier.
func (lr *LogisticRegression) Clone() model.Classifier {
	return NewLogisticRegression(
		WithLRLearningRate(lr.learningRate),
		WithLRMaxIter(lr.maxIter),
		WithLRL2(lr.l2),
		WithLRTol(lr.tol),
	)
}

// GetParams returns the model's hyperparameters.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"learning_rate": lr.learningRate,
		"iterations":    lr.maxIter,
		"l2":            lr.l2,
		"tol":           lr.tol,
	}
}

// SetParams sets hyperparameters from a decoded config map.
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "learning_rate":
			lr.learningRate, err = model.ParamFloat(key, value)
		case "iterations", "max_iter":
			lr.maxIter, err = model.ParamInt(key, value)
		case "l2", "lambda":
			lr.l2, err = model.ParamFloat(key, value)
		case "tol":
			lr.tol, err = model.ParamFloat(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter for LogisticRegression", value)
		}
		if err != nil {
			return err
		}
	}
	return lr.validate()
}
