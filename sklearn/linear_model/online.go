package linear_model

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
)

// OnlineLogisticRegression learns incrementally: every row of a batch takes
// one stochastic gradient step against the current weights. Updates and
// predictions may run from different goroutines.
type OnlineLogisticRegression struct {
	mu    sync.RWMutex
	state *model.StateManager

	learningRate float64
	l2           float64
	epochs       int

	coef_        []float64
	intercept_   float64
	nSeen_       int
	lossHistory_ []float64
}

// OnlineOption is a functional option for OnlineLogisticRegression.
type OnlineOption func(*OnlineLogisticRegression)

// NewOnlineLogisticRegression creates an online learner with learning rate
// 0.1, no regularization and one pass per Fit.
func NewOnlineLogisticRegression(opts ...OnlineOption) *OnlineLogisticRegression {
	o := &OnlineLogisticRegression{
		state:        model.NewStateManager(),
		learningRate: 0.1,
		epochs:       1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithOnlineLearningRate sets the per-example step size.
func WithOnlineLearningRate(rate float64) OnlineOption {
	return func(o *OnlineLogisticRegression) { o.learningRate = rate }
}

// WithOnlineL2 sets the L2 coefficient applied on every step.
func WithOnlineL2(lambda float64) OnlineOption {
	return func(o *OnlineLogisticRegression) { o.l2 = lambda }
}

// WithOnlineEpochs sets how many passes Fit makes over its data.
func WithOnlineEpochs(epochs int) OnlineOption {
	return func(o *OnlineLogisticRegression) { o.epochs = epochs }
}

func (o *OnlineLogisticRegression) validate() error {
	if o.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", o.learningRate)
	}
	if o.l2 < 0 {
		return errors.NewValidationError("l2", "must be non-negative", o.l2)
	}
	if o.epochs < 1 {
		return errors.NewValidationError("epochs", "must be at least 1", o.epochs)
	}
	return nil
}

// Fit discards previous weights and makes the configured number of passes.
func (o *OnlineLogisticRegression) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "OnlineLogisticRegression.Fit")

	if _, _, err = model.CheckFit("OnlineLogisticRegression.Fit", X, y); err != nil {
		return err
	}
	if err = o.validate(); err != nil {
		return err
	}

	o.mu.Lock()
	o.state.Reset()
	o.coef_ = nil
	o.intercept_ = 0
	o.nSeen_ = 0
	o.lossHistory_ = nil
	o.mu.Unlock()

	for e := 0; e < o.epochs; e++ {
		if err = o.PartialFit(X, y); err != nil {
			return err
		}
	}
	return nil
}

// PartialFit updates the current weights with one step per row. The first
// call fixes the feature count.
func (o *OnlineLogisticRegression) PartialFit(X mat.Matrix, y mat.Vector) error {
	nSamples, nFeatures, err := model.CheckFit("OnlineLogisticRegression.PartialFit", X, y)
	if err != nil {
		return err
	}
	if err := o.validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.coef_ == nil {
		o.coef_ = make([]float64, nFeatures)
	} else if len(o.coef_) != nFeatures {
		return errors.NewDimensionError("OnlineLogisticRegression.PartialFit", len(o.coef_), nFeatures, 1)
	}

	row := make([]float64, nFeatures)
	loss := 0.0
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		label := y.AtVec(i)
		p := linalg.Sigmoid(linalg.Dot(o.coef_, row) + o.intercept_)
		if label == 1 {
			loss -= errors.StabilizeLog(p)
		} else {
			loss -= errors.StabilizeLog(1 - p)
		}
		diff := p - label
		for j, xj := range row {
			o.coef_[j] -= o.learningRate * (diff*xj + o.l2*o.coef_[j])
		}
		o.intercept_ -= o.learningRate * diff
	}
	o.nSeen_ += nSamples
	o.lossHistory_ = append(o.lossHistory_, loss/float64(nSamples))

	o.state.SetDimensions(nFeatures, o.nSeen_)
	o.state.SetFitted()

	log.GetLoggerWithName("OnlineLogisticRegression").Debug("partial fit",
		log.OperationKey, log.OperationPartialFit,
		log.BatchSizeKey, nSamples,
		log.SamplesKey, o.nSeen_,
		log.LossKey, loss/float64(nSamples),
	)
	return nil
}

// PredictProba returns sigmoid(w·x + b) under the current weights.
func (o *OnlineLogisticRegression) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if err := o.state.RequireFitted("OnlineLogisticRegression", "PredictProba"); err != nil {
		return nil, err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if _, err := model.CheckPredict("OnlineLogisticRegression.PredictProba", X, len(o.coef_)); err != nil {
		return nil, err
	}
	z := linalg.Affine(X, o.coef_, o.intercept_)
	for i := range z {
		z[i] = linalg.Sigmoid(z[i])
	}
	return mat.NewVecDense(len(z), z), nil
}

// Predict thresholds PredictProba at 0.5.
func (o *OnlineLogisticRegression) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := o.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.Threshold(proba, 0.5), nil
}

// Coef returns a copy of the current weights.
func (o *OnlineLogisticRegression) Coef() []float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]float64(nil), o.coef_...)
}

// Intercept returns the current bias.
func (o *OnlineLogisticRegression) Intercept() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.intercept_
}

// NSamplesSeen returns how many rows have been learned since the last Fit.
func (o *OnlineLogisticRegression) NSamplesSeen() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.nSeen_
}

// LossHistory returns the mean log-loss of each PartialFit batch.
func (o *OnlineLogisticRegression) LossHistory() []float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]float64(nil), o.lossHistory_...)
}

// Clone implements model.Classifier.
func (o *OnlineLogisticRegression) Clone() model.Classifier {
	return NewOnlineLogisticRegression(
		WithOnlineLearningRate(o.learningRate),
		WithOnlineL2(o.l2),
		WithOnlineEpochs(o.epochs),
	)
}

// GetParams returns the model's hyperparameters.
func (o *OnlineLogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"learning_rate": o.learningRate,
		"l2":            o.l2,
		"epochs":        o.epochs,
	}
}

// SetParams sets hyperparameters from a decoded config map.
func (o *OnlineLogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "learning_rate":
			o.learningRate, err = model.ParamFloat(key, value)
		case "l2", "lambda":
			o.l2, err = model.ParamFloat(key, value)
		case "epochs":
			o.epochs, err = model.ParamInt(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter for OnlineLogisticRegression", value)
		}
		if err != nil {
			return err
		}
	}
	return o.validate()
}
