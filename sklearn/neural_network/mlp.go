// Package neural_network implements a small multilayer perceptron for binary
// classification.
package neural_network

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
)

// layer is a dense layer computing W·a + b.
type layer struct {
	W *mat.Dense // out x in
	b *mat.VecDense
}

// MLPClassifier has ReLU hidden layers and one sigmoid output unit. It is
// trained by per-example stochastic gradient descent on log-loss with full
// backpropagation through every hidden layer.
type MLPClassifier struct {
	state *model.StateManager

	hiddenSizes  []int
	learningRate float64
	epochs       int
	seed         int64

	layers_      []layer
	lossHistory_ []float64
}

// MLPOption is a functional option for MLPClassifier.
type MLPOption func(*MLPClassifier)

// NewMLPClassifier creates a network with one hidden layer of 8 units,
// learning rate 0.05 and 100 epochs.
func NewMLPClassifier(opts ...MLPOption) *MLPClassifier {
	m := &MLPClassifier{
		state:        model.NewStateManager(),
		hiddenSizes:  []int{8},
		learningRate: 0.05,
		epochs:       100,
		seed:         42,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithHiddenLayers sets the hidden layer widths.
func WithHiddenLayers(sizes ...int) MLPOption {
	return func(m *MLPClassifier) { m.hiddenSizes = append([]int(nil), sizes...) }
}

// WithMLPLearningRate sets the SGD step size.
func WithMLPLearningRate(rate float64) MLPOption {
	return func(m *MLPClassifier) { m.learningRate = rate }
}

// WithEpochs sets the number of passes over the training data.
func WithEpochs(epochs int) MLPOption {
	return func(m *MLPClassifier) { m.epochs = epochs }
}

// WithMLPSeed fixes weight initialization.
func WithMLPSeed(seed int64) MLPOption {
	return func(m *MLPClassifier) { m.seed = seed }
}

func (m *MLPClassifier) validate() error {
	for _, h := range m.hiddenSizes {
		if h < 1 {
			return errors.NewValidationError("hidden_layers", "every layer needs at least one unit", m.hiddenSizes)
		}
	}
	if m.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", m.learningRate)
	}
	if m.epochs < 1 {
		return errors.NewValidationError("epochs", "must be at least 1", m.epochs)
	}
	return nil
}

// initLayers draws Xavier-uniform weights, limit sqrt(6/(in+out)), and zero
// biases.
func (m *MLPClassifier) initLayers(nFeatures int) []layer {
	rng := stats.NewRand(m.seed)
	sizes := append(append([]int{nFeatures}, m.hiddenSizes...), 1)
	layers := make([]layer, len(sizes)-1)
	for l := range layers {
		in, out := sizes[l], sizes[l+1]
		limit := math.Sqrt(6 / float64(in+out))
		data := make([]float64, out*in)
		for i := range data {
			data[i] = (2*rng.Float64() - 1) * limit
		}
		layers[l] = layer{W: mat.NewDense(out, in, data), b: mat.NewVecDense(out, nil)}
	}
	return layers
}

// forward returns the activations of every layer, input first. Hidden
// layers use ReLU; the last layer is a single sigmoid unit.
func forward(layers []layer, x *mat.VecDense) []*mat.VecDense {
	acts := make([]*mat.VecDense, len(layers)+1)
	acts[0] = x
	for l, ly := range layers {
		out, _ := ly.W.Dims()
		z := mat.NewVecDense(out, nil)
		z.MulVec(ly.W, acts[l])
		z.AddVec(z, ly.b)
		last := l == len(layers)-1
		for i := 0; i < out; i++ {
			if last {
				z.SetVec(i, linalg.Sigmoid(z.AtVec(i)))
			} else {
				z.SetVec(i, linalg.ReLU(z.AtVec(i)))
			}
		}
		acts[l+1] = z
	}
	return acts
}

// backward applies one SGD step for a single example. The output delta for
// sigmoid with log-loss is p - y; hidden deltas are W_next^T·delta masked by
// the ReLU derivative.
func backward(layers []layer, acts []*mat.VecDense, label, lr float64) {
	L := len(layers)
	delta := mat.NewVecDense(1, []float64{acts[L].AtVec(0) - label})
	for l := L - 1; l >= 0; l-- {
		var prev *mat.VecDense
		if l > 0 {
			in := acts[l].Len()
			prev = mat.NewVecDense(in, nil)
			prev.MulVec(layers[l].W.T(), delta)
			for i := 0; i < in; i++ {
				if acts[l].AtVec(i) <= 0 {
					prev.SetVec(i, 0)
				}
			}
		}
		// W -= lr * delta ⊗ a_prev
		var grad mat.Dense
		grad.Outer(lr, delta, acts[l])
		layers[l].W.Sub(layers[l].W, &grad)
		layers[l].b.AddScaledVec(layers[l].b, -lr, delta)
		delta = prev
	}
}

func cloneLayers(layers []layer) []layer {
	out := make([]layer, len(layers))
	for i, ly := range layers {
		out[i] = layer{W: mat.DenseCopyOf(ly.W), b: mat.VecDenseCopyOf(ly.b)}
	}
	return out
}

func finiteLayers(layers []layer) bool {
	for _, ly := range layers {
		if errors.CheckNumericalStability("MLPClassifier.Fit", ly.W.RawMatrix().Data, 0) != nil ||
			errors.CheckNumericalStability("MLPClassifier.Fit", ly.b.RawVector().Data, 0) != nil {
			return false
		}
	}
	return true
}

// Fit initializes the weights from the seed and trains for the configured
// number of epochs, visiting rows in order. An epoch that drives the
// weights or the loss to NaN or Inf is rolled back and training stops there
// with a ConvergenceWarning.
func (m *MLPClassifier) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "MLPClassifier.Fit")

	nSamples, nFeatures, err := model.CheckFit("MLPClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := m.validate(); err != nil {
		return err
	}
	m.state.Reset()

	logger := log.GetLoggerWithName("MLPClassifier")
	start := time.Now()
	logger.Debug("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.RandomSeedKey, m.seed,
	)

	layers := m.initLayers(nFeatures)
	rows := make([]*mat.VecDense, nSamples)
	for i := range rows {
		rows[i] = mat.NewVecDense(nFeatures, linalg.Row(X, i))
	}

	history := make([]float64, 0, m.epochs)
	diverged := -1
	for epoch := 0; epoch < m.epochs; epoch++ {
		snapshot := cloneLayers(layers)
		loss := 0.0
		for i, x := range rows {
			label := y.AtVec(i)
			acts := forward(layers, x)
			p := acts[len(acts)-1].AtVec(0)
			if label == 1 {
				loss -= errors.StabilizeLog(p)
			} else {
				loss -= errors.StabilizeLog(1 - p)
			}
			backward(layers, acts, label, m.learningRate)
		}
		loss /= float64(nSamples)
		if errors.CheckScalar("MLPClassifier.Fit", loss, epoch) != nil || !finiteLayers(layers) {
			layers = snapshot
			diverged = epoch
			break
		}
		history = append(history, loss)
	}
	if diverged >= 0 {
		errors.Warn(errors.NewConvergenceWarning("MLPClassifier", diverged,
			"weights became non-finite; keeping the weights of the last finite epoch"))
	}

	m.layers_ = layers
	m.lossHistory_ = history
	m.state.SetDimensions(nFeatures, nSamples)
	m.state.SetFitted()

	logger.Debug("fit finished",
		log.OperationKey, log.OperationFit,
		log.EpochKey, len(history),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// PredictProba returns the output unit's activation for each row.
func (m *MLPClassifier) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if err := m.state.RequireFitted("MLPClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	nFeatures, _ := m.state.GetDimensions()
	rows, err := model.CheckPredict("MLPClassifier.PredictProba", X, nFeatures)
	if err != nil {
		return nil, err
	}
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		acts := forward(m.layers_, mat.NewVecDense(nFeatures, linalg.Row(X, i)))
		out.SetVec(i, acts[len(acts)-1].AtVec(0))
	}
	return out, nil
}

// Predict returns 1 where the probability is at least 0.5.
func (m *MLPClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.Threshold(proba, 0.5), nil
}

// LossHistory returns the mean log-loss of each epoch.
func (m *MLPClassifier) LossHistory() []float64 {
	return append([]float64(nil), m.lossHistory_...)
}

// Clone implements model.Classifier.
func (m *MLPClassifier) Clone() model.Classifier {
	return NewMLPClassifier(
		WithHiddenLayers(m.hiddenSizes...),
		WithMLPLearningRate(m.learningRate),
		WithEpochs(m.epochs),
		WithMLPSeed(m.seed),
	)
}

// GetParams returns the model's hyperparameters.
func (m *MLPClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"hidden_layers": append([]int(nil), m.hiddenSizes...),
		"learning_rate": m.learningRate,
		"epochs":        m.epochs,
		"seed":          m.seed,
	}
}

// SetParams sets hyperparameters from a decoded config map.
func (m *MLPClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "hidden_layers", "hidden_layer_sizes":
			m.hiddenSizes, err = model.ParamInts(key, value)
		case "learning_rate":
			m.learningRate, err = model.ParamFloat(key, value)
		case "epochs":
			m.epochs, err = model.ParamInt(key, value)
		case "seed", "random_state":
			var n int
			n, err = model.ParamInt(key, value)
			m.seed = int64(n)
		default:
			return errors.NewValidationError(key, "unknown parameter for MLPClassifier", value)
		}
		if err != nil {
			return err
		}
	}
	return m.validate()
}
