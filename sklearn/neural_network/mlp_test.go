package neural_network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

func xorLike() (*mat.Dense, *mat.VecDense) {
	// label 1 iff x0 > 0.5, with a distractor column
	X := mat.NewDense(8, 2, []float64{
		0.0, 0.3,
		0.1, 0.9,
		0.2, 0.1,
		0.3, 0.7,
		0.7, 0.2,
		0.8, 0.8,
		0.9, 0.4,
		1.0, 0.6,
	})
	y := mat.NewVecDense(8, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

func TestMLPClassifier_Learns(t *testing.T) {
	X, y := xorLike()
	m := NewMLPClassifier(WithHiddenLayers(8), WithMLPLearningRate(0.1), WithEpochs(500), WithMLPSeed(1))
	require.NoError(t, m.Fit(X, y))

	pred, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y.RawVector().Data, pred.RawVector().Data)

	history := m.LossHistory()
	require.Len(t, history, 500)
	assert.Less(t, history[len(history)-1], history[0])

	proba, err := m.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < proba.Len(); i++ {
		assert.GreaterOrEqual(t, proba.AtVec(i), 0.0)
		assert.LessOrEqual(t, proba.AtVec(i), 1.0)
	}
}

func TestMLPClassifier_DeterministicForSeed(t *testing.T) {
	X, y := xorLike()
	run := func(seed int64) []float64 {
		m := NewMLPClassifier(WithEpochs(20), WithMLPSeed(seed))
		require.NoError(t, m.Fit(X, y))
		p, err := m.PredictProba(X)
		require.NoError(t, err)
		return p.RawVector().Data
	}
	assert.Equal(t, run(3), run(3))
	assert.NotEqual(t, run(3), run(4))
}

// exampleLoss is the log-loss of one example under layers.
func exampleLoss(layers []layer, x *mat.VecDense, label float64) float64 {
	acts := forward(layers, x)
	p := acts[len(acts)-1].AtVec(0)
	if label == 1 {
		return -errors.StabilizeLog(p)
	}
	return -errors.StabilizeLog(1 - p)
}

func copyLayers(src []layer) []layer {
	out := make([]layer, len(src))
	for i, l := range src {
		out[i] = layer{W: mat.DenseCopyOf(l.W), b: mat.VecDenseCopyOf(l.b)}
	}
	return out
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	m := NewMLPClassifier(WithHiddenLayers(5, 3), WithMLPSeed(7))
	layers := m.initLayers(3)
	// nonzero biases keep ReLU units away from the kink
	for _, l := range layers {
		for i := 0; i < l.b.Len(); i++ {
			l.b.SetVec(i, 0.1)
		}
	}
	x := mat.NewVecDense(3, []float64{0.4, -0.2, 0.9})
	const label = 1.0
	const lr = 1.0
	const h = 1e-6

	updated := copyLayers(layers)
	backward(updated, forward(updated, x), label, lr)

	for l := range layers {
		rows, cols := layers[l].W.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				plus, minus := copyLayers(layers), copyLayers(layers)
				plus[l].W.Set(i, j, plus[l].W.At(i, j)+h)
				minus[l].W.Set(i, j, minus[l].W.At(i, j)-h)
				numeric := (exampleLoss(plus, x, label) - exampleLoss(minus, x, label)) / (2 * h)
				analytic := (layers[l].W.At(i, j) - updated[l].W.At(i, j)) / lr
				assert.InDelta(t, numeric, analytic, 1e-5, "layer %d weight (%d,%d)", l, i, j)
			}
		}
	}
}

func TestMLPClassifier_Params(t *testing.T) {
	m := NewMLPClassifier()
	require.NoError(t, m.SetParams(map[string]interface{}{
		"hidden_layers": []interface{}{4, 2},
		"learning_rate": 0.01,
		"epochs":        10,
		"seed":          5,
	}))
	params := m.GetParams()
	assert.Equal(t, []int{4, 2}, params["hidden_layers"])
	assert.Equal(t, 10, params["epochs"])
	assert.Equal(t, params, m.Clone().GetParams())

	assert.Error(t, m.SetParams(map[string]interface{}{"hidden_layers": []interface{}{0}}))
	assert.Error(t, m.SetParams(map[string]interface{}{"momentum": 0.9}))

	var _ model.Classifier = m
	var _ model.LossReporter = m
}

func TestMLPClassifier_Errors(t *testing.T) {
	m := NewMLPClassifier()
	_, err := m.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y := xorLike()
	require.NoError(t, m.Fit(X, y))
	_, err = m.Predict(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	bad := mat.NewVecDense(8, []float64{0, 0, 0, 0, 1, 1, 1, 2})
	assert.Error(t, NewMLPClassifier().Fit(X, bad))
}

func TestMLPClassifier_DivergenceKeepsLastFiniteEpoch(t *testing.T) {
	var warned []error
	errors.SetZerologWarnFunc(func(w error) { warned = append(warned, w) })
	defer errors.SetZerologWarnFunc(nil)

	// identical rows with opposite labels force a full-size error on one of
	// them, and the step overflows every active weight
	X := mat.NewDense(2, 2, []float64{1e10, -1e10, 1e10, -1e10})
	y := mat.NewVecDense(2, []float64{0, 1})
	m := NewMLPClassifier(WithHiddenLayers(64), WithMLPLearningRate(1e308), WithEpochs(5), WithMLPSeed(3))
	require.NoError(t, m.Fit(X, y))

	assert.Empty(t, m.LossHistory())
	assert.True(t, finiteLayers(m.layers_))

	proba, err := m.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < proba.Len(); i++ {
		p := proba.AtVec(i)
		assert.False(t, math.IsNaN(p))
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}

	require.Len(t, warned, 1)
	var cw *errors.ConvergenceWarning
	require.True(t, errors.As(warned[0], &cw))
	assert.Equal(t, "MLPClassifier", cw.Algorithm)
	assert.Equal(t, 0, cw.Iterations)
}
