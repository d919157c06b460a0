package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

func TestDecisionTreeClassifier_FitPredict_Binary(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		3, 3,
		3, 4,
		4, 3,
		4, 4,
	})
	y := mat.NewVecDense(8, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	for _, criterion := range []string{"entropy", "gini"} {
		t.Run(criterion, func(t *testing.T) {
			dt := NewDecisionTreeClassifier(WithCriterion(criterion), WithMaxDepth(5))
			require.NoError(t, dt.Fit(X, y))

			pred, err := dt.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, y.RawVector().Data, pred.RawVector().Data)

			test, err := dt.Predict(mat.NewDense(2, 2, []float64{0.5, 0.5, 3.5, 3.5}))
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 1}, test.RawVector().Data)
			assert.Equal(t, 1, dt.Depth())
			assert.Equal(t, 2, dt.NLeaves())
		})
	}
}

func TestDecisionTreeClassifier_PerfectFeatureGivesFullTrainingAccuracy(t *testing.T) {
	// feature 1 equals the label; feature 0 is noise
	X := mat.NewDense(10, 2, []float64{
		0.3, 0,
		0.9, 1,
		0.1, 1,
		0.5, 0,
		0.7, 0,
		0.2, 1,
		0.8, 1,
		0.4, 0,
		0.6, 1,
		0.0, 0,
	})
	y := mat.NewVecDense(10, []float64{0, 1, 1, 0, 0, 1, 1, 0, 1, 0})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	pred, err := dt.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y.RawVector().Data, pred.RawVector().Data)

	root := dt.Root()
	assert.Equal(t, 1, root.Feature)
	assert.Equal(t, 0.0, root.Threshold)

	imp, err := dt.FeatureImportances()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, imp)
}

func TestDecisionTreeClassifier_PredictProba(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 1, 1, 2, 2, 2})
	y := mat.NewVecDense(6, []float64{0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	proba, err := dt.PredictProba(mat.NewDense(2, 1, []float64{1, 2}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, proba.AtVec(0), 1e-12)
	assert.Equal(t, 1.0, proba.AtVec(1))
	for i := 0; i < proba.Len(); i++ {
		assert.GreaterOrEqual(t, proba.AtVec(i), 0.0)
		assert.LessOrEqual(t, proba.AtVec(i), 1.0)
	}
}

func TestDecisionTreeClassifier_StoppingRules(t *testing.T) {
	// identical rows with mixed labels cannot be split
	X := mat.NewDense(4, 1, []float64{5, 5, 5, 5})
	y := mat.NewVecDense(4, []float64{1, 0, 1, 0})
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 1, dt.NLeaves())
	pred, err := dt.Predict(mat.NewDense(1, 1, []float64{5}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.AtVec(0), "ties go to the negative class")

	// alternating labels need depth; max depth caps it
	X = mat.NewDense(16, 1, nil)
	y = mat.NewVecDense(16, nil)
	for i := 0; i < 16; i++ {
		X.Set(i, 0, float64(i))
		y.SetVec(i, float64(i%2))
	}
	shallow := NewDecisionTreeClassifier(WithMaxDepth(2))
	require.NoError(t, shallow.Fit(X, y))
	assert.LessOrEqual(t, shallow.Depth(), 2)

	stump := NewDecisionTreeClassifier(WithMinSamplesSplit(20))
	require.NoError(t, stump.Fit(X, y))
	assert.Equal(t, 0, stump.Depth())
}

func TestDecisionTreeClassifier_GetSetParams(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	params := dt.GetParams()
	assert.Equal(t, "entropy", params["criterion"])
	assert.Equal(t, 10, params["max_depth"])

	require.NoError(t, dt.SetParams(map[string]interface{}{
		"criterion":         "gini",
		"max_depth":         5,
		"min_samples_split": 4.0,
		"min_samples_leaf":  2,
	}))
	assert.Equal(t, "gini", dt.criterion)
	assert.Equal(t, 5, dt.maxDepth)
	assert.Equal(t, 4, dt.minSamplesSplit)
	assert.Equal(t, 2, dt.minSamplesLeaf)
	assert.Equal(t, dt.GetParams(), dt.Clone().GetParams())

	assert.Error(t, dt.SetParams(map[string]interface{}{"criterion": "mse"}))
	assert.Error(t, dt.SetParams(map[string]interface{}{"splitter": "best"}))

	var _ model.Classifier = dt
	var _ model.FeatureImportancer = dt
}

func TestDecisionTreeClassifier_NotFitted(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	_, err := dt.Predict(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	_, err = dt.FeatureImportances()
	assert.True(t, errors.As(err, &nf))
}

func TestRegressionTree(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 10, 11, 12})
	y := mat.NewVecDense(6, []float64{1, 1, 1, 5, 5, 7})

	rt := NewRegressionTree(1, 2)
	require.NoError(t, rt.Fit(X, y))
	pred, err := rt.Predict(mat.NewDense(2, 1, []float64{0, 20}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pred.AtVec(0), 1e-12)
	assert.InDelta(t, 17.0/3, pred.AtVec(1), 1e-12)
	assert.Equal(t, 3.0, rt.Root().Threshold)

	deep := NewRegressionTree(3, 2)
	require.NoError(t, deep.Fit(X, y))
	pred, err = deep.Predict(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1, 1, 5, 5, 7}, pred.RawVector().Data, 1e-12)

	constant := NewRegressionTree(3, 2)
	require.NoError(t, constant.Fit(X, mat.NewVecDense(6, []float64{2, 2, 2, 2, 2, 2})))
	assert.True(t, constant.Root().IsLeaf())

	_, err = NewRegressionTree(1, 2).Predict(X)
	assert.Error(t, err)
}
