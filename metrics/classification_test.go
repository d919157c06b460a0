package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

func vec(v ...float64) mat.Vector {
	if len(v) == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(len(v), v)
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := vec(1, 1, 0, 0, 1, 0)
	yPred := vec(1, 0, 0, 1, 1, 0)

	cm, err := NewConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, ConfusionMatrix{TP: 2, TN: 2, FP: 1, FN: 1}, cm)
	assert.Equal(t, yTrue.Len(), cm.Total())

	assert.InDelta(t, 4.0/6, cm.Accuracy(), 1e-12)
	assert.InDelta(t, 2.0/3, cm.Precision(), 1e-12)
	assert.InDelta(t, 2.0/3, cm.Recall(), 1e-12)
	assert.InDelta(t, 2.0/3, cm.Specificity(), 1e-12)
	assert.InDelta(t, 2.0/3, cm.F1(), 1e-12)
	assert.Equal(t, "TP=2 TN=2 FP=1 FN=1", cm.String())

	sum := cm.Add(ConfusionMatrix{TP: 1})
	assert.Equal(t, 7, sum.Total())
}

func TestConfusionMatrixIdentity(t *testing.T) {
	rng := []float64{0.3, 0.9, 0.1, 0.7, 0.5, 0.2, 0.8, 0.6, 0.4, 0.0}
	labels := make([]float64, len(rng))
	preds := make([]float64, len(rng))
	for i, v := range rng {
		if v > 0.45 {
			labels[i] = 1
		}
		if i%3 == 0 {
			preds[i] = 1
		}
	}
	cm, err := NewConfusionMatrix(vec(labels...), vec(preds...))
	require.NoError(t, err)
	assert.Equal(t, len(rng), cm.TP+cm.TN+cm.FP+cm.FN)
}

func TestZeroDenominators(t *testing.T) {
	var cm ConfusionMatrix
	assert.Equal(t, 0.0, cm.Accuracy())
	assert.Equal(t, 0.0, cm.Precision())
	assert.Equal(t, 0.0, cm.Recall())
	assert.Equal(t, 0.0, cm.Specificity())
	assert.Equal(t, 0.0, cm.F1())

	var warned []error
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(nil)

	p, err := Precision(vec(1, 1), vec(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
	r, err := Recall(vec(0, 0), vec(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
	assert.Len(t, warned, 2)
}

func TestThresholdMetricFunctions(t *testing.T) {
	yTrue := vec(1, 0, 1, 1)
	yPred := vec(1, 0, 0, 1)

	acc, err := Accuracy(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, 0.75, acc)

	f1, err := F1Score(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, f1, 1e-12)

	spec, err := Specificity(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, 1.0, spec)
}

func TestInputValidation(t *testing.T) {
	tests := []struct {
		name  string
		yTrue mat.Vector
		yPred mat.Vector
	}{
		{name: "empty", yTrue: vec(), yPred: vec()},
		{name: "length mismatch", yTrue: vec(0, 1), yPred: vec(1)},
		{name: "non-binary label", yTrue: vec(0, 0.5), yPred: vec(0, 1)},
		{name: "non-binary prediction", yTrue: vec(0, 1), yPred: vec(0, 0.7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Accuracy(tt.yTrue, tt.yPred)
			assert.Error(t, err)
		})
	}
}

func TestAverageConfusion(t *testing.T) {
	m := AverageConfusion([]ConfusionMatrix{{TP: 2, TN: 2}, {TP: 4, FN: 2}})
	assert.Equal(t, MeanConfusion{TP: 3, TN: 1, FN: 1}, m)
	assert.Equal(t, MeanConfusion{}, AverageConfusion(nil))
}
