package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:  1.0,
		},
		{
			name:  "Worst classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1},
			want:  0.0,
		},
		{
			name:  "All scores tied",
			yTrue: []float64{0, 1, 0, 1},
			yPred: []float64{0.5, 0.5, 0.5, 0.5},
			want:  0.5,
		},
		{
			name:  "Typical case",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.75,
		},
		{
			name:  "All positive labels",
			yTrue: []float64{1, 1, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5,
		},
		{
			name:  "All negative labels",
			yTrue: []float64{0, 0, 0, 0},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5,
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yPred:   []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0.5},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(vec(tt.yTrue...), vec(tt.yPred...))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestROCCurveShape(t *testing.T) {
	c, err := ROCCurve(vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0.5, 0.5, 1}, c.X)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1, 1}, c.Y)
	assert.True(t, math.IsInf(c.Thresholds[0], 1))
	assert.Equal(t, 0.1, c.Thresholds[len(c.Thresholds)-1])

	for i := 1; i < len(c.X); i++ {
		assert.GreaterOrEqual(t, c.X[i], c.X[i-1])
		assert.GreaterOrEqual(t, c.Y[i], c.Y[i-1])
	}
}

func TestAveragePrecision(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{
			name:  "Perfect ranking",
			yTrue: []float64{1, 1, 1, 0, 0},
			yPred: []float64{5, 4, 3, 2, 1},
			want:  1.0,
		},
		{
			name:  "Worst ranking",
			yTrue: []float64{1, 1, 1, 0, 0},
			yPred: []float64{1, 2, 3, 4, 5},
			want:  (1.0/3 + 2.0/4 + 3.0/5) / 3,
		},
		{
			name:  "Mixed ranking",
			yTrue: []float64{1, 0, 1, 0, 1},
			yPred: []float64{0.9, 0.8, 0.7, 0.6, 0.5},
			want:  (1.0 + 2.0/3 + 3.0/5) / 3,
		},
		{
			name:  "Single relevant",
			yTrue: []float64{0, 0, 1, 0, 0},
			yPred: []float64{0.1, 0.2, 0.3, 0.4, 0.5},
			want:  1.0 / 3,
		},
		{
			name:  "No relevant items",
			yTrue: []float64{0, 0, 0, 0},
			yPred: []float64{0.1, 0.2, 0.3, 0.4},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AveragePrecision(vec(tt.yTrue...), vec(tt.yPred...))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPrecisionRecallCurve(t *testing.T) {
	c, err := PrecisionRecallCurve(vec(1, 0, 1), vec(0.9, 0.5, 0.1))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 1}, c.X, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0.5, 2.0 / 3}, c.Y, 1e-12)
	assert.Equal(t, []float64{0.9, 0.5, 0.1}, c.Thresholds)
}

func TestBrierAndLogLoss(t *testing.T) {
	brier, err := BrierScore(vec(1, 0), vec(0.8, 0.4))
	require.NoError(t, err)
	assert.InDelta(t, (0.04+0.16)/2, brier, 1e-12)

	ll, err := LogLoss(vec(1, 0), vec(0.8, 0.4))
	require.NoError(t, err)
	assert.InDelta(t, -(math.Log(0.8)+math.Log(0.6))/2, ll, 1e-12)

	ll, err = LogLoss(vec(1), vec(0))
	require.NoError(t, err)
	assert.False(t, math.IsInf(ll, 0))

	_, err = BrierScore(vec(2), vec(0.5))
	assert.Error(t, err)
}

func TestRegressionErrors(t *testing.T) {
	mse, err := MSE(vec(1, 2, 3), vec(1, 2, 5))
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3, mse, 1e-12)

	rmse, err := RMSE(vec(0, 0), vec(3, 4))
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(12.5), rmse, 1e-12)

	mae, err := MAE(vec(0, 0), vec(3, -4))
	require.NoError(t, err)
	assert.Equal(t, 3.5, mae)

	_, err = MSE(vec(1), vec(1, 2))
	assert.Error(t, err)
}

func TestClassificationReport(t *testing.T) {
	r, err := NewClassificationReport(vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8), 0.5)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Support)
	assert.Equal(t, ConfusionMatrix{TP: 1, TN: 2, FN: 1}, r.Confusion)
	assert.InDelta(t, 0.75, r.AUC, 1e-12)
	assert.Equal(t, 0.75, r.Accuracy)
	assert.Greater(t, r.LogLoss, 0.0)
	// absolute errors 0.1, 0.4, 0.65, 0.2
	assert.InDelta(t, 0.158125, r.Brier, 1e-12)
	assert.InDelta(t, math.Sqrt(0.158125), r.RMSE, 1e-12)
	assert.InDelta(t, 0.3375, r.MAE, 1e-12)

	_, err = NewClassificationReport(vec(0, 1), nil, 0.5)
	assert.Error(t, err)
}
