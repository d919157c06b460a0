package drift

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// hits returns n 0/1 observations whose mean is exactly rate when n*rate
// is whole, spread evenly.
func hits(n int, rate float64) []float64 {
	out := make([]float64, n)
	acc := 0.0
	for i := range out {
		acc += rate
		if acc >= 1-1e-9 {
			out[i] = 1
			acc--
		}
	}
	return out
}

func TestConceptDriftDetector_AccuracyDrop(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer errors.SetZerologWarnFunc(nil)

	d, err := NewConceptDriftDetector(WithWindowSize(200))
	require.NoError(t, err)

	for i, v := range hits(200, 0.95) {
		res, err := d.Update(v)
		require.NoError(t, err)
		if i < 199 {
			assert.False(t, res.Ready)
		}
	}
	res := d.Detect()
	assert.True(t, res.Ready)
	assert.False(t, res.Drift)
	assert.InDelta(t, 0.0, res.ZScore, 1e-9)

	for _, v := range hits(200, 0.6) {
		_, err := d.Update(v)
		require.NoError(t, err)
	}
	res = d.Detect()
	assert.True(t, res.Drift)
	assert.Less(t, res.ZScore, -2.0)
	assert.InDelta(t, 0.95, res.BaselineMean, 1e-9)
	assert.InDelta(t, 0.6, res.RecentMean, 1e-9)
	assert.Less(t, res.PValue, 0.05)

	var dw *errors.ModelDriftWarning
	require.Len(t, warnings, 1, "warn once on entering drift")
	assert.True(t, errors.As(warnings[0], &dw))
}

func TestConceptDriftDetector_StableAndImproving(t *testing.T) {
	d, err := NewConceptDriftDetector(WithWindowSize(50))
	require.NoError(t, err)
	for _, v := range hits(50, 0.7) {
		_, err := d.Update(v)
		require.NoError(t, err)
	}
	for _, v := range hits(100, 0.9) {
		_, err := d.Update(v)
		require.NoError(t, err)
	}
	res := d.Detect()
	assert.False(t, res.Drift, "improvement is not drift")
	assert.Greater(t, res.ZScore, 0.0)
}

func TestConceptDriftDetector_ZeroVarianceFallbacks(t *testing.T) {
	d, err := NewConceptDriftDetector(WithWindowSize(10))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := d.Update(0.95)
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		_, err := d.Update(0.6)
		require.NoError(t, err)
	}
	res := d.Detect()
	assert.True(t, res.Drift)
	assert.False(t, res.ZScore != res.ZScore, "z-score is not NaN")
	assert.Less(t, res.ZScore, -2.0)
}

func TestConceptDriftDetector_ResetAndValidation(t *testing.T) {
	d, err := NewConceptDriftDetector(WithWindowSize(5))
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err := d.Update(1)
		require.NoError(t, err)
	}
	assert.True(t, d.Detect().Ready)
	d.Reset()
	assert.Equal(t, Result{}, d.Detect())
	assert.Empty(t, d.Snapshot().Baseline)

	_, err = d.Update(nan())
	assert.Error(t, err)

	_, err = NewConceptDriftDetector(WithWindowSize(1))
	assert.Error(t, err)
	_, err = NewConceptDriftDetector(WithThreshold(0))
	assert.Error(t, err)
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

func TestConceptDriftDetector_SnapshotRestore(t *testing.T) {
	d, err := NewConceptDriftDetector(WithWindowSize(20), WithThreshold(1.5))
	require.NoError(t, err)
	for _, v := range append(hits(20, 0.9), hits(25, 0.5)...) {
		_, err := d.Update(v)
		require.NoError(t, err)
	}
	snap := d.Snapshot()
	assert.Equal(t, 45, snap.Observations)
	assert.Len(t, snap.Recent, 20)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored, err := Restore(decoded)
	require.NoError(t, err)
	assert.Equal(t, d.Detect(), restored.Detect())

	// both continue identically
	a, err := d.Update(0)
	require.NoError(t, err)
	b, err := restored.Update(0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestConceptDriftDetector_ObserveBatch(t *testing.T) {
	d, err := NewConceptDriftDetector(WithWindowSize(2))
	require.NoError(t, err)
	yTrue := mat.NewVecDense(4, []float64{1, 0, 1, 0})
	_, err = d.ObserveBatch(yTrue, mat.NewVecDense(4, []float64{1, 0, 1, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, d.Snapshot().Baseline[0], 1e-12)

	_, err = d.ObserveBatch(yTrue, mat.NewVecDense(3, nil))
	assert.Error(t, err)
}

func TestConceptDriftDetector_Concurrent(t *testing.T) {
	d, err := NewConceptDriftDetector(WithWindowSize(10))
	require.NoError(t, err)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = d.Update(1)
				_ = d.Detect()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, d.Snapshot().Observations)
}
