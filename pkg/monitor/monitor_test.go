package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmontanero23-design/iava.ai-sub006/pipeline"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/drift"
)

func TestObserverCounters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveFit("random_forest", 250*time.Millisecond)
	m.ObserveValidation("random_forest", 0.81)
	m.ObservePredictions("random_forest", 3)
	m.ObservePredictions("random_forest", 2)

	assert.Equal(t, 1, testutil.CollectAndCount(m.FitDuration))
	assert.InDelta(t, 0.81, testutil.ToFloat64(m.ValidationAccuracy.WithLabelValues("random_forest")), 1e-12)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Predictions.WithLabelValues("random_forest")))
}

func TestObserveDrift(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveDrift("eth", drift.Result{})
	assert.Equal(t, 0, testutil.CollectAndCount(m.DriftZScore))

	steps := []struct {
		result     drift.Result
		wantActive float64
		wantEvents float64
	}{
		{drift.Result{Ready: true, ZScore: -0.5}, 0, 0},
		{drift.Result{Ready: true, ZScore: -3, Drift: true}, 1, 1},
		{drift.Result{Ready: true, ZScore: -4, Drift: true}, 1, 1},
		{drift.Result{Ready: true, ZScore: 0.2}, 0, 1},
		{drift.Result{Ready: true, ZScore: -2.5, Drift: true}, 1, 2},
	}
	for i, step := range steps {
		m.ObserveDrift("eth", step.result)
		assert.Equal(t, step.result.ZScore, testutil.ToFloat64(m.DriftZScore.WithLabelValues("eth")), "step %d", i)
		assert.Equal(t, step.wantActive, testutil.ToFloat64(m.DriftActive.WithLabelValues("eth")), "step %d", i)
		assert.Equal(t, step.wantEvents, testutil.ToFloat64(m.DriftEvents.WithLabelValues("eth")), "step %d", i)
	}
}

func TestPipelineReportsToMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	var examples []pipeline.LabeledExample
	for i := 0; i < 50; i++ {
		x := float64(i%10) - 4.5
		label := 0
		if x > 0 {
			label = 1
		}
		examples = append(examples, pipeline.LabeledExample{Features: []float64{x}, Label: label})
	}
	p, err := pipeline.Train(examples, pipeline.DefaultConfig(), pipeline.WithObserver(m))
	require.NoError(t, err)
	_, err = pipeline.Score(p, []float64{3})
	require.NoError(t, err)

	model := pipeline.ModelLogisticRegression
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues(model)))
	assert.Equal(t, p.ValidationReport().MeanAccuracy, testutil.ToFloat64(m.ValidationAccuracy.WithLabelValues(model)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FitDuration, "signalprob_fit_duration_seconds"))
}

func TestWriteTextfile(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.ObservePredictions("decision_tree", 7)

	path := filepath.Join(t.TempDir(), "signalprob.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `signalprob_predictions_total{model="decision_tree"} 7`))

	noGather := NewWithRegistry(prometheus.WrapRegistererWithPrefix("x_", prometheus.NewRegistry()))
	assert.Error(t, noGather.WriteTextfile(path))
}
