// Package monitor exposes pipeline and drift activity as Prometheus metrics.
//
// Metrics are registered on the registerer passed to NewWithRegistry, so
// tests can use an isolated prometheus.NewRegistry().
package monitor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmontanero23-design/iava.ai-sub006/pipeline"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/drift"
)

const namespace = "signalprob"

// Metrics holds the toolkit's collectors.
type Metrics struct {
	FitDuration        *prometheus.HistogramVec // fit wall time by model kind
	Predictions        *prometheus.CounterVec   // scored rows by model kind
	ValidationAccuracy *prometheus.GaugeVec     // mean CV accuracy of the last fit
	DriftZScore        *prometheus.GaugeVec     // latest z-score by monitor name
	DriftActive        *prometheus.GaugeVec     // 1 while drift is detected
	DriftEvents        *prometheus.CounterVec   // transitions into drift

	gatherer prometheus.Gatherer

	mu       sync.Mutex
	drifting map[string]bool
}

var _ pipeline.Observer = (*Metrics)(nil)

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on registerer. When registerer is
// also a Gatherer (as *prometheus.Registry is) WriteTextfile uses it.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	m := &Metrics{
		FitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_duration_seconds",
			Help:      "Wall time of pipeline fits, including validation and calibration",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"model"}),
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Number of scored feature vectors",
		}, []string{"model"}),
		ValidationAccuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_accuracy",
			Help:      "Mean cross-validated accuracy of the last fit",
		}, []string{"model"}),
		DriftZScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drift_z_score",
			Help:      "Latest concept drift z-score; negative means accuracy fell",
		}, []string{"monitor"}),
		DriftActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drift_active",
			Help:      "1 while the monitor reports drift",
		}, []string{"monitor"}),
		DriftEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_events_total",
			Help:      "Transitions into the drifted state",
		}, []string{"monitor"}),
		drifting: make(map[string]bool),
	}
	if g, ok := registerer.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveFit implements pipeline.Observer.
func (m *Metrics) ObserveFit(modelKind string, d time.Duration) {
	m.FitDuration.WithLabelValues(modelKind).Observe(d.Seconds())
}

// ObserveValidation implements pipeline.Observer.
func (m *Metrics) ObserveValidation(modelKind string, meanAccuracy float64) {
	m.ValidationAccuracy.WithLabelValues(modelKind).Set(meanAccuracy)
}

// ObservePredictions implements pipeline.Observer.
func (m *Metrics) ObservePredictions(modelKind string, n int) {
	m.Predictions.WithLabelValues(modelKind).Add(float64(n))
}

// ObserveDrift records a detector result. Results before the window fills
// are ignored.
func (m *Metrics) ObserveDrift(monitor string, r drift.Result) {
	if !r.Ready {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DriftZScore.WithLabelValues(monitor).Set(r.ZScore)
	active := 0.0
	if r.Drift {
		active = 1
		if !m.drifting[monitor] {
			m.DriftEvents.WithLabelValues(monitor).Inc()
		}
	}
	m.drifting[monitor] = r.Drift
	m.DriftActive.WithLabelValues(monitor).Set(active)
}

// WriteTextfile writes every gathered metric to path in the text exposition
// format, for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m.gatherer == nil {
		return errors.NewValueError("WriteTextfile", "registerer is not a gatherer")
	}
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}
