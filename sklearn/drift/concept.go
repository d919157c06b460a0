// Package drift monitors a deployed classifier's accuracy stream and reports
// when recent performance falls significantly below its early baseline.
package drift

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/metrics"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
)

// DefaultThreshold is the z-score drop that counts as drift.
const DefaultThreshold = 2.0

// DefaultWindowSize is the baseline and trailing window length.
const DefaultWindowSize = 100

// bernoulliFloor keeps the fallback standard deviation positive.
const bernoulliFloor = 1e-6

// ConceptDriftDetector keeps the first WindowSize accuracy observations as a
// baseline and a trailing window of the most recent WindowSize. Once the
// trailing window is full it computes
//
//	z = (recentMean - baselineMean) / (std / sqrt(WindowSize))
//
// where std is the baseline sample std, else the pooled std of both
// windows, else the Bernoulli std of the baseline mean. Drift is reported
// when -z > Threshold. All methods are safe for concurrent use.
type ConceptDriftDetector struct {
	mu sync.RWMutex

	windowSize int
	threshold  float64

	baseline []float64
	window   []float64 // ring buffer
	head     int
	filled   int
	total    int
	last     Result
}

// Result is the detector state after an observation.
type Result struct {
	// Ready is false until the trailing window is full.
	Ready        bool    `json:"ready"`
	Drift        bool    `json:"drift"`
	ZScore       float64 `json:"z_score"`
	PValue       float64 `json:"p_value"`
	BaselineMean float64 `json:"baseline_mean"`
	RecentMean   float64 `json:"recent_mean"`
}

// Option is a functional option for ConceptDriftDetector.
type Option func(*ConceptDriftDetector)

// WithWindowSize sets the baseline and trailing window length.
func WithWindowSize(n int) Option {
	return func(d *ConceptDriftDetector) { d.windowSize = n }
}

// WithThreshold sets the z-score drop that counts as drift.
func WithThreshold(z float64) Option {
	return func(d *ConceptDriftDetector) { d.threshold = z }
}

// NewConceptDriftDetector creates a detector with window 100 and
// threshold 2.0.
func NewConceptDriftDetector(opts ...Option) (*ConceptDriftDetector, error) {
	d := &ConceptDriftDetector{
		windowSize: DefaultWindowSize,
		threshold:  DefaultThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.windowSize < 2 {
		return nil, errors.NewValidationError("window_size", "must be at least 2", d.windowSize)
	}
	if d.threshold <= 0 {
		return nil, errors.NewValidationError("threshold", "must be positive", d.threshold)
	}
	d.window = make([]float64, d.windowSize)
	return d, nil
}

// WindowSize returns the configured window length.
func (d *ConceptDriftDetector) WindowSize() int {
	return d.windowSize
}

// Threshold returns the configured z-score threshold.
func (d *ConceptDriftDetector) Threshold() float64 {
	return d.threshold
}

// Update records one accuracy observation (a 0/1 hit or a batch accuracy)
// and returns the new state. A ModelDriftWarning is emitted when the
// detector enters drift.
func (d *ConceptDriftDetector) Update(accuracy float64) (Result, error) {
	if err := errors.CheckScalar("ConceptDriftDetector.Update", accuracy, 0); err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	if len(d.baseline) < d.windowSize {
		d.baseline = append(d.baseline, accuracy)
	}
	d.window[d.head] = accuracy
	d.head = (d.head + 1) % d.windowSize
	if d.filled < d.windowSize {
		d.filled++
	}
	d.total++

	wasDrift := d.last.Drift
	d.last = d.evaluate()
	res, total := d.last, d.total
	d.mu.Unlock()

	// warning handlers may call back into the detector
	if res.Drift && !wasDrift {
		errors.Warn(errors.NewModelDriftWarning("ConceptDriftDetector", res.ZScore, d.threshold, "retrain or recalibrate the model"))
		log.GetLoggerWithName("ConceptDriftDetector").Warn("concept drift detected",
			log.DriftZScoreKey, res.ZScore,
			log.ThresholdKey, d.threshold,
			log.SamplesKey, total,
		)
	}
	return res, nil
}

// ObserveBatch scores a batch of predictions against their outcomes and
// records the batch accuracy.
func (d *ConceptDriftDetector) ObserveBatch(yTrue, yPred mat.Vector) (Result, error) {
	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return Result{}, err
	}
	return d.Update(acc)
}

// evaluate computes the drift statistic. Callers hold d.mu.
func (d *ConceptDriftDetector) evaluate() Result {
	if d.filled < d.windowSize {
		return Result{}
	}
	recent := d.recentLocked()
	bMean, bStd := stats.MeanStd(d.baseline)
	rMean, rStd := stats.MeanStd(recent)

	std := bStd
	if std == 0 {
		std = math.Sqrt((bStd*bStd + rStd*rStd) / 2)
	}
	if std == 0 {
		p := errors.ClipValue(bMean, bernoulliFloor, 1-bernoulliFloor)
		std = math.Sqrt(p * (1 - p))
	}
	z := (rMean - bMean) / (std / math.Sqrt(float64(d.windowSize)))

	return Result{
		Ready:        true,
		Drift:        -z > d.threshold,
		ZScore:       z,
		PValue:       distuv.UnitNormal.CDF(z),
		BaselineMean: bMean,
		RecentMean:   rMean,
	}
}

// recentLocked returns the trailing window oldest first.
func (d *ConceptDriftDetector) recentLocked() []float64 {
	out := make([]float64, 0, d.filled)
	start := d.head
	if d.filled < d.windowSize {
		start = 0
	}
	for i := 0; i < d.filled; i++ {
		out = append(out, d.window[(start+i)%d.windowSize])
	}
	return out
}

// Detect returns the state after the latest observation.
func (d *ConceptDriftDetector) Detect() Result {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}

// Reset clears the baseline, the window and the drift state.
func (d *ConceptDriftDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.baseline = nil
	d.window = make([]float64, d.windowSize)
	d.head = 0
	d.filled = 0
	d.total = 0
	d.last = Result{}
}

// Snapshot is a serializable copy of the detector state.
type Snapshot struct {
	WindowSize   int       `json:"window_size"`
	Threshold    float64   `json:"threshold"`
	Baseline     []float64 `json:"baseline"`
	Recent       []float64 `json:"recent"`
	Observations int       `json:"observations"`
	Last         Result    `json:"last"`
	TakenAt      time.Time `json:"taken_at"`
}

// Snapshot copies the current state.
func (d *ConceptDriftDetector) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Snapshot{
		WindowSize:   d.windowSize,
		Threshold:    d.threshold,
		Baseline:     append([]float64(nil), d.baseline...),
		Recent:       d.recentLocked(),
		Observations: d.total,
		Last:         d.last,
		TakenAt:      time.Now().UTC(),
	}
}

// Restore rebuilds a detector from a snapshot.
func Restore(s Snapshot) (*ConceptDriftDetector, error) {
	d, err := NewConceptDriftDetector(WithWindowSize(s.WindowSize), WithThreshold(s.Threshold))
	if err != nil {
		return nil, err
	}
	if len(s.Baseline) > d.windowSize || len(s.Recent) > d.windowSize {
		return nil, errors.NewValueError("drift.Restore", "snapshot windows exceed the window size")
	}
	d.baseline = append([]float64(nil), s.Baseline...)
	for _, v := range s.Recent {
		d.window[d.head] = v
		d.head = (d.head + 1) % d.windowSize
	}
	d.filled = len(s.Recent)
	d.total = s.Observations
	d.last = d.evaluate()
	return d, nil
}
