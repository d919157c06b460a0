package drift

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
)

// DDM defaults.
const (
	DefaultDDMMinInstances    = 30
	DefaultDDMWarningLevel    = 2.0
	DefaultDDMOutControlLevel = 3.0
)

// DDM is the Drift Detection Method of Gama et al. (2004) over a stream of
// per-prediction hits and misses. It tracks the running error rate p and
// its std s = sqrt(p(1-p)/n), remembers the minimum p+s seen, and signals
//
//	warning when p+s > pMin + warningLevel*sMin
//	drift   when p+s > pMin + outControlLevel*sMin
//
// After a drift the statistics restart. Complements ConceptDriftDetector:
// DDM reacts per prediction, the windowed detector per batch.
type DDM struct {
	mu sync.Mutex

	minInstances    int
	warningLevel    float64
	outControlLevel float64

	n       int
	errs    int
	pMin    float64
	sMin    float64
	warning bool
	drifts  int
}

// DDMResult is the state after one observation.
type DDMResult struct {
	Warning   bool    `json:"warning"`
	Drift     bool    `json:"drift"`
	ErrorRate float64 `json:"error_rate"`
	// Ratio is (p+s)/(pMin+sMin); 1 means at the best level seen.
	Ratio float64 `json:"ratio"`
}

// DDMStats is a read-only view of the detector.
type DDMStats struct {
	Instances    int     `json:"instances"`
	Errors       int     `json:"errors"`
	MinErrorRate float64 `json:"min_error_rate"`
	MinStd       float64 `json:"min_std"`
	Warning      bool    `json:"warning"`
	Drifts       int     `json:"drifts"`
}

// DDMOption is a functional option for DDM.
type DDMOption func(*DDM)

// WithDDMMinInstances sets how many predictions are seen before testing.
func WithDDMMinInstances(n int) DDMOption {
	return func(d *DDM) { d.minInstances = n }
}

// WithDDMLevels sets the warning and out-of-control multipliers.
func WithDDMLevels(warning, outControl float64) DDMOption {
	return func(d *DDM) {
		d.warningLevel = warning
		d.outControlLevel = outControl
	}
}

// NewDDM creates a detector with 30 warm-up predictions and levels 2 and 3.
func NewDDM(opts ...DDMOption) (*DDM, error) {
	d := &DDM{
		minInstances:    DefaultDDMMinInstances,
		warningLevel:    DefaultDDMWarningLevel,
		outControlLevel: DefaultDDMOutControlLevel,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.minInstances < 1 {
		return nil, errors.NewValidationError("min_instances", "must be at least 1", d.minInstances)
	}
	if d.warningLevel <= 0 || d.outControlLevel <= d.warningLevel {
		return nil, errors.NewValidationError("levels", "need 0 < warning < out_control", []float64{d.warningLevel, d.outControlLevel})
	}
	d.restart()
	return d, nil
}

func (d *DDM) restart() {
	d.n, d.errs = 0, 0
	d.pMin, d.sMin = math.Inf(1), math.Inf(1)
	d.warning = false
}

// Update records whether one prediction was correct.
func (d *DDM) Update(correct bool) DDMResult {
	d.mu.Lock()
	res := d.updateLocked(correct)
	d.mu.Unlock()

	if res.Drift {
		errors.Warn(errors.NewModelDriftWarning("DDM", res.Ratio, d.outControlLevel, "retrain on recent outcomes"))
	}
	return res
}

func (d *DDM) updateLocked(correct bool) DDMResult {
	d.n++
	if !correct {
		d.errs++
	}
	if d.n < d.minInstances {
		return DDMResult{}
	}

	p := float64(d.errs) / float64(d.n)
	s := math.Sqrt(p * (1 - p) / float64(d.n))
	if p+s < d.pMin+d.sMin {
		d.pMin, d.sMin = p, s
	}
	res := DDMResult{ErrorRate: p, Ratio: 1}
	if best := d.pMin + d.sMin; best > 0 {
		res.Ratio = (p + s) / best
	}

	switch {
	case p+s > d.pMin+d.outControlLevel*d.sMin:
		res.Drift = true
		d.drifts++
		d.restart()
	case p+s > d.pMin+d.warningLevel*d.sMin:
		res.Warning = true
		d.warning = true
	default:
		d.warning = false
	}
	return res
}

// ObserveBatch feeds every row's hit or miss in order. The returned result
// is the last row's, with Drift and Warning set if any row raised them.
func (d *DDM) ObserveBatch(yTrue, yPred mat.Vector) (DDMResult, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return DDMResult{}, errors.NewValueError("DDM.ObserveBatch", "input is empty")
	}
	if yTrue.Len() != yPred.Len() {
		return DDMResult{}, errors.NewDimensionError("DDM.ObserveBatch", yTrue.Len(), yPred.Len(), 0)
	}
	var out DDMResult
	drifted, warned := false, false
	for i := 0; i < yTrue.Len(); i++ {
		out = d.Update(yTrue.AtVec(i) == yPred.AtVec(i))
		drifted = drifted || out.Drift
		warned = warned || out.Warning
	}
	out.Drift, out.Warning = drifted, warned
	if warned && !drifted {
		log.GetLoggerWithName("DDM").Debug("drift warning", "error_rate", out.ErrorRate)
	}
	return out, nil
}

// Stats returns the current statistics. The minimums are 0 until the
// warm-up is over.
func (d *DDM) Stats() DDMStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := DDMStats{
		Instances: d.n,
		Errors:    d.errs,
		Warning:   d.warning,
		Drifts:    d.drifts,
	}
	if !math.IsInf(d.pMin, 1) {
		st.MinErrorRate, st.MinStd = d.pMin, d.sMin
	}
	return st
}

// Reset clears all statistics, including the drift count.
func (d *DDM) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.restart()
	d.drifts = 0
}
