package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// Band is a coarse, human-facing bucket of a probability.
type Band string

// Bands, from the lowest to the highest probability.
const (
	BandStrongReject Band = "strong_reject"
	BandReject       Band = "reject"
	BandNeutral      Band = "neutral"
	BandAccept       Band = "accept"
	BandStrongAccept Band = "strong_accept"
)

// Band upper bounds (exclusive).
const (
	StrongRejectBelow = 0.2
	RejectBelow       = 0.4
	NeutralBelow      = 0.6
	AcceptBelow       = 0.8
)

// BandFor maps a probability to its band.
func BandFor(p float64) Band {
	switch {
	case p < StrongRejectBelow:
		return BandStrongReject
	case p < RejectBelow:
		return BandReject
	case p < NeutralBelow:
		return BandNeutral
	case p < AcceptBelow:
		return BandAccept
	default:
		return BandStrongAccept
	}
}

// Result is the scored form of one feature vector.
type Result struct {
	Probability    float64 `json:"probability"`
	PredictedClass int     `json:"predicted_class"`
	Band           Band    `json:"band"`
}

// Train builds a pipeline from cfg, validates it and fits it on examples.
// Calibration runs when cfg names a calibrator.
func Train(examples []LabeledExample, cfg Config, opts ...Option) (*Pipeline, error) {
	X, y, err := Dataset(examples)
	if err != nil {
		return nil, err
	}
	p, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	fitOpts := FitOptions{
		Validate:  true,
		Calibrate: p.cfg.Calibration != CalibrationNone,
	}
	if err := p.Fit(X, y, fitOpts); err != nil {
		return nil, err
	}
	return p, nil
}

// Score returns the probability, class and band of one feature vector.
func Score(p *Pipeline, vector []float64) (Result, error) {
	if p == nil {
		return Result{}, errors.NewValueError("Score", "pipeline is nil")
	}
	if len(vector) == 0 {
		return Result{}, errors.NewValueError("Score", "feature vector is empty")
	}
	X := mat.NewDense(1, len(vector), append([]float64(nil), vector...))
	proba, err := p.PredictProba(X)
	if err != nil {
		return Result{}, err
	}
	prob := proba.AtVec(0)
	class := 0
	if prob >= 0.5 {
		class = 1
	}
	return Result{Probability: prob, PredictedClass: class, Band: BandFor(prob)}, nil
}

// ScoreBatch scores every row of X.
func ScoreBatch(p *Pipeline, X mat.Matrix) ([]Result, error) {
	proba, err := p.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]Result, proba.Len())
	for i := range out {
		prob := proba.AtVec(i)
		out[i] = Result{Probability: prob, Band: BandFor(prob)}
		if prob >= 0.5 {
			out[i].PredictedClass = 1
		}
	}
	return out, nil
}
