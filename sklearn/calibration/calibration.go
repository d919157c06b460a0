// Package calibration maps a model's raw positive-class scores to
// probabilities that track observed outcome frequencies.
//
// Fitting a calibrator on the same rows the model was trained on is allowed
// but optimistic: in-sample scores are sharper than out-of-sample ones.
package calibration

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// Method names accepted by New.
const (
	MethodPlatt       = "platt"
	MethodIsotonic    = "isotonic"
	MethodTemperature = "temperature"
)

// Calibrator is fitted on (score, label) pairs and then maps single scores.
type Calibrator interface {
	Fit(scores, labels mat.Vector) error
	Transform(score float64) float64
	// Method returns the calibrator name, e.g. "platt".
	Method() string
	// Params returns the fitted parameters for export.
	Params() map[string]interface{}
}

// New returns an unfitted calibrator for method.
func New(method string) (Calibrator, error) {
	switch method {
	case MethodPlatt:
		return NewPlatt(), nil
	case MethodIsotonic:
		return NewIsotonic(DefaultBins), nil
	case MethodTemperature:
		return NewTemperature(), nil
	default:
		return nil, errors.NewValidationError("calibration", "must be platt, isotonic or temperature", method)
	}
}

// TransformVec applies c to every element of scores.
func TransformVec(c Calibrator, scores mat.Vector) *mat.VecDense {
	out := mat.NewVecDense(scores.Len(), nil)
	for i := 0; i < scores.Len(); i++ {
		out.SetVec(i, c.Transform(scores.AtVec(i)))
	}
	return out
}

// scoreMatrix validates a calibration pair and returns the scores as an
// n x 1 matrix.
func scoreMatrix(op string, scores, labels mat.Vector) (*mat.Dense, error) {
	if scores == nil || labels == nil {
		return nil, errors.NewValueError(op, "scores or labels are nil")
	}
	if scores.Len() == 0 {
		return nil, errors.NewValueError(op, "no scores")
	}
	X := mat.NewDense(scores.Len(), 1, mat.Col(nil, 0, scores))
	if _, _, err := model.CheckFit(op, X, labels); err != nil {
		return nil, err
	}
	return X, nil
}
