package calibration

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/linear_model"
)

// Platt fits p = sigmoid(A*score + B) with a one-feature logistic
// regression.
type Platt struct {
	A, B   float64
	fitted bool
}

// NewPlatt creates an unfitted Platt calibrator.
func NewPlatt() *Platt {
	return &Platt{}
}

// Fit learns A and B.
func (p *Platt) Fit(scores, labels mat.Vector) error {
	X, err := scoreMatrix("Platt.Fit", scores, labels)
	if err != nil {
		return err
	}
	lr := linear_model.NewLogisticRegression(
		linear_model.WithLRLearningRate(1.0),
		linear_model.WithLRMaxIter(2000),
	)
	if err := lr.Fit(X, labels); err != nil {
		return errors.NewModelError("Platt.Fit", "logistic regression", err)
	}
	p.A = lr.Coef()[0]
	p.B = lr.Intercept()
	p.fitted = true
	return nil
}

// Transform returns sigmoid(A*score + B). An unfitted calibrator returns
// the score unchanged.
func (p *Platt) Transform(score float64) float64 {
	if !p.fitted {
		return score
	}
	return linalg.Sigmoid(p.A*score + p.B)
}

// Method implements Calibrator.
func (p *Platt) Method() string { return MethodPlatt }

// Params implements Calibrator.
func (p *Platt) Params() map[string]interface{} {
	return map[string]interface{}{"a": p.A, "b": p.B}
}
