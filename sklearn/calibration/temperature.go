package calibration

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/metrics"
)

// Temperature grid bounds.
const (
	MinTemperature  = 0.1
	MaxTemperature  = 5.0
	TemperatureStep = 0.05
)

// Temperature rescales the logit of a probability score by a single scalar
// T chosen from a fixed grid to minimize the Brier score:
//
//	p' = sigmoid(logit(p) / T)
//
// Scores are clipped away from 0 and 1 before the logit.
type Temperature struct {
	T float64
}

// NewTemperature creates an unfitted temperature calibrator (T = 1).
func NewTemperature() *Temperature {
	return &Temperature{T: 1}
}

// Fit searches T in [0.1, 5.0] with step 0.05. Ties keep the smaller T.
func (c *Temperature) Fit(scores, labels mat.Vector) error {
	X, err := scoreMatrix("Temperature.Fit", scores, labels)
	if err != nil {
		return err
	}
	n, _ := X.Dims()
	logits := make([]float64, n)
	for i := range logits {
		logits[i] = linalg.Logit(X.At(i, 0))
	}

	bestT, bestBrier := 1.0, -1.0
	proba := mat.NewVecDense(n, nil)
	for _, t := range temperatureGrid() {
		for i, z := range logits {
			proba.SetVec(i, linalg.Sigmoid(z/t))
		}
		brier, err := metrics.BrierScore(labels, proba)
		if err != nil {
			return err
		}
		if bestBrier < 0 || brier < bestBrier {
			bestT, bestBrier = t, brier
		}
	}
	c.T = bestT
	return nil
}

// temperatureGrid returns MinTemperature, MinTemperature+TemperatureStep, ...
// up to MaxTemperature inclusive.
func temperatureGrid() []float64 {
	span := MaxTemperature - MinTemperature
	steps := int(math.Round(span / TemperatureStep))
	grid := make([]float64, steps+1)
	for k := range grid {
		grid[k] = MinTemperature + float64(k)*TemperatureStep
	}
	return grid
}

// Transform returns sigmoid(logit(score)/T).
func (c *Temperature) Transform(score float64) float64 {
	return linalg.Sigmoid(linalg.Logit(score) / c.T)
}

// Method implements Calibrator.
func (c *Temperature) Method() string { return MethodTemperature }

// Params implements Calibrator.
func (c *Temperature) Params() map[string]interface{} {
	return map[string]interface{}{"temperature": c.T}
}
