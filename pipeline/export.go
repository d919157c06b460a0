package pipeline

import (
	"encoding/json"
	"time"

	"github.com/jmontanero23-design/iava.ai-sub006/metrics"
	"github.com/jmontanero23-design/iava.ai-sub006/preprocessing"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/model_selection"
)

// Export is the serializable summary of a fitted pipeline.
type Export struct {
	ID              string                 `json:"id"`
	CreatedAt       time.Time              `json:"created_at"`
	Config          Config                 `json:"config"`
	Model           string                 `json:"model"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
	NFeatures       int                    `json:"n_features"`
	NSamples        int                    `json:"n_samples"`

	Features    *FeatureExport                    `json:"features,omitempty"`
	Scaler      *preprocessing.ScalerStats        `json:"scaler,omitempty"`
	Validation  *model_selection.ValidationReport `json:"validation,omitempty"`
	Training    *metrics.ClassificationReport     `json:"training,omitempty"`
	Calibration *CalibrationExport                `json:"calibration,omitempty"`
	Linear      *LinearWeights                    `json:"linear,omitempty"`
}

// FeatureExport describes the input transform in front of the model.
type FeatureExport struct {
	PolynomialDegree int `json:"polynomial_degree"`
	// Names are the expanded column names (x0, x0^2, x0*x1, ...).
	Names []string `json:"names,omitempty"`

	Components        int       `json:"components,omitempty"`
	ExplainedVariance []float64 `json:"explained_variance,omitempty"`
}

// CalibrationExport holds a fitted calibrator's parameters.
type CalibrationExport struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
}

// LinearWeights are the coefficients of a logistic regression, expressed on
// the transformed feature space.
type LinearWeights struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

type linearModel interface {
	Coef() []float64
	Intercept() float64
}

// Export returns the summary of the fitted pipeline.
func (p *Pipeline) Export() (*Export, error) {
	if err := p.state.RequireFitted("Pipeline", "Export"); err != nil {
		return nil, err
	}
	nFeatures, nSamples := p.state.GetDimensions()
	e := &Export{
		ID:              p.ID(),
		CreatedAt:       p.fittedAt.UTC(),
		Config:          p.cfg,
		Model:           p.cfg.Model,
		Hyperparameters: p.core.GetParams(),
		NFeatures:       nFeatures,
		NSamples:        nSamples,
		Validation:      p.report,
		Training:        p.training,
	}
	features, err := p.core.featureExport()
	if err != nil {
		return nil, err
	}
	e.Features = features
	if p.core.scaler != nil {
		stats := p.core.scaler.Stats()
		e.Scaler = &stats
	}
	if p.calibrator != nil {
		e.Calibration = &CalibrationExport{
			Method: p.calibrator.Method(),
			Params: p.calibrator.Params(),
		}
	}
	if lm, ok := p.core.inner.(linearModel); ok {
		e.Linear = &LinearWeights{
			Coef:      append([]float64(nil), lm.Coef()...),
			Intercept: lm.Intercept(),
		}
	}
	return e, nil
}

// MarshalJSONExport is a convenience for Export followed by json.Marshal.
func (p *Pipeline) MarshalJSONExport() ([]byte, error) {
	e, err := p.Export()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(e, "", "  ")
}
