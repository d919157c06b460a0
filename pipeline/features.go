package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/preprocessing"
)

// newScaler returns an unfitted scaler for kind, or nil for "none".
func newScaler(kind string) (preprocessing.Scaler, error) {
	switch kind {
	case ScalingNone, "":
		return nil, nil
	case ScalingStandard:
		return preprocessing.NewStandardScaler(), nil
	case ScalingMinMax:
		return preprocessing.NewMinMaxScaler(), nil
	default:
		return nil, errors.NewValidationError("scaling", "must be none, standard or minmax", kind)
	}
}

// featureSpec is the part of a Config that shapes the model's input.
type featureSpec struct {
	degree     int
	scaling    string
	components int
	seed       int64
}

func featureSpecOf(cfg Config) featureSpec {
	return featureSpec{
		degree:     cfg.PolynomialDegree,
		scaling:    cfg.Scaling,
		components: cfg.Components,
		seed:       cfg.RandomSeed(),
	}
}

// featureClassifier expands, scales and projects X before the inner model.
// Every stage is fit on the training rows only, so cross validation never
// leaks held-out statistics, and prediction replays the same stages.
type featureClassifier struct {
	spec featureSpec

	expander *preprocessing.PolynomialExpander
	scaler   preprocessing.Scaler
	pca      *preprocessing.PCA
	inner    model.Classifier
}

func newFeatureClassifier(spec featureSpec, inner model.Classifier) *featureClassifier {
	return &featureClassifier{spec: spec, inner: inner}
}

func (f *featureClassifier) Fit(X mat.Matrix, y mat.Vector) error {
	var expander *preprocessing.PolynomialExpander
	if f.spec.degree > 1 {
		expander = preprocessing.NewPolynomialExpander(f.spec.degree)
	}
	scaler, err := newScaler(f.spec.scaling)
	if err != nil {
		return err
	}
	var pca *preprocessing.PCA
	if f.spec.components > 0 {
		pca = preprocessing.NewPCA(f.spec.components, f.spec.seed)
	}

	Xt := X
	if expander != nil {
		if Xt, err = expander.FitTransform(Xt); err != nil {
			return err
		}
	}
	if scaler != nil {
		if Xt, err = scaler.FitTransform(Xt); err != nil {
			return err
		}
	}
	if pca != nil {
		if Xt, err = pca.FitTransform(Xt); err != nil {
			return err
		}
	}
	if err := f.inner.Fit(Xt, y); err != nil {
		return err
	}
	f.expander, f.scaler, f.pca = expander, scaler, pca
	return nil
}

func (f *featureClassifier) transform(X mat.Matrix) (mat.Matrix, error) {
	var err error
	Xt := X
	if f.expander != nil {
		if Xt, err = f.expander.Transform(Xt); err != nil {
			return nil, err
		}
	}
	if f.scaler != nil {
		if Xt, err = f.scaler.Transform(Xt); err != nil {
			return nil, err
		}
	}
	if f.pca != nil {
		if Xt, err = f.pca.Transform(Xt); err != nil {
			return nil, err
		}
	}
	return Xt, nil
}

func (f *featureClassifier) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	Xt, err := f.transform(X)
	if err != nil {
		return nil, err
	}
	return f.inner.PredictProba(Xt)
}

func (f *featureClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	Xt, err := f.transform(X)
	if err != nil {
		return nil, err
	}
	return f.inner.Predict(Xt)
}

func (f *featureClassifier) GetParams() map[string]interface{} {
	return f.inner.GetParams()
}

func (f *featureClassifier) Clone() model.Classifier {
	return newFeatureClassifier(f.spec, f.inner.Clone())
}

// featureExport returns nil when neither expansion nor PCA is configured.
func (f *featureClassifier) featureExport() (*FeatureExport, error) {
	if f.expander == nil && f.pca == nil {
		return nil, nil
	}
	fe := &FeatureExport{PolynomialDegree: max(f.spec.degree, 1)}
	if f.expander != nil {
		names, err := f.expander.FeatureNames()
		if err != nil {
			return nil, err
		}
		fe.Names = names
	}
	if f.pca != nil {
		fe.Components = f.pca.NComponents
		fe.ExplainedVariance = append([]float64(nil), f.pca.ExplainedVariance...)
	}
	return fe, nil
}
