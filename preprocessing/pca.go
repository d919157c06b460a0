package preprocessing

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// DefaultPowerIterations is the fixed iteration count per component.
const DefaultPowerIterations = 100

// PCA is an approximate principal component analysis. It standardizes the
// input, then extracts components of the covariance matrix one at a time by
// power iteration with deflation. It does not run an exact eigendecomposition,
// so components are only as accurate as the iteration count allows and their
// signs are arbitrary.
type PCA struct {
	state *model.StateManager

	NComponents int
	Iterations  int
	Seed        int64

	scaler *StandardScaler

	// Components holds one unit-length component per row.
	Components *mat.Dense
	// ExplainedVariance is the Rayleigh quotient of each component.
	ExplainedVariance []float64
}

// PCAOption configures a PCA.
type PCAOption func(*PCA)

// WithPCAIterations overrides the power-iteration count.
func WithPCAIterations(n int) PCAOption {
	return func(p *PCA) { p.Iterations = n }
}

// NewPCA creates a PCA keeping numComponents components. The seed fixes the
// random start vector.
func NewPCA(numComponents int, seed int64, opts ...PCAOption) *PCA {
	p := &PCA{
		state:       model.NewStateManager(),
		NComponents: numComponents,
		Iterations:  DefaultPowerIterations,
		Seed:        seed,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fit implements model.Transformer.
func (p *PCA) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r < 2 || c == 0 {
		return errors.NewValueError("PCA.Fit", "at least two rows are required")
	}
	if p.NComponents < 1 || p.NComponents > c {
		return errors.NewValidationError("n_components", "must be between 1 and the feature count", p.NComponents)
	}
	if p.Iterations < 1 {
		return errors.NewValidationError("iterations", "must be positive", p.Iterations)
	}
	p.state.Reset()

	p.scaler = NewStandardScaler()
	Z, err := p.scaler.FitTransform(X)
	if err != nil {
		return err
	}
	cov := mat.DenseCopyOf(stats.CovarianceMatrix(Z))

	rng := stats.NewRand(p.Seed)
	p.Components = mat.NewDense(p.NComponents, c, nil)
	p.ExplainedVariance = make([]float64, p.NComponents)

	v := make([]float64, c)
	next := mat.NewVecDense(c, nil)
	for k := 0; k < p.NComponents; k++ {
		for i := range v {
			v[i] = rng.Float64()*2 - 1
		}
		normalizeInPlace(v)

		for it := 0; it < p.Iterations; it++ {
			next.MulVec(cov, mat.NewVecDense(c, v))
			copy(v, next.RawVector().Data)
			if floats.Norm(v, 2) == 0 {
				break
			}
			normalizeInPlace(v)
		}

		vec := mat.NewVecDense(c, v)
		next.MulVec(cov, vec)
		lambda := mat.Dot(vec, next)
		p.Components.SetRow(k, v)
		p.ExplainedVariance[k] = lambda

		// deflate: cov -= lambda * v vᵀ
		var outer mat.Dense
		outer.Outer(lambda, vec, vec)
		cov.Sub(cov, &outer)
	}

	p.state.SetDimensions(c, r)
	p.state.SetFitted()
	return nil
}

func normalizeInPlace(v []float64) {
	if n := floats.Norm(v, 2); n > 0 {
		floats.Scale(1/n, v)
	}
}

// Transform projects standardized rows onto the fitted components.
func (p *PCA) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := p.state.RequireFitted("PCA", "Transform"); err != nil {
		return nil, err
	}
	Z, err := p.scaler.Transform(X)
	if err != nil {
		return nil, errors.Wrap(err, "PCA.Transform")
	}
	var out mat.Dense
	out.Mul(Z, p.Components.T())
	return &out, nil
}

// FitTransform implements model.Transformer.
func (p *PCA) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}
