package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// PolynomialFeatures expands one vector. The output order is fixed:
//
//	degree 1: x0..xn
//	degree 2: x0..xn, x0^2..xn^2, xi*xj for i<j in lexicographic order
//	degree 3: the degree 2 output followed by x0^3..xn^3
func PolynomialFeatures(vector []float64, degree int) ([]float64, error) {
	if degree < 1 || degree > 3 {
		return nil, errors.NewValidationError("degree", "must be 1, 2 or 3", degree)
	}
	n := len(vector)
	out := make([]float64, 0, expandedWidth(n, degree))
	out = append(out, vector...)
	if degree >= 2 {
		for _, v := range vector {
			out = append(out, v*v)
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				out = append(out, vector[i]*vector[j])
			}
		}
	}
	if degree == 3 {
		for _, v := range vector {
			out = append(out, v*v*v)
		}
	}
	return out, nil
}

func expandedWidth(n, degree int) int {
	w := n
	if degree >= 2 {
		w += n + n*(n-1)/2
	}
	if degree == 3 {
		w += n
	}
	return w
}

// PolynomialExpander applies PolynomialFeatures row by row. Fit only records
// the input width so Transform can reject mismatched rows.
type PolynomialExpander struct {
	state  *model.StateManager
	Degree int
}

// NewPolynomialExpander creates an expander of the given degree.
func NewPolynomialExpander(degree int) *PolynomialExpander {
	return &PolynomialExpander{state: model.NewStateManager(), Degree: degree}
}

// Fit implements model.Transformer.
func (p *PolynomialExpander) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("PolynomialExpander.Fit", "empty data", errors.ErrEmptyData)
	}
	if p.Degree < 1 || p.Degree > 3 {
		return errors.NewValidationError("degree", "must be 1, 2 or 3", p.Degree)
	}
	p.state.Reset()
	p.state.SetDimensions(c, r)
	p.state.SetFitted()
	return nil
}

// Transform implements model.Transformer.
func (p *PolynomialExpander) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := p.state.RequireFitted("PolynomialExpander", "Transform"); err != nil {
		return nil, err
	}
	nFeatures, _ := p.state.GetDimensions()
	r, c := X.Dims()
	if c != nFeatures {
		return nil, errors.NewDimensionError("PolynomialExpander.Transform", nFeatures, c, 1)
	}

	out := mat.NewDense(r, expandedWidth(c, p.Degree), nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		expanded, err := PolynomialFeatures(row, p.Degree)
		if err != nil {
			return nil, err
		}
		out.SetRow(i, expanded)
	}
	return out, nil
}

// FitTransform implements model.Transformer.
func (p *PolynomialExpander) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// FeatureNames returns output column names such as x0, x0^2, x0*x1, x0^3.
func (p *PolynomialExpander) FeatureNames() ([]string, error) {
	if err := p.state.RequireFitted("PolynomialExpander", "FeatureNames"); err != nil {
		return nil, err
	}
	n, _ := p.state.GetDimensions()
	names := make([]string, 0, expandedWidth(n, p.Degree))
	for i := 0; i < n; i++ {
		names = append(names, fmt.Sprintf("x%d", i))
	}
	if p.Degree >= 2 {
		for i := 0; i < n; i++ {
			names = append(names, fmt.Sprintf("x%d^2", i))
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				names = append(names, fmt.Sprintf("x%d*x%d", i, j))
			}
		}
	}
	if p.Degree == 3 {
		for i := 0; i < n; i++ {
			names = append(names, fmt.Sprintf("x%d^3", i))
		}
	}
	return names, nil
}
