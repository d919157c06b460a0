package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// StackingClassifier trains a meta model on the members' probabilities.
// Members and the meta model see the same training rows, so the meta model
// learns from in-sample member outputs.
type StackingClassifier struct {
	state *model.StateManager

	members []model.Classifier
	meta    model.Classifier
}

// NewStackingClassifier creates a stacking ensemble.
func NewStackingClassifier(meta model.Classifier, members ...model.Classifier) *StackingClassifier {
	return &StackingClassifier{
		state:   model.NewStateManager(),
		members: members,
		meta:    meta,
	}
}

// Fit fits the members on X, then the meta model on their probabilities.
func (s *StackingClassifier) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "StackingClassifier.Fit")

	nSamples, nFeatures, err := model.CheckFit("StackingClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if len(s.members) == 0 {
		return errors.NewValidationError("members", "stacking ensemble needs at least one member", 0)
	}
	if s.meta == nil {
		return errors.NewValidationError("meta", "stacking ensemble needs a meta model", nil)
	}
	s.state.Reset()

	if err := fitMembers("StackingClassifier.Fit", s.members, X, y); err != nil {
		return err
	}
	Z, err := s.metaFeatures(X)
	if err != nil {
		return err
	}
	if err := s.meta.Fit(Z, y); err != nil {
		return errors.NewModelError("StackingClassifier.Fit", "meta model", err)
	}

	s.state.SetDimensions(nFeatures, nSamples)
	s.state.SetFitted()
	return nil
}

// metaFeatures builds the n x len(members) matrix of member probabilities.
func (s *StackingClassifier) metaFeatures(X mat.Matrix) (*mat.Dense, error) {
	rows, _ := X.Dims()
	Z := mat.NewDense(rows, len(s.members), nil)
	for j, m := range s.members {
		proba, err := m.PredictProba(X)
		if err != nil {
			return nil, err
		}
		Z.SetCol(j, proba.RawVector().Data)
	}
	return Z, nil
}

// Transform returns the member probability matrix for X.
func (s *StackingClassifier) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("StackingClassifier", "Transform"); err != nil {
		return nil, err
	}
	nFeatures, _ := s.state.GetDimensions()
	if _, err := model.CheckPredict("StackingClassifier.Transform", X, nFeatures); err != nil {
		return nil, err
	}
	return s.metaFeatures(X)
}

// PredictProba returns the meta model's probability.
func (s *StackingClassifier) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	Z, err := s.Transform(X)
	if err != nil {
		return nil, err
	}
	return s.meta.PredictProba(Z)
}

// Predict returns the meta model's class.
func (s *StackingClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	Z, err := s.Transform(X)
	if err != nil {
		return nil, err
	}
	return s.meta.Predict(Z)
}

// Members returns the member models.
func (s *StackingClassifier) Members() []model.Classifier {
	return s.members
}

// Meta returns the meta model.
func (s *StackingClassifier) Meta() model.Classifier {
	return s.meta
}

// Clone returns an unfitted ensemble of cloned members and meta model.
func (s *StackingClassifier) Clone() model.Classifier {
	var meta model.Classifier
	if s.meta != nil {
		meta = s.meta.Clone()
	}
	return NewStackingClassifier(meta, cloneAll(s.members)...)
}

// GetParams returns member and meta parameters.
func (s *StackingClassifier) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"members": memberParams(s.members),
	}
	if s.meta != nil {
		params["meta"] = s.meta.GetParams()
	}
	return params
}
