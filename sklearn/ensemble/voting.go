package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/core/parallel"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// Voting modes.
const (
	VotingHard = "hard"
	VotingSoft = "soft"
)

// VotingClassifier combines members by majority class vote ("hard", ties go
// to 0) or by averaging their probabilities ("soft", thresholded at 0.5).
type VotingClassifier struct {
	state *model.StateManager

	members []model.Classifier
	voting  string
}

// NewVotingClassifier creates a voting ensemble. Members are fitted in place
// by Fit.
func NewVotingClassifier(voting string, members ...model.Classifier) *VotingClassifier {
	return &VotingClassifier{
		state:   model.NewStateManager(),
		members: members,
		voting:  voting,
	}
}

func (v *VotingClassifier) validate() error {
	if v.voting != VotingHard && v.voting != VotingSoft {
		return errors.NewValidationError("voting", "must be hard or soft", v.voting)
	}
	if len(v.members) == 0 {
		return errors.NewValidationError("members", "voting ensemble needs at least one member", 0)
	}
	return nil
}

// fitMembers fits every member concurrently; the first failure in member
// order is returned.
func fitMembers(op string, members []model.Classifier, X mat.Matrix, y mat.Vector) error {
	errs := make([]error, len(members))
	parallel.ForEach(len(members), func(i int) {
		errs[i] = members[i].Fit(X, y)
	})
	for i, err := range errs {
		if err != nil {
			return errors.NewModelError(op, fmt.Sprintf("member %d", i), err)
		}
	}
	return nil
}

// Fit fits every member on the same data.
func (v *VotingClassifier) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "VotingClassifier.Fit")

	nSamples, nFeatures, err := model.CheckFit("VotingClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := v.validate(); err != nil {
		return err
	}
	v.state.Reset()
	if err := fitMembers("VotingClassifier.Fit", v.members, X, y); err != nil {
		return err
	}
	v.state.SetDimensions(nFeatures, nSamples)
	v.state.SetFitted()
	return nil
}

// memberOutputs returns one vector per member: classes in hard mode,
// probabilities in soft mode.
func (v *VotingClassifier) memberOutputs(op string, X mat.Matrix) ([]*mat.VecDense, error) {
	if err := v.state.RequireFitted("VotingClassifier", op); err != nil {
		return nil, err
	}
	nFeatures, _ := v.state.GetDimensions()
	if _, err := model.CheckPredict("VotingClassifier."+op, X, nFeatures); err != nil {
		return nil, err
	}
	outs := make([]*mat.VecDense, len(v.members))
	for i, m := range v.members {
		var err error
		if v.voting == VotingHard {
			outs[i], err = m.Predict(X)
		} else {
			outs[i], err = m.PredictProba(X)
		}
		if err != nil {
			return nil, err
		}
	}
	return outs, nil
}

// PredictProba returns the mean member probability (soft) or the share of
// members voting 1 (hard).
func (v *VotingClassifier) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	outs, err := v.memberOutputs("PredictProba", X)
	if err != nil {
		return nil, err
	}
	mean := mat.NewVecDense(outs[0].Len(), nil)
	for _, o := range outs {
		mean.AddVec(mean, o)
	}
	mean.ScaleVec(1/float64(len(outs)), mean)
	return mean, nil
}

// Predict returns the majority class (hard, ties go to 0) or the thresholded
// mean probability (soft).
func (v *VotingClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := v.PredictProba(X)
	if err != nil {
		return nil, err
	}
	if v.voting == VotingSoft {
		return model.Threshold(proba, 0.5), nil
	}
	out := mat.NewVecDense(proba.Len(), nil)
	for i := 0; i < proba.Len(); i++ {
		if proba.AtVec(i) > 0.5 {
			out.SetVec(i, 1)
		}
	}
	return out, nil
}

// Members returns the member models.
func (v *VotingClassifier) Members() []model.Classifier {
	return v.members
}

// Clone returns an unfitted ensemble of cloned members.
func (v *VotingClassifier) Clone() model.Classifier {
	return NewVotingClassifier(v.voting, cloneAll(v.members)...)
}

// GetParams returns the voting mode and each member's parameters.
func (v *VotingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"voting":  v.voting,
		"members": memberParams(v.members),
	}
}

func cloneAll(members []model.Classifier) []model.Classifier {
	out := make([]model.Classifier, len(members))
	for i, m := range members {
		out[i] = m.Clone()
	}
	return out
}

func memberParams(members []model.Classifier) []map[string]interface{} {
	out := make([]map[string]interface{}, len(members))
	for i, m := range members {
		out[i] = m.GetParams()
	}
	return out
}
