package pipeline

import (
	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/ensemble"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/linear_model"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/neural_network"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/tree"
)

// seeded lists the model kinds that draw random numbers.
var seeded = map[string]bool{
	ModelRandomForest:  true,
	ModelNeuralNetwork: true,
}

// NewModel builds an unfitted base model of the given kind and applies the
// hyperparameters. Models that use randomness receive seed unless params
// carry their own.
func NewModel(kind string, params map[string]interface{}, seed int64) (model.Classifier, error) {
	var m model.Classifier
	switch kind {
	case ModelLogisticRegression:
		m = linear_model.NewLogisticRegression()
	case ModelDecisionTree:
		m = tree.NewDecisionTreeClassifier()
	case ModelRandomForest:
		m = ensemble.NewRandomForestClassifier()
	case ModelGradientBoosting:
		m = ensemble.NewGradientBoostingClassifier()
	case ModelNeuralNetwork:
		m = neural_network.NewMLPClassifier()
	default:
		return nil, errors.NewValidationError("model", "unknown base model", kind)
	}

	merged := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		merged[k] = v
	}
	if seeded[kind] {
		_, hasSeed := merged["seed"]
		_, hasState := merged["random_state"]
		if !hasSeed && !hasState {
			merged["seed"] = seed
		}
	}
	if len(merged) == 0 {
		return m, nil
	}
	setter, ok := m.(model.ParameterSetter)
	if !ok {
		return nil, errors.NewValidationError("hyperparameters", "model does not accept hyperparameters", kind)
	}
	if err := setter.SetParams(merged); err != nil {
		return nil, errors.NewModelError("NewModel", kind, err)
	}
	return m, nil
}

// BuildModel builds the classifier a Config describes, including ensemble
// members. Member i is seeded with Seed+i+1 so members differ.
func BuildModel(cfg Config) (model.Classifier, error) {
	switch cfg.Model {
	case ModelVoting, ModelStacking:
		members := make([]model.Classifier, len(cfg.Members))
		for i, mc := range cfg.Members {
			m, err := NewModel(mc.Model, mc.Hyperparameters, cfg.RandomSeed()+int64(i)+1)
			if err != nil {
				return nil, errors.Wrapf(err, "member %d", i)
			}
			members[i] = m
		}
		if cfg.Model == ModelVoting {
			return ensemble.NewVotingClassifier(cfg.Voting, members...), nil
		}
		if cfg.Meta == nil {
			return nil, errors.NewValidationError("meta", "stacking needs a meta model", nil)
		}
		meta, err := NewModel(cfg.Meta.Model, cfg.Meta.Hyperparameters, cfg.RandomSeed())
		if err != nil {
			return nil, errors.Wrap(err, "meta model")
		}
		return ensemble.NewStackingClassifier(meta, members...), nil
	default:
		return NewModel(cfg.Model, cfg.Hyperparameters, cfg.RandomSeed())
	}
}
