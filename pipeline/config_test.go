package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/model_selection"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("model: decision_tree\n"), "yaml")
	require.NoError(t, err)

	assert.Equal(t, ModelDecisionTree, cfg.Model)
	assert.Equal(t, ScalingStandard, cfg.Scaling)
	assert.Equal(t, CalibrationNone, cfg.Calibration)
	assert.Equal(t, "soft", cfg.Voting)
	assert.Equal(t, 5, cfg.Validation.Folds)
	assert.Nil(t, cfg.Validation.WalkForward)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, DefaultSeed, *cfg.Seed)
	assert.Equal(t, 1, cfg.PolynomialDegree)
	assert.Zero(t, cfg.Components)

	def := DefaultConfig()
	assert.Equal(t, ModelLogisticRegression, def.Model)
	require.NoError(t, def.Validate())
}

func TestParseConfigFormats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		data   string
	}{
		{
			name:   "yaml",
			format: "yml",
			data: `
model: random_forest
hyperparameters:
  num_trees: 20
  max_features: sqrt
scaling: minmax
calibration: platt
validation:
  walk_forward:
    initial_train: 50
    test_size: 10
seed: 7
`,
		},
		{
			name:   "toml",
			format: "toml",
			data: `
model = "random_forest"
scaling = "minmax"
calibration = "platt"
seed = 7

[hyperparameters]
num_trees = 20
max_features = "sqrt"

[validation.walk_forward]
initial_train = 50
test_size = 10
`,
		},
		{
			name:   "json",
			format: "json",
			data: `{"model": "random_forest", "hyperparameters": {"num_trees": 20, "max_features": "sqrt"},
				"scaling": "minmax", "calibration": "platt",
				"validation": {"walk_forward": {"initial_train": 50, "test_size": 10}}, "seed": 7}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, ModelRandomForest, cfg.Model)
			assert.Equal(t, ScalingMinMax, cfg.Scaling)
			assert.Equal(t, "platt", cfg.Calibration)
			assert.Equal(t, int64(7), cfg.RandomSeed())
			assert.Equal(t, "sqrt", cfg.Hyperparameters["max_features"])
			require.NotNil(t, cfg.Validation.WalkForward)
			assert.Equal(t, model_selection.WalkForward{InitialTrain: 50, TestSize: 10}, *cfg.Validation.WalkForward)
			assert.IsType(t, model_selection.WalkForward{}, cfg.Validation.Splitter())

			m, err := BuildModel(cfg)
			require.NoError(t, err)
			assert.Equal(t, 20, m.GetParams()["num_trees"])
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		data      string
		wantField string
	}{
		{name: "unknown model", format: "yaml", data: "model: svm\n", wantField: "model"},
		{name: "unknown scaling", format: "yaml", data: "scaling: robust\n", wantField: "scaling"},
		{name: "unknown calibration", format: "yaml", data: "calibration: beta\n", wantField: "calibration"},
		{name: "unknown voting", format: "yaml", data: "voting: ranked\n", wantField: "voting"},
		{name: "one fold", format: "yaml", data: "validation:\n  folds: 1\n", wantField: "validation.folds"},
		{name: "voting without members", format: "yaml", data: "model: voting\n", wantField: "members"},
		{name: "stacking without meta", format: "yaml", data: "model: stacking\nmembers:\n  - model: decision_tree\n", wantField: "meta"},
		{name: "ensemble member", format: "yaml", data: "model: voting\nmembers:\n  - model: voting\n", wantField: "members[0].model"},
		{name: "degree 4", format: "yaml", data: "polynomial_degree: 4\n", wantField: "polynomial_degree"},
		{name: "negative components", format: "json", data: `{"components": -1}`, wantField: "components"},
		{name: "unknown format", format: "ini", data: "model=x", wantField: "format"},
		{name: "unknown toml key", format: "toml", data: "modle = \"decision_tree\"\n", wantField: "modle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data), tt.format)
			require.Error(t, err)
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.wantField, verr.ParamName)
		})
	}

	t.Run("unknown yaml key", func(t *testing.T) {
		_, err := ParseConfig([]byte("modle: decision_tree\n"), "yaml")
		assert.Error(t, err)
	})
	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseConfig([]byte("{"), "json")
		assert.Error(t, err)
	})
}

func TestParseConfigKeepsZeroSeed(t *testing.T) {
	tests := []struct {
		name   string
		format string
		data   string
	}{
		{name: "yaml", format: "yaml", data: "seed: 0\n"},
		{name: "toml", format: "toml", data: "seed = 0\n"},
		{name: "json", format: "json", data: `{"seed": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.data), tt.format)
			require.NoError(t, err)
			require.NotNil(t, cfg.Seed)
			assert.Equal(t, int64(0), cfg.RandomSeed())

			m, err := NewModel(ModelRandomForest, nil, cfg.RandomSeed())
			require.NoError(t, err)
			assert.Equal(t, int64(0), m.GetParams()["seed"])
		})
	}

	var unset Config
	assert.Equal(t, DefaultSeed, unset.RandomSeed())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("model: gradient_boosting\nhyperparameters:\n  num_trees: 10\n"), 0o600))
	cfg, err := LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, ModelGradientBoosting, cfg.Model)

	tomlPath := filepath.Join(dir, "model.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("model = \"neural_network\"\n[hyperparameters]\nhidden_layers = [4, 2]\n"), 0o600))
	cfg, err = LoadConfig(tomlPath)
	require.NoError(t, err)
	m, err := BuildModel(cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2}, m.GetParams()["hidden_layers"])

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNewModel(t *testing.T) {
	for _, kind := range []string{ModelLogisticRegression, ModelDecisionTree, ModelRandomForest, ModelGradientBoosting, ModelNeuralNetwork} {
		t.Run(kind, func(t *testing.T) {
			m, err := NewModel(kind, nil, 9)
			require.NoError(t, err)
			if seeded[kind] {
				assert.Equal(t, int64(9), m.GetParams()["seed"])
			}
		})
	}

	t.Run("explicit seed wins", func(t *testing.T) {
		m, err := NewModel(ModelRandomForest, map[string]interface{}{"random_state": 3}, 9)
		require.NoError(t, err)
		assert.Equal(t, int64(3), m.GetParams()["seed"])
	})

	t.Run("unknown hyperparameter", func(t *testing.T) {
		_, err := NewModel(ModelLogisticRegression, map[string]interface{}{"depth": 3}, 0)
		require.Error(t, err)
		var verr *errors.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "depth", verr.ParamName)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := NewModel(ModelVoting, nil, 0)
		assert.Error(t, err)
	})
}

func TestBuildEnsembles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = ModelStacking
	cfg.Members = []MemberConfig{
		{Model: ModelDecisionTree, Hyperparameters: map[string]interface{}{"max_depth": 2}},
		{Model: ModelRandomForest},
	}
	cfg.Meta = &MemberConfig{Model: ModelLogisticRegression}
	require.NoError(t, cfg.Validate())

	m, err := BuildModel(cfg)
	require.NoError(t, err)
	params := m.GetParams()
	members, ok := params["members"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, members, 2)
	assert.Equal(t, 2, members[0]["max_depth"])
	assert.Equal(t, cfg.RandomSeed()+2, members[1]["seed"])

	cfg.Members[0].Model = "svm"
	_, err = BuildModel(cfg)
	assert.Error(t, err)
}
