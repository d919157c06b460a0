package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/model_selection"
)

// Model kinds.
const (
	ModelLogisticRegression = "logistic_regression"
	ModelDecisionTree       = "decision_tree"
	ModelRandomForest       = "random_forest"
	ModelGradientBoosting   = "gradient_boosting"
	ModelNeuralNetwork      = "neural_network"
	ModelVoting             = "voting"
	ModelStacking           = "stacking"
)

// Scaling and calibration choices.
const (
	ScalingNone     = "none"
	ScalingStandard = "standard"
	ScalingMinMax   = "minmax"

	CalibrationNone = "none"
)

// DefaultSeed is used when a Config leaves Seed unset.
const DefaultSeed int64 = 42

// Config enumerates every knob of a pipeline. The same Config always builds
// the same pipeline shape; randomized models draw from Seed unless their
// hyperparameters set one.
type Config struct {
	Model           string                 `json:"model" yaml:"model" toml:"model" default:"logistic_regression" validate:"oneof=logistic_regression decision_tree random_forest gradient_boosting neural_network voting stacking"`
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty" yaml:"hyperparameters" toml:"hyperparameters"`

	// Members and Meta configure the voting and stacking ensembles.
	Members []MemberConfig `json:"members,omitempty" yaml:"members" toml:"members" validate:"dive"`
	Meta    *MemberConfig  `json:"meta,omitempty" yaml:"meta" toml:"meta" validate:"omitempty"`
	Voting  string         `json:"voting" yaml:"voting" toml:"voting" default:"soft" validate:"oneof=hard soft"`

	// PolynomialDegree expands the raw features before scaling; 1 keeps them.
	PolynomialDegree int `json:"polynomial_degree" yaml:"polynomial_degree" toml:"polynomial_degree" default:"1" validate:"oneof=1 2 3"`
	// Components projects the scaled features onto that many principal
	// components; 0 disables PCA.
	Components int `json:"components" yaml:"components" toml:"components" validate:"gte=0"`

	Scaling     string           `json:"scaling" yaml:"scaling" toml:"scaling" default:"standard" validate:"oneof=none standard minmax"`
	Calibration string           `json:"calibration" yaml:"calibration" toml:"calibration" default:"none" validate:"oneof=none platt isotonic temperature"`
	Validation  ValidationConfig `json:"validation" yaml:"validation" toml:"validation"`
	// Seed is nil only before Normalize; an explicit 0 is kept.
	Seed *int64 `json:"seed" yaml:"seed" toml:"seed" default:"42"`
}

// RandomSeed returns Seed, or DefaultSeed when it is unset.
func (c Config) RandomSeed() int64 {
	if c.Seed == nil {
		return DefaultSeed
	}
	return *c.Seed
}

// MemberConfig is one base model inside an ensemble.
type MemberConfig struct {
	Model           string                 `json:"model" yaml:"model" toml:"model" validate:"oneof=logistic_regression decision_tree random_forest gradient_boosting neural_network"`
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty" yaml:"hyperparameters" toml:"hyperparameters"`
}

// ValidationConfig selects k-fold (Folds) or, when WalkForward is set,
// walk-forward validation.
type ValidationConfig struct {
	Folds       int                          `json:"folds" yaml:"folds" toml:"folds" default:"5" validate:"gte=2"`
	WalkForward *model_selection.WalkForward `json:"walk_forward,omitempty" yaml:"walk_forward" toml:"walk_forward" validate:"omitempty"`
}

// Splitter returns the configured validation splitter.
func (v ValidationConfig) Splitter() model_selection.Splitter {
	if v.WalkForward != nil {
		return *v.WalkForward
	}
	return model_selection.NewKFold(v.Folds)
}

var validate = newValidator()

// newValidator reports fields by their json names, e.g. "polynomial_degree".
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	_ = defaults.Set(&cfg)
	return cfg
}

// Normalize applies defaults to unset fields and validates the result.
func (c *Config) Normalize() error {
	if err := defaults.Set(c); err != nil {
		return errors.Wrap(err, "apply config defaults")
	}
	return c.Validate()
}

// Validate checks enum values and ensemble wiring. Unknown values are
// reported as ValidationError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fieldPath(fe.Namespace()), "failed "+fe.Tag()+" "+fe.Param(), fe.Value())
		}
		return errors.Wrap(err, "validate config")
	}
	switch c.Model {
	case ModelVoting:
		if len(c.Members) == 0 {
			return errors.NewValidationError("members", "voting needs at least one member", len(c.Members))
		}
	case ModelStacking:
		if len(c.Members) == 0 {
			return errors.NewValidationError("members", "stacking needs at least one member", len(c.Members))
		}
		if c.Meta == nil {
			return errors.NewValidationError("meta", "stacking needs a meta model", nil)
		}
	}
	return nil
}

// fieldPath turns "Config.validation.folds" into "validation.folds".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

// LoadConfig reads a YAML, TOML or JSON file (by extension), applies
// defaults and validates it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// ParseConfig decodes data in format "yaml", "yml", "toml" or "json".
func ParseConfig(data []byte, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, errors.Wrap(err, "parse yaml config")
		}
	case "toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, errors.Wrap(err, "parse toml config")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.NewValidationError(undecoded[0].String(), "unknown config key", nil)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, errors.Wrap(err, "parse json config")
		}
	default:
		return Config{}, errors.NewValidationError("format", "must be yaml, toml or json", format)
	}
	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
