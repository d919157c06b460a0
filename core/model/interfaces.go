package model

// ParameterGetter exposes a model's hyperparameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter decodes hyperparameters from a loosely typed map, as read
// from a configuration file.
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}

// LossReporter is implemented by iteratively trained models.
type LossReporter interface {
	// LossHistory returns one loss value per iteration of the last Fit.
	LossHistory() []float64
}

// FeatureImportancer is implemented by models that rank their inputs.
type FeatureImportancer interface {
	FeatureImportances() ([]float64, error)
}
