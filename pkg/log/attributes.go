package log

// Model and operation context.
const (
	// ModelNameKey identifies the model type, e.g. "RandomForestClassifier".
	ModelNameKey = "model.name"

	// PipelineIDKey identifies a fitted pipeline instance.
	PipelineIDKey = "pipeline.id"

	// OperationKey is the operation being performed, see the Operation* values.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase, see the Phase* values.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey   = "data.samples"
	FeaturesKey  = "data.features"
	BatchSizeKey = "data.batch_size"
)

// Performance and training progress.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	AUCKey        = "metrics.auc"
	BrierKey      = "metrics.brier"
	LossKey       = "metrics.loss"
	IterationKey  = "training.iteration"
	EpochKey      = "training.epoch"
	FoldKey       = "validation.fold"
	FoldsKey      = "validation.folds"
)

// Prediction output.
const (
	PredsKey       = "preds.count"
	ProbabilityKey = "preds.probability"
	BandKey        = "preds.band"
	ThresholdKey   = "preds.threshold"
)

// Search and drift monitoring.
const (
	CandidateKey   = "search.candidate"
	CandidatesKey  = "search.candidates"
	ParamsKey      = "model.hyperparams"
	DriftZScoreKey = "drift.z_score"
	DriftKey       = "drift.detected"
	RandomSeedKey  = "config.random_seed"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit        = "fit"
	OperationPredict    = "predict"
	OperationTransform  = "transform"
	OperationPartialFit = "partial_fit"
	OperationValidate   = "validate"
	OperationCalibrate  = "calibrate"
	OperationSearch     = "search"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
)
