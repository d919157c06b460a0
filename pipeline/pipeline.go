package pipeline

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/metrics"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/calibration"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/model_selection"
)

// Observer receives pipeline events. pkg/monitor implements it with
// Prometheus collectors.
type Observer interface {
	ObserveFit(modelKind string, d time.Duration)
	ObserveValidation(modelKind string, meanAccuracy float64)
	ObservePredictions(modelKind string, n int)
}

// FitOptions selects the optional stages of Fit.
type FitOptions struct {
	// Validate cross-validates the configured model before the final fit.
	Validate bool
	// Calibrate fits the configured calibrator on training-set predictions.
	Calibrate bool
}

// Pipeline chains polynomial expansion, scaling, PCA, a classifier and an
// optional calibrator. Fit is
// single-owner; a fitted Pipeline serves concurrent predictions.
type Pipeline struct {
	id    uuid.UUID
	cfg   Config
	state *model.StateManager

	core       *featureClassifier
	calibrator calibration.Calibrator
	report     *model_selection.ValidationReport
	training   *metrics.ClassificationReport
	fittedAt   time.Time
	observer   Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver reports fit, validation and prediction events to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// New validates cfg and builds an unfitted pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	seed := cfg.RandomSeed()
	cfg.Seed = &seed
	clf, err := BuildModel(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		id:    uuid.New(),
		cfg:   cfg,
		state: model.NewStateManager(),
		core:  newFeatureClassifier(featureSpecOf(cfg), clf),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ID returns the pipeline's unique id.
func (p *Pipeline) ID() string {
	return p.id.String()
}

// Config returns the normalized configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Model returns the underlying classifier. It operates on the expanded,
// scaled and projected features.
func (p *Pipeline) Model() model.Classifier {
	return p.core.inner
}

// ValidationReport returns the report of the last validated Fit, or nil.
func (p *Pipeline) ValidationReport() *model_selection.ValidationReport {
	return p.report
}

// Fit transforms X, trains the model and runs the optional stages.
func (p *Pipeline) Fit(X mat.Matrix, y mat.Vector, opts FitOptions) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")

	nSamples, nFeatures, err := model.CheckFit("Pipeline.Fit", X, y)
	if err != nil {
		return err
	}
	p.state.Reset()
	p.report, p.training, p.calibrator = nil, nil, nil

	logger := log.GetLoggerWithName("Pipeline").With(
		log.PipelineIDKey, p.ID(),
		log.ModelNameKey, p.cfg.Model,
	)
	start := time.Now()

	if opts.Validate {
		report, err := model_selection.CrossValidate(p.core, X, y, p.cfg.Validation.Splitter())
		if err != nil {
			return errors.Wrap(err, "validate pipeline")
		}
		p.report = report
		logger.Info("validation finished",
			log.OperationKey, log.OperationValidate,
			log.FoldsKey, report.NFolds(),
			log.AccuracyKey, report.MeanAccuracy,
			"accuracy_std", report.StdAccuracy,
		)
		if p.observer != nil {
			p.observer.ObserveValidation(p.cfg.Model, report.MeanAccuracy)
		}
	}

	if err := p.core.Fit(X, y); err != nil {
		return err
	}

	if opts.Calibrate && p.cfg.Calibration != CalibrationNone {
		raw, err := p.core.PredictProba(X)
		if err != nil {
			return err
		}
		cal, err := calibration.New(p.cfg.Calibration)
		if err != nil {
			return err
		}
		if err := cal.Fit(raw, y); err != nil {
			return errors.Wrap(err, "calibrate pipeline")
		}
		p.calibrator = cal
		logger.Debug("calibration finished", log.OperationKey, log.OperationCalibrate, "method", cal.Method())
	}

	p.fittedAt = time.Now()
	p.state.SetDimensions(nFeatures, nSamples)
	p.state.SetFitted()

	proba, err := p.predictProba(X)
	if err != nil {
		return err
	}
	training, err := metrics.NewClassificationReport(y, proba, 0.5)
	if err != nil {
		return err
	}
	p.training = &training

	elapsed := time.Since(start)
	logger.Info("pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.AccuracyKey, training.Accuracy,
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	if p.observer != nil {
		p.observer.ObserveFit(p.cfg.Model, elapsed)
	}
	return nil
}

// PredictProba replays the feature stages, the model and the calibrator.
func (p *Pipeline) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if err := p.state.RequireFitted("Pipeline", "PredictProba"); err != nil {
		return nil, err
	}
	proba, err := p.predictProba(X)
	if err != nil {
		return nil, err
	}
	if p.observer != nil {
		p.observer.ObservePredictions(p.cfg.Model, proba.Len())
	}
	return proba, nil
}

func (p *Pipeline) predictProba(X mat.Matrix) (*mat.VecDense, error) {
	nFeatures, _ := p.state.GetDimensions()
	if _, err := model.CheckPredict("Pipeline.PredictProba", X, nFeatures); err != nil {
		return nil, err
	}
	proba, err := p.core.PredictProba(X)
	if err != nil {
		return nil, err
	}
	if p.calibrator != nil {
		proba = calibration.TransformVec(p.calibrator, proba)
	}
	return proba, nil
}

// Predict thresholds the calibrated probability at 0.5.
func (p *Pipeline) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := p.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.Threshold(proba, 0.5), nil
}
