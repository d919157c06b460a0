package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/metrics"
	"github.com/jmontanero23-design/iava.ai-sub006/pipeline"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/monitor"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/store"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/drift"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/inspection"
	"github.com/jmontanero23-design/iava.ai-sub006/visualization"
)

type trainOutput struct {
	ID           string             `json:"id"`
	Model        string             `json:"model"`
	Folds        int                `json:"folds"`
	MeanAccuracy float64            `json:"mean_accuracy"`
	StdAccuracy  float64            `json:"std_accuracy"`
	TrainingAUC  float64            `json:"training_auc"`
	Importance   map[string]float64 `json:"importance,omitempty"`
	Plots        []string           `json:"plots,omitempty"`
}

type scoreOutput struct {
	Row int `json:"row"`
	pipeline.Result
}

type monitorOutput struct {
	Batch    int     `json:"batch"`
	Rows     int     `json:"rows"`
	Accuracy float64 `json:"accuracy"`
	Ready    bool    `json:"ready"`
	ZScore   float64 `json:"z_score"`
	PValue   float64 `json:"p_value"`
	Drift    bool    `json:"drift"`

	// Per-prediction error-rate detector, not persisted between runs.
	ErrorRate  float64 `json:"error_rate"`
	DDMWarning bool    `json:"ddm_warning"`
	DDMDrift   bool    `json:"ddm_drift"`
}

func loadConfig(path string) (pipeline.Config, error) {
	if path == "" {
		return pipeline.DefaultConfig(), nil
	}
	return pipeline.LoadConfig(path)
}

func readCSVFile(path, labelColumn string) ([]pipeline.LabeledExample, []string, error) {
	if path == "" {
		return nil, nil, errors.NewValidationError("data", "a CSV path is required", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return pipeline.ReadCSV(f, labelColumn)
}

// fitFromFlags loads the config and training CSV named by the shared
// -config and -train/-data flags and fits a pipeline.
func fitFromFlags(configPath, trainPath, labelColumn string, m *monitor.Metrics) (*pipeline.Pipeline, []pipeline.LabeledExample, []string, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	examples, features, err := readCSVFile(trainPath, labelColumn)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := pipeline.Train(examples, cfg, pipeline.WithObserver(m))
	if err != nil {
		return nil, nil, nil, err
	}
	return p, examples, features, nil
}

func newMetrics() *monitor.Metrics {
	return monitor.NewWithRegistry(prometheus.NewRegistry())
}

func flushMetrics(settings Settings, m *monitor.Metrics) error {
	if settings.MetricsFile == "" {
		return nil
	}
	return m.WriteTextfile(settings.MetricsFile)
}

func runTrain(ctx context.Context, settings Settings, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "pipeline config file (yaml, toml or json)")
	dataPath := fs.String("data", "", "labeled training CSV")
	label := fs.String("label", settings.LabelColumn, "label column name")
	storePath := fs.String("store", settings.StorePath, "bbolt store file")
	plotDir := fs.String("plots", "", "directory for ROC, reliability and partial dependence plots")
	repeats := fs.Int("importance-repeats", 0, "permutation importance repeats; 0 skips importance")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m := newMetrics()
	p, examples, features, err := fitFromFlags(*configPath, *dataPath, *label, m)
	if err != nil {
		return err
	}
	exp, err := p.Export()
	if err != nil {
		return err
	}

	s, err := store.Open(*storePath)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.SavePipeline(ctx, exp); err != nil {
		return err
	}

	out := trainOutput{ID: exp.ID, Model: exp.Model, TrainingAUC: exp.Training.AUC}
	if exp.Validation != nil {
		out.Folds = exp.Validation.NFolds()
		out.MeanAccuracy = exp.Validation.MeanAccuracy
		out.StdAccuracy = exp.Validation.StdAccuracy
	}

	X, y, err := pipeline.Dataset(examples)
	if err != nil {
		return err
	}
	if *repeats > 0 {
		imp, err := inspection.PermutationImportance(p, X, y, *repeats, p.Config().RandomSeed())
		if err != nil {
			return err
		}
		out.Importance = make(map[string]float64, len(features))
		for j, name := range features {
			out.Importance[name] = imp.Mean[j]
		}
	}
	if *plotDir != "" {
		out.Plots, err = writePlots(p, X, y, features, *plotDir)
		if err != nil {
			return err
		}
	}

	log.GetLoggerWithName("signalprob").Info("pipeline stored",
		log.PipelineIDKey, exp.ID,
		log.ModelNameKey, exp.Model,
		"store", *storePath,
	)
	if err := flushMetrics(settings, m); err != nil {
		return err
	}
	return json.NewEncoder(stdout).Encode(out)
}

func writePlots(p *pipeline.Pipeline, X *mat.Dense, y *mat.VecDense, features []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}
	proba, err := p.PredictProba(X)
	if err != nil {
		return nil, err
	}
	var written []string
	save := func(name string, render func() error) error {
		if err := render(); err != nil {
			return err
		}
		written = append(written, filepath.Join(dir, name))
		return nil
	}

	if err := save("roc.png", func() error {
		curve, err := metrics.ROCCurve(y, proba)
		if err != nil {
			return err
		}
		auc, err := metrics.AUC(y, proba)
		if err != nil {
			return err
		}
		plt, err := visualization.ROC(curve, auc)
		if err != nil {
			return err
		}
		return visualization.Save(plt, filepath.Join(dir, "roc.png"))
	}); err != nil {
		return nil, err
	}

	if err := save("reliability.png", func() error {
		bins, err := visualization.ReliabilityBins(y, proba, 10)
		if err != nil {
			return err
		}
		plt, err := visualization.Reliability(bins)
		if err != nil {
			return err
		}
		return visualization.Save(plt, filepath.Join(dir, "reliability.png"))
	}); err != nil {
		return nil, err
	}

	for j, feature := range features {
		name := fmt.Sprintf("pd_%02d_%s.png", j, feature)
		if err := save(name, func() error {
			grid, avg, err := inspection.PartialDependence(p, X, j, inspection.DefaultGridPoints)
			if err != nil {
				return err
			}
			plt, err := visualization.PartialDependence(grid, avg, feature)
			if err != nil {
				return err
			}
			return visualization.Save(plt, filepath.Join(dir, name))
		}); err != nil {
			return nil, err
		}
	}
	return written, nil
}

func runScore(ctx context.Context, settings Settings, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	configPath := fs.String("config", "", "pipeline config file (yaml, toml or json)")
	trainPath := fs.String("train", "", "labeled training CSV")
	dataPath := fs.String("data", "", "CSV of feature rows to score")
	label := fs.String("label", settings.LabelColumn, "label column name in the training CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m := newMetrics()
	p, _, _, err := fitFromFlags(*configPath, *trainPath, *label, m)
	if err != nil {
		return err
	}
	rows, _, err := readCSVFile(*dataPath, "")
	if err != nil {
		return err
	}
	X, _, err := pipeline.Dataset(rows)
	if err != nil {
		return err
	}
	results, err := pipeline.ScoreBatch(p, X)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	for i, r := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(scoreOutput{Row: i, Result: r}); err != nil {
			return err
		}
	}
	return flushMetrics(settings, m)
}

func runMonitor(ctx context.Context, settings Settings, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	configPath := fs.String("config", "", "pipeline config file (yaml, toml or json)")
	trainPath := fs.String("train", "", "labeled training CSV")
	dataPath := fs.String("data", "", "labeled CSV of realized outcomes, oldest first")
	label := fs.String("label", settings.LabelColumn, "label column name")
	name := fs.String("name", "default", "monitor name; its state persists in the store")
	batch := fs.Int("batch", 20, "rows per accuracy observation")
	window := fs.Int("window", drift.DefaultWindowSize, "drift window size for a new monitor")
	threshold := fs.Float64("threshold", drift.DefaultThreshold, "drift z-score threshold for a new monitor")
	storePath := fs.String("store", settings.StorePath, "bbolt store file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *batch < 1 {
		return errors.NewValidationError("batch", "must be at least 1", *batch)
	}

	m := newMetrics()
	p, _, _, err := fitFromFlags(*configPath, *trainPath, *label, m)
	if err != nil {
		return err
	}
	outcomes, _, err := readCSVFile(*dataPath, *label)
	if err != nil {
		return err
	}
	X, y, err := pipeline.Dataset(outcomes)
	if err != nil {
		return err
	}
	n := y.Len()

	s, err := store.Open(*storePath)
	if err != nil {
		return err
	}
	defer s.Close()

	det, err := loadDetector(ctx, s, *name, *window, *threshold)
	if err != nil {
		return err
	}
	ddm, err := drift.NewDDM(drift.WithDDMMinInstances(min(drift.DefaultDDMMinInstances, n)))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	for b, start := 0, 0; start < n; b, start = b+1, start+*batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+*batch, n)
		idx := make([]int, end-start)
		for i := range idx {
			idx[i] = start + i
		}
		yb := linalg.SelectVec(y, idx)
		pred, err := p.Predict(linalg.SelectRows(X, idx))
		if err != nil {
			return err
		}
		acc, err := metrics.Accuracy(yb, pred)
		if err != nil {
			return err
		}
		res, err := det.Update(acc)
		if err != nil {
			return err
		}
		m.ObserveDrift(*name, res)
		ddmRes, err := ddm.ObserveBatch(yb, pred)
		if err != nil {
			return err
		}
		if err := enc.Encode(monitorOutput{
			Batch: b, Rows: len(idx), Accuracy: acc,
			Ready: res.Ready, ZScore: res.ZScore, PValue: res.PValue, Drift: res.Drift,
			ErrorRate: ddmRes.ErrorRate, DDMWarning: ddmRes.Warning, DDMDrift: ddmRes.Drift,
		}); err != nil {
			return err
		}
	}

	if err := s.SaveDriftSnapshot(ctx, *name, det.Snapshot()); err != nil {
		return err
	}
	return flushMetrics(settings, m)
}

// loadDetector resumes the named monitor from the store, or starts a new one.
func loadDetector(ctx context.Context, s *store.Store, name string, window int, threshold float64) (*drift.ConceptDriftDetector, error) {
	snap, err := s.LoadDriftSnapshot(ctx, name)
	switch {
	case err == nil:
		return drift.Restore(snap)
	case errors.Is(err, store.ErrNotFound):
		return drift.NewConceptDriftDetector(drift.WithWindowSize(window), drift.WithThreshold(threshold))
	default:
		return nil, err
	}
}

func runList(ctx context.Context, settings Settings, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	storePath := fs.String("store", settings.StorePath, "bbolt store file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := store.Open(*storePath)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.ListPipelines(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	for _, sum := range list {
		if err := enc.Encode(sum); err != nil {
			return err
		}
	}
	return nil
}

func runShow(ctx context.Context, settings Settings, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	storePath := fs.String("store", settings.StorePath, "bbolt store file")
	id := fs.String("id", "", "pipeline id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.NewValidationError("id", "a pipeline id is required", *id)
	}
	s, err := store.Open(*storePath)
	if err != nil {
		return err
	}
	defer s.Close()

	exp, err := s.LoadPipeline(ctx, *id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}
