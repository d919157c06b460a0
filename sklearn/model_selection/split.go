// Package model_selection holds the validation splitters, cross-validation
// and hyperparameter search.
package model_selection

import (
	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// Fold is one train/test split expressed as row indices.
type Fold struct {
	Train []int `json:"train"`
	Test  []int `json:"test"`
}

// Splitter produces folds for a dataset of n rows.
type Splitter interface {
	Split(n int) ([]Fold, error)
}

// KFold partitions rows into NSplits contiguous folds. Fold sizes differ by
// at most one; the first n%NSplits folds take the extra row. Rows are not
// shuffled unless Shuffle is set.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewKFold creates an unshuffled k-fold splitter.
func NewKFold(nSplits int) *KFold {
	return &KFold{NSplits: nSplits}
}

// Split returns NSplits folds. When n < NSplits the trailing folds have an
// empty test set; CrossValidate skips them.
func (kf *KFold) Split(n int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("folds", "must be at least 2", kf.NSplits)
	}
	if n <= 0 {
		return nil, errors.NewValueError("KFold.Split", "no rows to split")
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		rng := stats.NewRand(kf.Seed)
		rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits
	start := 0
	for k := 0; k < kf.NSplits; k++ {
		size := foldSize
		if k < remainder {
			size++
		}
		end := start + size
		test := append([]int(nil), indices[start:end]...)
		train := make([]int, 0, n-size)
		train = append(train, indices[:start]...)
		train = append(train, indices[end:]...)
		folds[k] = Fold{Train: train, Test: test}
		start = end
	}
	return folds, nil
}

// WalkForward produces expanding-window splits for ordered data: train on
// rows [0, s), test on [s, s+TestSize), then advance s by Step starting from
// InitialTrain. Only complete test blocks are emitted, and no fold trains on
// a row at or after its test block.
type WalkForward struct {
	InitialTrain int `json:"initial_train" yaml:"initial_train" toml:"initial_train"`
	TestSize     int `json:"test_size" yaml:"test_size" toml:"test_size"`
	// Step defaults to TestSize when zero.
	Step int `json:"step" yaml:"step" toml:"step"`
}

// Split returns the walk-forward folds in time order.
func (wf WalkForward) Split(n int) ([]Fold, error) {
	if wf.InitialTrain < 1 {
		return nil, errors.NewValidationError("initial_train", "must be at least 1", wf.InitialTrain)
	}
	if wf.TestSize < 1 {
		return nil, errors.NewValidationError("test_size", "must be at least 1", wf.TestSize)
	}
	step := wf.Step
	if step == 0 {
		step = wf.TestSize
	}
	if step < 1 {
		return nil, errors.NewValidationError("step", "must be positive", wf.Step)
	}
	if wf.InitialTrain+wf.TestSize > n {
		return nil, errors.NewValueError("WalkForward.Split", "not enough rows for one train/test block")
	}

	var folds []Fold
	for s := wf.InitialTrain; s+wf.TestSize <= n; s += step {
		train := make([]int, s)
		for i := range train {
			train[i] = i
		}
		test := make([]int, wf.TestSize)
		for i := range test {
			test[i] = s + i
		}
		folds = append(folds, Fold{Train: train, Test: test})
	}
	return folds, nil
}
