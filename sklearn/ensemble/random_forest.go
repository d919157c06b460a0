package ensemble

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/core/parallel"
	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/tree"
)

// Feature subset policies for RandomForestClassifier. Any positive integer
// string ("3") selects a fixed count.
const (
	MaxFeaturesAll  = "all"
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
)

// forestMember is one bagged tree and the global feature indices it sees.
type forestMember struct {
	tree     *tree.DecisionTreeClassifier
	features []int
}

// RandomForestClassifier bags decision trees. Each tree gets a bootstrap
// sample of the rows and a random subset of the columns; prediction is a
// majority vote (ties go to 0) and PredictProba is the positive vote share.
//
// Trees are trained concurrently but every tree's seed is drawn from the
// forest seed before training starts, so results match sequential training.
type RandomForestClassifier struct {
	state *model.StateManager

	numTrees        int
	maxFeatures     string
	maxDepth        int
	minSamplesSplit int
	criterion       string
	seed            int64

	members_        []forestMember
	selectionCount_ []int
}

// ForestOption is a functional option for RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest of 100 trees of depth 10 that
// see every feature.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		numTrees:        100,
		maxFeatures:     MaxFeaturesAll,
		maxDepth:        10,
		minSamplesSplit: 2,
		criterion:       "entropy",
		seed:            42,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNumTrees sets the number of bagged trees.
func WithNumTrees(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.numTrees = n }
}

// WithMaxFeatures sets the per-tree feature policy: "all", "sqrt", "log2" or
// a fixed count such as "3".
func WithMaxFeatures(policy string) ForestOption {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = policy }
}

// WithForestMaxDepth bounds every tree's depth.
func WithForestMaxDepth(depth int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithForestMinSamplesSplit sets min_samples_split on every tree.
func WithForestMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

// WithForestCriterion sets the split criterion of every tree.
func WithForestCriterion(criterion string) ForestOption {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithSeed fixes the bootstrap and feature sampling.
func WithSeed(seed int64) ForestOption {
	return func(rf *RandomForestClassifier) { rf.seed = seed }
}

// featureCount resolves the policy against nFeatures. The result is always
// in [1, nFeatures].
func featureCount(policy string, nFeatures int) (int, error) {
	var k int
	switch policy {
	case "", MaxFeaturesAll:
		k = nFeatures
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		n, err := strconv.Atoi(policy)
		if err != nil || n < 1 {
			return 0, errors.NewValidationError("max_features", "must be all, sqrt, log2 or a positive integer", policy)
		}
		k = n
	}
	if k < 1 {
		k = 1
	}
	if k > nFeatures {
		k = nFeatures
	}
	return k, nil
}

func (rf *RandomForestClassifier) validate() error {
	if rf.numTrees < 1 {
		return errors.NewValidationError("num_trees", "must be at least 1", rf.numTrees)
	}
	if _, err := featureCount(rf.maxFeatures, 1); err != nil {
		return err
	}
	return nil
}

func (rf *RandomForestClassifier) newTree() *tree.DecisionTreeClassifier {
	return tree.NewDecisionTreeClassifier(
		tree.WithCriterion(rf.criterion),
		tree.WithMaxDepth(rf.maxDepth),
		tree.WithMinSamplesSplit(rf.minSamplesSplit),
	)
}

// Fit trains numTrees trees on bootstrap samples.
func (rf *RandomForestClassifier) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	nSamples, nFeatures, err := model.CheckFit("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := rf.validate(); err != nil {
		return err
	}
	k, err := featureCount(rf.maxFeatures, nFeatures)
	if err != nil {
		return err
	}
	rf.state.Reset()

	logger := log.GetLoggerWithName("RandomForestClassifier")
	start := time.Now()
	logger.Debug("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.RandomSeedKey, rf.seed,
	)

	Xd := mat.DenseCopyOf(X)
	seeds := stats.DeriveSeeds(rf.seed, rf.numTrees)
	members := make([]forestMember, rf.numTrees)
	errs := make([]error, rf.numTrees)

	parallel.ForEach(rf.numTrees, func(t int) {
		rng := stats.NewRand(seeds[t])
		rows := make([]int, nSamples)
		for i := range rows {
			rows[i] = rng.IntN(nSamples)
		}
		features := rng.Perm(nFeatures)[:k]
		sort.Ints(features)

		Xt := linalg.SelectColumns(linalg.SelectRows(Xd, rows), features)
		yt := linalg.SelectVec(y, rows)
		dt := rf.newTree()
		if ferr := dt.Fit(Xt, yt); ferr != nil {
			errs[t] = errors.NewModelError("RandomForestClassifier.Fit", fmt.Sprintf("tree %d", t), ferr)
			return
		}
		members[t] = forestMember{tree: dt, features: features}
	})
	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	counts := make([]int, nFeatures)
	for _, m := range members {
		for _, j := range m.features {
			counts[j]++
		}
	}

	rf.members_ = members
	rf.selectionCount_ = counts
	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()

	logger.Debug("fit finished",
		log.OperationKey, log.OperationFit,
		"trees", rf.numTrees,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// votes counts positive tree votes per row.
func (rf *RandomForestClassifier) votes(op string, X mat.Matrix) ([]int, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", op); err != nil {
		return nil, err
	}
	nFeatures, _ := rf.state.GetDimensions()
	rows, err := model.CheckPredict("RandomForestClassifier."+op, X, nFeatures)
	if err != nil {
		return nil, err
	}
	perTree := make([]*mat.VecDense, len(rf.members_))
	errs := make([]error, len(rf.members_))
	parallel.ForEach(len(rf.members_), func(t int) {
		m := rf.members_[t]
		perTree[t], errs[t] = m.tree.Predict(linalg.SelectColumns(X, m.features))
	})
	counts := make([]int, rows)
	for t, pred := range perTree {
		if errs[t] != nil {
			return nil, errs[t]
		}
		for i := 0; i < rows; i++ {
			if pred.AtVec(i) == 1 {
				counts[i]++
			}
		}
	}
	return counts, nil
}

// Predict returns the majority vote; a tie goes to 0.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	counts, err := rf.votes("Predict", X)
	if err != nil {
		return nil, err
	}
	n := len(rf.members_)
	out := mat.NewVecDense(len(counts), nil)
	for i, c := range counts {
		if 2*c > n {
			out.SetVec(i, 1)
		}
	}
	return out, nil
}

// PredictProba returns the fraction of trees voting 1.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	counts, err := rf.votes("PredictProba", X)
	if err != nil {
		return nil, err
	}
	n := float64(len(rf.members_))
	out := mat.NewVecDense(len(counts), nil)
	for i, c := range counts {
		out.SetVec(i, float64(c)/n)
	}
	return out, nil
}

// FeatureImportances returns how often each feature was selected across the
// trees, normalized to sum to 1. This counts selections, not impurity
// decrease, so with the "all" policy every feature scores the same.
func (rf *RandomForestClassifier) FeatureImportances() ([]float64, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	total := 0
	for _, c := range rf.selectionCount_ {
		total += c
	}
	out := make([]float64, len(rf.selectionCount_))
	for j, c := range rf.selectionCount_ {
		out[j] = float64(c) / float64(total)
	}
	return out, nil
}

// TreeFeatures returns the global feature indices used by tree t.
func (rf *RandomForestClassifier) TreeFeatures(t int) []int {
	return append([]int(nil), rf.members_[t].features...)
}

// NumTrees returns the number of fitted trees.
func (rf *RandomForestClassifier) NumTrees() int {
	return len(rf.members_)
}

// Clone implements model.Classifier.
func (rf *RandomForestClassifier) Clone() model.Classifier {
	return NewRandomForestClassifier(
		WithNumTrees(rf.numTrees),
		WithMaxFeatures(rf.maxFeatures),
		WithForestMaxDepth(rf.maxDepth),
		WithForestMinSamplesSplit(rf.minSamplesSplit),
		WithForestCriterion(rf.criterion),
		WithSeed(rf.seed),
	)
}

// GetParams returns the model's hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"num_trees":         rf.numTrees,
		"max_features":      rf.maxFeatures,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"criterion":         rf.criterion,
		"seed":              rf.seed,
	}
}

// SetParams sets hyperparameters from a decoded config map. max_features
// accepts a policy string or an integer.
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "num_trees", "n_estimators":
			rf.numTrees, err = model.ParamInt(key, value)
		case "max_features":
			if s, ok := value.(string); ok {
				rf.maxFeatures = s
			} else {
				var n int
				n, err = model.ParamInt(key, value)
				rf.maxFeatures = strconv.Itoa(n)
			}
		case "max_depth":
			rf.maxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			rf.minSamplesSplit, err = model.ParamInt(key, value)
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			rf.criterion = s
		case "seed", "random_state":
			var n int
			n, err = model.ParamInt(key, value)
			rf.seed = int64(n)
		default:
			return errors.NewValidationError(key, "unknown parameter for RandomForestClassifier", value)
		}
		if err != nil {
			return err
		}
	}
	return rf.validate()
}
