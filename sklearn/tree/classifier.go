package tree

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// DecisionTreeClassifier is a binary classification tree. A node becomes a
// leaf when it reaches maxDepth, holds fewer than minSamplesSplit rows, is
// pure, or no split has positive gain. Leaves predict the majority label
// (ties go to 0) and keep the positive fraction for PredictProba.
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int

	root         *Node
	importances_ []float64
}

// Option is a functional option for DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a tree with entropy criterion, max depth
// 10 and min samples split 2.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "entropy",
		maxDepth:        10,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion selects "entropy" or "gini".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithMaxDepth bounds the tree depth.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

// WithMinSamplesSplit sets the smallest node that may still split.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the smallest allowed child.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

func (dt *DecisionTreeClassifier) validate() error {
	if dt.criterion != "entropy" && dt.criterion != "gini" {
		return errors.NewValidationError("criterion", "must be entropy or gini", dt.criterion)
	}
	if dt.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	return nil
}

func (dt *DecisionTreeClassifier) impurity(pos, n int) float64 {
	if dt.criterion == "gini" {
		return gini(pos, n)
	}
	return entropy(pos, n)
}

type growContext struct {
	X      *mat.Dense
	labels []float64
	gains  []float64
}

// Fit grows the tree.
func (dt *DecisionTreeClassifier) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	nSamples, nFeatures, err := model.CheckFit("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := dt.validate(); err != nil {
		return err
	}
	dt.state.Reset()

	ctx := &growContext{
		X:      mat.DenseCopyOf(X),
		labels: linalg.VecData(y),
		gains:  make([]float64, nFeatures),
	}
	idx := make([]int, nSamples)
	for i := range idx {
		idx[i] = i
	}
	dt.root = dt.grow(ctx, idx, 0)

	total := 0.0
	for _, g := range ctx.gains {
		total += g
	}
	dt.importances_ = make([]float64, nFeatures)
	if total > 0 {
		for j, g := range ctx.gains {
			dt.importances_[j] = g / total
		}
	}

	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()
	return nil
}

func (dt *DecisionTreeClassifier) leaf(ctx *growContext, idx []int) *Node {
	pos := 0
	for _, i := range idx {
		if ctx.labels[i] == 1 {
			pos++
		}
	}
	n := &Node{NSamples: len(idx), Proba: float64(pos) / float64(len(idx))}
	if pos > len(idx)-pos {
		n.Value = 1
	}
	return n
}

func (dt *DecisionTreeClassifier) grow(ctx *growContext, idx []int, depth int) *Node {
	node := dt.leaf(ctx, idx)
	if depth >= dt.maxDepth || len(idx) < dt.minSamplesSplit || node.Proba == 0 || node.Proba == 1 {
		return node
	}

	feature, threshold, gain, ok := dt.bestSplit(ctx, idx)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if ctx.X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	ctx.gains[feature] += gain * float64(len(idx))

	node.Feature = feature
	node.Threshold = threshold
	node.Left = dt.grow(ctx, left, depth+1)
	node.Right = dt.grow(ctx, right, depth+1)
	return node
}

// bestSplit tries every distinct value of every feature as a threshold. The
// first (feature, threshold) pair with the highest gain wins.
func (dt *DecisionTreeClassifier) bestSplit(ctx *growContext, idx []int) (feature int, threshold, gain float64, ok bool) {
	n := len(idx)
	totalPos := 0
	for _, i := range idx {
		if ctx.labels[i] == 1 {
			totalPos++
		}
	}
	parent := dt.impurity(totalPos, n)
	_, nFeatures := ctx.X.Dims()

	sorted := make([]int, n)
	for j := 0; j < nFeatures; j++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return ctx.X.At(sorted[a], j) < ctx.X.At(sorted[b], j)
		})

		leftPos := 0
		for k := 0; k < n-1; k++ {
			if ctx.labels[sorted[k]] == 1 {
				leftPos++
			}
			v := ctx.X.At(sorted[k], j)
			if ctx.X.At(sorted[k+1], j) == v {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < dt.minSamplesLeaf || nr < dt.minSamplesLeaf {
				continue
			}
			child := float64(nl)/float64(n)*dt.impurity(leftPos, nl) +
				float64(nr)/float64(n)*dt.impurity(totalPos-leftPos, nr)
			if g := parent - child; g > gain+minGain {
				feature, threshold, gain, ok = j, v, g, true
			}
		}
	}
	return feature, threshold, gain, ok
}

func (dt *DecisionTreeClassifier) walk(op string, X mat.Matrix, fn func(leaf *Node) float64) (*mat.VecDense, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", op); err != nil {
		return nil, err
	}
	nFeatures, _ := dt.state.GetDimensions()
	rows, err := model.CheckPredict("DecisionTreeClassifier."+op, X, nFeatures)
	if err != nil {
		return nil, err
	}
	out := mat.NewVecDense(rows, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.SetVec(i, fn(dt.root.route(row)))
	}
	return out, nil
}

// Predict returns the majority label of each row's leaf.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	return dt.walk("Predict", X, func(leaf *Node) float64 { return leaf.Value })
}

// PredictProba returns the positive fraction of each row's leaf.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	return dt.walk("PredictProba", X, func(leaf *Node) float64 { return leaf.Proba })
}

// Root returns the fitted tree, nil before Fit.
func (dt *DecisionTreeClassifier) Root() *Node {
	return dt.root
}

// Depth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) Depth() int {
	return dt.root.Depth()
}

// NLeaves returns the leaf count of the fitted tree.
func (dt *DecisionTreeClassifier) NLeaves() int {
	return dt.root.NLeaves()
}

// FeatureImportances returns the sample-weighted impurity decrease per
// feature, normalized to sum to 1 (all zeros for a single-leaf tree).
func (dt *DecisionTreeClassifier) FeatureImportances() ([]float64, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), dt.importances_...), nil
}

// Clone implements model.Classifier.
func (dt *DecisionTreeClassifier) Clone() model.Classifier {
	return NewDecisionTreeClassifier(
		WithCriterion(dt.criterion),
		WithMaxDepth(dt.maxDepth),
		WithMinSamplesSplit(dt.minSamplesSplit),
		WithMinSamplesLeaf(dt.minSamplesLeaf),
	)
}

// GetParams returns the model's hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
	}
}

// SetParams sets hyperparameters from a decoded config map.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			dt.criterion = s
		case "max_depth":
			dt.maxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			dt.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			dt.minSamplesLeaf, err = model.ParamInt(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter for DecisionTreeClassifier", value)
		}
		if err != nil {
			return err
		}
	}
	return dt.validate()
}
