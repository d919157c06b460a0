package tree

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/linalg"
	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// RegressionTree fits real-valued targets by squared-error reduction. Leaves
// hold the mean target of their rows. Candidate thresholds are the distinct
// values present at each node, as in DecisionTreeClassifier.
type RegressionTree struct {
	state *model.StateManager

	MaxDepth        int
	MinSamplesSplit int

	root *Node
}

// NewRegressionTree creates a regression tree.
func NewRegressionTree(maxDepth, minSamplesSplit int) *RegressionTree {
	return &RegressionTree{
		state:           model.NewStateManager(),
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
	}
}

// Fit grows the tree on targets y.
func (rt *RegressionTree) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "RegressionTree.Fit")

	if X == nil || y == nil {
		return errors.NewValueError("RegressionTree.Fit", "training data is nil")
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewValueError("RegressionTree.Fit", "training data is empty")
	}
	if y.Len() != nSamples {
		return errors.NewDimensionError("RegressionTree.Fit", nSamples, y.Len(), 0)
	}
	if rt.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", rt.MaxDepth)
	}
	if rt.MinSamplesSplit < 2 {
		rt.MinSamplesSplit = 2
	}
	rt.state.Reset()

	Xd := mat.DenseCopyOf(X)
	targets := linalg.VecData(y)
	idx := make([]int, nSamples)
	for i := range idx {
		idx[i] = i
	}
	rt.root = rt.grow(Xd, targets, idx, 0)

	rt.state.SetDimensions(nFeatures, nSamples)
	rt.state.SetFitted()
	return nil
}

func (rt *RegressionTree) grow(X *mat.Dense, targets []float64, idx []int, depth int) *Node {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += targets[i]
		sumSq += targets[i] * targets[i]
	}
	n := float64(len(idx))
	node := &Node{Value: sum / n, NSamples: len(idx)}
	sse := sumSq - sum*sum/n
	if depth >= rt.MaxDepth || len(idx) < rt.MinSamplesSplit || sse <= minGain {
		return node
	}

	feature, threshold, ok := rt.bestSplit(X, targets, idx, sse)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.Feature = feature
	node.Threshold = threshold
	node.Left = rt.grow(X, targets, left, depth+1)
	node.Right = rt.grow(X, targets, right, depth+1)
	return node
}

func (rt *RegressionTree) bestSplit(X *mat.Dense, targets []float64, idx []int, parentSSE float64) (feature int, threshold float64, ok bool) {
	n := len(idx)
	totalSum, totalSq := 0.0, 0.0
	for _, i := range idx {
		totalSum += targets[i]
		totalSq += targets[i] * targets[i]
	}
	_, nFeatures := X.Dims()
	best := 0.0

	sorted := make([]int, n)
	for j := 0; j < nFeatures; j++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return X.At(sorted[a], j) < X.At(sorted[b], j)
		})

		lSum, lSq := 0.0, 0.0
		for k := 0; k < n-1; k++ {
			t := targets[sorted[k]]
			lSum += t
			lSq += t * t
			v := X.At(sorted[k], j)
			if X.At(sorted[k+1], j) == v {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			rSum, rSq := totalSum-lSum, totalSq-lSq
			childSSE := (lSq - lSum*lSum/nl) + (rSq - rSum*rSum/nr)
			if red := parentSSE - childSSE; red > best+minGain {
				feature, threshold, best, ok = j, v, red, true
			}
		}
	}
	return feature, threshold, ok
}

// Predict returns the leaf mean for each row.
func (rt *RegressionTree) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := rt.state.RequireFitted("RegressionTree", "Predict"); err != nil {
		return nil, err
	}
	nFeatures, _ := rt.state.GetDimensions()
	rows, err := model.CheckPredict("RegressionTree.Predict", X, nFeatures)
	if err != nil {
		return nil, err
	}
	out := mat.NewVecDense(rows, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.SetVec(i, rt.root.route(row).Value)
	}
	return out, nil
}

// Root returns the fitted tree.
func (rt *RegressionTree) Root() *Node {
	return rt.root
}
