// Package tree implements binary decision trees grown by exhaustive search
// over the distinct values present at each node. DecisionTreeClassifier
// splits on entropy (or Gini) gain; RegressionTree splits on squared-error
// reduction and backs gradient boosting.
package tree

import "math"

// Node is either a split (Left and Right set) or a leaf. Children are owned
// exclusively by their parent.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`

	// Value is the predicted class for classifier leaves and the mean
	// target for regression leaves.
	Value float64 `json:"value"`
	// Proba is the positive-class fraction at a classifier leaf.
	Proba    float64 `json:"proba,omitempty"`
	NSamples int     `json:"n_samples"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// route walks row to its leaf; rows with value <= Threshold go left.
func (n *Node) route(row []float64) *Node {
	cur := n
	for !cur.IsLeaf() {
		if row[cur.Feature] <= cur.Threshold {
			cur = cur.Left
		} else {
			cur = cur.Right
		}
	}
	return cur
}

// Depth is the number of edges on the longest root-to-leaf path.
func (n *Node) Depth() int {
	if n == nil || n.IsLeaf() {
		return 0
	}
	l, r := n.Left.Depth(), n.Right.Depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

// NLeaves counts the leaves under n.
func (n *Node) NLeaves() int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	return n.Left.NLeaves() + n.Right.NLeaves()
}

func entropy(pos, n int) float64 {
	if n == 0 || pos == 0 || pos == n {
		return 0
	}
	p := float64(pos) / float64(n)
	return -p*math.Log2(p) - (1-p)*math.Log2(1-p)
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

// minGain separates a real improvement from floating-point noise.
const minGain = 1e-12
