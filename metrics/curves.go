package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// Curve is a sequence of operating points ordered by descending threshold.
// For ROC curves X is the false positive rate and Y the true positive rate;
// for precision-recall curves X is recall and Y precision.
type Curve struct {
	X          []float64 `json:"x"`
	Y          []float64 `json:"y"`
	Thresholds []float64 `json:"thresholds"`
}

// sweep visits scores in descending order, grouping ties, and reports the
// cumulative true and false positives after each distinct score.
func sweep(yTrue, scores mat.Vector, n int, visit func(threshold float64, tp, fp int)) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores.AtVec(idx[a]) > scores.AtVec(idx[b])
	})

	tp, fp := 0, 0
	for k := 0; k < n; k++ {
		i := idx[k]
		if yTrue.AtVec(i) == 1 {
			tp++
		} else {
			fp++
		}
		if k+1 < n && scores.AtVec(idx[k+1]) == scores.AtVec(i) {
			continue
		}
		visit(scores.AtVec(i), tp, fp)
	}
}

func countPositives(y mat.Vector, n int) int {
	pos := 0
	for i := 0; i < n; i++ {
		if y.AtVec(i) == 1 {
			pos++
		}
	}
	return pos
}

// ROCCurve sweeps thresholds from high to low. The curve starts at (0,0) with
// a +Inf threshold and ends at (1,1). A single-class input has an undefined
// rate on one axis; that axis stays 0.
func ROCCurve(yTrue, scores mat.Vector) (Curve, error) {
	n, err := checkBinaryPair("ROCCurve", yTrue, scores, false)
	if err != nil {
		return Curve{}, err
	}
	pos := countPositives(yTrue, n)
	neg := n - pos

	c := Curve{
		X:          []float64{0},
		Y:          []float64{0},
		Thresholds: []float64{math.Inf(1)},
	}
	sweep(yTrue, scores, n, func(threshold float64, tp, fp int) {
		c.X = append(c.X, ratio(fp, neg))
		c.Y = append(c.Y, ratio(tp, pos))
		c.Thresholds = append(c.Thresholds, threshold)
	})
	return c, nil
}

// AUC integrates the ROC curve with the trapezoidal rule. It returns 0.5
// when yTrue holds a single class.
func AUC(yTrue, scores mat.Vector) (float64, error) {
	c, err := ROCCurve(yTrue, scores)
	if err != nil {
		return 0, err
	}
	pos := countPositives(yTrue, yTrue.Len())
	if pos == 0 || pos == yTrue.Len() {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present in labels", 0.5))
		return 0.5, nil
	}
	return trapezoid(c.X, c.Y), nil
}

func trapezoid(x, y []float64) float64 {
	area := 0.0
	for i := 1; i < len(x); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return area
}

// PrecisionRecallCurve returns precision (Y) against recall (X) for every
// distinct score, highest threshold first.
func PrecisionRecallCurve(yTrue, scores mat.Vector) (Curve, error) {
	n, err := checkBinaryPair("PrecisionRecallCurve", yTrue, scores, false)
	if err != nil {
		return Curve{}, err
	}
	pos := countPositives(yTrue, n)

	var c Curve
	sweep(yTrue, scores, n, func(threshold float64, tp, fp int) {
		c.X = append(c.X, ratio(tp, pos))
		c.Y = append(c.Y, ratio(tp, tp+fp))
		c.Thresholds = append(c.Thresholds, threshold)
	})
	return c, nil
}

// AveragePrecision is Σ (R_k − R_{k−1}) · P_k over the precision-recall
// curve. It is 0 when there are no positive labels.
func AveragePrecision(yTrue, scores mat.Vector) (float64, error) {
	c, err := PrecisionRecallCurve(yTrue, scores)
	if err != nil {
		return 0, err
	}
	if countPositives(yTrue, yTrue.Len()) == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("average_precision", "no positive labels", 0))
		return 0, nil
	}
	ap, prev := 0.0, 0.0
	for i := range c.X {
		ap += (c.X[i] - prev) * c.Y[i]
		prev = c.X[i]
	}
	return ap, nil
}

// BrierScore is the mean squared difference between probability and label.
func BrierScore(yTrue, proba mat.Vector) (float64, error) {
	if _, err := checkBinaryPair("BrierScore", yTrue, proba, false); err != nil {
		return 0, err
	}
	return MSE(yTrue, proba)
}

// LogLoss is the mean binary cross-entropy with probabilities clipped away
// from 0 and 1.
func LogLoss(yTrue, proba mat.Vector) (float64, error) {
	n, err := checkBinaryPair("LogLoss", yTrue, proba, false)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		p := errors.ClipValue(proba.AtVec(i), 1e-15, 1-1e-15)
		if yTrue.AtVec(i) == 1 {
			sum -= errors.StabilizeLog(p)
		} else {
			sum -= errors.StabilizeLog(1 - p)
		}
	}
	return sum / float64(n), nil
}
