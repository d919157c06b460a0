// Package metrics evaluates binary classifiers: confusion counts, threshold
// metrics, ranking curves and probability quality scores. Labels are 0 or 1.
// Ratio metrics return 0 when their denominator is 0.
package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// ConfusionMatrix holds binary outcome counts.
type ConfusionMatrix struct {
	TP int `json:"tp"`
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

// NewConfusionMatrix counts outcomes of predicted classes against labels.
func NewConfusionMatrix(yTrue, yPred mat.Vector) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	n, err := checkBinaryPair("ConfusionMatrix", yTrue, yPred, true)
	if err != nil {
		return cm, err
	}
	for i := 0; i < n; i++ {
		cm.Observe(yTrue.AtVec(i) == 1, yPred.AtVec(i) == 1)
	}
	return cm, nil
}

// Observe adds one outcome.
func (c *ConfusionMatrix) Observe(actual, predicted bool) {
	switch {
	case actual && predicted:
		c.TP++
	case !actual && !predicted:
		c.TN++
	case !actual && predicted:
		c.FP++
	default:
		c.FN++
	}
}

// Add returns the cell-wise sum of c and o.
func (c ConfusionMatrix) Add(o ConfusionMatrix) ConfusionMatrix {
	return ConfusionMatrix{TP: c.TP + o.TP, TN: c.TN + o.TN, FP: c.FP + o.FP, FN: c.FN + o.FN}
}

// Total is the number of scored examples.
func (c ConfusionMatrix) Total() int {
	return c.TP + c.TN + c.FP + c.FN
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Accuracy is (TP+TN)/total.
func (c ConfusionMatrix) Accuracy() float64 { return ratio(c.TP+c.TN, c.Total()) }

// Precision is TP/(TP+FP).
func (c ConfusionMatrix) Precision() float64 { return ratio(c.TP, c.TP+c.FP) }

// Recall is TP/(TP+FN).
func (c ConfusionMatrix) Recall() float64 { return ratio(c.TP, c.TP+c.FN) }

// Specificity is TN/(TN+FP).
func (c ConfusionMatrix) Specificity() float64 { return ratio(c.TN, c.TN+c.FP) }

// F1 is the harmonic mean of precision and recall.
func (c ConfusionMatrix) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func (c ConfusionMatrix) String() string {
	return fmt.Sprintf("TP=%d TN=%d FP=%d FN=%d", c.TP, c.TN, c.FP, c.FN)
}

// MeanConfusion is a per-fold average of confusion counts.
type MeanConfusion struct {
	TP float64 `json:"tp"`
	TN float64 `json:"tn"`
	FP float64 `json:"fp"`
	FN float64 `json:"fn"`
}

// AverageConfusion averages cells across folds. Empty input yields zeros.
func AverageConfusion(folds []ConfusionMatrix) MeanConfusion {
	var m MeanConfusion
	if len(folds) == 0 {
		return m
	}
	for _, f := range folds {
		m.TP += float64(f.TP)
		m.TN += float64(f.TN)
		m.FP += float64(f.FP)
		m.FN += float64(f.FN)
	}
	k := float64(len(folds))
	m.TP /= k
	m.TN /= k
	m.FP /= k
	m.FN /= k
	return m
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred mat.Vector) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Accuracy(), nil
}

// Precision は適合率を計算する。予測陽性が0件なら0を返し警告する。
func Precision(yTrue, yPred mat.Vector) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if cm.TP+cm.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted positives", 0))
	}
	return cm.Precision(), nil
}

// Recall は再現率を計算する。実際の陽性が0件なら0を返し警告する。
func Recall(yTrue, yPred mat.Vector) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if cm.TP+cm.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true positives in labels", 0))
	}
	return cm.Recall(), nil
}

// F1Score は適合率と再現率の調和平均を計算する
func F1Score(yTrue, yPred mat.Vector) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.F1(), nil
}

// Specificity は特異度を計算する
func Specificity(yTrue, yPred mat.Vector) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Specificity(), nil
}

// checkBinaryPair validates lengths and that yTrue (and optionally yPred)
// only hold 0 and 1.
func checkBinaryPair(op string, yTrue, yPred mat.Vector, predBinary bool) (int, error) {
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		if v := yTrue.AtVec(i); v != 0 && v != 1 {
			return 0, errors.NewValueError(op, fmt.Sprintf("label %v at index %d is not 0 or 1", v, i))
		}
		if predBinary {
			if v := yPred.AtVec(i); v != 0 && v != 1 {
				return 0, errors.NewValueError(op, fmt.Sprintf("prediction %v at index %d is not 0 or 1", v, i))
			}
		}
	}
	return n, nil
}
