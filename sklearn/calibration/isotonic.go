package calibration

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// DefaultBins is the bin count used by New("isotonic").
const DefaultBins = 10

// Isotonic is binned calibration, a simplified stand-in for isotonic
// regression: scores are sorted and cut into equal-size bins, and each bin
// maps its mean score to its mean label. A query takes the value of the
// first bin whose mean score is >= the query, else of the last bin. Bin
// values are not pooled, so the mapping is not guaranteed monotone.
type Isotonic struct {
	NBins     int
	BinScores []float64
	BinLabels []float64
}

// NewIsotonic creates a binned calibrator with nBins bins.
func NewIsotonic(nBins int) *Isotonic {
	return &Isotonic{NBins: nBins}
}

// Fit builds the bins. With fewer scores than bins every score is a bin.
func (c *Isotonic) Fit(scores, labels mat.Vector) error {
	if c.NBins < 1 {
		return errors.NewValidationError("bins", "must be at least 1", c.NBins)
	}
	X, err := scoreMatrix("Isotonic.Fit", scores, labels)
	if err != nil {
		return err
	}
	n, _ := X.Dims()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores.AtVec(order[a]) < scores.AtVec(order[b])
	})

	nBins := c.NBins
	if nBins > n {
		nBins = n
	}
	size, rem := n/nBins, n%nBins
	c.BinScores = make([]float64, nBins)
	c.BinLabels = make([]float64, nBins)
	start := 0
	for b := 0; b < nBins; b++ {
		end := start + size
		if b < rem {
			end++
		}
		s := make([]float64, 0, end-start)
		l := make([]float64, 0, end-start)
		for _, i := range order[start:end] {
			s = append(s, scores.AtVec(i))
			l = append(l, labels.AtVec(i))
		}
		c.BinScores[b] = stats.Mean(s)
		c.BinLabels[b] = stats.Mean(l)
		start = end
	}
	return nil
}

// Transform maps score through the bins. An unfitted calibrator returns the
// score unchanged.
func (c *Isotonic) Transform(score float64) float64 {
	if len(c.BinScores) == 0 {
		return score
	}
	i := sort.SearchFloat64s(c.BinScores, score)
	if i == len(c.BinScores) {
		i--
	}
	return c.BinLabels[i]
}

// Method implements Calibrator.
func (c *Isotonic) Method() string { return MethodIsotonic }

// Params implements Calibrator.
func (c *Isotonic) Params() map[string]interface{} {
	return map[string]interface{}{
		"bins":       c.NBins,
		"bin_scores": append([]float64(nil), c.BinScores...),
		"bin_labels": append([]float64(nil), c.BinLabels...),
	}
}
