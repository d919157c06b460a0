// Package visualization renders evaluation plots with gonum/plot: ROC
// curves, reliability diagrams and partial dependence.
package visualization

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/jmontanero23-design/iava.ai-sub006/metrics"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// Default canvas size used by Save.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

var diagonalColor = color.RGBA{R: 160, G: 160, B: 160, A: 255}

// ROC plots a ROC curve against the chance diagonal.
func ROC(curve metrics.Curve, auc float64) (*plot.Plot, error) {
	if len(curve.X) == 0 || len(curve.X) != len(curve.Y) {
		return nil, errors.NewValueError("visualization.ROC", "curve is empty or malformed")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("ROC (AUC = %.3f)", auc)
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	unitAxes(p)

	line, err := plotter.NewLine(xys(curve.X, curve.Y))
	if err != nil {
		return nil, errors.Wrap(err, "roc line")
	}
	line.LineStyle.Width = vg.Points(2)
	p.Add(line, diagonal())
	p.Legend.Add("model", line)
	p.Legend.Top = false
	return p, nil
}

// ReliabilityBin is one bucket of a reliability diagram.
type ReliabilityBin struct {
	Lower            float64 `json:"lower"`
	Upper            float64 `json:"upper"`
	MeanPredicted    float64 `json:"mean_predicted"`
	FractionPositive float64 `json:"fraction_positive"`
	Count            int     `json:"count"`
}

// ReliabilityBins groups probabilities into nBins equal-width buckets over
// [0, 1]. p = 1 falls in the last bucket. Empty buckets are kept with
// Count 0.
func ReliabilityBins(yTrue, proba mat.Vector, nBins int) ([]ReliabilityBin, error) {
	if nBins < 1 {
		return nil, errors.NewValidationError("bins", "must be at least 1", nBins)
	}
	if yTrue == nil || proba == nil || yTrue.Len() == 0 {
		return nil, errors.NewValueError("visualization.ReliabilityBins", "input is empty")
	}
	if yTrue.Len() != proba.Len() {
		return nil, errors.NewDimensionError("visualization.ReliabilityBins", yTrue.Len(), proba.Len(), 0)
	}

	bins := make([]ReliabilityBin, nBins)
	width := 1 / float64(nBins)
	for i := range bins {
		bins[i].Lower = float64(i) * width
		bins[i].Upper = float64(i+1) * width
	}
	for i := 0; i < proba.Len(); i++ {
		p := errors.ClipValue(proba.AtVec(i), 0, 1)
		k := min(int(p*float64(nBins)), nBins-1)
		bins[k].Count++
		bins[k].MeanPredicted += p
		bins[k].FractionPositive += yTrue.AtVec(i)
	}
	for i := range bins {
		if bins[i].Count > 0 {
			bins[i].MeanPredicted /= float64(bins[i].Count)
			bins[i].FractionPositive /= float64(bins[i].Count)
		}
	}
	return bins, nil
}

// Reliability plots observed positive frequency against mean predicted
// probability for every non-empty bin.
func Reliability(bins []ReliabilityBin) (*plot.Plot, error) {
	var pts plotter.XYs
	for _, b := range bins {
		if b.Count > 0 {
			pts = append(pts, plotter.XY{X: b.MeanPredicted, Y: b.FractionPositive})
		}
	}
	if len(pts) == 0 {
		return nil, errors.NewValueError("visualization.Reliability", "no populated bins")
	}
	p := plot.New()
	p.Title.Text = "Reliability diagram"
	p.X.Label.Text = "Mean predicted probability"
	p.Y.Label.Text = "Fraction of positives"
	unitAxes(p)

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, errors.Wrap(err, "reliability line")
	}
	points.Radius = vg.Points(3)
	p.Add(line, points, diagonal())
	p.Legend.Add("model", line, points)
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// PartialDependence plots the average probability over a feature grid.
func PartialDependence(grid, average []float64, feature string) (*plot.Plot, error) {
	if len(grid) == 0 || len(grid) != len(average) {
		return nil, errors.NewValueError("visualization.PartialDependence", "grid and averages must be non-empty and the same length")
	}
	p := plot.New()
	p.Title.Text = "Partial dependence: " + feature
	p.X.Label.Text = feature
	p.Y.Label.Text = "Average probability"
	p.Y.Min, p.Y.Max = 0, 1

	pts := xys(grid, average)
	if len(pts) == 1 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrap(err, "partial dependence point")
		}
		p.Add(s)
		return p, nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "partial dependence line")
	}
	line.LineStyle.Width = vg.Points(2)
	p.Add(line, plotter.NewGrid())
	return p, nil
}

// Save writes p to path at the default size. The extension picks the
// format (png, svg, pdf, ...).
func Save(p *plot.Plot, path string) error {
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}

func diagonal() *plotter.Function {
	f := plotter.NewFunction(func(x float64) float64 { return x })
	f.Color = diagonalColor
	f.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	return f
}

func unitAxes(p *plot.Plot) {
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())
}
