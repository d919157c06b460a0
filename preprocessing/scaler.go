// Package preprocessing はスケーリング、多項式特徴量、PCAを提供します。
// Every transform returns a new matrix; inputs are never modified.
package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// Scaler is a fitted column-wise transform the pipeline can replay and export.
type Scaler interface {
	model.Transformer
	InverseTransform(X mat.Matrix) (*mat.Dense, error)
	Stats() ScalerStats
}

// ScalerStats is the exported form of a fitted scaler.
type ScalerStats struct {
	Kind  string    `json:"kind"`
	Means []float64 `json:"means,omitempty"`
	Stds  []float64 `json:"stds,omitempty"`
	Mins  []float64 `json:"mins,omitempty"`
	Maxs  []float64 `json:"maxs,omitempty"`
}

// Standardize は列ごとに母分散による z-score を計算します。
// 分散0の列は全行0になり、stds には実際の値0が入ります。
func Standardize(X mat.Matrix) (scaled *mat.Dense, means, stds []float64, err error) {
	s := NewStandardScaler()
	scaled, err = s.FitTransform(X)
	if err != nil {
		return nil, nil, nil, err
	}
	return scaled, s.Mean, s.Std, nil
}

// MinMaxNormalize は列ごとに [0,1] へ線形変換します。値域0の列は0になります。
func MinMaxNormalize(X mat.Matrix) (scaled *mat.Dense, mins, maxs []float64, err error) {
	s := NewMinMaxScaler()
	scaled, err = s.FitTransform(X)
	if err != nil {
		return nil, nil, nil, err
	}
	return scaled, s.Min, s.Max, nil
}

// StandardScaler はデータを平均0、標準偏差1に変換する
type StandardScaler struct {
	state *model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64
	// Std は各特徴量の母標準偏差
	Std []float64
}

// NewStandardScaler は新しいStandardScalerを作成する
//
//	scaler := preprocessing.NewStandardScaler()
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{state: model.NewStateManager()}
}

// Fit は訓練データから平均と標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	s.state.Reset()
	s.Mean, s.Std = stats.ColumnMeanStd(X)
	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform は学習済みの統計情報でデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != len(s.Mean) {
		return nil, errors.NewDimensionError("StandardScaler.Transform", len(s.Mean), c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		if s.Std[j] == 0 {
			continue
		}
		for i := 0; i < r; i++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Std[j])
		}
	}
	return result, nil
}

// FitTransform は Fit と Transform を続けて実行する
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化を元に戻す。分散0の列は平均値に戻る。
func (s *StandardScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("StandardScaler", "InverseTransform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != len(s.Mean) {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", len(s.Mean), c, 1)
	}
	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Std[j]+s.Mean[j])
		}
	}
	return result, nil
}

// Stats implements Scaler.
func (s *StandardScaler) Stats() ScalerStats {
	return ScalerStats{
		Kind:  "standard",
		Means: append([]float64(nil), s.Mean...),
		Stds:  append([]float64(nil), s.Std...),
	}
}

// MinMaxScaler は各特徴量を [0,1] の範囲にスケーリングする
type MinMaxScaler struct {
	state *model.StateManager

	Min []float64
	Max []float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{state: model.NewStateManager()}
}

// Fit は各列の最小値と最大値を記録する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	m.state.Reset()
	m.Min, m.Max = stats.ColumnMinMax(X)
	m.state.SetDimensions(c, r)
	m.state.SetFitted()
	return nil
}

// Transform は (x - min) / (max - min) を計算する。値域0の列は0。
// Values outside the fitted range map outside [0,1].
func (m *MinMaxScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.state.RequireFitted("MinMaxScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != len(m.Min) {
		return nil, errors.NewDimensionError("MinMaxScaler.Transform", len(m.Min), c, 1)
	}
	result := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		span := m.Max[j] - m.Min[j]
		if span == 0 {
			continue
		}
		for i := 0; i < r; i++ {
			result.Set(i, j, (X.At(i, j)-m.Min[j])/span)
		}
	}
	return result, nil
}

// FitTransform は Fit と Transform を続けて実行する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform は [0,1] のデータを元のスケールに戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.state.RequireFitted("MinMaxScaler", "InverseTransform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != len(m.Min) {
		return nil, errors.NewDimensionError("MinMaxScaler.InverseTransform", len(m.Min), c, 1)
	}
	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*(m.Max[j]-m.Min[j])+m.Min[j])
		}
	}
	return result, nil
}

// Stats implements Scaler.
func (m *MinMaxScaler) Stats() ScalerStats {
	return ScalerStats{
		Kind: "minmax",
		Mins: append([]float64(nil), m.Min...),
		Maxs: append([]float64(nil), m.Max...),
	}
}
