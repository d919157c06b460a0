package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/linear_model"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/tree"
)

// blobs returns two well separated clusters: label 0 around (0,0,...),
// label 1 around (4,4,...).
func blobs(n, features int, seed int64) (*mat.Dense, *mat.VecDense) {
	rng := stats.NewRand(seed)
	X := mat.NewDense(n, features, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		y.SetVec(i, label)
		for j := 0; j < features; j++ {
			X.Set(i, j, 4*label+rng.NormFloat64()*0.5)
		}
	}
	return X, y
}

func accuracy(t *testing.T, m model.Classifier, X mat.Matrix, y mat.Vector) float64 {
	t.Helper()
	pred, err := m.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := 0; i < y.Len(); i++ {
		if pred.AtVec(i) == y.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(y.Len())
}

func assertProbabilities(t *testing.T, p *mat.VecDense) {
	t.Helper()
	for i := 0; i < p.Len(); i++ {
		assert.GreaterOrEqual(t, p.AtVec(i), 0.0)
		assert.LessOrEqual(t, p.AtVec(i), 1.0)
	}
}

func TestFeatureCount(t *testing.T) {
	tests := []struct {
		policy    string
		nFeatures int
		want      int
		wantErr   bool
	}{
		{"all", 9, 9, false},
		{"", 9, 9, false},
		{"sqrt", 9, 3, false},
		{"sqrt", 2, 1, false},
		{"log2", 8, 3, false},
		{"log2", 1, 1, false},
		{"4", 9, 4, false},
		{"20", 9, 9, false},
		{"0", 9, 0, true},
		{"half", 9, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			got, err := featureCount(tt.policy, tt.nFeatures)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRandomForest_FitPredict(t *testing.T) {
	X, y := blobs(80, 4, 1)
	rf := NewRandomForestClassifier(WithNumTrees(15), WithMaxFeatures("sqrt"), WithSeed(3))
	require.NoError(t, rf.Fit(X, y))
	assert.Equal(t, 15, rf.NumTrees())
	assert.GreaterOrEqual(t, accuracy(t, rf, X, y), 0.95)

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	assertProbabilities(t, proba)

	for i := 0; i < rf.NumTrees(); i++ {
		assert.Len(t, rf.TreeFeatures(i), 2)
	}

	imp, err := rf.FeatureImportances()
	require.NoError(t, err)
	sum := 0.0
	for _, v := range imp {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestRandomForest_DeterministicForSeed(t *testing.T) {
	X, y := blobs(60, 3, 2)
	Xq, _ := blobs(20, 3, 9)

	run := func() []float64 {
		rf := NewRandomForestClassifier(WithNumTrees(10), WithMaxFeatures("2"), WithSeed(11))
		require.NoError(t, rf.Fit(X, y))
		p, err := rf.PredictProba(Xq)
		require.NoError(t, err)
		return p.RawVector().Data
	}
	assert.Equal(t, run(), run())
}

func TestRandomForest_TieVotesGoToZero(t *testing.T) {
	// a single constant column with balanced labels gives single-leaf
	// trees; an even forest can split its votes evenly
	X := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	y := mat.NewVecDense(4, []float64{0, 1, 0, 1})
	rf := NewRandomForestClassifier(WithNumTrees(2), WithSeed(5))
	require.NoError(t, rf.Fit(X, y))

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	pred, err := rf.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		if proba.AtVec(i) <= 0.5 {
			assert.Equal(t, 0.0, pred.AtVec(i))
		} else {
			assert.Equal(t, 1.0, pred.AtVec(i))
		}
	}
}

func TestRandomForest_Params(t *testing.T) {
	rf := NewRandomForestClassifier()
	require.NoError(t, rf.SetParams(map[string]interface{}{
		"num_trees":    7,
		"max_features": 2,
		"max_depth":    4.0,
		"seed":         9,
	}))
	params := rf.GetParams()
	assert.Equal(t, 7, params["num_trees"])
	assert.Equal(t, "2", params["max_features"])
	assert.Equal(t, 4, params["max_depth"])
	assert.Equal(t, int64(9), params["seed"])
	assert.Equal(t, params, rf.Clone().GetParams())

	assert.Error(t, rf.SetParams(map[string]interface{}{"max_features": "most"}))
	assert.Error(t, rf.SetParams(map[string]interface{}{"num_trees": 0}))
	assert.Error(t, rf.SetParams(map[string]interface{}{"bootstrap": true}))

	_, err := NewRandomForestClassifier().Predict(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestGradientBoosting_FitPredict(t *testing.T) {
	X, y := blobs(60, 2, 4)
	gb := NewGradientBoostingClassifier(WithBoostingRounds(30), WithBoostingLearningRate(0.3))
	require.NoError(t, gb.Fit(X, y))
	assert.GreaterOrEqual(t, accuracy(t, gb, X, y), 0.95)

	proba, err := gb.PredictProba(X)
	require.NoError(t, err)
	assertProbabilities(t, proba)

	history := gb.LossHistory()
	require.Len(t, history, 30)
	assert.InDelta(t, 0.25, history[0], 1e-12, "balanced labels start at residual variance 0.25")
	assert.Less(t, history[len(history)-1], 0.05)
}

func TestGradientBoosting_SingleClassIsConstant(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(4, []float64{1, 1, 1, 1})
	gb := NewGradientBoostingClassifier(WithBoostingRounds(5))
	require.NoError(t, gb.Fit(X, y))

	proba, err := gb.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < proba.Len(); i++ {
		assert.InDelta(t, 1.0, proba.AtVec(i), 1e-6)
	}
	pred, err := gb.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, pred.RawVector().Data)
}

func TestGradientBoosting_Params(t *testing.T) {
	gb := NewGradientBoostingClassifier()
	require.NoError(t, gb.SetParams(map[string]interface{}{
		"num_trees":     12,
		"learning_rate": 0.05,
		"max_depth":     2,
	}))
	assert.Equal(t, gb.GetParams(), gb.Clone().GetParams())
	assert.Error(t, gb.SetParams(map[string]interface{}{"learning_rate": -1.0}))
	assert.Error(t, gb.SetParams(map[string]interface{}{"subsample": 0.5}))
}

// constant always predicts the same class with the given probability.
type constant struct {
	p float64
}

func (c *constant) Fit(X mat.Matrix, y mat.Vector) error { return nil }
func (c *constant) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	r, _ := X.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, c.p)
	}
	return out, nil
}
func (c *constant) Predict(X mat.Matrix) (*mat.VecDense, error) {
	p, _ := c.PredictProba(X)
	return model.Threshold(p, 0.5), nil
}
func (c *constant) GetParams() map[string]interface{} { return map[string]interface{}{"p": c.p} }
func (c *constant) Clone() model.Classifier           { return &constant{p: c.p} }

func TestVotingClassifier(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewVecDense(2, []float64{0, 1})

	tests := []struct {
		name      string
		voting    string
		members   []model.Classifier
		wantProba float64
		wantClass float64
	}{
		{"hard majority", VotingHard, []model.Classifier{&constant{0.9}, &constant{0.6}, &constant{0.1}}, 2.0 / 3, 1},
		{"hard tie", VotingHard, []model.Classifier{&constant{0.9}, &constant{0.1}}, 0.5, 0},
		{"soft mean", VotingSoft, []model.Classifier{&constant{0.9}, &constant{0.3}}, 0.6, 1},
		{"soft below", VotingSoft, []model.Classifier{&constant{0.6}, &constant{0.6}, &constant{0.0}}, 0.4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVotingClassifier(tt.voting, tt.members...)
			require.NoError(t, v.Fit(X, y))
			proba, err := v.PredictProba(X)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantProba, proba.AtVec(0), 1e-12)
			pred, err := v.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, tt.wantClass, pred.AtVec(0))
		})
	}

	assert.Error(t, NewVotingClassifier("median", &constant{0.5}).Fit(X, y))
	assert.Error(t, NewVotingClassifier(VotingHard).Fit(X, y))
}

func TestVotingClassifier_RealMembers(t *testing.T) {
	X, y := blobs(60, 2, 6)
	v := NewVotingClassifier(VotingSoft,
		linear_model.NewLogisticRegression(),
		tree.NewDecisionTreeClassifier(tree.WithMaxDepth(3)),
		NewGradientBoostingClassifier(WithBoostingRounds(10)),
	)
	require.NoError(t, v.Fit(X, y))
	assert.GreaterOrEqual(t, accuracy(t, v, X, y), 0.95)

	clone := v.Clone().(*VotingClassifier)
	assert.Len(t, clone.Members(), 3)
	_, err := clone.Predict(X)
	assert.Error(t, err)
}

func TestStackingClassifier(t *testing.T) {
	X, y := blobs(60, 2, 8)
	s := NewStackingClassifier(
		linear_model.NewLogisticRegression(),
		tree.NewDecisionTreeClassifier(tree.WithMaxDepth(2)),
		linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(200)),
	)
	require.NoError(t, s.Fit(X, y))

	Z, err := s.Transform(X)
	require.NoError(t, err)
	r, c := Z.Dims()
	assert.Equal(t, 60, r)
	assert.Equal(t, 2, c)

	assert.GreaterOrEqual(t, accuracy(t, s, X, y), 0.95)
	proba, err := s.PredictProba(X)
	require.NoError(t, err)
	assertProbabilities(t, proba)

	params := s.GetParams()
	assert.Contains(t, params, "meta")
	assert.Len(t, params["members"], 2)

	assert.Error(t, NewStackingClassifier(nil, &constant{0.5}).Fit(X, y))
	assert.Error(t, NewStackingClassifier(&constant{0.5}).Fit(X, y))
}
