package model_selection

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
	"github.com/jmontanero23-design/iava.ai-sub006/core/stats"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
)

// ParamGrid maps a hyperparameter name to the values to try.
type ParamGrid map[string][]interface{}

// Candidate is one evaluated hyperparameter combination. A candidate whose
// construction or fit failed keeps its error and scores 0.
type Candidate struct {
	Index  int                    `json:"index"`
	Params map[string]interface{} `json:"params"`
	Score  float64                `json:"score"`
	Std    float64                `json:"std"`
	Err    error                  `json:"-"`
}

// SearchResult holds every candidate ranked by score (descending, then by
// index).
type SearchResult struct {
	Best       Candidate   `json:"best"`
	Candidates []Candidate `json:"candidates"`
}

// Failed returns the candidates that could not be evaluated.
func (r *SearchResult) Failed() []Candidate {
	var out []Candidate
	for _, c := range r.Candidates {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// Combinations expands the grid into its Cartesian product. Keys are visited
// in sorted order and the last key varies fastest.
func (g ParamGrid) Combinations() []map[string]interface{} {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []map[string]interface{}{{}}
	for _, k := range keys {
		values := g[k]
		next := make([]map[string]interface{}, 0, len(combos)*len(values))
		for _, c := range combos {
			for _, v := range values {
				m := make(map[string]interface{}, len(c)+1)
				for ck, cv := range c {
					m[ck] = cv
				}
				m[k] = v
				next = append(next, m)
			}
		}
		combos = next
	}
	return combos
}

// Distribution is a sampling source for RandomSearch.
type Distribution interface {
	Sample(rng *rand.Rand) interface{}
}

// Choice samples uniformly from a fixed list.
type Choice []interface{}

// Sample implements Distribution.
func (c Choice) Sample(rng *rand.Rand) interface{} {
	return c[rng.IntN(len(c))]
}

// Uniform samples a float in [Lo, Hi).
type Uniform struct {
	Lo, Hi float64
}

// Sample implements Distribution.
func (u Uniform) Sample(rng *rand.Rand) interface{} {
	return distuv.Uniform{Min: u.Lo, Max: u.Hi}.Quantile(rng.Float64())
}

// LogUniform samples a float whose logarithm is uniform in
// [log Lo, log Hi). Lo must be positive.
type LogUniform struct {
	Lo, Hi float64
}

// Sample implements Distribution.
func (u LogUniform) Sample(rng *rand.Rand) interface{} {
	d := distuv.Uniform{Min: math.Log(u.Lo), Max: math.Log(u.Hi)}
	return math.Exp(d.Quantile(rng.Float64()))
}

func validateDistributions(dists map[string]Distribution) error {
	for name, d := range dists {
		switch v := d.(type) {
		case Choice:
			if len(v) == 0 {
				return errors.NewValidationError(name, "choice needs at least one value", v)
			}
		case Uniform:
			if !(v.Lo < v.Hi) {
				return errors.NewValidationError(name, "uniform needs lo < hi", v)
			}
		case LogUniform:
			if !(v.Lo > 0 && v.Lo < v.Hi) {
				return errors.NewValidationError(name, "log-uniform needs 0 < lo < hi", v)
			}
		case nil:
			return errors.NewValidationError(name, "distribution is nil", nil)
		}
	}
	return nil
}

// searcher is the evaluation loop shared by GridSearch and RandomSearch.
type searcher struct {
	estimator   model.Classifier
	cv          Splitter
	concurrency int
}

func (s searcher) run(ctx context.Context, name string, combos []map[string]interface{}, X mat.Matrix, y mat.Vector) (*SearchResult, error) {
	if s.estimator == nil {
		return nil, errors.NewValidationError("estimator", "search needs an estimator", nil)
	}
	if len(combos) == 0 {
		return nil, errors.NewValidationError("params", "search space is empty", 0)
	}
	if s.cv == nil {
		s.cv = NewKFold(5)
	}
	limit := s.concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	logger := log.GetLoggerWithName(name)
	start := time.Now()
	logger.Debug("search started",
		log.OperationKey, log.OperationSearch,
		log.CandidatesKey, len(combos),
	)

	candidates := make([]Candidate, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, params := range combos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candidates[i] = s.evaluate(i, params, X, y)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		return candidates[a].Index < candidates[b].Index
	})
	result := &SearchResult{Best: candidates[0], Candidates: candidates}

	logger.Info("search finished",
		log.OperationKey, log.OperationSearch,
		log.CandidatesKey, len(candidates),
		log.ParamsKey, result.Best.Params,
		log.AccuracyKey, result.Best.Score,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s searcher) evaluate(i int, params map[string]interface{}, X mat.Matrix, y mat.Vector) (c Candidate) {
	c = Candidate{Index: i, Params: params}
	defer func() {
		if r := recover(); r != nil {
			c.Score, c.Std = 0, 0
			c.Err = &errors.PanicError{Operation: "search candidate", PanicValue: r}
		}
	}()

	m := s.estimator.Clone()
	setter, ok := m.(model.ParameterSetter)
	if !ok {
		c.Err = errors.NewModelError("search", "estimator does not accept parameters", fmt.Errorf("%T", m))
		return c
	}
	if err := setter.SetParams(params); err != nil {
		c.Err = err
		return c
	}
	report, err := CrossValidate(m, X, y, s.cv)
	if err != nil {
		c.Err = err
		return c
	}
	c.Score = report.MeanAccuracy
	c.Std = report.StdAccuracy
	return c
}

// GridSearch scores every combination of a ParamGrid by mean cross-validated
// accuracy.
type GridSearch struct {
	Estimator model.Classifier
	Grid      ParamGrid
	CV        Splitter
	// Concurrency bounds the candidates evaluated at once; 0 uses GOMAXPROCS.
	Concurrency int
}

// Fit evaluates the whole grid.
func (gs *GridSearch) Fit(ctx context.Context, X mat.Matrix, y mat.Vector) (*SearchResult, error) {
	s := searcher{estimator: gs.Estimator, cv: gs.CV, concurrency: gs.Concurrency}
	return s.run(ctx, "GridSearch", gs.Grid.Combinations(), X, y)
}

// RandomSearch scores NIter combinations drawn from Distributions. Every
// combination is drawn up front from Seed, so the candidate list does not
// depend on evaluation order.
type RandomSearch struct {
	Estimator     model.Classifier
	Distributions map[string]Distribution
	NIter         int
	Seed          int64
	CV            Splitter
	Concurrency   int
}

// Sample draws the candidate combinations.
func (rs *RandomSearch) Sample() ([]map[string]interface{}, error) {
	if rs.NIter < 1 {
		return nil, errors.NewValidationError("n_iter", "must be at least 1", rs.NIter)
	}
	if err := validateDistributions(rs.Distributions); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rs.Distributions))
	for k := range rs.Distributions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rng := stats.NewRand(rs.Seed)
	combos := make([]map[string]interface{}, rs.NIter)
	for i := range combos {
		m := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			m[k] = rs.Distributions[k].Sample(rng)
		}
		combos[i] = m
	}
	return combos, nil
}

// Fit evaluates NIter sampled combinations.
func (rs *RandomSearch) Fit(ctx context.Context, X mat.Matrix, y mat.Vector) (*SearchResult, error) {
	combos, err := rs.Sample()
	if err != nil {
		return nil, err
	}
	s := searcher{estimator: rs.Estimator, cv: rs.CV, concurrency: rs.Concurrency}
	return s.run(ctx, "RandomSearch", combos, X, y)
}
