package gridsearch

import (
	"context"
	"fmt"

	"github.com/copyleftdev/gridsearch/internal/compact"
	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/optimization"
	"github.com/copyleftdev/gridsearch/internal/problem"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

// Optimize applies the non-zero fields of config and runs the search. It
// fails with INVALID_PARAMS before evaluating anything when the lattice has
// more than config.MaxEvaluations points.
func (s *Solver) Optimize(ctx context.Context, config optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	if err := s.configure(config); err != nil {
		return nil, err
	}

	if config.MaxEvaluations > 0 && s.compact != nil && s.step != nil {
		n, err := s.compact.LatticeSize(s.step)
		if err != nil {
			return nil, err
		}
		if n > config.MaxEvaluations {
			return nil, s.fail(errors.CodeInvalidParams, "Optimize",
				fmt.Sprintf("lattice has %d points, limit is %d", n, config.MaxEvaluations))
		}
	}

	if err := s.run(ctx, s.keepHistory || config.KeepHistory, config.OnEvaluation); err != nil {
		return nil, err
	}

	return &optimization.OptimizationResult{
		BestSolution: s.GetBestSolution(),
		History:      s.History(),
		Iterations:   s.evaluations,
		Converged:    true,
	}, nil
}

func (s *Solver) configure(config optimization.OptimizerConfig) error {
	if config.Objective != nil {
		p, err := problem.FromFunc(len(config.Bounds), config.Objective, problem.WithLogger(s.logger))
		if err != nil {
			return err
		}
		if err := s.SetProblem(p); err != nil {
			return err
		}
	}

	if len(config.Bounds) > 0 {
		low := make([]float64, len(config.Bounds))
		high := make([]float64, len(config.Bounds))
		for i, b := range config.Bounds {
			low[i], high[i] = b[0], b[1]
		}
		lv, err := vector.New(low, vector.WithLogger(s.logger))
		if err != nil {
			return err
		}
		hv, err := vector.New(high, vector.WithLogger(s.logger))
		if err != nil {
			return err
		}
		c, err := compact.New(lv, hv, config.Tolerance, compact.WithLogger(s.logger))
		if err != nil {
			return err
		}
		if err := s.SetCompact(c); err != nil {
			return err
		}
	}

	if config.Step != nil {
		step, err := vector.New(config.Step, vector.WithLogger(s.logger))
		if err != nil {
			return err
		}
		if err := s.SetParams(step); err != nil {
			return err
		}
	}

	if config.Direction != nil {
		if err := s.SetDirection(config.Direction); err != nil {
			return err
		}
	}
	return nil
}

// GetBestSolution returns the best solution of the last successful search, or
// nil.
func (s *Solver) GetBestSolution() *optimization.Solution {
	if s.solution == nil {
		return nil
	}
	return &optimization.Solution{
		Parameters: s.solution.Data(),
		Value:      s.value,
	}
}

// GetHistory is History under the optimization.Optimizer name.
func (s *Solver) GetHistory() []optimization.Evaluation {
	return s.History()
}
