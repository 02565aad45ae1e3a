// Package harness runs scenarios: it resolves the named problem and solver
// from a registry, configures them and drives the search.
package harness

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/logging"
	"github.com/copyleftdev/gridsearch/internal/optimization"
	"github.com/copyleftdev/gridsearch/internal/optimization/gridsearch"
	"github.com/copyleftdev/gridsearch/internal/problem"
	"github.com/copyleftdev/gridsearch/internal/registry"
	"github.com/copyleftdev/gridsearch/internal/scenario"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

const component = "harness"

// Result is the outcome of one scenario.
type Result struct {
	Problem     string                    `json:"problem"`
	Solver      string                    `json:"solver"`
	Solution    []float64                 `json:"solution"`
	Value       float64                   `json:"value"`
	Evaluations int                       `json:"evaluations"`
	History     []optimization.Evaluation `json:"-"`
	Duration    time.Duration             `json:"duration"`
}

// MarshalJSON encodes a non-finite Value as a string. History is not part of
// the encoding.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Value any `json:"value"`
	}{plain(r), optimization.JSONValue(r.Value)})
}

// Harness runs scenarios against one registry.
type Harness struct {
	registry       *registry.Registry
	sink           *logging.Sink
	logger         *zap.Logger
	tolerance      float64
	maxEvaluations int
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for harness failures and progress.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSink lets scenarios redirect the error log with log_file.
func WithSink(sink *logging.Sink) Option {
	return func(h *Harness) {
		h.sink = sink
	}
}

// WithTolerance sets the compact tolerance used when a scenario has none.
func WithTolerance(tol float64) Option {
	return func(h *Harness) {
		h.tolerance = tol
	}
}

// WithMaxEvaluations rejects scenarios whose lattice is larger than n; 0
// disables the check.
func WithMaxEvaluations(n int) Option {
	return func(h *Harness) {
		h.maxEvaluations = n
	}
}

// New returns a harness resolving problems and solvers from reg.
func New(reg *registry.Registry, opts ...Option) *Harness {
	h := &Harness{
		registry:  reg,
		logger:    zap.NewNop(),
		tolerance: 1e-6,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes sc. onEvaluation, when non-nil, is called after every
// evaluated point. A cancelled ctx aborts the search.
func (h *Harness) Run(ctx context.Context, sc *scenario.File, onEvaluation func(optimization.Evaluation)) (*Result, error) {
	if sc == nil {
		return nil, errors.E(errors.CodeNullPtr, component, "Run").Log(h.logger)
	}
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrap(err, "").Log(h.logger)
	}

	if sc.LogFile != "" && h.sink != nil {
		if err := h.sink.SetLogFile(sc.LogFile); err != nil {
			return nil, err
		}
	}

	p, err := problem.Resolve(h.registry, sc.Problem.Name)
	if err != nil {
		return nil, err
	}
	solver, err := gridsearch.Resolve(h.registry, sc.Search.SolverName())
	if err != nil {
		return nil, err
	}

	if err := solver.SetProblem(p); err != nil {
		return nil, err
	}
	if len(sc.Problem.Params) > 0 {
		params, err := vector.New(sc.Problem.Params, vector.WithLogger(h.logger))
		if err != nil {
			return nil, err
		}
		if err := solver.SetProblemParams(params); err != nil {
			return nil, err
		}
	}

	h.logger.Info("search started",
		zap.String("problem", sc.Problem.Name),
		zap.String("solver", sc.Search.SolverName()),
		zap.Float64s("low", sc.Region.Low),
		zap.Float64s("high", sc.Region.High),
		zap.Float64s("step", sc.Search.Step),
	)

	start := time.Now()
	res, err := solver.Optimize(ctx, optimization.OptimizerConfig{
		Bounds:         sc.Region.Bounds(),
		Tolerance:      sc.Region.ToleranceOr(h.tolerance),
		Step:           sc.Search.Step,
		Direction:      sc.Search.Direction,
		MaxEvaluations: h.maxEvaluations,
		KeepHistory:    sc.Search.History,
		OnEvaluation:   onEvaluation,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Problem:     sc.Problem.Name,
		Solver:      sc.Search.SolverName(),
		Solution:    res.BestSolution.Parameters,
		Value:       res.BestSolution.Value,
		Evaluations: res.Iterations,
		History:     res.History,
		Duration:    time.Since(start),
	}
	h.logger.Info("search finished",
		zap.Float64s("solution", result.Solution),
		zap.Float64("value", result.Value),
		zap.Int("evaluations", result.Evaluations),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
