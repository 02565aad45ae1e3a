// Package gridsearch implements exhaustive minimization over the lattice of a
// compact: every lattice point is evaluated exactly once and the smallest
// value wins.
package gridsearch

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/compact"
	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/optimization"
	"github.com/copyleftdev/gridsearch/internal/problem"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

const component = "gridsearch"

// Solver runs a grid search. Configure it with SetProblem, SetCompact and
// SetParams (the step), then call Solve. A Solver is not safe for concurrent
// use, except for Stop.
type Solver struct {
	problem   problem.Problem
	compact   *compact.Compact
	step      *vector.Vector
	direction []int

	// Result of the last successful search
	solution    *vector.Vector
	value       float64
	evaluations int

	// History of evaluations of the last search
	history     []optimization.Evaluation
	keepHistory bool

	logger *zap.Logger

	// For cancellation
	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ optimization.Optimizer = (*Solver)(nil)

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger that receives the solver's failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHistory makes every search record each evaluation.
func WithHistory() Option {
	return func(s *Solver) {
		s.keepHistory = true
	}
}

// New returns an unconfigured solver.
func New(opts ...Option) *Solver {
	s := &Solver{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) fail(code errors.Code, op, detail string) error {
	e := errors.E(code, component, op)
	if detail != "" {
		e = e.WithMessage(detail)
	}
	return e.Log(s.logger)
}

// SetProblem sets the problem to minimize. The solver keeps a reference; the
// problem is not copied.
func (s *Solver) SetProblem(p problem.Problem) error {
	if p == nil {
		return s.fail(errors.CodeNullPtr, "SetProblem", "")
	}
	s.problem = p
	return nil
}

// SetCompact sets the search domain to a copy of c. The problem must be set
// and must accept c.
func (s *Solver) SetCompact(c *compact.Compact) error {
	if c == nil {
		return s.fail(errors.CodeNullPtr, "SetCompact", "")
	}
	if s.problem == nil {
		return s.fail(errors.CodeInitRequired, "SetCompact", "problem not set")
	}
	if !s.problem.IsValidCompact(c) {
		return s.fail(errors.CodeInvalidParams, "SetCompact", fmt.Sprintf("problem rejects %s", c))
	}
	s.compact = c.Clone()
	return nil
}

// SetParams sets the lattice step to a copy of step. Its dimension must match
// the problem's arguments.
func (s *Solver) SetParams(step *vector.Vector) error {
	if step == nil {
		return s.fail(errors.CodeNullPtr, "SetParams", "")
	}
	if s.problem == nil {
		return s.fail(errors.CodeInitRequired, "SetParams", "problem not set")
	}
	if dim := s.problem.ArgsDim(); dim != 0 && dim != step.Dim() {
		return s.fail(errors.CodeWrongDim, "SetParams", fmt.Sprintf("step has %d axes, problem has %d", step.Dim(), dim))
	}
	s.step = step.Clone()
	return nil
}

// SetProblemParams forwards params to the problem.
func (s *Solver) SetProblemParams(params *vector.Vector) error {
	if params == nil {
		return s.fail(errors.CodeNullPtr, "SetProblemParams", "")
	}
	if s.problem == nil {
		return s.fail(errors.CodeInitRequired, "SetProblemParams", "problem not set")
	}
	if params.Dim() != s.problem.ParamsDim() {
		return s.fail(errors.CodeWrongDim, "SetProblemParams", fmt.Sprintf("got %d params, problem takes %d", params.Dim(), s.problem.ParamsDim()))
	}
	return s.problem.SetParams(params)
}

// SetDirection sets the axis order of the traversal, fastest axis first. A nil
// order restores the identity order.
func (s *Solver) SetDirection(order []int) error {
	if order == nil {
		s.direction = nil
		return nil
	}

	dim := len(order)
	if s.compact != nil {
		dim = s.compact.Dim()
	}
	if len(order) != dim {
		return s.fail(errors.CodeWrongDim, "SetDirection", fmt.Sprintf("got %d axes, want %d", len(order), dim))
	}
	seen := make([]bool, dim)
	for _, axis := range order {
		if axis < 0 || axis >= dim || seen[axis] {
			return s.fail(errors.CodeInvalidParams, "SetDirection", fmt.Sprintf("%v is not a permutation", order))
		}
		seen[axis] = true
	}

	s.direction = append([]int(nil), order...)
	return nil
}

// ParamsDim returns the dimension of the search space, which is the argument
// dimension of the problem. It is 0 before a problem is set.
func (s *Solver) ParamsDim() int {
	if s.problem == nil {
		s.fail(errors.CodeInitRequired, "ParamsDim", "problem not set")
		return 0
	}
	return s.problem.ArgsDim()
}

// Solve runs the search to completion.
func (s *Solver) Solve() error {
	return s.SolveContext(context.Background())
}

// SolveContext runs the search, aborting when ctx is done or Stop is called.
// Any failure discards the previous solution.
func (s *Solver) SolveContext(ctx context.Context) error {
	return s.run(ctx, s.keepHistory, nil)
}

func (s *Solver) run(ctx context.Context, keepHistory bool, onEvaluation func(optimization.Evaluation)) error {
	if s.problem == nil || s.compact == nil || s.step == nil {
		return s.fail(errors.CodeInitRequired, "Solve", "problem, compact and step must be set")
	}

	// Create a cancellable context
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	s.solution = nil
	s.value = 0
	s.evaluations = 0
	s.history = nil

	it, err := s.compact.Begin(s.step)
	if err != nil {
		return err
	}
	if s.direction != nil {
		if err := it.SetDirection(s.direction); err != nil {
			return err
		}
	}

	var best *vector.Vector
	bestValue := math.Inf(1)
	var history []optimization.Evaluation

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			s.history = history
			return optimization.WrapError(err, "search aborted").
				WithComponent(component).WithOperation("Solve")
		}

		// Evaluate the objective function
		point := it.Point()
		value, err := s.problem.Objective(point, nil)
		if err == nil && math.IsNaN(value) {
			err = errors.E(errors.CodeNaN, component, "Solve").
				WithMessage(fmt.Sprintf("objective returned NaN at %s", point))
		}
		if err != nil {
			if keepHistory {
				history = append(history, optimization.Evaluation{
					Iteration: i,
					Solution:  &optimization.Solution{Parameters: point.Data(), Value: math.NaN()},
					Error:     err,
				})
			}
			s.history = history
			s.logger.Error("search aborted",
				zap.String("component", component),
				zap.String("op", "Solve"),
				zap.Stringer("point", point),
				zap.Error(err),
			)
			return optimization.WrapError(err, "objective failed").
				WithComponent(component).WithOperation("Solve").WithPoint(point.Data())
		}

		// Update best solution; the first point always counts so that a
		// search over infinite values still yields one
		if best == nil || value < bestValue {
			best = point
			bestValue = value
		}

		eval := optimization.Evaluation{
			Iteration: i,
			Solution:  &optimization.Solution{Parameters: point.Data(), Value: value},
		}
		if keepHistory {
			history = append(history, eval)
		}
		if onEvaluation != nil {
			onEvaluation(eval)
		}

		if err := it.Step(); err != nil {
			if errors.Is(err, errors.ErrOutOfBounds) {
				s.solution = best
				s.value = bestValue
				s.evaluations = i + 1
				s.history = history
				return nil
			}
			s.history = history
			return err
		}
	}
}

// Solution returns a copy of the best point of the last successful search.
func (s *Solver) Solution() (*vector.Vector, error) {
	if s.solution == nil {
		return nil, s.fail(errors.CodeInitRequired, "Solution", "no successful search")
	}
	return s.solution.Clone(), nil
}

// Value returns the objective value at Solution.
func (s *Solver) Value() (float64, error) {
	if s.solution == nil {
		return 0, s.fail(errors.CodeInitRequired, "Value", "no successful search")
	}
	return s.value, nil
}

// Evaluations returns the number of points the last successful search
// evaluated.
func (s *Solver) Evaluations() int {
	return s.evaluations
}

// History returns the evaluations recorded by the last search. It is empty
// unless history recording is enabled.
func (s *Solver) History() []optimization.Evaluation {
	return append([]optimization.Evaluation(nil), s.history...)
}

// Stop aborts a running search. It is a no-op when none is running.
func (s *Solver) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
