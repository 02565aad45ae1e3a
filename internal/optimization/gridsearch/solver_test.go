package gridsearch

import (
	"context"
	stderrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/copyleftdev/gridsearch/internal/compact"
	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/optimization"
	"github.com/copyleftdev/gridsearch/internal/problem"
	"github.com/copyleftdev/gridsearch/internal/registry"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

const tol = 1e-6

func vec(coords ...float64) *vector.Vector {
	return vector.MustNew(coords...)
}

func region(t testing.TB, low, high []float64) *compact.Compact {
	t.Helper()
	c, err := compact.New(vec(low...), vec(high...), tol)
	require.NoError(t, err)
	return c
}

// paraboloidSolver is configured with f(x,y) = (2x-6)^2 + (-4y+8)^2 over
// [-3,3]^2 with step 2.5, so the lattice is {-3, -0.5, 2}^2.
func paraboloidSolver(t testing.TB, opts ...Option) (*Solver, *problem.Paraboloid, *compact.Compact) {
	t.Helper()
	p := problem.NewParaboloid()
	s := New(opts...)
	c := region(t, []float64{-3, -3}, []float64{3, 3})

	require.NoError(t, s.SetProblem(p))
	require.NoError(t, s.SetProblemParams(vec(2, -6, -4, 8)))
	require.NoError(t, s.SetCompact(c))
	require.NoError(t, s.SetParams(vec(2.5, 2.5)))
	return s, p, c
}

func TestSolveParaboloid(t *testing.T) {
	s, p, c := paraboloidSolver(t, WithHistory())
	require.NoError(t, s.Solve())

	solution, err := s.Solution()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, solution.Data())

	value, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, 4.0, value)
	assert.Equal(t, 9, s.Evaluations())

	// exhaustive recomputation over the lattice
	it, err := c.Begin(vec(2.5, 2.5))
	require.NoError(t, err)
	visited := 0
	for point := range it.Points() {
		v, err := p.Objective(point, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, value, "point %s beats the solution", point)
		visited++
	}
	assert.Equal(t, 9, visited)

	history := s.History()
	require.Len(t, history, 9)
	assert.Equal(t, []float64{-3, -3}, history[0].Solution.Parameters)
	assert.Equal(t, 544.0, history[0].Solution.Value)
	assert.Equal(t, []float64{-0.5, -3}, history[1].Solution.Parameters)
	assert.Equal(t, []float64{2, 2}, history[8].Solution.Parameters)
	for i, e := range history {
		assert.Equal(t, i, e.Iteration)
		assert.NoError(t, e.Error)
	}
}

func TestSolveDirection(t *testing.T) {
	s, _, _ := paraboloidSolver(t, WithHistory())
	require.NoError(t, s.SetDirection([]int{1, 0}))
	require.NoError(t, s.Solve())

	solution, err := s.Solution()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, solution.Data())

	history := s.History()
	require.Len(t, history, 9)
	assert.Equal(t, []float64{-3, -0.5}, history[1].Solution.Parameters)
	assert.Equal(t, []float64{-0.5, -3}, history[3].Solution.Parameters)

	assert.ErrorIs(t, s.SetDirection([]int{0}), errors.ErrWrongDim)
	assert.ErrorIs(t, s.SetDirection([]int{1, 1}), errors.ErrInvalidParams)
	require.NoError(t, s.SetDirection(nil))
}

func TestSolveKeepsEarliestMinimum(t *testing.T) {
	step := func(x []float64) (float64, error) {
		if x[0] >= 0.5 {
			return 0, nil
		}
		return 1, nil
	}
	f, err := problem.FromFunc(1, step)
	require.NoError(t, err)

	for _, tc := range []struct {
		name      string
		direction []int
	}{{"default order", nil}, {"explicit order", []int{0}}} {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			require.NoError(t, s.SetProblem(f))
			require.NoError(t, s.SetCompact(region(t, []float64{0}, []float64{1})))
			require.NoError(t, s.SetParams(vec(0.25)))
			require.NoError(t, s.SetDirection(tc.direction))
			require.NoError(t, s.Solve())

			solution, err := s.Solution()
			require.NoError(t, err)
			assert.Equal(t, []float64{0.5}, solution.Data())
			assert.Equal(t, 5, s.Evaluations())
			assert.Empty(t, s.History(), "history is off by default")
		})
	}
}

func TestSolveRequiresConfiguration(t *testing.T) {
	s := New()

	assert.ErrorIs(t, s.Solve(), errors.ErrInitRequired)
	_, err := s.Solution()
	assert.ErrorIs(t, err, errors.ErrInitRequired)
	_, err = s.Value()
	assert.ErrorIs(t, err, errors.ErrInitRequired)
	assert.Nil(t, s.GetBestSolution())
	assert.Equal(t, 0, s.ParamsDim())

	c := region(t, []float64{0, 0}, []float64{1, 1})
	assert.ErrorIs(t, s.SetCompact(c), errors.ErrInitRequired)
	assert.ErrorIs(t, s.SetParams(vec(1, 1)), errors.ErrInitRequired)
	assert.ErrorIs(t, s.SetProblemParams(vec(1, 0, 1, 0)), errors.ErrInitRequired)

	require.NoError(t, s.SetProblem(problem.NewParaboloid()))
	assert.Equal(t, 2, s.ParamsDim())
	assert.ErrorIs(t, s.Solve(), errors.ErrInitRequired, "compact and step still missing")
}

func TestSetterValidation(t *testing.T) {
	s := New()
	require.NoError(t, s.SetProblem(problem.NewParaboloid()))

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"nil problem", func() error { return s.SetProblem(nil) }, errors.ErrNullPtr},
		{"nil compact", func() error { return s.SetCompact(nil) }, errors.ErrNullPtr},
		{"compact rejected by problem", func() error {
			return s.SetCompact(region(t, []float64{0, 0, 0}, []float64{1, 1, 1}))
		}, errors.ErrInvalidParams},
		{"nil step", func() error { return s.SetParams(nil) }, errors.ErrNullPtr},
		{"step dimension", func() error { return s.SetParams(vec(1, 1, 1)) }, errors.ErrWrongDim},
		{"nil problem params", func() error { return s.SetProblemParams(nil) }, errors.ErrNullPtr},
		{"problem params dimension", func() error { return s.SetProblemParams(vec(1, 2)) }, errors.ErrWrongDim},
		{"problem params rejected", func() error { return s.SetProblemParams(vec(0, 1, 1, 1)) }, errors.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}
}

func TestSolveWithoutProblemParams(t *testing.T) {
	s := New()
	require.NoError(t, s.SetProblem(problem.NewParaboloid()))
	require.NoError(t, s.SetCompact(region(t, []float64{0, 0}, []float64{1, 1})))
	require.NoError(t, s.SetParams(vec(0.5, 0.5)))

	err := s.Solve()
	require.ErrorIs(t, err, errors.ErrInitRequired)
	oe, ok := optimization.IsOptimizationError(err)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0}, oe.Point)
}

func TestSolveFailureDiscardsSolution(t *testing.T) {
	cause := stderrors.New("diverged")
	broken := false
	f, err := problem.FromFunc(2, func(x []float64) (float64, error) {
		if broken && x[0] > 0.6 {
			return 0, cause
		}
		return optimization.Sphere(x)
	})
	require.NoError(t, err)

	core, logs := observer.New(zap.ErrorLevel)
	s := New(WithLogger(zap.New(core)), WithHistory())
	require.NoError(t, s.SetProblem(f))
	require.NoError(t, s.SetCompact(region(t, []float64{0, 0}, []float64{1, 1})))
	require.NoError(t, s.SetParams(vec(0.5, 0.5)))

	require.NoError(t, s.Solve())
	solution, err := s.Solution()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, solution.Data())

	broken = true
	err = s.Solve()
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "gridsearch.Solve")

	_, err = s.Solution()
	assert.ErrorIs(t, err, errors.ErrInitRequired)
	assert.Nil(t, s.GetBestSolution())

	// (0,0), (0.5,0) and the failing (1,0)
	history := s.History()
	require.Len(t, history, 3)
	assert.Error(t, history[2].Error)
	assert.Equal(t, []float64{1, 0}, history[2].Solution.Parameters)

	assert.Equal(t, 1, logs.FilterMessage("search aborted").Len())
}

// holey is a one-dimensional problem whose objective is undefined at 0.
type holey struct{}

func (holey) Objective(args, _ *vector.Vector) (float64, error) {
	if args.At(0) == 0 {
		return math.NaN(), nil
	}
	return args.At(0), nil
}
func (holey) SetParams(*vector.Vector) error { return nil }
func (holey) IsValidCompact(c *compact.Compact) bool { return c.Dim() == 1 }
func (holey) ParamsDim() int { return 0 }
func (holey) ArgsDim() int { return 1 }

func TestSolveRejectsNaNObjective(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := New(WithLogger(zap.New(core)), WithHistory())
	require.NoError(t, s.SetProblem(holey{}))
	require.NoError(t, s.SetCompact(region(t, []float64{0}, []float64{3})))
	require.NoError(t, s.SetParams(vec(1)))

	err := s.Solve()
	require.ErrorIs(t, err, errors.ErrNaN)
	assert.Equal(t, errors.CodeNaN, errors.CodeOf(err))

	_, err = s.Solution()
	assert.ErrorIs(t, err, errors.ErrInitRequired)

	history := s.History()
	require.Len(t, history, 1)
	assert.ErrorIs(t, history[0].Error, errors.ErrNaN)
	assert.Equal(t, 1, logs.FilterMessage("search aborted").Len())
}

func TestSolveContextCancelled(t *testing.T) {
	s, _, _ := paraboloidSolver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SolveContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Solution()
	assert.ErrorIs(t, err, errors.ErrInitRequired)
}

func TestStop(t *testing.T) {
	s, _, _ := paraboloidSolver(t)
	s.Stop() // no search running

	evaluated := 0
	_, err := s.Optimize(context.Background(), optimization.OptimizerConfig{
		KeepHistory: true,
		OnEvaluation: func(optimization.Evaluation) {
			evaluated++
			if evaluated == 3 {
				s.Stop()
			}
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, evaluated)
	assert.Len(t, s.GetHistory(), 3)
}

func TestOptimize(t *testing.T) {
	s := New()
	evaluated := 0

	result, err := s.Optimize(context.Background(), optimization.OptimizerConfig{
		Objective:    optimization.Shift(optimization.Sphere, []float64{0.5, -0.5}),
		Bounds:       [][2]float64{{-1, 1}, {-1, 1}},
		Tolerance:    tol,
		Step:         []float64{0.5, 0.5},
		KeepHistory:  true,
		OnEvaluation: func(optimization.Evaluation) { evaluated++ },
	})
	require.NoError(t, err)

	require.NotNil(t, result.BestSolution)
	assert.Equal(t, []float64{0.5, -0.5}, result.BestSolution.Parameters)
	assert.Equal(t, 0.0, result.BestSolution.Value)
	assert.Equal(t, 25, result.Iterations)
	assert.Len(t, result.History, 25)
	assert.Equal(t, 25, evaluated)
	assert.True(t, result.Converged)
	assert.Equal(t, result.BestSolution, s.GetBestSolution())
}

func TestOptimizeRejects(t *testing.T) {
	tests := []struct {
		name    string
		config  optimization.OptimizerConfig
		wantErr error
	}{
		{
			name: "lattice too large",
			config: optimization.OptimizerConfig{
				Objective:      optimization.Sphere,
				Bounds:         [][2]float64{{0, 1}, {0, 1}},
				Step:           []float64{0.25, 0.25},
				MaxEvaluations: 24,
			},
			wantErr: errors.ErrInvalidParams,
		},
		{
			name: "inverted bounds",
			config: optimization.OptimizerConfig{
				Objective: optimization.Sphere,
				Bounds:    [][2]float64{{1, 0}},
				Step:      []float64{0.5},
			},
			wantErr: errors.ErrInvalidParams,
		},
		{
			name: "step dimension",
			config: optimization.OptimizerConfig{
				Objective: optimization.Sphere,
				Bounds:    [][2]float64{{0, 1}},
				Step:      []float64{0.5, 0.5},
			},
			wantErr: errors.ErrWrongDim,
		},
		{
			name: "non-positive step",
			config: optimization.OptimizerConfig{
				Objective: optimization.Sphere,
				Bounds:    [][2]float64{{0, 1}},
				Step:      []float64{0},
			},
			wantErr: errors.ErrInvalidParams,
		},
		{
			name:    "nothing configured",
			config:  optimization.OptimizerConfig{},
			wantErr: errors.ErrInitRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Optimize(context.Background(), tt.config)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	n := 0
	_, err := New().Optimize(context.Background(), optimization.OptimizerConfig{
		Objective:      optimization.Sphere,
		Bounds:         [][2]float64{{0, 1}, {0, 1}},
		Step:           []float64{0.25, 0.25},
		MaxEvaluations: 25,
		OnEvaluation:   func(optimization.Evaluation) { n++ },
	})
	require.NoError(t, err)
	assert.Equal(t, 25, n)
}

func TestBroker(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Install(Module{}, problem.Module{}))

	s, err := Resolve(r, "gridsearch")
	require.NoError(t, err)
	other, err := Resolve(r, "gridsearch")
	require.NoError(t, err)
	assert.NotSame(t, s, other)

	_, err = Resolve(r, "paraboloid")
	assert.ErrorIs(t, err, errors.ErrInvalidParams)

	b := NewBroker()
	assert.True(t, b.CanCastTo(registry.KindSolver))
	assert.False(t, b.CanCastTo(registry.KindProblem))
	_, err = b.Impl(registry.KindProblem)
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
}

func BenchmarkSolve(b *testing.B) {
	f, err := problem.FromFunc(2, optimization.Rosenbrock)
	if err != nil {
		b.Fatal(err)
	}
	s := New()
	if err := s.SetProblem(f); err != nil {
		b.Fatal(err)
	}
	if err := s.SetCompact(region(b, []float64{-2, -2}, []float64{2, 2})); err != nil {
		b.Fatal(err)
	}
	if err := s.SetParams(vec(0.01, 0.01)); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Solve(); err != nil {
			b.Fatal(err)
		}
	}
}
