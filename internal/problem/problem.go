// Package problem defines the objective a solver minimizes and ships the
// implementations available by default.
package problem

import (
	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/compact"
	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

const component = "problem"

// Problem is an objective function f(args; params) together with the search
// domains it accepts.
type Problem interface {
	// Objective evaluates f at args. A non-nil params is validated and stored
	// before evaluation; a nil params uses the stored parameters.
	Objective(args, params *vector.Vector) (float64, error)

	// SetParams validates and stores params.
	SetParams(params *vector.Vector) error

	// IsValidCompact reports whether c is an admissible search domain.
	IsValidCompact(c *compact.Compact) bool

	// ParamsDim is the dimension SetParams expects, 0 for parameterless
	// problems.
	ParamsDim() int

	// ArgsDim is the dimension Objective expects, 0 when any dimension is
	// accepted.
	ArgsDim() int
}

type options struct {
	logger *zap.Logger
}

// Option configures a problem.
type Option func(*options)

// WithLogger sets the logger that receives the problem's failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) fail(code errors.Code, op, detail string) error {
	e := errors.E(code, component, op)
	if detail != "" {
		e = e.WithMessage(detail)
	}
	return e.Log(o.logger)
}
