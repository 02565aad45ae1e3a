package problem

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/compact"
	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/optimization"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

// Func adapts a plain objective function to Problem. It takes no parameters.
type Func struct {
	fn      optimization.ObjectiveFunction
	argsDim int
	opts    options
}

var _ Problem = (*Func)(nil)

// FromFunc wraps fn. argsDim fixes the dimension of the search space; 0
// accepts any dimension.
func FromFunc(argsDim int, fn optimization.ObjectiveFunction, opts ...Option) (*Func, error) {
	o := newOptions(opts)
	if fn == nil {
		return nil, o.fail(errors.CodeNullPtr, "FromFunc", "objective")
	}
	if argsDim < 0 {
		return nil, o.fail(errors.CodeInvalidParams, "FromFunc", fmt.Sprintf("negative dimension %d", argsDim))
	}
	return &Func{fn: fn, argsDim: argsDim, opts: o}, nil
}

// ParamsDim returns 0.
func (f *Func) ParamsDim() int { return 0 }

// ArgsDim returns the dimension given to FromFunc.
func (f *Func) ArgsDim() int { return f.argsDim }

// SetParams always fails: a Func has no parameters.
func (f *Func) SetParams(params *vector.Vector) error {
	if params == nil {
		return f.opts.fail(errors.CodeNullPtr, "SetParams", "")
	}
	return f.opts.fail(errors.CodeWrongDim, "SetParams", "function takes no parameters")
}

// Objective calls the wrapped function. params must be nil. Errors returned
// by the function are wrapped in *optimization.Error; a NaN result fails with
// NAN.
func (f *Func) Objective(args, params *vector.Vector) (float64, error) {
	if args == nil {
		return 0, f.opts.fail(errors.CodeNullPtr, "Objective", "")
	}
	if params != nil {
		return 0, f.opts.fail(errors.CodeWrongDim, "Objective", "function takes no parameters")
	}
	if f.argsDim != 0 && args.Dim() != f.argsDim {
		return 0, f.opts.fail(errors.CodeWrongDim, "Objective", fmt.Sprintf("got %d args, want %d", args.Dim(), f.argsDim))
	}

	x := args.Data()
	value, err := f.fn(x)
	if err != nil {
		f.opts.logger.Error("objective failed",
			zap.String("component", component),
			zap.String("op", "Objective"),
			zap.Float64s("point", x),
			zap.Error(err),
		)
		return 0, optimization.WrapError(err, "objective failed").
			WithComponent(component).WithOperation("Objective").WithPoint(x)
	}
	if math.IsNaN(value) {
		return 0, f.opts.fail(errors.CodeNaN, "Objective", fmt.Sprintf("objective returned NaN at %s", args))
	}
	return value, nil
}

// IsValidCompact accepts compacts of the configured dimension, or any
// compact when the dimension is 0.
func (f *Func) IsValidCompact(c *compact.Compact) bool {
	if c == nil {
		f.opts.fail(errors.CodeNullPtr, "IsValidCompact", "")
		return false
	}
	return f.argsDim == 0 || c.Dim() == f.argsDim
}
