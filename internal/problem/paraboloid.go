package problem

import (
	"fmt"
	"math"

	"github.com/copyleftdev/gridsearch/internal/compact"
	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

// Paraboloid is f(x, y) = (a*x + b)^2 + (c*y + d)^2 with params (a, b, c, d).
// Its minimum is 0 at (-b/a, -d/c); a and c must be non-zero.
type Paraboloid struct {
	params *vector.Vector
	opts   options
}

var _ Problem = (*Paraboloid)(nil)

// NewParaboloid returns a paraboloid without parameters. Objective fails with
// INIT_REQUIRED until parameters are supplied.
func NewParaboloid(opts ...Option) *Paraboloid {
	return &Paraboloid{opts: newOptions(opts)}
}

// ParamsDim returns 4.
func (p *Paraboloid) ParamsDim() int { return 4 }

// ArgsDim returns 2.
func (p *Paraboloid) ArgsDim() int { return 2 }

// Params returns a copy of the stored parameters, nil if none are set.
func (p *Paraboloid) Params() *vector.Vector {
	if p.params == nil {
		return nil
	}
	return p.params.Clone()
}

// SetParams stores a copy of params. Every param must be finite.
func (p *Paraboloid) SetParams(params *vector.Vector) error {
	if params == nil {
		return p.opts.fail(errors.CodeNullPtr, "SetParams", "")
	}
	if params.Dim() != p.ParamsDim() {
		return p.opts.fail(errors.CodeWrongDim, "SetParams", fmt.Sprintf("got %d params, want %d", params.Dim(), p.ParamsDim()))
	}
	for i := 0; i < params.Dim(); i++ {
		if math.IsInf(params.At(i), 0) {
			return p.opts.fail(errors.CodeInvalidParams, "SetParams", fmt.Sprintf("param %d is not finite", i))
		}
	}
	if params.At(0) == 0 || params.At(2) == 0 {
		return p.opts.fail(errors.CodeInvalidParams, "SetParams", "a and c must be non-zero")
	}
	p.params = params.Clone()
	return nil
}

// Objective evaluates the paraboloid at args.
func (p *Paraboloid) Objective(args, params *vector.Vector) (float64, error) {
	if args == nil {
		return 0, p.opts.fail(errors.CodeNullPtr, "Objective", "")
	}
	if params == nil && p.params == nil {
		return 0, p.opts.fail(errors.CodeInitRequired, "Objective", "params not set")
	}
	if args.Dim() != p.ArgsDim() {
		return 0, p.opts.fail(errors.CodeWrongDim, "Objective", fmt.Sprintf("got %d args, want %d", args.Dim(), p.ArgsDim()))
	}
	if params != nil {
		if err := p.SetParams(params); err != nil {
			return 0, err
		}
	}

	u := p.params.At(0)*args.At(0) + p.params.At(1)
	v := p.params.At(2)*args.At(1) + p.params.At(3)
	return u*u + v*v, nil
}

// IsValidCompact accepts any two-dimensional compact.
func (p *Paraboloid) IsValidCompact(c *compact.Compact) bool {
	if c == nil {
		p.opts.fail(errors.CodeNullPtr, "IsValidCompact", "")
		return false
	}
	return c.Dim() == p.ArgsDim()
}
