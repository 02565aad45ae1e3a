// Package compact implements axis-aligned closed boxes ("compacts"), their
// region algebra and the odometer-style grid iterator that enumerates their
// lattice points.
package compact

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

const component = "compact"

// Compact is the closed box [low, high]. It holds its own copies of both
// corners and is immutable.
type Compact struct {
	low       *vector.Vector
	high      *vector.Vector
	tolerance float64
	logger    *zap.Logger
}

// Option configures a Compact.
type Option func(*Compact)

// WithLogger sets the logger that receives failures raised by the compact,
// its iterators and the algebra built from it.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Compact) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds the box [low, high]. Every axis must satisfy
// low[i] + tol <= high[i]; zero-width, inverted and unbounded boxes are
// rejected with INVALID_PARAMS.
func New(low, high *vector.Vector, tol float64, opts ...Option) (*Compact, error) {
	c := &Compact{tolerance: tol, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	if low == nil || high == nil {
		return nil, c.fail(errors.CodeNullPtr, "New", "")
	}
	if low.Dim() != high.Dim() {
		return nil, c.fail(errors.CodeWrongDim, "New", fmt.Sprintf("low has %d axes, high has %d", low.Dim(), high.Dim()))
	}
	if low.Dim() == 0 {
		return nil, c.fail(errors.CodeZeroDim, "New", "")
	}
	if math.IsNaN(tol) {
		return nil, c.fail(errors.CodeNaN, "New", "tolerance")
	}
	if tol < 0 {
		return nil, c.fail(errors.CodeInvalidParams, "New", "negative tolerance")
	}

	for i := 0; i < low.Dim(); i++ {
		if math.IsInf(low.At(i), 0) || math.IsInf(high.At(i), 0) {
			return nil, c.fail(errors.CodeInvalidParams, "New", fmt.Sprintf("axis %d is unbounded", i))
		}
		if math.Abs(low.At(i)-high.At(i)) < tol {
			return nil, c.fail(errors.CodeInvalidParams, "New", fmt.Sprintf("axis %d is degenerate", i))
		}
	}
	if Compare(low, high, tol) != Lesser {
		return nil, c.fail(errors.CodeInvalidParams, "New", "low is not below high on every axis")
	}

	c.low = low.Clone()
	c.high = high.Clone()
	return c, nil
}

func (c *Compact) fail(code errors.Code, op, detail string) error {
	e := errors.E(code, component, op)
	if detail != "" {
		e = e.WithMessage(detail)
	}
	return e.Log(c.logger)
}

// Clone returns an independent copy of c.
func (c *Compact) Clone() *Compact {
	return &Compact{
		low:       c.low.Clone(),
		high:      c.high.Clone(),
		tolerance: c.tolerance,
		logger:    c.logger,
	}
}

// Dim returns the dimension of the space the box lives in.
func (c *Compact) Dim() int {
	return c.low.Dim()
}

// Low returns a copy of the lower corner.
func (c *Compact) Low() *vector.Vector {
	return c.low.Clone()
}

// High returns a copy of the upper corner.
func (c *Compact) High() *vector.Vector {
	return c.high.Clone()
}

// Tolerance returns the tolerance the box was built with.
func (c *Compact) Tolerance() float64 {
	return c.tolerance
}

// String formats c as "[low, high]".
func (c *Compact) String() string {
	return fmt.Sprintf("[%s, %s]", c.low, c.high)
}

// Contains reports whether low[i] <= p[i] <= high[i] on every axis. Boundary
// points are contained; no tolerance is applied.
func (c *Compact) Contains(p *vector.Vector) (bool, error) {
	if p == nil {
		return false, c.fail(errors.CodeNullPtr, "Contains", "")
	}
	if p.Dim() != c.Dim() {
		return false, c.fail(errors.CodeWrongDim, "Contains", fmt.Sprintf("point has %d axes, compact has %d", p.Dim(), c.Dim()))
	}
	return c.contains(p), nil
}

func (c *Compact) contains(p *vector.Vector) bool {
	for i := 0; i < c.Dim(); i++ {
		if v := p.At(i); v < c.low.At(i) || v > c.high.At(i) {
			return false
		}
	}
	return true
}

func (c *Compact) checkOther(other *Compact, op string) error {
	if other == nil {
		return c.fail(errors.CodeNullPtr, op, "")
	}
	if other.Dim() != c.Dim() {
		return c.fail(errors.CodeWrongDim, op, fmt.Sprintf("%d vs %d axes", c.Dim(), other.Dim()))
	}
	return nil
}

// IsSubset reports whether c lies entirely inside other.
func (c *Compact) IsSubset(other *Compact) (bool, error) {
	if err := c.checkOther(other, "IsSubset"); err != nil {
		return false, err
	}
	return other.contains(c.low) && other.contains(c.high), nil
}

// Intersects reports whether c contains either corner of other. This is the
// endpoint test the region algebra is defined on; it does not detect
// overlaps in which no corner of other lies inside c (see Overlaps).
func (c *Compact) Intersects(other *Compact) (bool, error) {
	if err := c.checkOther(other, "Intersects"); err != nil {
		return false, err
	}
	return c.contains(other.low) || c.contains(other.high), nil
}

// Overlaps is the per-axis interval test: true when the boxes share at least
// one point.
func (c *Compact) Overlaps(other *Compact) (bool, error) {
	if err := c.checkOther(other, "Overlaps"); err != nil {
		return false, err
	}
	for i := 0; i < c.Dim(); i++ {
		if c.high.At(i) < other.low.At(i) || other.high.At(i) < c.low.At(i) {
			return false, nil
		}
	}
	return true, nil
}

// LatticeSize returns the number of points a full traversal with step
// visits, prod(floor((high[i]-low[i])/step[i]) + 1). The result saturates at
// math.MaxInt.
func (c *Compact) LatticeSize(step *vector.Vector) (int, error) {
	if err := c.checkStep(step, "LatticeSize"); err != nil {
		return 0, err
	}

	total := 1.0
	for i := 0; i < c.Dim(); i++ {
		total *= math.Floor((c.high.At(i)-c.low.At(i))/step.At(i)) + 1
		if total >= math.MaxInt {
			return math.MaxInt, nil
		}
	}
	return int(total), nil
}

func (c *Compact) checkStep(step *vector.Vector, op string) error {
	if step == nil {
		return c.fail(errors.CodeNullPtr, op, "step")
	}
	if step.Dim() != c.Dim() {
		return c.fail(errors.CodeWrongDim, op, fmt.Sprintf("step has %d axes, compact has %d", step.Dim(), c.Dim()))
	}
	for i := 0; i < step.Dim(); i++ {
		if !(step.At(i) > 0) || math.IsInf(step.At(i), 1) {
			return c.fail(errors.CodeInvalidParams, op, fmt.Sprintf("step[%d] = %g must be positive", i, step.At(i)))
		}
		// A step below the corners' precision would never move the iterator.
		if lo, hi := c.low.At(i), c.high.At(i); lo+step.At(i) == lo || hi-step.At(i) == hi {
			return c.fail(errors.CodeInvalidParams, op, fmt.Sprintf("step[%d] = %g is below the precision of axis %d", i, step.At(i), i))
		}
	}
	return nil
}

// Begin returns a forward iterator that starts at low.
func (c *Compact) Begin(step *vector.Vector) (*Iterator, error) {
	return c.iterator(step, true, "Begin")
}

// End returns a reverse iterator that starts at high.
func (c *Compact) End(step *vector.Vector) (*Iterator, error) {
	return c.iterator(step, false, "End")
}

func (c *Compact) iterator(step *vector.Vector, forward bool, op string) (*Iterator, error) {
	if err := c.checkStep(step, op); err != nil {
		return nil, err
	}
	return newIterator(c.low, c.high, step, forward, c.logger), nil
}
