package compact

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

// checkPair validates the operands shared by every algebra operation and
// returns the logger results should inherit.
func checkPair(a, b *Compact, tol float64, op string, opts []Option) (*zap.Logger, error) {
	probe := &Compact{logger: zap.NewNop()}
	if a != nil {
		probe.logger = a.logger
	}
	for _, opt := range opts {
		opt(probe)
	}

	if a == nil || b == nil {
		return nil, probe.fail(errors.CodeNullPtr, op, "")
	}
	if a.Dim() != b.Dim() {
		return nil, probe.fail(errors.CodeWrongDim, op, fmt.Sprintf("%d vs %d axes", a.Dim(), b.Dim()))
	}
	if math.IsNaN(tol) {
		return nil, probe.fail(errors.CodeNaN, op, "tolerance")
	}
	if tol < 0 {
		return nil, probe.fail(errors.CodeInvalidParams, op, "negative tolerance")
	}
	return probe.logger, nil
}

// corners returns the componentwise minimum of the lows and maximum of the
// highs (outer == true), or the componentwise maximum of the lows and
// minimum of the highs (outer == false).
func corners(a, b *Compact, outer bool) (low, high []float64) {
	dim := a.Dim()
	low = make([]float64, dim)
	high = make([]float64, dim)
	for i := 0; i < dim; i++ {
		if outer {
			low[i] = math.Min(a.low.At(i), b.low.At(i))
			high[i] = math.Max(a.high.At(i), b.high.At(i))
		} else {
			low[i] = math.Max(a.low.At(i), b.low.At(i))
			high[i] = math.Min(a.high.At(i), b.high.At(i))
		}
	}
	return low, high
}

func build(low, high []float64, tol float64, logger *zap.Logger) (*Compact, error) {
	lv, err := vector.New(low, vector.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	hv, err := vector.New(high, vector.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return New(lv, hv, tol, WithLogger(logger))
}

// Intersection returns the box shared by a and b. It returns (nil, nil) when
// a does not intersect b (see Compact.Intersects) or when the shared region
// is thinner than tol along some axis.
func Intersection(a, b *Compact, tol float64, opts ...Option) (*Compact, error) {
	logger, err := checkPair(a, b, tol, "Intersection", opts)
	if err != nil {
		return nil, err
	}

	if !a.contains(b.low) && !a.contains(b.high) {
		return nil, nil
	}

	low, high := corners(a, b, false)
	for i := range low {
		if high[i]-low[i] < tol {
			return nil, nil
		}
	}
	return build(low, high, tol, logger)
}

// Union returns a ∪ b when that union is itself a box: one operand contains
// the other, or both agree (within tol) on every axis but one and their
// intervals on that axis touch or overlap. Any other pair fails with
// INVALID_PARAMS; callers that only need a covering box should use Convex.
func Union(a, b *Compact, tol float64, opts ...Option) (*Compact, error) {
	logger, err := checkPair(a, b, tol, "Union", opts)
	if err != nil {
		return nil, err
	}

	if b.contains(a.low) && b.contains(a.high) {
		return b.Clone(), nil
	}
	if a.contains(b.low) && a.contains(b.high) {
		return a.Clone(), nil
	}

	axis := -1
	for i := 0; i < a.Dim(); i++ {
		if math.Abs(a.low.At(i)-b.low.At(i)) <= tol && math.Abs(a.high.At(i)-b.high.At(i)) <= tol {
			continue
		}
		if axis >= 0 {
			e := errors.E(errors.CodeInvalidParams, component, "Union").
				WithMessage(fmt.Sprintf("boxes differ on axes %d and %d", axis, i))
			return nil, e.Log(logger)
		}
		axis = i
	}

	if axis >= 0 {
		if a.high.At(axis)+tol < b.low.At(axis) || b.high.At(axis)+tol < a.low.At(axis) {
			e := errors.E(errors.CodeInvalidParams, component, "Union").
				WithMessage(fmt.Sprintf("gap between boxes on axis %d", axis))
			return nil, e.Log(logger)
		}
	}

	low, high := corners(a, b, true)
	return build(low, high, tol, logger)
}

// Convex returns the smallest box containing both a and b.
func Convex(a, b *Compact, tol float64, opts ...Option) (*Compact, error) {
	logger, err := checkPair(a, b, tol, "Convex", opts)
	if err != nil {
		return nil, err
	}

	low, high := corners(a, b, true)
	return build(low, high, tol, logger)
}
