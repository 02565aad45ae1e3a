package pointset

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

// checkPair validates the operands of a set operation. An empty set is
// compatible with a set of any dimension.
func checkPair(a, b *Set, tol float64, op string) (*zap.Logger, error) {
	logger := zap.NewNop()
	if a != nil {
		logger = a.logger
	}

	fail := func(code errors.Code, detail string) error {
		e := errors.E(code, component, op)
		if detail != "" {
			e = e.WithMessage(detail)
		}
		return e.Log(logger)
	}

	switch {
	case a == nil || b == nil:
		return nil, fail(errors.CodeNullPtr, "")
	case a.dim != 0 && b.dim != 0 && a.dim != b.dim:
		return nil, fail(errors.CodeWrongDim, fmt.Sprintf("%d vs %d axes", a.dim, b.dim))
	case math.IsNaN(tol):
		return nil, fail(errors.CodeNaN, "tolerance")
	case tol < 0:
		return nil, fail(errors.CodeInvalidParams, "negative tolerance")
	}
	return logger, nil
}

func (s *Set) contains(v *vector.Vector, norm vector.Norm, tol float64) (bool, error) {
	i, err := s.index(v, norm, tol)
	return i >= 0, err
}

// Union returns the elements of a followed by the elements of b not already
// present in a.
func Union(a, b *Set, norm vector.Norm, tol float64) (*Set, error) {
	if _, err := checkPair(a, b, tol, "Union"); err != nil {
		return nil, err
	}

	out := a.Clone()
	for _, item := range b.items {
		if err := out.Insert(item, norm, tol); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Intersection returns the elements of a that have a match in b.
func Intersection(a, b *Set, norm vector.Norm, tol float64) (*Set, error) {
	logger, err := checkPair(a, b, tol, "Intersection")
	if err != nil {
		return nil, err
	}

	out := New(WithLogger(logger))
	for _, item := range a.items {
		ok, err := b.contains(item, norm, tol)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := out.Insert(item, norm, tol); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Difference returns the elements of minuend that have no match in
// subtrahend.
func Difference(minuend, subtrahend *Set, norm vector.Norm, tol float64) (*Set, error) {
	logger, err := checkPair(minuend, subtrahend, tol, "Difference")
	if err != nil {
		return nil, err
	}

	out := New(WithLogger(logger))
	for _, item := range minuend.items {
		ok, err := subtrahend.contains(item, norm, tol)
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := out.Insert(item, norm, tol); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// SymmetricDifference returns the elements found in exactly one of a and b.
func SymmetricDifference(a, b *Set, norm vector.Norm, tol float64) (*Set, error) {
	if _, err := checkPair(a, b, tol, "SymmetricDifference"); err != nil {
		return nil, err
	}

	left, err := Difference(a, b, norm, tol)
	if err != nil {
		return nil, err
	}
	right, err := Difference(b, a, norm, tol)
	if err != nil {
		return nil, err
	}
	return Union(left, right, norm, tol)
}
