package compact

import (
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

// Iterator walks the lattice of a compact like an odometer. direction[0] is
// the fastest-varying axis; when an axis would leave the box it rolls back to
// its origin and the next axis in direction advances. A forward iterator
// starts at low and moves up, a reverse iterator starts at high and moves
// down.
//
// For the box [(0,0), (1,1)], step (0.1, 0.5) and direction [1, 0] a forward
// iterator visits (0,0) (0,0.5) (0,1) (0.1,0) (0.1,0.5) ... (1,0.5) (1,1).
type Iterator struct {
	low       *vector.Vector
	high      *vector.Vector
	step      *vector.Vector
	current   *vector.Vector
	direction []int
	forward   bool
	logger    *zap.Logger
}

func newIterator(low, high, step *vector.Vector, forward bool, logger *zap.Logger) *Iterator {
	it := &Iterator{
		low:       low.Clone(),
		high:      high.Clone(),
		step:      step.Clone(),
		direction: make([]int, low.Dim()),
		forward:   forward,
		logger:    logger,
	}
	for i := range it.direction {
		it.direction[i] = i
	}
	if forward {
		it.current = it.low.Clone()
	} else {
		it.current = it.high.Clone()
	}
	return it
}

// Forward reports whether the iterator moves from low to high.
func (it *Iterator) Forward() bool {
	return it.forward
}

// Direction returns a copy of the current axis order.
func (it *Iterator) Direction() []int {
	return append([]int(nil), it.direction...)
}

// SetDirection replaces the axis order. order must be a permutation of
// 0..D-1: a length mismatch fails with WRONG_DIM, a missing, duplicated or
// out-of-range axis with INVALID_PARAMS. The current point is not moved.
func (it *Iterator) SetDirection(order []int) error {
	dim := it.current.Dim()
	if len(order) != dim {
		return errors.E(errors.CodeWrongDim, component, "SetDirection").
			WithMessage(fmt.Sprintf("got %d axes, want %d", len(order), dim)).Log(it.logger)
	}

	seen := make([]bool, dim)
	for _, axis := range order {
		if axis < 0 || axis >= dim {
			return errors.E(errors.CodeInvalidParams, component, "SetDirection").
				WithMessage(fmt.Sprintf("axis %d out of range", axis)).Log(it.logger)
		}
		if seen[axis] {
			return errors.E(errors.CodeInvalidParams, component, "SetDirection").
				WithMessage(fmt.Sprintf("axis %d repeated", axis)).Log(it.logger)
		}
		seen[axis] = true
	}

	it.direction = append(it.direction[:0], order...)
	return nil
}

// Point returns a copy of the current lattice point. After exhaustion it is
// the end sentinel: high for forward iterators, low for reverse ones.
func (it *Iterator) Point() *vector.Vector {
	return it.current.Clone()
}

// Step advances to the next lattice point. When every axis rolls over the
// traversal is complete: the current point is set to the end sentinel and
// errors.ErrOutOfBounds is returned. Callers must stop at the first such
// result; it marks the end of the loop, not a failure.
func (it *Iterator) Step() error {
	for _, axis := range it.direction {
		cur, s := it.current.At(axis), it.step.At(axis)

		if it.forward {
			next := cur + s
			if next > it.high.At(axis) {
				if err := it.current.SetCoord(axis, it.low.At(axis)); err != nil {
					return err
				}
				continue
			}
			return it.current.SetCoord(axis, next)
		}

		next := cur - s
		if next < it.low.At(axis) {
			if err := it.current.SetCoord(axis, it.high.At(axis)); err != nil {
				return err
			}
			continue
		}
		return it.current.SetCoord(axis, next)
	}

	if it.forward {
		it.current = it.high.Clone()
	} else {
		it.current = it.low.Clone()
	}
	return errors.ErrOutOfBounds
}

// Points yields the current point and then every point reached by Step until
// the traversal is exhausted. The sentinel is not yielded. Each yielded
// vector is a copy owned by the caller.
func (it *Iterator) Points() iter.Seq[*vector.Vector] {
	return func(yield func(*vector.Vector) bool) {
		for {
			if !yield(it.Point()) {
				return
			}
			if err := it.Step(); err != nil {
				if !errors.Is(err, errors.ErrOutOfBounds) {
					it.logger.Error("iterator stopped", zap.Error(err))
				}
				return
			}
		}
	}
}
