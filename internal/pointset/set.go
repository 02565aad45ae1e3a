// Package pointset implements an unordered collection of distinct vectors,
// where two vectors are the same element when their distance under a
// caller-supplied norm is below a tolerance.
package pointset

import (
	"fmt"
	"iter"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

const component = "pointset"

// Set holds owned copies of its vectors in insertion order. All elements share
// the dimension fixed by the first insert; an emptied set forgets it.
type Set struct {
	items  []*vector.Vector
	dim    int
	logger *zap.Logger
}

// Option configures a Set.
type Option func(*Set)

// WithLogger sets the logger that receives the set's failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Set) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns an empty set.
func New(opts ...Option) *Set {
	s := &Set{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Set) fail(code errors.Code, op, detail string) error {
	e := errors.E(code, component, op)
	if detail != "" {
		e = e.WithMessage(detail)
	}
	return e.Log(s.logger)
}

func (s *Set) checkQuery(v *vector.Vector, tol float64, op string) error {
	if v == nil {
		return s.fail(errors.CodeNullPtr, op, "")
	}
	if s.dim != 0 && v.Dim() != s.dim {
		return s.fail(errors.CodeWrongDim, op, fmt.Sprintf("vector has %d axes, set has %d", v.Dim(), s.dim))
	}
	if math.IsNaN(tol) {
		return s.fail(errors.CodeNaN, op, "tolerance")
	}
	if tol < 0 {
		return s.fail(errors.CodeInvalidParams, op, "negative tolerance")
	}
	return nil
}

// index returns the position of the first element within tol of v, or -1.
func (s *Set) index(v *vector.Vector, norm vector.Norm, tol float64) (int, error) {
	for i, item := range s.items {
		eq, err := vector.Equals(item, v, norm, tol)
		if err != nil {
			return -1, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

// Insert adds a copy of v unless an element within tol of it is already
// present. The first insert into an empty set fixes its dimension.
func (s *Set) Insert(v *vector.Vector, norm vector.Norm, tol float64) error {
	if err := s.checkQuery(v, tol, "Insert"); err != nil {
		return err
	}

	i, err := s.index(v, norm, tol)
	if err != nil {
		return err
	}
	if i >= 0 {
		return nil
	}

	if len(s.items) == 0 {
		s.dim = v.Dim()
	}
	s.items = append(s.items, v.Clone())
	return nil
}

// Find returns the index of the first element within tol of v.
func (s *Set) Find(v *vector.Vector, norm vector.Norm, tol float64) (int, error) {
	if err := s.checkQuery(v, tol, "Find"); err != nil {
		return -1, err
	}

	i, err := s.index(v, norm, tol)
	if err != nil {
		return -1, err
	}
	if i < 0 {
		return -1, errors.ErrElemNotFound
	}
	return i, nil
}

// Erase removes every element within tol of v. It fails with ELEM_NOT_FOUND
// when nothing matched.
func (s *Set) Erase(v *vector.Vector, norm vector.Norm, tol float64) error {
	if err := s.checkQuery(v, tol, "Erase"); err != nil {
		return err
	}

	kept := s.items[:0]
	removed := 0
	for _, item := range s.items {
		eq, err := vector.Equals(item, v, norm, tol)
		if err != nil {
			return err
		}
		if eq {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	clear(s.items[len(kept):])
	s.items = kept

	if removed == 0 {
		return errors.ErrElemNotFound
	}
	s.resetIfEmpty()
	return nil
}

// EraseAt removes the element at index i.
func (s *Set) EraseAt(i int) error {
	if i < 0 || i >= len(s.items) {
		return s.fail(errors.CodeOutOfBounds, "EraseAt", fmt.Sprintf("index %d, size %d", i, len(s.items)))
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.resetIfEmpty()
	return nil
}

func (s *Set) resetIfEmpty() {
	if len(s.items) == 0 {
		s.items = nil
		s.dim = 0
	}
}

// Clear removes every element and forgets the dimension.
func (s *Set) Clear() {
	s.items = nil
	s.dim = 0
}

// Get returns a copy of the element at index i.
func (s *Set) Get(i int) (*vector.Vector, error) {
	if i < 0 || i >= len(s.items) {
		return nil, s.fail(errors.CodeOutOfBounds, "Get", fmt.Sprintf("index %d, size %d", i, len(s.items)))
	}
	return s.items[i].Clone(), nil
}

// Len returns the number of elements.
func (s *Set) Len() int {
	return len(s.items)
}

// Dim returns the shared dimension of the elements, 0 for an empty set.
func (s *Set) Dim() int {
	return s.dim
}

// Clone returns an independent deep copy of s.
func (s *Set) Clone() *Set {
	out := &Set{
		items:  make([]*vector.Vector, 0, len(s.items)),
		dim:    s.dim,
		logger: s.logger,
	}
	for _, item := range s.items {
		out.items = append(out.items, item.Clone())
	}
	return out
}

// All yields a copy of every element with its index.
func (s *Set) All() iter.Seq2[int, *vector.Vector] {
	return func(yield func(int, *vector.Vector) bool) {
		for i, item := range s.items {
			if !yield(i, item.Clone()) {
				return
			}
		}
	}
}
