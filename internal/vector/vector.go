// Package vector implements fixed-dimension, NaN-free coordinate vectors
// backed by gonum dense vectors.
package vector

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/gridsearch/internal/errors"
)

const component = "vector"

// Norm selects the norm used by Vector.Norm and Equals.
type Norm int

const (
	Norm1 Norm = iota
	Norm2
	NormInf
)

// String returns "L1", "L2" or "Linf".
func (n Norm) String() string {
	switch n {
	case Norm1:
		return "L1"
	case Norm2:
		return "L2"
	case NormInf:
		return "Linf"
	default:
		return fmt.Sprintf("Norm(%d)", int(n))
	}
}

// Vector is an ordered tuple of finite coordinates. The dimension is fixed at
// construction; coordinates may change through SetCoord but never become NaN.
type Vector struct {
	data   *mat.VecDense
	logger *zap.Logger
}

// Option configures a Vector.
type Option func(*Vector)

// WithLogger sets the logger that receives failures raised by the vector.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Vector) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New copies coords into a new vector.
func New(coords []float64, opts ...Option) (*Vector, error) {
	v := &Vector{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}

	if len(coords) == 0 {
		return nil, errors.E(errors.CodeZeroDim, component, "New").Log(v.logger)
	}
	if floats.HasNaN(coords) {
		return nil, errors.E(errors.CodeNaN, component, "New").Log(v.logger)
	}

	v.data = mat.NewVecDense(len(coords), append([]float64(nil), coords...))
	return v, nil
}

// MustNew is like New but panics on invalid input. Intended for literals in
// tests and examples.
func MustNew(coords ...float64) *Vector {
	v, err := New(coords)
	if err != nil {
		panic(err)
	}
	return v
}

// Clone returns an independent copy of v.
func (v *Vector) Clone() *Vector {
	c := &Vector{data: mat.NewVecDense(v.Dim(), nil), logger: v.logger}
	c.data.CopyVec(v.data)
	return c
}

// Dim returns the number of coordinates.
func (v *Vector) Dim() int {
	return v.data.Len()
}

// Coord returns coordinate i.
func (v *Vector) Coord(i int) (float64, error) {
	if i < 0 || i >= v.Dim() {
		return math.NaN(), errors.E(errors.CodeOutOfBounds, component, "Coord").
			WithMessage(fmt.Sprintf("index %d, dim %d", i, v.Dim())).Log(v.logger)
	}
	return v.data.AtVec(i), nil
}

// At returns coordinate i and panics if i is out of range.
func (v *Vector) At(i int) float64 {
	return v.data.AtVec(i)
}

// SetCoord sets coordinate i to value. The vector is left untouched when the
// call fails.
func (v *Vector) SetCoord(i int, value float64) error {
	if i < 0 || i >= v.Dim() {
		return errors.E(errors.CodeOutOfBounds, component, "SetCoord").
			WithMessage(fmt.Sprintf("index %d, dim %d", i, v.Dim())).Log(v.logger)
	}
	if math.IsNaN(value) {
		return errors.E(errors.CodeNaN, component, "SetCoord").Log(v.logger)
	}
	v.data.SetVec(i, value)
	return nil
}

// Data returns a copy of the coordinates.
func (v *Vector) Data() []float64 {
	out := make([]float64, v.Dim())
	for i := range out {
		out[i] = v.data.AtVec(i)
	}
	return out
}

// Norm returns the requested norm of v. Unknown norms yield 0.
func (v *Vector) Norm(n Norm) float64 {
	switch n {
	case Norm1:
		return mat.Norm(v.data, 1)
	case Norm2:
		return mat.Norm(v.data, 2)
	case NormInf:
		return mat.Norm(v.data, math.Inf(1))
	default:
		return 0
	}
}

// String formats v as "(x0, x1, ...)".
func (v *Vector) String() string {
	parts := make([]string, v.Dim())
	for i := range parts {
		parts[i] = fmt.Sprintf("%g", v.data.AtVec(i))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// checkPair validates two operands for a binary operation.
func checkPair(a, b *Vector, op string, logger *zap.Logger) error {
	if a == nil || b == nil {
		return errors.E(errors.CodeNullPtr, component, op).Log(logger)
	}
	if a.Dim() != b.Dim() {
		return errors.E(errors.CodeWrongDim, component, op).
			WithMessage(fmt.Sprintf("%d vs %d", a.Dim(), b.Dim())).Log(logger)
	}
	return nil
}

// checkTolerance rejects NaN and negative tolerances.
func checkTolerance(tol float64, op string, logger *zap.Logger) error {
	if math.IsNaN(tol) {
		return errors.E(errors.CodeNaN, component, op).WithMessage("tolerance").Log(logger)
	}
	if tol < 0 {
		return errors.E(errors.CodeInvalidParams, component, op).WithMessage("negative tolerance").Log(logger)
	}
	return nil
}

func loggerOf(vs ...*Vector) *zap.Logger {
	for _, v := range vs {
		if v != nil && v.logger != nil {
			return v.logger
		}
	}
	return zap.NewNop()
}

// Add returns a + b.
func Add(a, b *Vector) (*Vector, error) {
	logger := loggerOf(a, b)
	if err := checkPair(a, b, "Add", logger); err != nil {
		return nil, err
	}
	out := &Vector{data: mat.NewVecDense(a.Dim(), nil), logger: logger}
	out.data.AddVec(a.data, b.data)
	return out.checkResult("Add")
}

// Sub returns a - b.
func Sub(a, b *Vector) (*Vector, error) {
	logger := loggerOf(a, b)
	if err := checkPair(a, b, "Sub", logger); err != nil {
		return nil, err
	}
	out := &Vector{data: mat.NewVecDense(a.Dim(), nil), logger: logger}
	out.data.SubVec(a.data, b.data)
	return out.checkResult("Sub")
}

// Dot returns the scalar product of a and b.
func Dot(a, b *Vector) (float64, error) {
	logger := loggerOf(a, b)
	if err := checkPair(a, b, "Dot", logger); err != nil {
		return math.NaN(), err
	}
	return mat.Dot(a.data, b.data), nil
}

// Scale returns v multiplied by s.
func Scale(v *Vector, s float64) (*Vector, error) {
	logger := loggerOf(v)
	if v == nil {
		return nil, errors.E(errors.CodeNullPtr, component, "Scale").Log(logger)
	}
	if math.IsNaN(s) {
		return nil, errors.E(errors.CodeNaN, component, "Scale").Log(logger)
	}
	out := &Vector{data: mat.NewVecDense(v.Dim(), nil), logger: logger}
	out.data.ScaleVec(s, v.data)
	return out.checkResult("Scale")
}

// checkResult rejects results such as Inf-Inf or Inf*0.
func (v *Vector) checkResult(op string) (*Vector, error) {
	if floats.HasNaN(v.data.RawVector().Data) {
		return nil, errors.E(errors.CodeNaN, component, op).
			WithMessage("non-finite operands").Log(v.logger)
	}
	return v, nil
}

// Equals reports whether the n-norm of a-b is below tol.
func Equals(a, b *Vector, n Norm, tol float64) (bool, error) {
	logger := loggerOf(a, b)
	if err := checkPair(a, b, "Equals", logger); err != nil {
		return false, err
	}
	if err := checkTolerance(tol, "Equals", logger); err != nil {
		return false, err
	}

	diff := mat.NewVecDense(a.Dim(), nil)
	diff.SubVec(a.data, b.data)

	var dist float64
	switch n {
	case Norm1:
		dist = mat.Norm(diff, 1)
	case Norm2:
		dist = mat.Norm(diff, 2)
	case NormInf:
		dist = mat.Norm(diff, math.Inf(1))
	default:
		return false, errors.E(errors.CodeInvalidParams, component, "Equals").
			WithMessage("unknown norm " + n.String()).Log(logger)
	}
	if math.IsNaN(dist) {
		return false, errors.E(errors.CodeNaN, component, "Equals").Log(logger)
	}
	return dist < tol, nil
}
