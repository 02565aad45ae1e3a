package compact

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/vector"
)

const tol = 1e-6

func vec(coords ...float64) *vector.Vector {
	return vector.MustNew(coords...)
}

func box(t *testing.T, low, high []float64) *Compact {
	t.Helper()
	c, err := New(vec(low...), vec(high...), tol)
	require.NoError(t, err)
	return c
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		l, r *vector.Vector
		tol  float64
		want Ordering
	}{
		{"lesser on every axis", vec(0, 0), vec(1, 1), tol, Lesser},
		{"bigger on every axis", vec(2, 2), vec(1, 1), tol, Bigger},
		{"lesser ignoring tied axis", vec(0, 1), vec(1, 1), tol, Lesser},
		{"tie within tolerance is ignored", vec(0, 1.0000001), vec(1, 1), tol, Lesser},
		{"mixed signs", vec(0, 2), vec(1, 1), tol, Incomparable},
		{"all equal", vec(1, 1), vec(1, 1), tol, Incomparable},
		{"dimension mismatch", vec(0), vec(1, 1), tol, Incomparable},
		{"nil operand", nil, vec(1), tol, Incomparable},
		{"large tolerance hides difference", vec(0, 0), vec(0.5, 0.5), 1, Incomparable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.l, tt.r, tt.tol))
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		low, high *vector.Vector
		tol       float64
		wantErr   error
	}{
		{name: "unit square", low: vec(0, 0), high: vec(1, 1), tol: tol},
		{name: "one axis", low: vec(-3), high: vec(3), tol: 0},
		{name: "nil low", low: nil, high: vec(1), tol: tol, wantErr: errors.ErrNullPtr},
		{name: "dimension mismatch", low: vec(0), high: vec(1, 1), tol: tol, wantErr: errors.ErrWrongDim},
		{name: "nan tolerance", low: vec(0), high: vec(1), tol: math.NaN(), wantErr: errors.ErrNaN},
		{name: "negative tolerance", low: vec(0), high: vec(1), tol: -1, wantErr: errors.ErrInvalidParams},
		{name: "degenerate axis", low: vec(0, 0), high: vec(1, 0), tol: tol, wantErr: errors.ErrInvalidParams},
		{name: "axis thinner than tolerance", low: vec(0, 0), high: vec(1, 1e-7), tol: tol, wantErr: errors.ErrInvalidParams},
		{name: "inverted", low: vec(1, 1), high: vec(0, 0), tol: tol, wantErr: errors.ErrInvalidParams},
		{name: "inverted on one axis", low: vec(0, 1), high: vec(1, 0), tol: tol, wantErr: errors.ErrInvalidParams},
		{name: "unbounded high", low: vec(0, 0), high: vec(1, math.Inf(1)), tol: tol, wantErr: errors.ErrInvalidParams},
		{name: "unbounded low", low: vec(math.Inf(-1)), high: vec(1), tol: tol, wantErr: errors.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.low, tt.high, tt.tol)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.low.Data(), c.Low().Data())
			assert.Equal(t, tt.high.Data(), c.High().Data())
			assert.Equal(t, tt.low.Dim(), c.Dim())
			assert.Equal(t, tt.tol, c.Tolerance())
		})
	}
}

func TestNewOwnsCorners(t *testing.T) {
	low, high := vec(0, 0), vec(1, 1)
	c, err := New(low, high, tol)
	require.NoError(t, err)

	require.NoError(t, low.SetCoord(0, -10))
	require.NoError(t, c.Low().SetCoord(0, -20))
	assert.Equal(t, []float64{0, 0}, c.Low().Data())

	clone := c.Clone()
	assert.Equal(t, c.String(), clone.String())
}

func TestNewLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	_, err := New(vec(1), vec(0), tol, WithLogger(zap.New(core)))
	require.Error(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "INVALID_PARAMS", logs.All()[0].ContextMap()["code"])
	assert.Equal(t, "compact", logs.All()[0].ContextMap()["component"])
}

func TestContains(t *testing.T) {
	c := box(t, []float64{0, 0}, []float64{1, 2})
	eps := 1e-9

	tests := []struct {
		name string
		p    *vector.Vector
		want bool
	}{
		{"low corner", vec(0, 0), true},
		{"high corner", vec(1, 2), true},
		{"interior", vec(0.5, 1), true},
		{"edge", vec(1, 0.3), true},
		{"below on axis 0", vec(-eps, 1), false},
		{"above on axis 1", vec(0.5, 2+eps), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Contains(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.Contains(vec(1))
	assert.ErrorIs(t, err, errors.ErrWrongDim)
	_, err = c.Contains(nil)
	assert.ErrorIs(t, err, errors.ErrNullPtr)
}

func TestIsSubset(t *testing.T) {
	outer := box(t, []float64{0, 0}, []float64{4, 4})
	inner := box(t, []float64{1, 1}, []float64{2, 2})
	straddle := box(t, []float64{3, 3}, []float64{5, 5})

	ok, err := inner.IsSubset(outer)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = outer.IsSubset(inner)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = straddle.IsSubset(outer)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = outer.IsSubset(outer)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = outer.IsSubset(box(t, []float64{0}, []float64{1}))
	assert.ErrorIs(t, err, errors.ErrWrongDim)
	_, err = outer.IsSubset(nil)
	assert.ErrorIs(t, err, errors.ErrNullPtr)
}

func TestIntersects(t *testing.T) {
	a := box(t, []float64{0, 0}, []float64{2, 2})
	b := box(t, []float64{1, 1}, []float64{3, 3})
	far := box(t, []float64{5, 5}, []float64{6, 6})
	inner := box(t, []float64{0.5, 0.5}, []float64{1, 1})
	// cross overlaps a in the middle without either box holding a corner of
	// the other.
	cross := box(t, []float64{-1, 0.5}, []float64{3, 1.5})

	tests := []struct {
		name         string
		x, y         *Compact
		intersects   bool
		overlapsWant bool
	}{
		{"overlapping corners", a, b, true, true},
		{"disjoint", a, far, false, false},
		{"other inside receiver", a, inner, true, true},
		{"receiver inside other", inner, a, false, true},
		{"cross shape", a, cross, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.x.Intersects(tt.y)
			require.NoError(t, err)
			assert.Equal(t, tt.intersects, got)

			overlaps, err := tt.x.Overlaps(tt.y)
			require.NoError(t, err)
			assert.Equal(t, tt.overlapsWant, overlaps)
		})
	}
}

func TestLatticeSize(t *testing.T) {
	c := box(t, []float64{0, 0}, []float64{1, 1})

	n, err := c.LatticeSize(vec(0.25, 0.5))
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	hyper := box(t, []float64{0, 0, 0, 0}, []float64{1, 1, 1, 1})
	n, err = hyper.LatticeSize(vec(1e-5, 1e-5, 1e-5, 1e-5))
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, n)

	_, err = c.LatticeSize(vec(0, 1))
	assert.ErrorIs(t, err, errors.ErrInvalidParams)

	// Steps too fine to move a coordinate are rejected up front.
	_, err = c.LatticeSize(vec(1e-300, 1e-300))
	assert.ErrorIs(t, err, errors.ErrInvalidParams)

	far := box(t, []float64{1e16}, []float64{1e16 + 4})
	_, err = far.LatticeSize(vec(0.5))
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
	_, err = far.Begin(vec(0.5))
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
	_, err = far.End(vec(0.5))
	assert.ErrorIs(t, err, errors.ErrInvalidParams)

	n, err = far.LatticeSize(vec(2))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
