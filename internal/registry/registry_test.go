package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gridsearch/internal/errors"
)

type stubBroker struct {
	kind  Kind
	calls int
}

func (b *stubBroker) CanCastTo(kind Kind) bool { return kind == b.kind }

func (b *stubBroker) Impl(kind Kind) (any, error) {
	if !b.CanCastTo(kind) {
		return nil, errors.ErrInvalidParams
	}
	b.calls++
	return b.calls, nil
}

type stubModule struct {
	name   string
	broker Broker
}

func (m stubModule) Register(r *Registry) error { return r.Register(m.name, m.broker) }

func TestRegister(t *testing.T) {
	r := New()

	require.NoError(t, r.Register("paraboloid", &stubBroker{kind: KindProblem}))

	tests := []struct {
		name    string
		key     string
		broker  Broker
		wantErr error
	}{
		{"duplicate", "paraboloid", &stubBroker{kind: KindProblem}, errors.ErrInvalidParams},
		{"empty name", "", &stubBroker{kind: KindProblem}, errors.ErrInvalidParams},
		{"nil broker", "other", nil, errors.ErrNullPtr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.Register(tt.key, tt.broker), tt.wantErr)
		})
	}
}

func TestResolve(t *testing.T) {
	r := New()
	solver := &stubBroker{kind: KindSolver}
	require.NoError(t, r.Install(
		stubModule{"gridsearch", solver},
		stubModule{"paraboloid", &stubBroker{kind: KindProblem}},
	))

	got, err := r.Resolve("gridsearch", KindSolver)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = r.Resolve("gridsearch", KindSolver)
	require.NoError(t, err)
	assert.Equal(t, 2, got, "every resolution asks the broker for a fresh value")

	_, err = r.Resolve("gridsearch", KindProblem)
	assert.ErrorIs(t, err, errors.ErrInvalidParams)

	_, err = r.Resolve("missing", KindSolver)
	assert.ErrorIs(t, err, errors.ErrElemNotFound)

	assert.Equal(t, []string{"gridsearch"}, r.Names(KindSolver))
	assert.Equal(t, []string{"paraboloid"}, r.Names(KindProblem))
}

func TestInstallStopsOnFailure(t *testing.T) {
	r := New()
	err := r.Install(
		stubModule{"a", &stubBroker{kind: KindProblem}},
		stubModule{"a", &stubBroker{kind: KindProblem}},
		stubModule{"b", &stubBroker{kind: KindProblem}},
	)
	assert.ErrorIs(t, err, errors.ErrInvalidParams)

	_, err = r.Lookup("b")
	assert.ErrorIs(t, err, errors.ErrElemNotFound)
}

func TestKind(t *testing.T) {
	for _, k := range []Kind{KindProblem, KindSolver} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("optimizer")
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
