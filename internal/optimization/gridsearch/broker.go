package gridsearch

import (
	"fmt"

	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/registry"
)

// Broker hands out fresh solvers to a registry.
type Broker struct {
	opts []Option
}

var _ registry.Broker = (*Broker)(nil)

// NewBroker returns a broker whose solvers are built with opts.
func NewBroker(opts ...Option) *Broker {
	return &Broker{opts: opts}
}

// CanCastTo reports whether kind is registry.KindSolver.
func (b *Broker) CanCastTo(kind registry.Kind) bool {
	return kind == registry.KindSolver
}

// Impl returns a new *Solver for registry.KindSolver.
func (b *Broker) Impl(kind registry.Kind) (any, error) {
	if !b.CanCastTo(kind) {
		return nil, New(b.opts...).fail(errors.CodeInvalidParams, "Impl", fmt.Sprintf("cannot provide a %s", kind))
	}
	return New(b.opts...), nil
}

// Module registers the grid-search solver as "gridsearch".
type Module struct {
	Options []Option
}

// Register implements registry.Module.
func (m Module) Register(r *registry.Registry) error {
	return r.Register("gridsearch", NewBroker(m.Options...))
}

// Resolve fetches the solver registered under name.
func Resolve(r *registry.Registry, name string) (*Solver, error) {
	impl, err := r.Resolve(name, registry.KindSolver)
	if err != nil {
		return nil, err
	}
	s, ok := impl.(*Solver)
	if !ok {
		return nil, errors.E(errors.CodeInvalidParams, component, "Resolve").
			WithMessage(fmt.Sprintf("%q returned %T", name, impl))
	}
	return s, nil
}
