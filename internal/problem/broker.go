package problem

import (
	"fmt"

	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/optimization"
	"github.com/copyleftdev/gridsearch/internal/registry"
)

// Broker hands out fresh problems of one kind to a registry.
type Broker struct {
	factory func() (Problem, error)
	opts    options
}

var _ registry.Broker = (*Broker)(nil)

// NewBroker returns a broker producing paraboloids.
func NewBroker(opts ...Option) *Broker {
	return &Broker{
		factory: func() (Problem, error) { return NewParaboloid(opts...), nil },
		opts:    newOptions(opts),
	}
}

// NewFuncBroker returns a broker producing FromFunc(argsDim, fn) problems.
func NewFuncBroker(argsDim int, fn optimization.ObjectiveFunction, opts ...Option) *Broker {
	return &Broker{
		factory: func() (Problem, error) { return FromFunc(argsDim, fn, opts...) },
		opts:    newOptions(opts),
	}
}

// CanCastTo reports whether kind is registry.KindProblem.
func (b *Broker) CanCastTo(kind registry.Kind) bool {
	return kind == registry.KindProblem
}

// Impl returns a new Problem for registry.KindProblem.
func (b *Broker) Impl(kind registry.Kind) (any, error) {
	if !b.CanCastTo(kind) {
		return nil, b.opts.fail(errors.CodeInvalidParams, "Impl", fmt.Sprintf("cannot provide a %s", kind))
	}
	return b.factory()
}

// Module registers the default problems: "paraboloid", and "sphere" and
// "rosenbrock" in any dimension.
type Module struct {
	Options []Option
}

// Register implements registry.Module.
func (m Module) Register(r *registry.Registry) error {
	brokers := []struct {
		name   string
		broker *Broker
	}{
		{"paraboloid", NewBroker(m.Options...)},
		{"sphere", NewFuncBroker(0, optimization.Sphere, m.Options...)},
		{"rosenbrock", NewFuncBroker(0, optimization.Rosenbrock, m.Options...)},
	}
	for _, b := range brokers {
		if err := r.Register(b.name, b.broker); err != nil {
			return err
		}
	}
	return nil
}

// Resolve fetches the problem registered under name.
func Resolve(r *registry.Registry, name string) (Problem, error) {
	impl, err := r.Resolve(name, registry.KindProblem)
	if err != nil {
		return nil, err
	}
	p, ok := impl.(Problem)
	if !ok {
		return nil, errors.E(errors.CodeInvalidParams, component, "Resolve").
			WithMessage(fmt.Sprintf("%q returned %T", name, impl))
	}
	return p, nil
}
