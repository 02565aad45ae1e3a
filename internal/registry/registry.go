// Package registry maps names to capability brokers. Problems and solvers are
// registered once at startup and resolved by name and kind afterwards.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/errors"
)

const component = "registry"

// Kind is a capability a broker can provide.
type Kind int

const (
	KindProblem Kind = iota + 1
	KindSolver
)

func (k Kind) String() string {
	switch k {
	case KindProblem:
		return "problem"
	case KindSolver:
		return "solver"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "problem":
		return KindProblem, nil
	case "solver":
		return KindSolver, nil
	default:
		return 0, errors.E(errors.CodeInvalidParams, component, "ParseKind").
			WithMessage(fmt.Sprintf("unknown kind %q", s))
	}
}

// Broker hands out fresh implementations of the kinds it supports. Impl must
// fail with INVALID_PARAMS for kinds CanCastTo rejects.
type Broker interface {
	CanCastTo(kind Kind) bool
	Impl(kind Kind) (any, error)
}

// Module is implemented by packages that contribute brokers.
type Module interface {
	Register(r *Registry) error
}

// Registry holds the brokers of one application instance.
type Registry struct {
	mu      sync.RWMutex
	brokers map[string]Broker
	logger  *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger that receives registry failures.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		brokers: make(map[string]Broker),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Install registers every module in order and stops at the first failure.
func (r *Registry) Install(modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// Register binds name to broker. Empty names, nil brokers and names already
// taken fail with INVALID_PARAMS or NULL_PTR.
func (r *Registry) Register(name string, broker Broker) error {
	if broker == nil {
		return errors.E(errors.CodeNullPtr, component, "Register").
			WithMessage(name).Log(r.logger)
	}
	if name == "" {
		return errors.E(errors.CodeInvalidParams, component, "Register").
			WithMessage("empty name").Log(r.logger)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.brokers[name]; exists {
		return errors.E(errors.CodeInvalidParams, component, "Register").
			WithMessage(fmt.Sprintf("%q already registered", name)).Log(r.logger)
	}
	r.brokers[name] = broker
	r.logger.Debug("broker registered", zap.String("name", name))
	return nil
}

// Lookup returns the broker registered under name.
func (r *Registry) Lookup(name string) (Broker, error) {
	r.mu.RLock()
	b, ok := r.brokers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.E(errors.CodeElemNotFound, component, "Lookup").
			WithMessage(fmt.Sprintf("no broker named %q", name)).Log(r.logger)
	}
	return b, nil
}

// Resolve looks name up and asks its broker for a fresh implementation of
// kind.
func (r *Registry) Resolve(name string, kind Kind) (any, error) {
	b, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !b.CanCastTo(kind) {
		return nil, errors.E(errors.CodeInvalidParams, component, "Resolve").
			WithMessage(fmt.Sprintf("%q cannot provide a %s", name, kind)).Log(r.logger)
	}
	return b.Impl(kind)
}

// Names returns the sorted names of the brokers that can provide kind.
func (r *Registry) Names(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, b := range r.brokers {
		if b.CanCastTo(kind) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
