package tasks

import (
	"errors"
	"fmt"
)

// Registry is a read-only lookup table of validated task definitions.
// It is safe for concurrent use once constructed.
type Registry struct {
	defs  map[Name]Definition
	order []Name
}

// New validates every definition eagerly and builds a registry. The first
// definition becomes the default task.
func New(defs ...Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, errors.New("registry needs at least one coding task")
	}

	r := &Registry{defs: make(map[Name]Definition, len(defs))}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, &ConfigurationError{Task: d.Name, Err: errors.New("registered twice")}
		}
		r.defs[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Default builds the registry of built-in coding tasks.
func Default() (*Registry, error) {
	return New(builtin()...)
}

// MustDefault is like Default but panics when a built-in task is invalid.
// An invalid built-in table is a deployment bug, not a request error.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(fmt.Sprintf("built-in coding tasks: %v", err))
	}
	return r
}

// Get returns the definition registered under name.
func (r *Registry) Get(name Name) (Definition, error) {
	d, ok := r.defs[name]
	if !ok {
		return Definition{}, &ConfigurationError{Task: name, Err: ErrUnknownTask}
	}
	return d, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name Name) bool {
	_, ok := r.defs[name]
	return ok
}

// Names returns the registered task names in registration order.
func (r *Registry) Names() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

// Default returns the default coding task.
func (r *Registry) Default() Name {
	return r.order[0]
}
