package lazyinit

import "context"

// Accessor is a typed view over one attribute of one instance, standing in
// for the entry points the original system generated per attribute.
type Accessor[T any] struct {
	instance *Instance
	name     string
}

// Access creates a typed accessor for an attribute on an instance.
func Access[T any](inst *Instance, name string) *Accessor[T] {
	return &Accessor[T]{
		instance: inst,
		name:     name,
	}
}

// Get computes or returns the cached value, typed.
func (a *Accessor[T]) Get(ctx context.Context) (T, error) {
	val, err := a.instance.Value(ctx, a.name)
	if err != nil {
		var zero T
		return zero, err
	}
	return SafeTypeAssertion[T](val)
}

// Peek returns the cached value without computing it.
func (a *Accessor[T]) Peek() (T, bool) {
	cell, ok := a.instance.cells.Load(a.name)
	if !ok || !cell.IsComputed() {
		var zero T
		return zero, false
	}
	val, err := cell.Value()
	if err != nil {
		var zero T
		return zero, false
	}
	typed, err := SafeTypeAssertion[T](val)
	if err != nil {
		var zero T
		return zero, false
	}
	return typed, true
}

// IsComputed reports whether the attribute has a successfully computed value.
func (a *Accessor[T]) IsComputed() bool {
	return a.instance.IsComputed(a.name)
}

// Reset clears the cached value or failure, allowing recomputation.
func (a *Accessor[T]) Reset() error {
	return a.instance.Reset(a.name)
}

// Reload resets and immediately recomputes.
func (a *Accessor[T]) Reload(ctx context.Context) (T, error) {
	if err := a.Reset(); err != nil {
		var zero T
		return zero, err
	}
	return a.Get(ctx)
}
