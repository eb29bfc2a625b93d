package lazyinit

import "context"

// Extension provides hooks around attribute lifecycle operations
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a registry
	Init(registry *Registry) error

	// Wrap intercepts operations (compute, reset)
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnError handles errors during computation
	OnError(err error, op *Operation, registry *Registry)

	// Dispose is called when the registry is disposed
	Dispose(registry *Registry) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(registry *Registry) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, registry *Registry) {
}

func (e *BaseExtension) Dispose(registry *Registry) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind      OperationKind
	Attribute string
	Instance  *Instance
	Registry  *Registry
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpCompute indicates an attribute's first computation
	OpCompute OperationKind = "compute"
	// OpReset indicates an attribute reset
	OpReset OperationKind = "reset"
)
