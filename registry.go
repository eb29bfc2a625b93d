package lazyinit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ComputeFunc produces an attribute's value for an instance. The context
// carries the resolution stack when the attribute is reached through
// dependency resolution; blocking work inside should honor it.
type ComputeFunc func(ctx context.Context, inst *Instance) (any, error)

// Registry maps attribute names to their computation, timeout, and declared
// dependencies for one owner type. Attributes are expected to be defined
// during single-threaded setup; any number of instances then share the
// registry concurrently.
type Registry struct {
	mu         sync.RWMutex
	attrs      map[string]*attribute
	graph      *DependencyGraph
	config     *Config
	extensions []Extension
	logger     *zap.Logger
}

type attribute struct {
	name    string
	compute ComputeFunc
	timeout time.Duration
	deps    []string
}

// RegistryOption is a modifier for registries
type RegistryOption func(*Registry)

// WithConfig replaces the registry's configuration wholesale.
func WithConfig(cfg *Config) RegistryOption {
	return func(r *Registry) {
		r.config = cfg.clone()
	}
}

// WithDefaultTimeout bounds every attribute computation that does not set
// its own timeout.
func WithDefaultTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.config.DefaultTimeout = d
	}
}

// WithMaxLazyOnceEntries caps the memo cache of each instance.
func WithMaxLazyOnceEntries(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.config.MaxLazyOnceEntries = n
		}
	}
}

// WithLazyOnceTTL expires memo entries of each instance.
func WithLazyOnceTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.config.LazyOnceTTL = d
	}
}

// WithLogger sets the structured logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistryExtension registers an extension during construction
func WithRegistryExtension(ext Extension) RegistryOption {
	return func(r *Registry) {
		if err := r.Use(ext); err != nil {
			panic(err)
		}
	}
}

// NewRegistry creates a new attribute registry with optional configuration
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		attrs:  make(map[string]*attribute),
		graph:  NewDependencyGraph(),
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// AttributeOption is a modifier for attribute definitions
type AttributeOption func(*attribute)

// WithComputeTimeout bounds this attribute's computation, overriding the
// registry default.
func WithComputeTimeout(d time.Duration) AttributeOption {
	return func(a *attribute) {
		a.timeout = d
	}
}

// WithDependencies declares the attributes that must be computed, in the
// given order, before this one.
func WithDependencies(names ...string) AttributeOption {
	return func(a *attribute) {
		a.deps = append([]string(nil), names...)
	}
}

// Define registers an attribute. The name must be a valid identifier
// (letter or underscore first, alphanumerics/underscores after, optional
// trailing ? or !); redefining a name replaces its computation and
// dependency list.
func (r *Registry) Define(name string, fn ComputeFunc, opts ...AttributeOption) error {
	if err := validateIdentifier(name); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("attribute %q: compute function must not be nil", name)
	}

	attr := &attribute{
		name:    name,
		compute: fn,
	}
	for _, opt := range opts {
		opt(attr)
	}

	if len(attr.deps) > 0 {
		if err := r.graph.AddDependency(name, attr.deps...); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.attrs[name] = attr
	r.mu.Unlock()

	r.logger.Debug("attribute defined",
		zap.String("attribute", name),
		zap.Strings("dependencies", attr.deps),
		zap.Duration("timeout", attr.timeout),
	)

	return nil
}

// MustDefine is Define, panicking on error. Intended for package-level setup.
func (r *Registry) MustDefine(name string, fn ComputeFunc, opts ...AttributeOption) {
	if err := r.Define(name, fn, opts...); err != nil {
		panic(err)
	}
}

// Defined reports whether name is registered.
func (r *Registry) Defined(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.attrs[name]
	return ok
}

// AttributeNames returns every defined attribute name, sorted.
func (r *Registry) AttributeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.attrs))
	for name := range r.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolutionOrder exposes the direct dependency list registered for name.
func (r *Registry) ResolutionOrder(name string) []string {
	return r.graph.ResolutionOrder(name)
}

// Graph returns the registry's dependency graph for introspection.
func (r *Registry) Graph() *DependencyGraph {
	return r.graph
}

func (r *Registry) lookup(name string) (*attribute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attr, ok := r.attrs[name]
	if !ok {
		return nil, &UnknownAttributeError{Name: name}
	}
	return attr, nil
}

// Use registers an extension to the registry
func (r *Registry) Use(ext Extension) error {
	r.mu.Lock()
	r.extensions = append(r.extensions, ext)
	sort.Slice(r.extensions, func(i, j int) bool {
		return r.extensions[i].Order() < r.extensions[j].Order()
	})
	r.mu.Unlock()

	return ext.Init(r)
}

func (r *Registry) extensionsSnapshot() []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]Extension, len(r.extensions))
	copy(exts, r.extensions)
	return exts
}

// Dispose shuts down the registry's extensions.
func (r *Registry) Dispose() error {
	for _, ext := range r.extensionsSnapshot() {
		if err := ext.Dispose(r); err != nil {
			return fmt.Errorf("disposing extension %s: %w", ext.Name(), err)
		}
	}
	return nil
}

// NewInstance creates an owning instance whose attributes compute lazily,
// at most once each, against this registry's definitions.
func (r *Registry) NewInstance() *Instance {
	return newInstance(r)
}
