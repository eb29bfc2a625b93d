package lazyinit

import (
	"context"
	"sync"
)

// Resolvable is the view of an owning instance the resolver needs: a
// predicate for "is this attribute already computed" and an accessor that
// triggers computation (which recursively resolves that attribute's own
// dependencies first).
type Resolvable interface {
	IsComputed(name string) bool
	Compute(ctx context.Context, name string) error
}

// DependencyGraph is a per-registry mapping from attribute name to its list
// of direct prerequisite names, with a cached resolution order per name.
//
// Dependency lists are expected to be registered during single-threaded
// setup; Resolve only reads them and is safe for unlimited concurrent
// instances. Resolution state (the stack of in-progress names used for cycle
// detection) lives on the context of each call chain, never in the graph, so
// unrelated concurrent resolutions can never false-positive each other.
type DependencyGraph struct {
	mu    sync.RWMutex
	edges map[string][]string
	order map[string][]string
}

// NewDependencyGraph creates an empty dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		edges: make(map[string][]string),
		order: make(map[string][]string),
	}
}

// AddDependency stores the direct dependency list for name, in declaration
// order, and refreshes the cached resolution order for name and for any
// previously registered name whose order mentions name. Duplicates are kept
// as declared. Names are validated; a malformed one returns
// *InvalidIdentifierError.
func (g *DependencyGraph) AddDependency(name string, deps ...string) error {
	if err := validateIdentifier(name); err != nil {
		return err
	}
	for _, dep := range deps {
		if err := validateIdentifier(dep); err != nil {
			return err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[name] = append([]string(nil), deps...)
	g.order[name] = append([]string(nil), g.edges[name]...)

	// Keep sibling caches consistent when a dependency is registered after
	// attributes already referring to it.
	for other, cached := range g.order {
		if other == name {
			continue
		}
		for _, dep := range cached {
			if dep == name {
				g.order[other] = append([]string(nil), g.edges[other]...)
				break
			}
		}
	}

	return nil
}

// ResolutionOrder returns the direct (non-transitive) dependency list for
// name. Transitive dependencies are deliberately not expanded: each
// dependency resolves its own prerequisites recursively when computed, so
// nothing walks the whole graph on every access. The returned slice is a
// copy; nil means no dependencies are registered.
func (g *DependencyGraph) ResolutionOrder(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cached, ok := g.order[name]
	if !ok {
		return nil
	}
	return append([]string(nil), cached...)
}

// Dependencies returns every name with a registered dependency list.
func (g *DependencyGraph) Dependencies() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string][]string, len(g.edges))
	for name, deps := range g.edges {
		out[name] = append([]string(nil), deps...)
	}
	return out
}

// resolutionStackKey carries the in-progress name stack on the context.
type resolutionStackKey struct{}

func resolutionStack(ctx context.Context) []string {
	stack, _ := ctx.Value(resolutionStackKey{}).([]string)
	return stack
}

// Resolve computes every direct dependency of name on target, depth first
// and in declaration order, before the caller computes name itself.
// Already-computed dependencies are skipped. A name found on the current
// call chain's resolution stack returns a *DependencyCycleError carrying the
// full path; failures from the dependencies' own computations propagate
// unchanged.
func (g *DependencyGraph) Resolve(ctx context.Context, name string, target Resolvable) error {
	stack := resolutionStack(ctx)
	for _, inProgress := range stack {
		if inProgress == name {
			path := make([]string, 0, len(stack)+1)
			path = append(path, stack...)
			path = append(path, name)
			return &DependencyCycleError{Path: path}
		}
	}

	// Pin the capacity so recursive siblings never append into a shared
	// backing array. The stack is scoped to this call chain: it unwinds
	// with the contexts and leaves no per-goroutine state behind.
	stack = append(stack[:len(stack):len(stack)], name)
	ctx = context.WithValue(ctx, resolutionStackKey{}, stack)

	for _, dep := range g.ResolutionOrder(name) {
		if target.IsComputed(dep) {
			continue
		}
		if err := target.Compute(ctx, dep); err != nil {
			return err
		}
	}

	return nil
}
