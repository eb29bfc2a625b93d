package lazyinit

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Instance is one owner of lazily computed attribute values. Each attribute
// gets a private LazyValue cell created on first access; ad hoc memoization
// within the instance goes through its MemoCache.
type Instance struct {
	id       string
	registry *Registry
	cells    cellStore[*LazyValue[any]]

	memoOnce sync.Once
	memo     *MemoCache
}

func newInstance(r *Registry) *Instance {
	return &Instance{
		id:       uuid.NewString(),
		registry: r,
	}
}

// ID returns the instance's identifier. It exists for logging and
// introspection only and never participates in caching: whether an
// attribute is computed is tracked by the attribute's own cell.
func (in *Instance) ID() string {
	return in.id
}

// Registry returns the registry this instance was created from.
func (in *Instance) Registry() *Registry {
	return in.registry
}

// Value computes or returns the cached value of the named attribute. When
// the attribute declares dependencies they are resolved first, depth first
// in declaration order, each computed at most once. Computation failures are
// cached and replayed identically until Reset.
func (in *Instance) Value(ctx context.Context, name string) (any, error) {
	attr, err := in.registry.lookup(name)
	if err != nil {
		return nil, err
	}

	cell := in.cellFor(ctx, attr)
	if cell.IsComputed() {
		return cell.Value()
	}

	if len(attr.deps) > 0 {
		if err := in.registry.graph.Resolve(ctx, name, in); err != nil {
			return nil, err
		}
	}

	exts := in.registry.extensionsSnapshot()
	op := &Operation{
		Kind:      OpCompute,
		Attribute: name,
		Instance:  in,
		Registry:  in.registry,
	}

	next := func() (any, error) {
		return cell.Value()
	}
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(ctx, currentNext, op)
		}
	}

	val, err := next()
	if err != nil {
		for _, ext := range exts {
			ext.OnError(err, op, in.registry)
		}
		in.registry.logger.Error("attribute computation failed",
			zap.String("instance", in.id),
			zap.String("attribute", name),
			zap.Error(err),
		)
		return nil, err
	}

	return val, nil
}

// MustValue is Value, panicking on error.
func (in *Instance) MustValue(ctx context.Context, name string) any {
	val, err := in.Value(ctx, name)
	if err != nil {
		panic(err)
	}
	return val
}

// IsComputed reports whether the named attribute has a successfully computed
// value. It is false for undefined names, never-accessed attributes, and
// attributes whose computation failed.
func (in *Instance) IsComputed(name string) bool {
	cell, ok := in.cells.Load(name)
	return ok && cell.IsComputed()
}

// Compute triggers computation of the named attribute, discarding the value.
// It satisfies Resolvable so the dependency graph can drive this instance.
func (in *Instance) Compute(ctx context.Context, name string) error {
	_, err := in.Value(ctx, name)
	return err
}

// Failure returns the cached computation error for the named attribute, or
// nil when it has not failed.
func (in *Instance) Failure(name string) error {
	cell, ok := in.cells.Load(name)
	if !ok {
		return nil
	}
	return cell.Failure()
}

// Reset clears the named attribute's cached value or failure so the next
// access recomputes it. Sibling attributes keep their cached values even
// when they share dependencies. Resetting an attribute that was never
// accessed is a no-op; an undefined name returns *UnknownAttributeError.
func (in *Instance) Reset(name string) error {
	if _, err := in.registry.lookup(name); err != nil {
		return err
	}

	cell, ok := in.cells.Load(name)
	if !ok {
		return nil
	}

	exts := in.registry.extensionsSnapshot()
	op := &Operation{
		Kind:      OpReset,
		Attribute: name,
		Instance:  in,
		Registry:  in.registry,
	}

	next := func() (any, error) {
		cell.Reset()
		return nil, nil
	}
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(context.Background(), currentNext, op)
		}
	}

	_, err := next()
	return err
}

// ResetAll clears every attribute cell on this instance.
func (in *Instance) ResetAll() {
	in.cells.Range(func(name string, cell *LazyValue[any]) bool {
		cell.Reset()
		return true
	})
}

// cellFor returns the attribute's cell, creating it on first access. The
// context captured into the cell's function belongs to whichever caller
// created the cell; by then the resolution stack has already unwound, so it
// carries only the caller's deadline and values.
func (in *Instance) cellFor(ctx context.Context, attr *attribute) *LazyValue[any] {
	if cell, ok := in.cells.Load(attr.name); ok {
		return cell
	}

	timeout := attr.timeout
	if timeout <= 0 {
		timeout = in.registry.config.DefaultTimeout
	}

	cell := NewLazyValue(func() (any, error) {
		return attr.compute(ctx, in)
	}, WithTimeout(timeout), withAttributeName(attr.name))

	actual, _ := in.cells.LoadOrStore(attr.name, cell)
	return actual
}

// Memo returns this instance's memo cache, created lazily with the
// registry's configured capacity and TTL.
func (in *Instance) Memo() *MemoCache {
	in.memoOnce.Do(func() {
		cfg := in.registry.config
		in.memo = NewMemoCache(cfg.MaxLazyOnceEntries, cfg.LazyOnceTTL)
	})
	return in.memo
}

// LazyOnce memoizes fn keyed by the site of the LazyOnce call itself:
// repeated calls from the same file and line on this instance share one
// cached entry, while calls from different sites get independent entries.
// Errors from fn are returned but never cached, so a failing computation is
// retried on the next call.
func (in *Instance) LazyOnce(fn func() (any, error), opts ...MemoOption) (any, error) {
	return in.Memo().GetOrCompute(CallSiteKey(1), fn, opts...)
}

var _ Resolvable = (*Instance)(nil)
