// Package lazyinit provides thread-safe, memoized lazy value computation.
//
// # Overview
//
// The package is built from three pieces:
//
//  1. LazyValue: a single-slot cell that computes a value exactly once under
//     concurrent access, caching success and failure alike
//  2. DependencyGraph: orders computation of interrelated attributes and
//     detects cycles per call chain
//  3. MemoCache: a bounded, per-instance cache keyed by call site, with TTL
//     and batch LRU-style eviction
//
// A Registry ties them together: it maps attribute names to computations,
// timeouts, and dependency lists, and mints Instances whose attributes
// compute lazily, at most once each.
//
// # Basic Usage
//
// Standalone cells need no registry:
//
//	port := lazyinit.NewLazyValue(func() (int, error) {
//	    return readPortFromEnv()
//	})
//
//	p, err := port.Value() // computed on first call, cached after
//
// Attributes with dependencies go through a registry:
//
//	reg := lazyinit.NewRegistry()
//	reg.MustDefine("dsn", func(ctx context.Context, inst *lazyinit.Instance) (any, error) {
//	    return os.Getenv("DATABASE_URL"), nil
//	})
//	reg.MustDefine("db", func(ctx context.Context, inst *lazyinit.Instance) (any, error) {
//	    dsn, _ := inst.Value(ctx, "dsn")
//	    return sql.Open("postgres", dsn.(string))
//	}, lazyinit.WithDependencies("dsn"))
//
//	inst := reg.NewInstance()
//	db, err := inst.Value(context.Background(), "db") // computes dsn first
//
// Typed access without hand-written assertions:
//
//	dsn := lazyinit.Access[string](inst, "dsn")
//	s, err := dsn.Get(ctx)
//
// # Failure Caching
//
// A cell that fails caches the error and replays the identical error value
// on every later call; IsComputed stays false. Reset clears value and error
// and lets the next access recompute. The per-instance memo cache is the
// deliberate exception: LazyOnce never caches failures, so a failing
// memoized computation is retried on every call.
//
// # Timeouts
//
// WithTimeout (or a registry-wide default) bounds the first computation.
// On expiry the waiting caller receives a *TimeoutError, which is cached
// like any other failure. The underlying function cannot be preempted: it
// keeps running on its goroutine and its eventual result is discarded.
//
// # Memoization by Call Site
//
//	func (s *service) expensiveReport(inst *lazyinit.Instance) (any, error) {
//	    return inst.LazyOnce(func() (any, error) {
//	        return buildReport()
//	    }, lazyinit.WithTTL(time.Minute))
//	}
//
// Two LazyOnce calls on different lines memoize independently; the same line
// hit repeatedly shares one entry. Capacity defaults to 1000 entries per
// instance; at the bound the coldest quarter is evicted in one pass.
//
// # Errors
//
// All package error types unwrap to ErrLazyInit. Concrete types:
// *TimeoutError, *DependencyCycleError (carries the full cycle path),
// *InvalidIdentifierError, *UnknownAttributeError. Errors returned by user
// computations are cached and replayed verbatim, never wrapped.
package lazyinit
