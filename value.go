package lazyinit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// LazyValue is a single-slot container that computes a value from a
// zero-argument function at most once, under any degree of concurrency.
// Success and failure are both cached until Reset: a successful value is
// replayed on every subsequent call, and a failed computation replays the
// identical error value without re-invoking the function.
//
// The zero value is not usable; create one with NewLazyValue.
type LazyValue[T any] struct {
	mu sync.Mutex

	// cached is non-nil exactly when the computation succeeded. A pointer
	// is the state tag: a nil, empty, or zero value of T is still a valid
	// cached result. Publishing through an atomic pointer keeps the
	// lock-free fast path safe against concurrent Reset.
	cached atomic.Pointer[T]

	err    error
	failed bool

	fn      func() (T, error)
	timeout time.Duration

	// attribute is set when the cell backs a registry attribute, purely
	// for error messages.
	attribute string
}

// ValueOption is a modifier for lazy values
type ValueOption func(*valueSettings)

type valueSettings struct {
	timeout   time.Duration
	attribute string
}

// WithTimeout bounds the first computation. Exceeding the bound caches a
// *TimeoutError; zero or negative means unbounded.
func WithTimeout(d time.Duration) ValueOption {
	return func(s *valueSettings) {
		s.timeout = d
	}
}

func withAttributeName(name string) ValueOption {
	return func(s *valueSettings) {
		s.attribute = name
	}
}

// NewLazyValue creates a lazy value around fn. fn is invoked at most once
// per Reset cycle, no matter how many goroutines race on Value.
func NewLazyValue[T any](fn func() (T, error), opts ...ValueOption) *LazyValue[T] {
	var settings valueSettings
	for _, opt := range opts {
		opt(&settings)
	}

	return &LazyValue[T]{
		fn:        fn,
		timeout:   settings.timeout,
		attribute: settings.attribute,
	}
}

// Value returns the computed value, invoking the function on first call.
// The fast path after a successful computation is a single atomic load and
// never touches the lock. Every caller racing on the first computation
// blocks until it completes and then receives the identical value or the
// identical error.
func (v *LazyValue[T]) Value() (T, error) {
	if p := v.cached.Load(); p != nil {
		return *p, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// Another goroutine may have finished while we waited on the lock.
	if p := v.cached.Load(); p != nil {
		return *p, nil
	}
	if v.failed {
		var zero T
		return zero, v.err
	}

	val, err := v.compute()
	if err != nil {
		// Failure is cached but the cell is deliberately not marked
		// computed: IsComputed reports false while the error replays.
		v.failed = true
		v.err = err
		var zero T
		return zero, err
	}

	v.cached.Store(&val)
	return val, nil
}

// compute runs the function, bounded by the timeout when one is set.
// A timed-out computation keeps running on its goroutine; its eventual
// result is discarded because the timeout error is already cached.
func (v *LazyValue[T]) compute() (T, error) {
	if v.timeout <= 0 {
		return v.fn()
	}

	type outcome struct {
		val T
		err error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("computation panicked: %v", r)}
			}
		}()
		val, err := v.fn()
		done <- outcome{val: val, err: err}
	}()

	timer := time.NewTimer(v.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.val, out.err
	case <-timer.C:
		var zero T
		return zero, &TimeoutError{Attribute: v.attribute, Timeout: v.timeout}
	}
}

// IsComputed reports whether a value was computed successfully. It is false
// before the first call, false while a cached failure is replaying, and
// false again after Reset.
func (v *LazyValue[T]) IsComputed() bool {
	return v.cached.Load() != nil
}

// HasFailed reports whether the computation failed and the failure is
// currently cached.
func (v *LazyValue[T]) HasFailed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.failed
}

// Failure returns the cached error, or nil when the cell has not failed.
func (v *LazyValue[T]) Failure() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Reset clears the cached value or failure unconditionally, allowing the
// function to run again on the next Value call.
func (v *LazyValue[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cached.Store(nil)
	v.failed = false
	v.err = nil
}
