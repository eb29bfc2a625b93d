package lazyinit

import (
	"sync"
)

// cellStore is a typed wrapper over sync.Map holding an instance's lazy
// cells keyed by attribute name. LoadOrStore guarantees one cell per name no
// matter how many goroutines race on first access.
type cellStore[T any] struct {
	data sync.Map
}

func (c *cellStore[T]) Load(name string) (T, bool) {
	value, ok := c.data.Load(name)
	if !ok {
		var zero T
		return zero, false
	}
	return value.(T), true
}

func (c *cellStore[T]) LoadOrStore(name string, value T) (T, bool) {
	actual, loaded := c.data.LoadOrStore(name, value)
	return actual.(T), loaded
}

func (c *cellStore[T]) Range(fn func(name string, value T) bool) {
	c.data.Range(func(key, value any) bool {
		return fn(key.(string), value.(T))
	})
}
