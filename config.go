package lazyinit

import "time"

// Config holds the process-wide defaults consumed by registries and the
// memo caches of their instances.
type Config struct {
	// DefaultTimeout bounds attribute computations that do not set their
	// own timeout. Zero means unbounded.
	DefaultTimeout time.Duration

	// MaxLazyOnceEntries caps each instance's memo cache.
	MaxLazyOnceEntries int

	// LazyOnceTTL expires memo entries. Zero means entries never expire.
	LazyOnceTTL time.Duration
}

// DefaultConfig returns the configuration used when none is supplied:
// unbounded computations, 1000 memo entries per instance, no expiry.
func DefaultConfig() *Config {
	return &Config{
		MaxLazyOnceEntries: DefaultMaxEntries,
	}
}

func (c *Config) clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	dup := *c
	if dup.MaxLazyOnceEntries <= 0 {
		dup.MaxLazyOnceEntries = DefaultMaxEntries
	}
	return &dup
}
