// Package window implements fixed-window request counting keyed by an
// opaque bucket key (typically "route|client").
//
// The package exposes a [Store] interface so deployments can choose where
// counter state lives: [MemoryStore] keeps a mutex-guarded map for
// single-process deployments, [RedisStore] shares counters across instances
// through Redis INCR/EXPIRE.
//
// A window never carries counts across its boundary: once the reset
// timestamp passes, the next request replaces the entry with a fresh window
// of count 1. Expiry is evaluated lazily on every check, so correctness does
// not depend on any cleanup pass having run.
package window
