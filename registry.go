package replica

import (
	"context"
	"sync"
)

// registryKey combines schema identity and compile options for cache lookup.
type registryKey struct {
	schema Schema
	opts   optionsKey
}

var (
	registry   = make(map[registryKey]*Cloner)
	registryMu sync.RWMutex
)

// Use returns a cached cloner or compiles a new one.
// Cloners are cached by schema identity and option set, so the same schema
// value and the same codec value must be passed to hit the cache. Options
// holding a codec that is not comparable compile a fresh cloner every time.
func Use(s Schema, opts ...CompileOption) (*Cloner, error) {
	o := buildCompileOptions(opts)
	optsKey, ok := o.key()
	if !ok {
		return compile(s, o)
	}
	key := registryKey{schema: s, opts: optsKey}

	// Fast path: read-lock cache check
	registryMu.RLock()
	if cached, ok := registry[key]; ok {
		registryMu.RUnlock()
		emitRegistryHit(context.Background(), cached.kind.String(), o.snapshot.ContentType())
		return cached, nil
	}
	registryMu.RUnlock()

	// Slow path: build and cache with write-lock
	registryMu.Lock()
	defer registryMu.Unlock()

	// Double-check pattern
	if cached, ok := registry[key]; ok {
		emitRegistryHit(context.Background(), cached.kind.String(), o.snapshot.ContentType())
		return cached, nil
	}

	cloner, err := compile(s, o)
	if err != nil {
		return nil, err
	}

	registry[key] = cloner
	return cloner, nil
}

// Reset clears the cloner registry.
// This is primarily useful for test isolation.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[registryKey]*Cloner)
}
