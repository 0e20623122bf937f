// Package inflight tracks work that is currently running so overlapping ticks can be skipped.
package inflight

import "sync"

// KeyedGuard marks keys as busy. A key can be held by one caller at a time.
type KeyedGuard[K comparable] struct {
	mu   sync.Mutex
	busy map[K]struct{}
}

// NewKeyedGuard creates an empty guard.
func NewKeyedGuard[K comparable]() *KeyedGuard[K] {
	return &KeyedGuard[K]{busy: make(map[K]struct{})}
}

// TryAcquire marks key busy. Returns false if it already is.
func (g *KeyedGuard[K]) TryAcquire(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.busy[key]; ok {
		return false
	}
	g.busy[key] = struct{}{}
	return true
}

// Release clears the busy mark for key.
func (g *KeyedGuard[K]) Release(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, key)
}

// Busy reports whether key is currently held.
func (g *KeyedGuard[K]) Busy(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[key]
	return ok
}

// Len returns the number of held keys.
func (g *KeyedGuard[K]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.busy)
}

// Flag is a single busy marker.
type Flag struct {
	mu      sync.Mutex
	running bool
}

// TryAcquire sets the flag. Returns false if it was already set.
func (f *Flag) TryAcquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return false
	}
	f.running = true
	return true
}

// Release clears the flag.
func (f *Flag) Release() {
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
}

// Running reports whether the flag is set.
func (f *Flag) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}
