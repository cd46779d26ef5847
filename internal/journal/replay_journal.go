// Package journal provides the thread-safe containers HAmq channels record
// applied state into. Entries are only ever added or overwritten; reads
// always return copies so callers can iterate without holding locks.
package journal

import (
	"sync"
)

// Ordered is an append-only log preserving insertion order
type Ordered[T any] struct {
	mu      sync.RWMutex
	entries []T
}

// Append records entry at the end of the log
func (o *Ordered[T]) Append(entry T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, entry)
}

// Snapshot returns a copy of all entries in insertion order
func (o *Ordered[T]) Snapshot() []T {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]T, len(o.entries))
	copy(result, o.entries)
	return result
}

// Latest holds at most one entry; the last write wins
type Latest[T any] struct {
	mu    sync.RWMutex
	entry T
	set   bool
}

// Set replaces the held entry
func (l *Latest[T]) Set(entry T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry = entry
	l.set = true
}

// Get returns the held entry and whether one was ever set
func (l *Latest[T]) Get() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entry, l.set
}

// KeyedEntry is one element of a Keyed snapshot
type KeyedEntry[T any] struct {
	Key   string
	Value T
}

// Keyed maps unique keys to entries and remembers insertion order.
// Putting an existing key replaces its value but keeps its position.
type Keyed[T any] struct {
	mu    sync.RWMutex
	order []string
	byKey map[string]T
}

// Put records value under key
func (k *Keyed[T]) Put(key string, value T) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.byKey == nil {
		k.byKey = make(map[string]T)
	}
	if _, exists := k.byKey[key]; !exists {
		k.order = append(k.order, key)
	}
	k.byKey[key] = value
}

// Keys returns all keys in insertion order
func (k *Keyed[T]) Keys() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	result := make([]string, len(k.order))
	copy(result, k.order)
	return result
}

// Snapshot returns all entries in insertion order
func (k *Keyed[T]) Snapshot() []KeyedEntry[T] {
	k.mu.RLock()
	defer k.mu.RUnlock()

	result := make([]KeyedEntry[T], 0, len(k.order))
	for _, key := range k.order {
		result = append(result, KeyedEntry[T]{Key: key, Value: k.byKey[key]})
	}
	return result
}
