// Package latest provides a single-slot value that many readers can watch.
package latest

import "sync"

// Value holds the most recent value written to it. A write replaces an unread
// previous value; readers always observe the newest one and may miss
// intermediate values.
type Value[T any] struct {
	mu      sync.Mutex
	v       T
	version uint64
	changed chan struct{}
}

// New returns a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, changed: make(chan struct{})}
}

// Set stores v and wakes every waiting reader.
func (l *Value[T]) Set(v T) {
	l.mu.Lock()
	l.v = v
	l.version++
	close(l.changed)
	l.changed = make(chan struct{})
	l.mu.Unlock()
}

// Get returns the current value and a channel that is closed by the next Set.
func (l *Value[T]) Get() (T, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.v, l.changed
}

// Version returns the number of Set calls so far.
func (l *Value[T]) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// Load is Get plus the version of the returned value, read atomically.
func (l *Value[T]) Load() (T, uint64, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.v, l.version, l.changed
}
