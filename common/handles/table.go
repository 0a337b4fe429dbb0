// Package handles maps integer handles held by a caller to host-owned values.
package handles

import "sync"

// Table is a thread-safe handle table for values of type T. Handle 0 is
// never issued, so callers can use it as "no handle".
type Table[T any] struct {
	mu      sync.RWMutex
	entries map[uint32]T
	nextID  uint32
	release func(T) error
}

// New creates a table. release, if not nil, runs when a handle is removed
// or the table is closed.
func New[T any](release func(T) error) *Table[T] {
	return &Table[T]{
		entries: make(map[uint32]T),
		release: release,
	}
}

// Add stores v and returns its handle. After the counter wraps, handles
// still in use are skipped.
func (t *Table[T]) Add(v T) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		t.nextID++
		if t.nextID == 0 {
			continue
		}
		if _, taken := t.entries[t.nextID]; !taken {
			break
		}
	}
	t.entries[t.nextID] = v
	return t.nextID
}

// Get returns the value behind handle.
func (t *Table[T]) Get(handle uint32) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[handle]
	return v, ok
}

// Remove drops handle and runs the release callback on its value. It reports
// false when the handle is unknown.
func (t *Table[T]) Remove(handle uint32) (bool, error) {
	t.mu.Lock()
	v, ok := t.entries[handle]
	delete(t.entries, handle)
	t.mu.Unlock()

	if !ok {
		return false, nil
	}
	if t.release != nil {
		return true, t.release(v)
	}
	return true, nil
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Range calls f for every live handle until f returns false.
func (t *Table[T]) Range(f func(handle uint32, v T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for h, v := range t.entries {
		if !f(h, v) {
			break
		}
	}
}

// Close removes every handle, releasing each value, and returns the first
// release error.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[uint32]T)
	t.mu.Unlock()

	var first error
	if t.release == nil {
		return nil
	}
	for _, v := range entries {
		if err := t.release(v); err != nil && first == nil {
			first = err
		}
	}
	return first
}
