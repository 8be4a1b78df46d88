// Package syncstore provides a mutex-guarded string-keyed map used as
// the building block for the server's shared directories. Every read,
// write, delete and enumeration is mutually exclusive with every other
// mutation of the same store, with one deliberate exception: ForEach
// iterates a snapshot with the lock released, because element callbacks
// perform blocking network I/O and may re-enter the store.
package syncstore

import "sync"

// Store is a thread-safe mapping from string keys to values of type V.
type Store[V any] struct {
	mu sync.Mutex
	m  map[string]V
}

// New creates an empty store.
func New[V any]() *Store[V] {
	return &Store[V]{m: make(map[string]V)}
}

// Get returns the value stored under key, if any.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

// Set stores value under key, overwriting any previous entry.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// GetOrSet returns the value stored under key, creating and storing a
// new one with make if the key is absent. The lookup and the insert
// happen under a single lock acquisition, so two concurrent callers
// racing on the same absent key resolve to a single value.
func (s *Store[V]) GetOrSet(key string, make func() V) V {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok {
		return v
	}
	v := make()
	s.m[key] = v
	return v
}

// Delete removes the entry stored under key, if any.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// DeleteIf removes the entry stored under key only when keep reports
// true for the stored value. It returns whether an entry was removed.
// The check and the delete happen under a single lock acquisition.
func (s *Store[V]) DeleteIf(key string, match func(V) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok || !match(v) {
		return false
	}
	delete(s.m, key)
	return true
}

// Len returns the number of entries.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Keys returns a snapshot of the keys.
func (s *Store[V]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys
}

// Values returns a snapshot of the values.
func (s *Store[V]) Values() []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([]V, 0, len(s.m))
	for _, v := range s.m {
		values = append(values, v)
	}
	return values
}

// ForEach invokes fn for every value in a snapshot taken under the
// lock, then iterates the snapshot with the lock released. fn may block
// or call back into the store without deadlocking. An entry added or
// removed while a pass is in flight may or may not be observed by that
// pass; callers get exactly-once delivery only in the steady state.
func (s *Store[V]) ForEach(fn func(V)) {
	for _, v := range s.Values() {
		fn(v)
	}
}
