// Package session provides volatile, per-session storage: the counterpart of
// a browser tab's session storage. Nothing written here survives the end of
// the session or a process restart.
package session

import (
	"sync"
)

// Store is volatile string-keyed storage scoped to one session.
type Store interface {
	// Get returns the value under key and whether it exists.
	Get(key string) (string, bool)
	// Set creates or overwrites the value under key.
	Set(key, value string)
	// Delete removes key.
	Delete(key string)
	// Clear removes every key, as happens when the session ends.
	Clear()
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	clear(s.data)
	s.mu.Unlock()
}
