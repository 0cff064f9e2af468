// Package store holds the in-memory key space shared by every client
// session. Each exported method takes the lock once and performs the whole
// operation under it, so multi-key commands are observed atomically.
package store

import (
	"sync"

	"github.com/minikv/minikv/internal/protocol"
)

// KV is one key/value pair of a multi-set request.
type KV struct {
	Key   string
	Value protocol.Value
}

// Store is a thread-safe map from string keys to protocol values.
type Store struct {
	mu   sync.RWMutex
	data map[string]protocol.Value
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]protocol.Value)}
}

// Get returns the value bound to key, and whether the key exists.
func (s *Store) Get(key string) (protocol.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set binds key to value, replacing any prior binding.
func (s *Store) Set(key string, value protocol.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Delete removes key. It reports whether the key was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	return ok
}

// Flush removes every key and returns the number of keys removed.
func (s *Store) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.data)
	s.data = make(map[string]protocol.Value)
	return n
}

// MGet returns one value per key in request order. Missing keys yield null
// values. The whole lookup happens under one read lock.
func (s *Store) MGet(keys []string) []protocol.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Value, len(keys))
	for i, key := range keys {
		if v, ok := s.data[key]; ok {
			out[i] = v
		} else {
			out[i] = protocol.NullBulkString()
		}
	}
	return out
}

// MSet binds every pair under one lock and returns the number of pairs set.
func (s *Store) MSet(pairs []KV) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		s.data[p.Key] = p.Value
	}
	return len(pairs)
}

// Size returns the current number of keys.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns a snapshot of all keys in unspecified order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
