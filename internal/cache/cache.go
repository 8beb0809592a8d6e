// Package cache provides the in-memory result cache shared by the monitoring
// gateway and the dashboard builders. Entries expire by TTL and are reclaimed
// lazily on read; there is no background sweeper.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL bounds backend load while staying under the typical polling
// interval of the monitoring backend's own sensors.
const DefaultTTL = 55 * time.Second

type entry struct {
	value    any
	insertAt time.Time
}

// Store is a TTL-bounded key/value cache. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	nowFn   func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		nowFn:   time.Now,
	}
}

// Get returns the value stored under key if it is younger than ttl.
// A stale entry counts as a miss and is evicted on the spot.
func (s *Store) Get(key string, ttl time.Duration) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.nowFn().Sub(e.insertAt) > ttl {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, stamping it with the current time.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, insertAt: s.nowFn()}
}

// Invalidate drops the entry for key, if present.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the number of entries currently held, stale ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
