package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// memoryEntry represents a cached value.
type memoryEntry struct {
	expiry time.Time
	value  []byte
}

// MemoryStore is an in-process Store with a background janitor.
type MemoryStore struct {
	entries  map[string]memoryEntry
	stopCh   chan struct{}
	now      func() time.Time
	interval time.Duration
	mu       sync.RWMutex
	once     sync.Once
}

// NewMemoryStore creates a store whose janitor sweeps expired entries every interval.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	store := &MemoryStore{
		entries:  make(map[string]memoryEntry),
		stopCh:   make(chan struct{}),
		now:      time.Now,
		interval: interval,
	}

	go store.cleanup()

	return store
}

// Get retrieves a value if it exists and hasn't expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[key]
	if !exists || s.now().After(entry.expiry) {
		return nil, ErrMiss
	}

	return slices.Clone(entry.value), nil
}

// Set stores a value for ttl.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		value:  slices.Clone(value),
		expiry: s.now().Add(ttl),
	}
	return nil
}

// Len returns the number of entries, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	return nil
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if now.After(entry.expiry) {
			delete(s.entries, key)
		}
	}
}
