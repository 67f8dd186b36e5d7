// Package store provides TTL key/value storage used as the chart cache.
//
// Rendering a chart is the most expensive step in the response pipeline,
// so rendered data URIs are cached by series fingerprint. Two backends are
// provided: an in-memory store for single-instance deployments, and a
// SQLite-backed store that survives restarts.
package store

import (
	"sync"
	"time"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 1 * time.Hour

// Store defines the interface for the chart cache.
type Store interface {
	// Get retrieves a value by key.
	Get(key string) (string, bool)

	// Set stores a value with the store's TTL.
	Set(key, value string) error

	// Delete removes a key.
	Delete(key string) error

	// Len returns the number of live entries.
	Len() int

	// Close cleans up resources.
	Close() error
}

// MemoryStore is a simple in-memory implementation of Store.
type MemoryStore struct {
	data     map[string]entry
	mu       sync.RWMutex
	ttl      time.Duration
	stopChan chan struct{}
	stopped  bool
}

type entry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store. A zero ttl falls back to
// DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		data:     make(map[string]entry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Get retrieves a value, honoring expiry.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// Set stores a value with the configured TTL.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: value, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of unexpired entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	n := 0
	for _, e := range s.data {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.stopChan)
	}
	return nil
}

// cleanup periodically evicts expired entries.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for k, e := range s.data {
				if now.After(e.expiresAt) {
					delete(s.data, k)
				}
			}
			s.mu.Unlock()
		}
	}
}
