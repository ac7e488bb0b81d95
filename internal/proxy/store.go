// Package proxy implements the offline shell's caching layer: the same
// per-category strategies the installable web app applies in its worker
// (network-first, cache-first with expiry, stale-while-revalidate), running
// in a local proxy in front of the app shell and API.
package proxy

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Entry is one cached response.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

// Expired reports whether the entry is older than maxAge. A zero maxAge
// means no expiry.
func (e *Entry) Expired(maxAge time.Duration, now time.Time) bool {
	return maxAge > 0 && now.Sub(e.StoredAt) > maxAge
}

// CacheStore holds cached responses for one category.
type CacheStore interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, e *Entry) error
	Delete(ctx context.Context, key string) error
	// Clear drops every entry (the skip-waiting flush).
	Clear(ctx context.Context) error
}

// MemoryStore is the in-process backend. When full, the oldest entry makes
// room, mirroring the worker's maxEntries expiration plugin.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	maxEntries int
}

// NewMemoryStore creates a store capped at maxEntries (0 = unbounded).
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range s.entries {
		if oldestKey == "" || e.StoredAt.Before(oldest) {
			oldestKey = k
			oldest = e.StoredAt
		}
	}
	delete(s.entries, oldestKey)
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	return nil
}

// Len reports the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
