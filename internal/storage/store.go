// Package storage wraps the client's persistent key-value store.
//
// It is the Go counterpart of the browser's localStorage: a flat namespace of
// string keys where structured values are serialized as JSON and plain text
// passes through untouched. All durable client state (profile, galleries,
// per-room histories, outbox) lives here; last write wins, and concurrent
// instances are not coordinated.
package storage

import (
	"context"
	"encoding/json"
	"log"
)

// Store is the persistence contract shared by all backends.
type Store interface {
	// Get returns the raw text stored under key. The boolean reports
	// whether the key existed.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores raw text under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns all keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases the backend.
	Close() error
}

// GetJSON reads key and unmarshals it into dest. A missing key or a value
// that is not valid JSON leaves dest untouched and reports false: corrupt
// persisted data must degrade to the default value, never break the caller.
func GetJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Printf("⚠️ Ignoring corrupt value under %q: %v", key, err)
		return false, nil
	}
	return true, nil
}

// SetJSON serializes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(data))
}
