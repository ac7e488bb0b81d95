package offline

import (
	"context"
	"encoding/json"

	"github.com/tombury59/PWA-CHAT/internal/storage"
)

// Cache holds received messages per room inside one persisted map, keyed
// "room-<id>". Each room's slot is overwritten whole; values stay opaque so
// the cache works for any message shape.
type Cache struct {
	store storage.Store
}

// NewCache creates a message cache over the given store.
func NewCache(store storage.Store) *Cache {
	return &Cache{store: store}
}

func roomKey(roomID string) string {
	return "room-" + roomID
}

// SaveReceived overwrites the cached messages for a room.
func (c *Cache) SaveReceived(ctx context.Context, roomID string, messages any) error {
	cache, err := c.load(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	cache[roomKey(roomID)] = raw
	return storage.SetJSON(ctx, c.store, storage.KeyMessagesCache, cache)
}

// Cached reads the cached messages for a room into dest. A missing room
// leaves dest untouched and reports false.
func (c *Cache) Cached(ctx context.Context, roomID string, dest any) (bool, error) {
	cache, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	raw, ok := cache[roomKey(roomID)]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, nil // corrupt slot degrades to the default value
	}
	return true, nil
}

func (c *Cache) load(ctx context.Context) (map[string]json.RawMessage, error) {
	cache := make(map[string]json.RawMessage)
	if _, err := storage.GetJSON(ctx, c.store, storage.KeyMessagesCache, &cache); err != nil {
		return nil, err
	}
	return cache, nil
}
