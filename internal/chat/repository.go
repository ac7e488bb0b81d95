package chat

import (
	"context"

	"github.com/tombury59/PWA-CHAT/internal/offline"
	"github.com/tombury59/PWA-CHAT/internal/storage"
)

// Repository persists per-room message histories in local storage. The whole
// list is written on every change; histories are only ever overwritten, never
// merged.
type Repository struct {
	store storage.Store
}

// NewRepository creates a history repository over the given store.
func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// Load returns the persisted history for a room. A missing or corrupt entry
// yields an empty history.
func (r *Repository) Load(ctx context.Context, roomID string) ([]Message, error) {
	var msgs []Message
	if _, err := storage.GetJSON(ctx, r.store, storage.RoomMessagesKey(roomID), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Save overwrites the persisted history for a room.
func (r *Repository) Save(ctx context.Context, roomID string, msgs []Message) error {
	return storage.SetJSON(ctx, r.store, storage.RoomMessagesKey(roomID), msgs)
}

// RestoreFromCache seeds a room's history from the received-messages mirror.
// Only an empty history is seeded; an existing one is never overwritten.
// It reports whether anything was restored.
func RestoreFromCache(ctx context.Context, repo *Repository, cache *offline.Cache, roomID string) (bool, error) {
	history, err := repo.Load(ctx, roomID)
	if err != nil || len(history) > 0 {
		return false, err
	}
	var cached []Message
	ok, err := cache.Cached(ctx, roomID, &cached)
	if err != nil || !ok || len(cached) == 0 {
		return false, err
	}
	return true, repo.Save(ctx, roomID, cached)
}
