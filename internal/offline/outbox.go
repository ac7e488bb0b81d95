// Package offline implements the simple offline plumbing: a persisted queue
// of messages pending delivery and a per-room cache of received messages.
// Both are plain lists/maps with last-write-wins semantics; there is no
// conflict resolution.
package offline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tombury59/PWA-CHAT/internal/storage"
)

// Entry is one queued outgoing message.
type Entry struct {
	ID       string    `json:"id"`
	RoomName string    `json:"roomName"`
	Content  string    `json:"content"`
	QueuedAt time.Time `json:"queuedAt"`
}

// Outbox is the persisted queue of messages written while disconnected.
type Outbox struct {
	store storage.Store
}

// NewOutbox creates an outbox over the given store.
func NewOutbox(store storage.Store) *Outbox {
	return &Outbox{store: store}
}

// Queue appends a message to the outbox.
func (o *Outbox) Queue(ctx context.Context, roomName, content string) error {
	entries, err := o.Pending(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, Entry{
		ID:       uuid.New().String(),
		RoomName: roomName,
		Content:  content,
		QueuedAt: time.Now(),
	})
	return storage.SetJSON(ctx, o.store, storage.KeyOutbox, entries)
}

// Pending returns all queued entries in queue order.
func (o *Outbox) Pending(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if _, err := storage.GetJSON(ctx, o.store, storage.KeyOutbox, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ClearRoom drops the queued entries for one room, keeping the others.
func (o *Outbox) ClearRoom(ctx context.Context, roomName string) error {
	entries, err := o.Pending(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.RoomName != roomName {
			kept = append(kept, e)
		}
	}
	return storage.SetJSON(ctx, o.store, storage.KeyOutbox, kept)
}

// Clear drops the whole queue.
func (o *Outbox) Clear(ctx context.Context) error {
	return o.store.Delete(ctx, storage.KeyOutbox)
}
