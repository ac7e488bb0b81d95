package offline

import (
	"context"
	"testing"

	"github.com/tombury59/PWA-CHAT/internal/storage"
)

func newOfflineStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOutboxQueueOrder(t *testing.T) {
	o := NewOutbox(newOfflineStore(t))
	ctx := context.Background()

	for _, content := range []string{"premier", "deuxième", "troisième"} {
		if err := o.Queue(ctx, "general", content); err != nil {
			t.Fatalf("Queue(%s): %v", content, err)
		}
	}

	pending, err := o.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("pending = %d entries, want 3", len(pending))
	}
	for i, want := range []string{"premier", "deuxième", "troisième"} {
		if pending[i].Content != want {
			t.Fatalf("pending[%d] = %q, want %q (queue order)", i, pending[i].Content, want)
		}
		if pending[i].ID == "" || pending[i].QueuedAt.IsZero() {
			t.Fatalf("pending[%d] missing id or timestamp: %+v", i, pending[i])
		}
	}
}

func TestOutboxClearRoom(t *testing.T) {
	o := NewOutbox(newOfflineStore(t))
	ctx := context.Background()

	o.Queue(ctx, "general", "un")
	o.Queue(ctx, "random", "deux")
	o.Queue(ctx, "general", "trois")

	if err := o.ClearRoom(ctx, "general"); err != nil {
		t.Fatalf("ClearRoom: %v", err)
	}
	pending, _ := o.Pending(ctx)
	if len(pending) != 1 || pending[0].RoomName != "random" {
		t.Fatalf("pending = %v, want only the other room", pending)
	}
}

func TestOutboxClear(t *testing.T) {
	o := NewOutbox(newOfflineStore(t))
	ctx := context.Background()

	o.Queue(ctx, "general", "un")
	if err := o.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	pending, err := o.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %v after Clear, want none", pending)
	}
}

func TestOutboxSurvivesReopen(t *testing.T) {
	store := newOfflineStore(t)
	ctx := context.Background()

	if err := NewOutbox(store).Queue(ctx, "general", "persisté"); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	// A new outbox over the same store sees the queued entry.
	pending, err := NewOutbox(store).Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Content != "persisté" {
		t.Fatalf("pending = %v, want the persisted entry", pending)
	}
}

type cachedMessage struct {
	Pseudo  string `json:"pseudo"`
	Content string `json:"content"`
}

func TestCachePerRoomSlots(t *testing.T) {
	c := NewCache(newOfflineStore(t))
	ctx := context.Background()

	general := []cachedMessage{{Pseudo: "alice", Content: "salut"}}
	random := []cachedMessage{{Pseudo: "bob", Content: "yo"}}
	if err := c.SaveReceived(ctx, "general", general); err != nil {
		t.Fatalf("SaveReceived: %v", err)
	}
	if err := c.SaveReceived(ctx, "random", random); err != nil {
		t.Fatalf("SaveReceived: %v", err)
	}

	var got []cachedMessage
	ok, err := c.Cached(ctx, "general", &got)
	if err != nil || !ok {
		t.Fatalf("Cached = ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Content != "salut" {
		t.Fatalf("Cached(general) = %v", got)
	}

	// Overwriting one slot leaves the others alone.
	if err := c.SaveReceived(ctx, "general", []cachedMessage{}); err != nil {
		t.Fatalf("SaveReceived overwrite: %v", err)
	}
	got = nil
	if ok, _ := c.Cached(ctx, "random", &got); !ok || len(got) != 1 {
		t.Fatalf("Cached(random) = ok=%v %v, want untouched", ok, got)
	}
}

func TestCacheMissingRoom(t *testing.T) {
	c := NewCache(newOfflineStore(t))

	got := []cachedMessage{{Pseudo: "x", Content: "untouched"}}
	ok, err := c.Cached(context.Background(), "nowhere", &got)
	if err != nil || ok {
		t.Fatalf("Cached(missing) = ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Content != "untouched" {
		t.Fatalf("dest mutated on miss: %v", got)
	}
}

func TestCacheCorruptSlotDegrades(t *testing.T) {
	store := newOfflineStore(t)
	c := NewCache(store)
	ctx := context.Background()

	if err := store.Set(ctx, storage.KeyMessagesCache, `{"room-general": "not an array"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got []cachedMessage
	ok, err := c.Cached(ctx, "general", &got)
	if err != nil {
		t.Fatalf("Cached on corrupt slot: %v", err)
	}
	if ok || len(got) != 0 {
		t.Fatalf("Cached = ok=%v %v, corrupt slot must read as a miss", ok, got)
	}
}
