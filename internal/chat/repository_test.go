package chat

import (
	"context"
	"testing"

	"github.com/tombury59/PWA-CHAT/internal/offline"
	"github.com/tombury59/PWA-CHAT/internal/storage"
)

func newRepoStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRestoreFromCacheSeedsEmptyHistory(t *testing.T) {
	store := newRepoStore(t)
	repo := NewRepository(store)
	cache := offline.NewCache(store)
	ctx := context.Background()

	mirrored := []Message{
		{Pseudo: "bob", Content: "coucou", DateEmis: "2026-08-28T10:00:00Z", Categorie: CategoryMessage},
		{Pseudo: "alice", Content: "salut", DateEmis: "2026-08-28T10:00:01Z", Categorie: CategoryMessage},
	}
	if err := cache.SaveReceived(ctx, "general", mirrored); err != nil {
		t.Fatalf("SaveReceived: %v", err)
	}

	restored, err := RestoreFromCache(ctx, repo, cache, "general")
	if err != nil {
		t.Fatalf("RestoreFromCache: %v", err)
	}
	if !restored {
		t.Fatal("nothing restored from a populated mirror")
	}

	history, err := repo.Load(ctx, "general")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(history) != 2 || !history[0].Equal(mirrored[0]) || !history[1].Equal(mirrored[1]) {
		t.Fatalf("history = %v, want the mirrored messages", history)
	}
}

func TestRestoreFromCacheKeepsExistingHistory(t *testing.T) {
	store := newRepoStore(t)
	repo := NewRepository(store)
	cache := offline.NewCache(store)
	ctx := context.Background()

	existing := []Message{{Pseudo: "bob", Content: "original", DateEmis: "2026-08-28T09:00:00Z", Categorie: CategoryMessage}}
	if err := repo.Save(ctx, "general", existing); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := cache.SaveReceived(ctx, "general", []Message{
		{Pseudo: "eve", Content: "stale", DateEmis: "2026-08-28T08:00:00Z", Categorie: CategoryMessage},
	}); err != nil {
		t.Fatalf("SaveReceived: %v", err)
	}

	restored, err := RestoreFromCache(ctx, repo, cache, "general")
	if err != nil {
		t.Fatalf("RestoreFromCache: %v", err)
	}
	if restored {
		t.Fatal("restore overwrote an existing history")
	}

	history, err := repo.Load(ctx, "general")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(history) != 1 || !history[0].Equal(existing[0]) {
		t.Fatalf("history = %v, want it untouched", history)
	}
}

func TestRestoreFromCacheWithEmptyMirror(t *testing.T) {
	store := newRepoStore(t)
	repo := NewRepository(store)
	cache := offline.NewCache(store)

	restored, err := RestoreFromCache(context.Background(), repo, cache, "general")
	if err != nil {
		t.Fatalf("RestoreFromCache: %v", err)
	}
	if restored {
		t.Fatal("restored from a mirror that holds nothing")
	}
}
