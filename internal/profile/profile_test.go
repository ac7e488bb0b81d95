package profile

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tombury59/PWA-CHAT/internal/storage"
)

func newProfileStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestManagerCompleteRequiresBoth(t *testing.T) {
	m := NewManager(newProfileStore(t))
	ctx := context.Background()

	if m.Complete(ctx) {
		t.Fatal("empty profile reported complete")
	}

	if err := m.SetName(ctx, "alice"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if m.Complete(ctx) {
		t.Fatal("name-only profile reported complete")
	}

	if err := m.SetPhoto(ctx, "data:image/jpeg;base64,AAAA"); err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	if !m.Complete(ctx) {
		t.Fatal("full profile reported incomplete")
	}
}

func TestManagerLogoutClearsEverything(t *testing.T) {
	store := newProfileStore(t)
	m := NewManager(store)
	g := NewGallery(store)
	ctx := context.Background()

	if err := m.SetName(ctx, "alice"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := m.SetPhoto(ctx, "data:image/jpeg;base64,AAAA"); err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	if err := g.Add(ctx, "data:image/jpeg;base64,BBBB"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := m.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if m.Name(ctx) != "" || m.Photo(ctx) != "" {
		t.Fatal("profile survived logout")
	}
	photos, err := g.Photos(ctx)
	if err != nil {
		t.Fatalf("Photos: %v", err)
	}
	if len(photos) != 0 {
		t.Fatalf("gallery survived logout: %v", photos)
	}
}

func TestGalleryAddAndDelete(t *testing.T) {
	g := NewGallery(newProfileStore(t))
	ctx := context.Background()

	for _, p := range []string{"a", "b", "c"} {
		if err := g.Add(ctx, p); err != nil {
			t.Fatalf("Add(%s): %v", p, err)
		}
	}

	if err := g.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	photos, err := g.Photos(ctx)
	if err != nil {
		t.Fatalf("Photos: %v", err)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(photos, want) {
		t.Fatalf("Photos = %v, want %v", photos, want)
	}
}

func TestGalleryDeleteOutOfRange(t *testing.T) {
	g := NewGallery(newProfileStore(t))
	ctx := context.Background()

	if err := g.Add(ctx, "a"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	for _, index := range []int{-1, 1, 42} {
		if err := g.Delete(ctx, index); !errors.Is(err, ErrNoSuchPhoto) {
			t.Fatalf("Delete(%d) = %v, want ErrNoSuchPhoto", index, err)
		}
	}
}

func TestGalleryDeleteLastPersistsEmptyArray(t *testing.T) {
	store := newProfileStore(t)
	g := NewGallery(store)
	ctx := context.Background()

	if err := g.Add(ctx, "a"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := g.Delete(ctx, 0); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// The empty list stays persisted as a literal empty array, not removed.
	raw, ok, err := store.Get(ctx, storage.KeyGalleryPhotos)
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v, want the key present", ok, err)
	}
	if raw != "[]" {
		t.Fatalf("persisted gallery = %q, want []", raw)
	}
}

func TestGalleryCorruptDataDegradesToEmpty(t *testing.T) {
	store := newProfileStore(t)
	g := NewGallery(store)
	ctx := context.Background()

	if err := store.Set(ctx, storage.KeyGalleryPhotos, "{broken"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	photos, err := g.Photos(ctx)
	if err != nil {
		t.Fatalf("Photos on corrupt data: %v", err)
	}
	if len(photos) != 0 {
		t.Fatalf("Photos = %v, want empty", photos)
	}
}
