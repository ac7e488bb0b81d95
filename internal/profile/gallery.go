package profile

import (
	"context"
	"errors"

	"github.com/tombury59/PWA-CHAT/internal/storage"
)

// ErrNoSuchPhoto is returned when deleting an index outside the gallery.
var ErrNoSuchPhoto = errors.New("profile: no photo at that index")

// Gallery is the ordered list of photo data URIs, persisted whole as a
// single serialized array. Add appends, Delete removes by index; nothing is
// diffed.
type Gallery struct {
	store storage.Store
}

// NewGallery creates a gallery over the given store.
func NewGallery(store storage.Store) *Gallery {
	return &Gallery{store: store}
}

// Photos returns the stored list; corrupt or missing data yields an empty
// gallery.
func (g *Gallery) Photos(ctx context.Context) ([]string, error) {
	var photos []string
	if _, err := storage.GetJSON(ctx, g.store, storage.KeyGalleryPhotos, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// Add appends a photo and persists the full list.
func (g *Gallery) Add(ctx context.Context, photo string) error {
	photos, err := g.Photos(ctx)
	if err != nil {
		return err
	}
	return g.save(ctx, append(photos, photo))
}

// Delete removes the photo at index and persists the full list. Deleting
// the last photo leaves the literal empty array persisted.
func (g *Gallery) Delete(ctx context.Context, index int) error {
	photos, err := g.Photos(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(photos) {
		return ErrNoSuchPhoto
	}
	return g.save(ctx, append(photos[:index], photos[index+1:]...))
}

func (g *Gallery) save(ctx context.Context, photos []string) error {
	if photos == nil {
		photos = []string{}
	}
	return storage.SetJSON(ctx, g.store, storage.KeyGalleryPhotos, photos)
}
