// Package profile manages the local user identity (display name and avatar
// photo) and the photo gallery, all backed by local persistence.
package profile

import (
	"context"

	"github.com/tombury59/PWA-CHAT/internal/storage"
)

// Manager reads and writes the profile under its fixed keys.
type Manager struct {
	store storage.Store
}

// NewManager creates a profile manager over the given store.
func NewManager(store storage.Store) *Manager {
	return &Manager{store: store}
}

// Name returns the stored display name, empty if unset.
func (m *Manager) Name(ctx context.Context) string {
	name, _, _ := m.store.Get(ctx, storage.KeyUserName)
	return name
}

// SetName stores the display name.
func (m *Manager) SetName(ctx context.Context, name string) error {
	return m.store.Set(ctx, storage.KeyUserName, name)
}

// Photo returns the stored avatar (data URI or URL), empty if unset.
func (m *Manager) Photo(ctx context.Context) string {
	photo, _, _ := m.store.Get(ctx, storage.KeyUserPhoto)
	return photo
}

// SetPhoto stores the avatar payload.
func (m *Manager) SetPhoto(ctx context.Context, photo string) error {
	return m.store.Set(ctx, storage.KeyUserPhoto, photo)
}

// Complete reports whether the profile can continue into the app: both name
// and photo must be non-empty.
func (m *Manager) Complete(ctx context.Context) bool {
	return m.Name(ctx) != "" && m.Photo(ctx) != ""
}

// Logout clears the name, the photo and the gallery, returning the client
// to the unauthenticated state.
func (m *Manager) Logout(ctx context.Context) error {
	for _, key := range []string{storage.KeyUserName, storage.KeyUserPhoto, storage.KeyGalleryPhotos} {
		if err := m.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
