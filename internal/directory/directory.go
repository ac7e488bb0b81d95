package directory

import (
	"context"
	"strings"
	"sync"
)

// RoomAPI is what the directory needs from the REST client.
type RoomAPI interface {
	Rooms(ctx context.Context) ([]byte, error)
	CreateRoom(ctx context.Context, name string) error
}

// Room pairs the wire name with its decoded display form.
type Room struct {
	Name    string
	Decoded string
}

// Directory holds the fetched room list and implements the search/create
// rules: the search field doubles as the new room name, and creation is only
// offered when the filter matches nothing.
type Directory struct {
	api RoomAPI

	mu    sync.Mutex
	rooms []Room
}

// New creates an empty directory; call Refresh to populate it.
func New(api RoomAPI) *Directory {
	return &Directory{api: api}
}

// Refresh refetches the room list. On error the previous list is kept so
// the view can show a banner next to stale-but-usable data.
func (d *Directory) Refresh(ctx context.Context) error {
	body, err := d.api.Rooms(ctx)
	if err != nil {
		return err
	}
	names := ParseRooms(body)
	rooms := make([]Room, 0, len(names))
	for _, n := range names {
		rooms = append(rooms, Room{Name: n, Decoded: DecodeName(n)})
	}

	d.mu.Lock()
	d.rooms = rooms
	d.mu.Unlock()
	return nil
}

// Rooms returns the current list.
func (d *Directory) Rooms() []Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Room, len(d.rooms))
	copy(out, d.rooms)
	return out
}

// Filter returns the rooms whose decoded name contains query,
// case-insensitively. An empty query returns everything.
func (d *Directory) Filter(query string) []Room {
	query = strings.ToLower(strings.TrimSpace(query))
	all := d.Rooms()
	if query == "" {
		return all
	}
	var out []Room
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.Decoded), query) {
			out = append(out, r)
		}
	}
	return out
}

// CanCreate reports whether query names a creatable room: non-empty and
// matching no existing entry.
func (d *Directory) CanCreate(query string) bool {
	return strings.TrimSpace(query) != "" && len(d.Filter(query)) == 0
}

// Create asks the server for a new room named query, refetches the
// directory and returns the created room for navigation.
func (d *Directory) Create(ctx context.Context, query string) (Room, error) {
	name := strings.TrimSpace(query)
	if err := d.api.CreateRoom(ctx, name); err != nil {
		return Room{}, err
	}
	if err := d.Refresh(ctx); err != nil {
		return Room{}, err
	}
	return Room{Name: name, Decoded: DecodeName(name)}, nil
}
