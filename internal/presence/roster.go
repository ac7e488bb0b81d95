// Package presence tracks who is currently in the room, derived entirely
// from channel events. Nothing here is persisted.
package presence

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/tombury59/PWA-CHAT/internal/socket"
)

// fallbackName labels roster entries whose pseudo cannot be understood.
const fallbackName = "inconnu"

// snapshotPayload is the chat-joined-room event: the full client map keyed
// by connection id. Pseudo values are duck-typed (string or {username,...}),
// so they arrive raw and are normalized at this boundary.
type snapshotPayload struct {
	Clients map[string]struct {
		Pseudo json.RawMessage `json:"pseudo"`
	} `json:"clients"`
}

// disconnectPayload is the chat-disconnected event.
type disconnectPayload struct {
	ID string `json:"id"`
}

// Roster maintains the set of participants keyed by connection id.
type Roster struct {
	sock socket.Socket

	mu      sync.Mutex
	clients map[string]string
	joinID  int
	leaveID int
}

// NewRoster subscribes to the presence events. With a nil socket the roster
// subscribes to nothing and stays empty.
func NewRoster(sock socket.Socket) *Roster {
	r := &Roster{sock: sock, clients: make(map[string]string)}
	if sock == nil {
		return r
	}
	r.joinID = sock.On(socket.EventRoomJoined, r.handleSnapshot)
	r.leaveID = sock.On(socket.EventDisconnected, r.handleDisconnect)
	return r
}

// handleSnapshot replaces the whole roster with the event's client map.
func (r *Roster) handleSnapshot(data json.RawMessage) {
	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("⚠️ Dropping malformed chat-joined-room: %v", err)
		return
	}

	clients := make(map[string]string, len(payload.Clients))
	for id, c := range payload.Clients {
		clients[id] = normalizePseudo(c.Pseudo)
	}

	r.mu.Lock()
	r.clients = clients
	r.mu.Unlock()
}

// handleDisconnect removes a single participant by id.
func (r *Roster) handleDisconnect(data json.RawMessage) {
	var payload disconnectPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("⚠️ Dropping malformed chat-disconnected: %v", err)
		return
	}

	r.mu.Lock()
	delete(r.clients, payload.ID)
	r.mu.Unlock()
}

// normalizePseudo folds the duck-typed pseudo field into a display name:
// a plain string, a {username: ...} object, or the fallback label.
func normalizePseudo(raw json.RawMessage) string {
	if len(raw) == 0 {
		return fallbackName
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name == "" {
			return fallbackName
		}
		return name
	}
	var obj struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Username != "" {
		return obj.Username
	}
	return fallbackName
}

// Names returns the participants' display names. The contract leaves the
// order unspecified; sorting just keeps the rendered list stable.
func (r *Roster) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.clients))
	for _, name := range r.clients {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

// Close removes the event subscriptions.
func (r *Roster) Close() {
	if r.sock == nil {
		return
	}
	r.sock.Off(socket.EventRoomJoined, r.joinID)
	r.sock.Off(socket.EventDisconnected, r.leaveID)
}
