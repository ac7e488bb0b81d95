package directory

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/tombury59/PWA-CHAT/internal/chat"
	"github.com/tombury59/PWA-CHAT/internal/socket"
	"github.com/tombury59/PWA-CHAT/internal/storage"
)

// Notifier is the platform notification surface. Granted mirrors the
// permission check: without it nothing fires.
type Notifier interface {
	Granted() bool
	Notify(room, from, content string)
}

// watchedMessage is a chat-msg as the watcher sees it: messages broadcast to
// subscribed-but-not-open rooms carry the room name alongside the usual
// fields.
type watchedMessage struct {
	chat.Message
	RoomName string `json:"roomName"`
}

// Watcher implements the per-room notification opt-in. Toggling a room
// subscribes the client to that room's channel independent of which room is
// open; while subscribed, any non-INFO message not authored by the current
// user raises a platform notification.
type Watcher struct {
	sock     socket.Socket
	store    storage.Store
	notifier Notifier
	selfName func() string

	mu        sync.Mutex
	optIn     map[string]bool
	handlerID int
}

// NewWatcher loads the persisted opt-in set and starts listening. selfName
// is read per message so a profile rename takes effect immediately.
func NewWatcher(ctx context.Context, sock socket.Socket, store storage.Store, notifier Notifier, selfName func() string) (*Watcher, error) {
	w := &Watcher{
		sock:     sock,
		store:    store,
		notifier: notifier,
		selfName: selfName,
		optIn:    make(map[string]bool),
	}
	if _, err := storage.GetJSON(ctx, store, storage.KeyNotifyRooms, &w.optIn); err != nil {
		return nil, err
	}
	w.handlerID = sock.On(socket.EventMessage, w.handleMessage)
	if sock.Connected() {
		w.Resubscribe()
	}
	return w, nil
}

// Resubscribe re-announces every opted-in room so the server keeps routing
// them to this client. The server drops channel memberships with the
// transport, so this must run on every connected transition, not just at
// construction.
func (w *Watcher) Resubscribe() {
	w.mu.Lock()
	rooms := make([]string, 0, len(w.optIn))
	for room, enabled := range w.optIn {
		if enabled {
			rooms = append(rooms, room)
		}
	}
	w.mu.Unlock()

	for _, room := range rooms {
		w.subscribe(room)
	}
}

// Enabled reports the opt-in state for a room.
func (w *Watcher) Enabled(room string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.optIn[room]
}

// SetEnabled toggles the opt-in for a room, persists the set, and
// subscribes/unsubscribes the channel.
func (w *Watcher) SetEnabled(ctx context.Context, room string, enabled bool) error {
	w.mu.Lock()
	if enabled {
		w.optIn[room] = true
	} else {
		delete(w.optIn, room)
	}
	optIn := make(map[string]bool, len(w.optIn))
	for k, v := range w.optIn {
		optIn[k] = v
	}
	w.mu.Unlock()

	if err := storage.SetJSON(ctx, w.store, storage.KeyNotifyRooms, optIn); err != nil {
		return err
	}
	if enabled {
		w.subscribe(room)
	} else {
		w.unsubscribe(room)
	}
	return nil
}

func (w *Watcher) subscribe(room string) {
	err := w.sock.Emit(socket.EventJoinRoom, map[string]string{
		"pseudo": w.selfName(), "roomName": room,
	})
	if err != nil {
		log.Printf("⚠️ Could not subscribe to %s: %v", room, err)
	}
}

func (w *Watcher) unsubscribe(room string) {
	err := w.sock.Emit(socket.EventLeaveRoom, map[string]string{
		"pseudo": w.selfName(), "roomName": room,
	})
	if err != nil {
		log.Printf("⚠️ Could not unsubscribe from %s: %v", room, err)
	}
}

func (w *Watcher) handleMessage(data json.RawMessage) {
	if !w.notifier.Granted() {
		return
	}
	var msg watchedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Categorie == chat.CategoryInfo || msg.RoomName == "" {
		return
	}
	if msg.Pseudo == w.selfName() {
		return
	}
	if !w.Enabled(msg.RoomName) {
		return
	}
	w.notifier.Notify(msg.RoomName, msg.Pseudo, msg.Content)
}

// Close removes the channel listener. Opt-ins stay persisted.
func (w *Watcher) Close() {
	w.sock.Off(socket.EventMessage, w.handlerID)
}
