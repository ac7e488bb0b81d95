// Package chat implements the room-scoped message synchronization layer:
// joining and leaving the channel, de-duplicating the incoming stream,
// persisting history locally, and resolving deferred images.
package chat

// Category separates user messages from server-generated notices.
type Category string

const (
	CategoryMessage Category = "MESSAGE"
	CategoryInfo    Category = "INFO"
)

// Message is one entry of a room's conversation, exactly as the channel
// delivers it. DateEmis is an ISO timestamp string; the server assigns no
// message ids.
type Message struct {
	Pseudo    string   `json:"pseudo"`
	Content   string   `json:"content"`
	DateEmis  string   `json:"dateEmis"`
	Categorie Category `json:"categorie"`
}

// Equal reports whether two messages match on the dedup triple
// (timestamp, content, sender).
func (m Message) Equal(other Message) bool {
	return m.DateEmis == other.DateEmis &&
		m.Content == other.Content &&
		m.Pseudo == other.Pseudo
}

// joinPayload is emitted on chat-join-room and chat-leave-room.
type joinPayload struct {
	Pseudo   string `json:"pseudo"`
	RoomName string `json:"roomName"`
}

// sendPayload is emitted on chat-msg. The server fills in sender and
// timestamp before echoing the message back.
type sendPayload struct {
	Content  string `json:"content"`
	RoomName string `json:"roomName"`
}
