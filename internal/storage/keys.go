package storage

// Fixed keys in the flat persistence namespace. The names match the ones the
// chat API's web front-end uses so a shared Redis backend stays compatible.
const (
	KeyUserName      = "userName"
	KeyUserPhoto     = "userPhoto"
	KeyGalleryPhotos = "userGalleryPhotos"
	KeyNotifyRooms   = "chat_notify_rooms"
	KeyOutbox        = "pwa-chat-outbox"
	KeyMessagesCache = "pwa-chat-messages-cache"

	// RoomMessagesPrefix + <roomID> holds a room's persisted history.
	RoomMessagesPrefix = "chat_messages_"
)

// RoomMessagesKey returns the history key for a room.
func RoomMessagesKey(roomID string) string {
	return RoomMessagesPrefix + roomID
}
