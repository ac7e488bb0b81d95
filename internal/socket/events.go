// Package socket owns the client's single long-lived connection to the chat
// server. The Provider creates the handle once near the application root;
// everything else only emits and listens.
package socket

import "encoding/json"

// Event names on the room channel, as the chat API defines them.
const (
	EventJoinRoom     = "chat-join-room"
	EventLeaveRoom    = "chat-leave-room"
	EventMessage      = "chat-msg"
	EventRoomJoined   = "chat-joined-room"
	EventDisconnected = "chat-disconnected"
)

// Frame is the wire format: one JSON text frame per event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler receives the data part of a frame for a subscribed event.
type Handler func(data json.RawMessage)

// Socket is the consumer-facing surface of the Provider. Consumers may emit
// and listen; only the Provider may create or destroy the connection.
type Socket interface {
	Emit(event string, data any) error
	On(event string, fn Handler) int
	Off(event string, id int)
	Connected() bool
}
