package socket

import "context"

// State describes the provider's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Transport is one way of reaching the server. The provider tries its
// transports in preference order and keeps the first that dials.
type Transport interface {
	// Name identifies the transport ("websocket", "longpoll").
	Name() string
	// Dial establishes the connection. The context bounds the dial only.
	Dial(ctx context.Context) error
	// Send transmits one encoded frame.
	Send(frame []byte) error
	// SetReceiveHandler sets the callback for incoming frames.
	// Must be called before Dial.
	SetReceiveHandler(fn func(frame []byte))
	// SetCloseHandler sets the callback fired once when the connection is
	// lost or closed. Must be called before Dial.
	SetCloseHandler(fn func(err error))
	// Close tears the connection down. Safe to call more than once.
	Close() error
}
