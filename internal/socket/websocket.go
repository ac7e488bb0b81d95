package socket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 1 << 20             // Messages may carry data-URI images.
	sendBuffer     = 256
)

// WebSocketTransport is the preferred transport: a single websocket with the
// usual ping/pong heartbeat and a buffered outbound channel.
type WebSocketTransport struct {
	url   string
	token string

	recv    func([]byte)
	onClose func(error)

	mu     sync.Mutex
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closed bool
}

// NewWebSocket builds a websocket transport for the server at base
// (http(s) URL); the socket endpoint lives under /socketio/ws. An optional
// bearer token is passed in the dial query, the way the API expects it.
func NewWebSocket(base, token string) *WebSocketTransport {
	return &WebSocketTransport{url: websocketURL(base), token: token}
}

func websocketURL(base string) string {
	u := base
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimSuffix(u, "/") + "/socketio/ws"
}

func (t *WebSocketTransport) Name() string { return "websocket" }

func (t *WebSocketTransport) SetReceiveHandler(fn func(frame []byte)) { t.recv = fn }
func (t *WebSocketTransport) SetCloseHandler(fn func(err error))      { t.onClose = fn }

func (t *WebSocketTransport) Dial(ctx context.Context) error {
	url := t.url
	if t.token != "" {
		url += "?token=" + t.token
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.send = make(chan []byte, sendBuffer)
	t.done = make(chan struct{})
	t.closed = false
	t.mu.Unlock()

	go t.readPump()
	go t.writePump()
	return nil
}

// readPump pumps frames from the websocket to the receive handler.
func (t *WebSocketTransport) readPump() {
	defer t.teardown(nil)

	t.conn.SetReadLimit(maxMessageSize)
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			t.teardown(err)
			return
		}
		if t.recv != nil {
			t.recv(message)
		}
	}
}

// writePump pumps queued frames to the websocket and keeps the heartbeat.
func (t *WebSocketTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case message := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				t.teardown(err)
				return
			}
			// Drain anything already queued, one websocket message per
			// frame so the receiving side can parse each on its own.
			n := len(t.send)
			for i := 0; i < n; i++ {
				t.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := t.conn.WriteMessage(websocket.TextMessage, <-t.send); err != nil {
					t.teardown(err)
					return
				}
			}
		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.teardown(err)
				return
			}
		}
	}
}

func (t *WebSocketTransport) Send(frame []byte) error {
	t.mu.Lock()
	if t.closed || t.send == nil {
		t.mu.Unlock()
		return errors.New("websocket: not connected")
	}
	send := t.send
	t.mu.Unlock()

	select {
	case send <- frame:
		return nil
	default:
		return errors.New("websocket: send buffer full")
	}
}

// teardown closes the connection once and reports the cause upward.
func (t *WebSocketTransport) teardown(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.done)
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if t.onClose != nil {
		t.onClose(err)
	}
}

func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	if t.closed || t.conn == nil {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	// Best effort: tell the peer we are leaving before dropping the socket.
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.teardown(nil)
	return nil
}
