package socket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const pollTimeout = 30 * time.Second

// LongPollTransport is the fallback when a websocket cannot be established:
// frames go out as individual POSTs and come in through a blocking GET loop
// against the same API origin.
type LongPollTransport struct {
	base   string
	token  string
	sid    string
	client *http.Client

	recv    func([]byte)
	onClose func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// NewLongPoll builds the long-poll transport for the server at base.
func NewLongPoll(base, token string) *LongPollTransport {
	return &LongPollTransport{
		base:   strings.TrimSuffix(base, "/") + "/socketio/poll",
		token:  token,
		client: &http.Client{Timeout: pollTimeout + 10*time.Second},
	}
}

func (t *LongPollTransport) Name() string { return "longpoll" }

func (t *LongPollTransport) SetReceiveHandler(fn func(frame []byte)) { t.recv = fn }
func (t *LongPollTransport) SetCloseHandler(fn func(err error))      { t.onClose = fn }

func (t *LongPollTransport) Dial(ctx context.Context) error {
	t.sid = uuid.New().String()

	// An empty POST opens the session server-side.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.sessionURL(), nil)
	if err != nil {
		return err
	}
	t.authorize(req)
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("longpoll: open returned HTTP %d", resp.StatusCode)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.cancel = cancel
	t.closed = false
	t.mu.Unlock()

	go t.pollLoop(loopCtx)
	return nil
}

func (t *LongPollTransport) sessionURL() string {
	return t.base + "?sid=" + t.sid
}

func (t *LongPollTransport) authorize(req *http.Request) {
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
}

// pollLoop blocks on GETs; each response body is a JSON array of frames.
func (t *LongPollTransport) pollLoop(ctx context.Context) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.sessionURL(), nil)
		if err != nil {
			t.teardown(err)
			return
		}
		t.authorize(req)
		resp, err := t.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				t.teardown(nil)
			} else {
				t.teardown(err)
			}
			return
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.teardown(err)
			return
		}
		if resp.StatusCode == http.StatusNoContent {
			continue // poll timeout, nothing pending
		}
		if resp.StatusCode != http.StatusOK {
			t.teardown(fmt.Errorf("longpoll: poll returned HTTP %d", resp.StatusCode))
			return
		}

		var frames []json.RawMessage
		if err := json.Unmarshal(body, &frames); err != nil {
			t.teardown(fmt.Errorf("longpoll: bad poll body: %w", err))
			return
		}
		for _, f := range frames {
			if t.recv != nil {
				t.recv([]byte(f))
			}
		}
	}
}

func (t *LongPollTransport) Send(frame []byte) error {
	t.mu.Lock()
	closed := t.closed || t.cancel == nil
	t.mu.Unlock()
	if closed {
		return errors.New("longpoll: not connected")
	}

	req, err := http.NewRequest(http.MethodPost, t.sessionURL(), bytes.NewReader(frame))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	t.authorize(req)
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("longpoll: send returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// teardown cancels the poll loop once and reports the cause upward.
func (t *LongPollTransport) teardown(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if t.onClose != nil {
		t.onClose(err)
	}
}

func (t *LongPollTransport) Close() error {
	t.teardown(nil)
	return nil
}
