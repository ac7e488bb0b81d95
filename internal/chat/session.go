package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/tombury59/PWA-CHAT/internal/media"
	"github.com/tombury59/PWA-CHAT/internal/offline"
	"github.com/tombury59/PWA-CHAT/internal/socket"
)

// ErrEmptyMessage is returned by Send for empty or whitespace-only input;
// nothing is emitted in that case.
var ErrEmptyMessage = errors.New("chat: refusing to send empty message")

// JoinState is the session's explicit channel-membership state. Guarded
// transitions make double joins structurally impossible.
type JoinState int

const (
	StateIdle JoinState = iota
	StateJoining
	StateJoined
)

// Resolver fetches the payload behind a deferred image reference.
type Resolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// Session synchronizes one (room, pseudo) pair with the channel. It owns the
// in-memory message list, keeps the persisted copy in step, and resolves
// deferred images in the background for as long as it is open.
type Session struct {
	roomID   string
	pseudo   string
	sock     socket.Socket
	repo     *Repository
	resolver Resolver
	outbox   *offline.Outbox

	mu        sync.Mutex
	state     JoinState
	messages  []Message
	handlerID int
	onUpdate  func([]Message)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession builds a session. The outbox may be nil, in which case sends
// while disconnected simply fail.
func NewSession(roomID, pseudo string, sock socket.Socket, repo *Repository, resolver Resolver, outbox *offline.Outbox) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		roomID:   roomID,
		pseudo:   pseudo,
		sock:     sock,
		repo:     repo,
		resolver: resolver,
		outbox:   outbox,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnUpdate registers the render callback, invoked with a copy of the list
// after every change.
func (s *Session) OnUpdate(fn func([]Message)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Open loads the persisted history (so a rejoin shows messages before any
// live event), starts resolving any still-deferred cached images, subscribes
// to the channel and joins it if the handle is live.
func (s *Session) Open(ctx context.Context) error {
	history, err := s.repo.Load(ctx, s.roomID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.messages = history
	s.handlerID = s.sock.On(socket.EventMessage, s.handleIncoming)
	s.mu.Unlock()
	s.notify()

	// Cached messages may still hold an image URL from an interrupted
	// resolution; retry them in parallel.
	for i, msg := range history {
		if id, ok := media.ParseImageURL(msg.Content); ok {
			s.resolveAt(i, id)
		}
	}

	if s.sock.Connected() {
		return s.Join()
	}
	return nil
}

// Join announces the pseudo on the room channel. Only an idle session may
// join; repeated calls are no-ops.
func (s *Session) Join() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil
	}
	s.state = StateJoining
	s.mu.Unlock()

	err := s.sock.Emit(socket.EventJoinRoom, joinPayload{Pseudo: s.pseudo, RoomName: s.roomID})

	s.mu.Lock()
	if err != nil {
		s.state = StateIdle
	} else {
		s.state = StateJoined
	}
	s.mu.Unlock()
	return err
}

// Leave announces the departure and returns the session to idle. Leaving an
// idle session is a no-op.
func (s *Session) Leave() error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return nil
	}
	s.state = StateIdle
	s.mu.Unlock()

	return s.sock.Emit(socket.EventLeaveRoom, joinPayload{Pseudo: s.pseudo, RoomName: s.roomID})
}

// Close leaves the room, removes the channel listener and cancels in-flight
// image resolutions. The session must not write to storage after Close.
func (s *Session) Close() {
	s.Leave()

	s.mu.Lock()
	id := s.handlerID
	s.handlerID = 0
	s.mu.Unlock()
	if id != 0 {
		s.sock.Off(socket.EventMessage, id)
	}

	s.cancel()
	s.wg.Wait()
}

// Send emits the content on the channel. The message is not appended
// locally; it comes back through the incoming stream (echo model). While
// disconnected, the message is queued in the outbox if one is configured.
func (s *Session) Send(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	err := s.sock.Emit(socket.EventMessage, sendPayload{Content: content, RoomName: s.roomID})
	if errors.Is(err, socket.ErrNotConnected) && s.outbox != nil {
		return s.outbox.Queue(s.ctx, s.roomID, content)
	}
	return err
}

// FlushOutbox re-sends queued messages, typically wired to the provider's
// reconnect transition. The queue is cleared only after every entry for this
// room went out.
func (s *Session) FlushOutbox() error {
	if s.outbox == nil {
		return nil
	}
	pending, err := s.outbox.Pending(s.ctx)
	if err != nil {
		return err
	}
	for _, entry := range pending {
		if entry.RoomName != s.roomID {
			continue
		}
		if err := s.sock.Emit(socket.EventMessage, sendPayload{Content: entry.Content, RoomName: s.roomID}); err != nil {
			return err
		}
	}
	return s.outbox.ClearRoom(s.ctx, s.roomID)
}

// Messages returns a copy of the current list in arrival order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the current join state.
func (s *Session) State() JoinState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) handleIncoming(data json.RawMessage) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("⚠️ Dropping malformed chat-msg: %v", err)
		return
	}
	s.ingest(msg)
}

// ingest appends a novel message and persists the updated list. Duplicates
// are detected by the (dateEmis, content, pseudo) triple and dropped
// silently. Two genuinely distinct messages with identical text from the
// same sender in the same millisecond would collide here; the server assigns
// no ids, so the triple is the best available key.
func (s *Session) ingest(msg Message) {
	s.mu.Lock()
	for _, existing := range s.messages {
		if existing.Equal(msg) {
			s.mu.Unlock()
			return
		}
	}
	s.messages = append(s.messages, msg)
	idx := len(s.messages) - 1
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	if id, ok := media.ParseNotice(msg.Content); ok {
		s.resolveAt(idx, id)
	}
}

// resolveAt fetches a deferred image in the background and swaps the payload
// into the message at idx, in memory and in the persisted history. The loop
// dies with the session context; on exhausted retries the notice text stays.
func (s *Session) resolveAt(idx int, id string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		payload, err := s.resolver.Resolve(s.ctx, id)
		if err != nil {
			if s.ctx.Err() == nil {
				log.Printf("⚠️ Image %s left unresolved: %v", id, err)
			}
			return
		}

		s.mu.Lock()
		if idx >= len(s.messages) {
			s.mu.Unlock()
			return
		}
		s.messages[idx].Content = payload
		s.persistLocked()
		s.mu.Unlock()
		s.notify()
	}()
}

// persistLocked writes the current list under the room's history key.
// Callers hold s.mu.
func (s *Session) persistLocked() {
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	if err := s.repo.Save(s.ctx, s.roomID, msgs); err != nil && s.ctx.Err() == nil {
		log.Printf("⚠️ Could not persist history for %s: %v", s.roomID, err)
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onUpdate
	var msgs []Message
	if fn != nil {
		msgs = make([]Message, len(s.messages))
		copy(msgs, s.messages)
	}
	s.mu.Unlock()
	if fn != nil {
		fn(msgs)
	}
}
