package socket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrNotConnected is returned by Emit while no transport is up.
var ErrNotConnected = errors.New("socket: not connected")

// Config drives the provider's connect and reconnect policy.
type Config struct {
	URL   string
	Token string
	// MaxRetries caps reconnection rounds after the first attempt.
	MaxRetries int
	// BackoffBase is doubled per attempt, capped at BackoffCap.
	BackoffBase time.Duration
	BackoffCap  time.Duration
	DialTimeout time.Duration
}

// DefaultConfig returns the standard policy for the given server URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:         url,
		MaxRetries:  5,
		BackoffBase: 500 * time.Millisecond,
		BackoffCap:  10 * time.Second,
		DialTimeout: 10 * time.Second,
	}
}

// Provider owns the shared connection handle. It is created once, never
// connects on construction, and connects/disconnects on network availability
// signals (SetOnline). Consumers see it through the Socket interface only.
type Provider struct {
	cfg        Config
	transports []Transport

	mu            sync.Mutex
	state         State
	active        Transport
	online        bool
	cancelConnect context.CancelFunc
	handlers      map[string]map[int]Handler
	nextID        int
	stateFns      []func(State)

	// sleep is overridable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewProvider creates the handle with the given transports in preference
// order. With no transports it defaults to websocket, then long-poll.
func NewProvider(cfg Config, transports ...Transport) *Provider {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 10 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if len(transports) == 0 {
		transports = []Transport{
			NewWebSocket(cfg.URL, cfg.Token),
			NewLongPoll(cfg.URL, cfg.Token),
		}
	}
	return &Provider{
		cfg:        cfg,
		transports: transports,
		state:      StateDisconnected,
		handlers:   make(map[string]map[int]Handler),
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetOnline feeds the network availability signal: true triggers a connect,
// false disconnects and suppresses retries until the next true.
func (p *Provider) SetOnline(online bool) {
	p.mu.Lock()
	if p.online == online {
		p.mu.Unlock()
		return
	}
	p.online = online

	if online {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancelConnect = cancel
		p.mu.Unlock()
		go p.connect(ctx, cancel)
		return
	}

	if p.cancelConnect != nil {
		p.cancelConnect()
		p.cancelConnect = nil
	}
	active := p.active
	p.active = nil
	p.mu.Unlock()

	if active != nil {
		active.Close()
	}
	p.setState(StateDisconnected)
}

// connect runs one bounded round of attempts over the transport preference
// list. Exhausting the round leaves the provider disconnected until the next
// online signal or transport-loss retry. The round's context is released
// when the round ends, however it ends.
func (p *Provider) connect(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	p.setState(StateConnecting)

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.cfg.BackoffBase << (attempt - 1)
			if delay > p.cfg.BackoffCap {
				delay = p.cfg.BackoffCap
			}
			if err := p.sleep(ctx, delay); err != nil {
				return // disconnected while waiting
			}
		}
		for _, tr := range p.transports {
			if ctx.Err() != nil {
				return
			}
			tr := tr
			tr.SetReceiveHandler(p.dispatch)
			tr.SetCloseHandler(func(err error) { p.transportClosed(tr, err) })

			dialCtx, cancel := context.WithTimeout(ctx, p.cfg.DialTimeout)
			err := tr.Dial(dialCtx)
			cancel()
			if err != nil {
				log.Printf("⚠️ %s dial failed (attempt %d): %v", tr.Name(), attempt+1, err)
				continue
			}

			p.mu.Lock()
			if !p.online {
				p.mu.Unlock()
				tr.Close()
				return
			}
			p.active = tr
			p.mu.Unlock()
			p.setState(StateConnected)
			log.Printf("✅ Connected via %s", tr.Name())
			return
		}
	}

	log.Printf("❌ Could not reach %s, giving up until back online", p.cfg.URL)
	p.setState(StateDisconnected)
}

// transportClosed handles transport loss. Stale callbacks from transports we
// already abandoned are ignored.
func (p *Provider) transportClosed(tr Transport, err error) {
	p.mu.Lock()
	if p.active != tr {
		p.mu.Unlock()
		return
	}
	p.active = nil
	online := p.online
	if p.cancelConnect != nil {
		p.cancelConnect()
		p.cancelConnect = nil
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if online {
		ctx, cancel = context.WithCancel(context.Background())
		p.cancelConnect = cancel
	}
	p.mu.Unlock()

	if err != nil {
		log.Printf("⚠️ Transport %s lost: %v", tr.Name(), err)
	}
	p.setState(StateDisconnected)
	if online {
		go p.connect(ctx, cancel)
	}
}

// Emit sends one event frame. It fails fast while disconnected; queueing for
// later delivery is the caller's concern (see the offline outbox).
func (p *Provider) Emit(event string, data any) error {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	if active == nil {
		return ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		return err
	}
	return active.Send(frame)
}

// On registers a handler for an event and returns its id for Off.
func (p *Provider) On(event string, fn Handler) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	if p.handlers[event] == nil {
		p.handlers[event] = make(map[int]Handler)
	}
	p.handlers[event][p.nextID] = fn
	return p.nextID
}

// Off removes a handler registered with On.
func (p *Provider) Off(event string, id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handlers[event], id)
}

// Connected reports whether a transport is currently up.
func (p *Provider) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateConnected
}

// State returns the current lifecycle state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// OnStateChange registers a callback for lifecycle transitions.
func (p *Provider) OnStateChange(fn func(State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stateFns = append(p.stateFns, fn)
}

func (p *Provider) setState(s State) {
	p.mu.Lock()
	if p.state == s {
		p.mu.Unlock()
		return
	}
	p.state = s
	fns := make([]func(State), len(p.stateFns))
	copy(fns, p.stateFns)
	p.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// dispatch fans an incoming frame out to the event's handlers.
func (p *Provider) dispatch(raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		log.Printf("⚠️ Dropping malformed frame: %v", err)
		return
	}

	p.mu.Lock()
	fns := make([]Handler, 0, len(p.handlers[f.Event]))
	for _, fn := range p.handlers[f.Event] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(f.Data)
	}
}

// Close disconnects and removes every listener. The provider must not leak
// connections or callbacks across application lifetimes.
func (p *Provider) Close() {
	p.SetOnline(false)
	p.mu.Lock()
	p.handlers = make(map[string]map[int]Handler)
	p.stateFns = nil
	p.mu.Unlock()
}
