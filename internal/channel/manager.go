// Package channel maintains the one realtime connection an authenticated
// session owns. Connection attempts are gated on the presence of an
// access token; named-event subscriptions live in a registry that
// survives any number of underlying reconnects and token rotations.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Status is the connection's lifecycle position.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "error"
	}
}

// Hooks are user-supplied lifecycle callbacks. All fields are optional.
// They run on the manager's connection goroutines and must not block.
type Hooks struct {
	OnConnect    func()
	OnDisconnect func(err error)
	OnError      func(err error)
}

// frame is the wire envelope: one named event with a JSON payload.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var errNoToken = errors.New("no access token")

// Manager owns one logical realtime connection per authenticated session.
type Manager struct {
	url     string
	tokenFn func() string
	dial    DialConfig

	reg *registry

	mu      sync.Mutex
	hooks   Hooks
	status  Status
	lastErr error
	conn    *liveConn
	gen     uint64 // bumped on every teardown; stale goroutines check it
	want    bool   // true between Connect and Disconnect
}

// New creates a manager for the given websocket URL. tokenFn supplies the
// current access token; an empty result gates Connect off entirely.
func New(url string, tokenFn func() string, dial DialConfig) *Manager {
	return &Manager{
		url:     url,
		tokenFn: tokenFn,
		dial:    dial.withDefaults(),
		reg:     newRegistry(),
	}
}

// SetHooks installs the lifecycle callbacks. Call it before Connect.
func (m *Manager) SetHooks(h Hooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = h
}

func (m *Manager) hooksCopy() Hooks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hooks
}

// Status returns the connection's lifecycle position.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastError returns the most recent transport error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Connect opens the connection in the background. It is a no-op when
// already connected or connecting, and when no access token is present.
// After a terminal transport failure the manager sits in StatusError
// until Connect is called again; it never retries on its own beyond the
// transport's bounded attempts.
func (m *Manager) Connect() {
	token := m.tokenFn()
	if token == "" {
		log.Printf("channel: connect skipped: no access token")
		return
	}

	m.mu.Lock()
	if m.status == StatusConnected || m.status == StatusConnecting {
		m.mu.Unlock()
		return
	}
	m.want = true
	m.status = StatusConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go m.establish(gen, token)
}

// Disconnect detaches the live connection's handlers, closes the
// transport, and resets state. The registry is untouched: a later
// Connect replays every subscription.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.want = false
	m.gen++
	lc := m.conn
	m.conn = nil
	m.status = StatusDisconnected
	m.lastErr = nil
	m.mu.Unlock()

	if lc == nil {
		return
	}
	lc.detachAll()
	lc.ws.Close()
	if h := m.hooksCopy(); h.OnDisconnect != nil {
		h.OnDisconnect(nil)
	}
}

// Recycle tears the connection down and re-establishes it so the
// transport handshake presents the current access token. Used after a
// token rotation. The registry survives the cycle untouched.
func (m *Manager) Recycle() {
	m.mu.Lock()
	if !m.want {
		m.mu.Unlock()
		return
	}
	lc := m.conn
	m.conn = nil
	m.gen++
	gen := m.gen
	m.status = StatusConnecting
	m.mu.Unlock()

	if lc != nil {
		lc.ws.Close()
	}

	token := m.tokenFn()
	if token == "" {
		m.fail(gen, errNoToken)
		return
	}
	go m.establish(gen, token)
}

// Emit sends one named event. Realtime events are fire-and-forget: when
// not connected the event is dropped with a warning, never queued.
func (m *Manager) Emit(event string, payload interface{}) {
	m.mu.Lock()
	lc := m.conn
	connected := m.status == StatusConnected
	m.mu.Unlock()

	if !connected || lc == nil {
		log.Printf("channel: emit %q dropped: not connected", event)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("channel: emit %q: encoding payload: %v", event, err)
		return
	}
	if err := lc.write(frame{Event: event, Data: data}); err != nil {
		log.Printf("channel: emit %q: %v", event, err)
	}
}

// On subscribes h to the named event. The registry is mutated first (it
// is the source of truth), then the subscription is mirrored onto the
// live connection if one exists.
func (m *Manager) On(event string, h Handler) {
	m.reg.add(event, h)
	m.mu.Lock()
	lc := m.conn
	m.mu.Unlock()
	if lc != nil {
		lc.attach(event, h)
	}
}

// Off removes subscriptions for the named event. With no handlers given
// it clears every subscription for that event; otherwise it removes the
// given handlers by identity. Both registry and live connection are
// updated.
func (m *Manager) Off(event string, handlers ...Handler) {
	if len(handlers) == 0 {
		m.reg.clear(event)
	} else {
		for _, h := range handlers {
			m.reg.remove(event, h)
		}
	}

	m.mu.Lock()
	lc := m.conn
	m.mu.Unlock()
	if lc == nil {
		return
	}
	if len(handlers) == 0 {
		lc.clear(event)
	} else {
		for _, h := range handlers {
			lc.detach(event, h)
		}
	}
}

// establish dials (with the transport's bounded retry), performs the auth
// handshake, replays the registry onto the new connection, and starts the
// read pump. gen guards against a teardown racing the dial.
func (m *Manager) establish(gen uint64, token string) {
	ws, err := dialWithRetry(context.Background(), m.url, m.dial)
	if err != nil {
		m.fail(gen, err)
		return
	}

	// The access token is a connection-time credential: the auth frame is
	// the first thing on the wire.
	auth, _ := json.Marshal(map[string]string{"token": token})
	if err := ws.WriteJSON(frame{Event: "auth", Data: auth}); err != nil {
		ws.Close()
		m.fail(gen, err)
		return
	}

	// Replay: the new connection hears everything the registry holds.
	lc := &liveConn{ws: ws, handlers: m.reg.snapshot()}

	m.mu.Lock()
	if gen != m.gen || !m.want {
		m.mu.Unlock()
		ws.Close()
		return
	}
	m.conn = lc
	m.status = StatusConnected
	m.lastErr = nil
	m.mu.Unlock()

	if h := m.hooksCopy(); h.OnConnect != nil {
		h.OnConnect()
	}
	go m.readPump(gen, lc)
}

// readPump delivers inbound frames in server-send order on a single
// goroutine. A read error while the manager still wants the connection
// triggers a transparent reconnect cycle; the registry survives it.
func (m *Manager) readPump(gen uint64, lc *liveConn) {
	for {
		var f frame
		err := lc.ws.ReadJSON(&f)
		if err == nil {
			if f.Event != "" {
				lc.dispatch(f.Event, f.Data)
			}
			continue
		}

		m.mu.Lock()
		current := gen == m.gen && m.conn == lc
		want := m.want
		if current {
			m.conn = nil
			m.status = StatusDisconnected
			m.gen++
			gen = m.gen
		}
		m.mu.Unlock()
		lc.ws.Close()

		if !current {
			// A Disconnect or Recycle already took over.
			return
		}
		if h := m.hooksCopy(); h.OnDisconnect != nil {
			h.OnDisconnect(err)
		}
		if !want {
			return
		}

		m.mu.Lock()
		m.status = StatusConnecting
		m.mu.Unlock()

		token := m.tokenFn()
		if token == "" {
			m.fail(gen, errNoToken)
			return
		}
		m.establish(gen, token)
		return
	}
}

// fail records a terminal transport failure for this generation.
func (m *Manager) fail(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.status = StatusError
	m.lastErr = err
	m.conn = nil
	m.mu.Unlock()
	if h := m.hooksCopy(); h.OnError != nil {
		h.OnError(err)
	}
}

// liveConn is one physical connection plus its projection of the
// registry. The projection is rebuilt from scratch on every connect and
// thrown away with the connection.
type liveConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string][]Handler
}

func (lc *liveConn) write(f frame) error {
	lc.writeMu.Lock()
	defer lc.writeMu.Unlock()
	return lc.ws.WriteJSON(f)
}

func (lc *liveConn) attach(event string, h Handler) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.handlers[event] = append(lc.handlers[event], h)
}

func (lc *liveConn) detach(event string, h Handler) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	list := lc.handlers[event]
	target := reflectPointer(h)
	for i, existing := range list {
		if reflectPointer(existing) == target {
			lc.handlers[event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
}

func (lc *liveConn) clear(event string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	delete(lc.handlers, event)
}

func (lc *liveConn) detachAll() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.handlers = make(map[string][]Handler)
}

func (lc *liveConn) dispatch(event string, data json.RawMessage) {
	lc.mu.Lock()
	list := make([]Handler, len(lc.handlers[event]))
	copy(list, lc.handlers[event])
	lc.mu.Unlock()
	for _, h := range list {
		h(data)
	}
}
