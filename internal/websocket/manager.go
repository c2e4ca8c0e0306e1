package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/internal/reactive"
	"github.com/sirosfoundation/go-media-remote/internal/sdk"
	"github.com/sirosfoundation/go-media-remote/pkg/logging"
)

var (
	ErrNotConnected = errors.New("socket not connected")
	ErrClosed       = errors.New("socket manager closed")
)

// Message types exchanged with the server
const (
	MessageKeepAlive      = "KeepAlive"
	MessageForceKeepAlive = "ForceKeepAlive"
	MessageSessions       = "Sessions"
	MessageUserDataChange = "UserDataChanged"
	MessageLibraryChanged = "LibraryChanged"
)

// Message is a socket message in either direction
type Message struct {
	MessageType string          `json:"MessageType"`
	MessageID   string          `json:"MessageId,omitempty"`
	Data        json.RawMessage `json:"Data,omitempty"`
}

// Handler receives every message read from the socket
type Handler func(Message)

// connection is one dialed socket
type connection struct {
	conn *websocket.Conn
	url  string

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (c *connection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
}

// Manager keeps a session socket open while the observed API handle is
// authenticated, and reconnects whenever the handle changes.
type Manager struct {
	api    reactive.Readable[*sdk.API]
	scope  *reactive.Scope
	dialer *websocket.Dialer
	logger *zap.Logger

	connected *reactive.Ref[bool]

	mu      sync.Mutex
	current *connection
	closed  bool

	handlersMu sync.RWMutex
	nextID     uint64
	handlers   map[uint64]Handler
}

// NewManager creates a manager following api. Call Start to begin.
func NewManager(sys *reactive.System, api reactive.Readable[*sdk.API], logger *zap.Logger) *Manager {
	return &Manager{
		api:   api,
		scope: sys.NewScope(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		logger:    logging.Named(logger, "websocket-manager"),
		connected: reactive.NewRef(false),
		handlers:  make(map[uint64]Handler),
	}
}

// Start binds the socket to the API handle. The first connection attempt
// happens before Start returns and its error is returned.
func (m *Manager) Start() error {
	return m.scope.Effect(m.sync, m.api)
}

// sync opens, replaces or closes the socket to match the API handle
func (m *Manager) sync() error {
	api := m.api.Get()
	if api == nil || api.AccessToken() == "" {
		m.disconnect()
		return nil
	}

	target, err := api.SocketURL()
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.current != nil && m.current.url == target {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	m.disconnect()
	return m.connect(target)
}

func (m *Manager) connect(target string) error {
	conn, _, err := m.dialer.Dial(target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to socket: %w", err)
	}

	c := &connection{conn: conn, url: target, done: make(chan struct{})}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		c.close()
		return ErrClosed
	}
	m.current = c
	m.mu.Unlock()

	m.connected.Set(true)
	m.logger.Info("socket connected")

	go m.readLoop(c)
	return nil
}

func (m *Manager) disconnect() {
	m.mu.Lock()
	c := m.current
	m.current = nil
	m.mu.Unlock()

	if c != nil {
		c.close()
		m.connected.Set(false)
		m.logger.Info("socket disconnected")
	}
}

func (m *Manager) readLoop(c *connection) {
	defer func() {
		c.close()
		m.mu.Lock()
		wasCurrent := m.current == c
		if wasCurrent {
			m.current = nil
		}
		m.mu.Unlock()
		if wasCurrent {
			m.connected.Set(false)
		}
	}()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					m.logger.Error("socket read error", zap.Error(err))
				}
			}
			return
		}

		if msg.MessageType == MessageForceKeepAlive {
			m.startKeepAlive(c, msg.Data)
		}
		m.dispatch(msg)
	}
}

// startKeepAlive answers a ForceKeepAlive request and keeps sending
// KeepAlive at half the requested interval until the connection closes.
func (m *Manager) startKeepAlive(c *connection, data json.RawMessage) {
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil || seconds <= 0 {
		seconds = 60
	}
	interval := time.Duration(seconds * float64(time.Second) / 2)
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}

	if err := c.writeJSON(Message{MessageType: MessageKeepAlive}); err != nil {
		m.logger.Warn("keep alive failed", zap.Error(err))
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				if err := c.writeJSON(Message{MessageType: MessageKeepAlive}); err != nil {
					m.logger.Debug("keep alive stopped", zap.Error(err))
					return
				}
			}
		}
	}()
}

func (m *Manager) dispatch(msg Message) {
	m.handlersMu.RLock()
	handlers := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.handlersMu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

// OnMessage registers h for incoming messages and returns its removal func
func (m *Manager) OnMessage(h Handler) func() {
	m.handlersMu.Lock()
	m.nextID++
	id := m.nextID
	m.handlers[id] = h
	m.handlersMu.Unlock()

	return func() {
		m.handlersMu.Lock()
		delete(m.handlers, id)
		m.handlersMu.Unlock()
	}
}

// Send writes msg to the socket, assigning a message ID when it has none
func (m *Manager) Send(msg Message) error {
	m.mu.Lock()
	c := m.current
	m.mu.Unlock()

	if c == nil {
		return ErrNotConnected
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}
	return c.writeJSON(msg)
}

// Connected reports whether a socket is open
func (m *Manager) Connected() reactive.Readable[bool] {
	return m.connected
}

// Scope returns the scope of the binding. While it is paused, API handle
// changes do not reconnect the socket.
func (m *Manager) Scope() *reactive.Scope {
	return m.scope
}

// Close stops following the API handle and closes the socket
func (m *Manager) Close() {
	m.scope.Stop()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.disconnect()
}
