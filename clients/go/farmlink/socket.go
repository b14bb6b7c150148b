package farmlink

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client -> server events.
const (
	EventJoinUserRoom  = "join-user-room"
	EventJoinChatRoom  = "join-chat-room"
	EventLeaveChatRoom = "leave-chat-room"
	EventTyping        = "typing"
	EventStopTyping    = "stop-typing"
	EventPing          = "ping"
)

// Server -> client events.
const (
	EventConnected         = "connected"
	EventPong              = "pong"
	EventNewMessage        = "new-message"
	EventNegotiationUpdate = "negotiation-update"
	EventChatListUpdate    = "chat-list-update"
	EventUserTyping        = "user-typing"
	EventUserStopTyping    = "user-stop-typing"
	EventProductAdded      = "product-added"
	EventProductUpdated    = "product-updated"
	EventProductDeleted    = "product-deleted"
	EventError             = "error"
)

// Event is the wire envelope for every frame in both directions.
type Event struct {
	Name      string          `json:"event"`
	ChatID    string          `json:"chat_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// TypingPayload is the body of typing frames in both directions.
type TypingPayload struct {
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

const (
	maxReconnectAttempts = 5
	reconnectDelay       = time.Second
)

// Socket is the realtime connection. It reconnects automatically with a
// bounded retry budget and replays room subscriptions after each reconnect.
// Emits while disconnected are dropped, not buffered; the REST API is the
// source of truth and the reconciler heals any gap.
type Socket struct {
	wsURL  string
	dialer *websocket.Dialer

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	closed       bool
	desiredChats map[string]bool
	handlers     map[string][]func(Event)
	onDisconnect func(error)
	onReconnect  func()
}

// NewSocket prepares a realtime connection against the server's /ws
// endpoint. Call Connect to dial.
func NewSocket(baseURL, token string) (*Socket, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return &Socket{
		wsURL:        u.String(),
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		desiredChats: make(map[string]bool),
		handlers:     make(map[string][]func(Event)),
	}, nil
}

// On registers a handler for a server event. Handlers run on the read
// goroutine, so they must not block.
func (s *Socket) On(event string, fn func(Event)) {
	s.mu.Lock()
	s.handlers[event] = append(s.handlers[event], fn)
	s.mu.Unlock()
}

// OnDisconnect is called once when the reconnect budget is exhausted.
func (s *Socket) OnDisconnect(fn func(error)) {
	s.mu.Lock()
	s.onDisconnect = fn
	s.mu.Unlock()
}

// OnReconnect is called after each successful reconnect, once room
// subscriptions are replayed.
func (s *Socket) OnReconnect(fn func()) {
	s.mu.Lock()
	s.onReconnect = fn
	s.mu.Unlock()
}

// Connect dials the server and starts the read loop.
func (s *Socket) Connect() error {
	conn, _, err := s.dialer.Dial(s.wsURL, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

// Connected reports whether the socket currently holds a live connection.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close shuts the socket down for good; no reconnect is attempted.
func (s *Socket) Close() error {
	s.mu.Lock()
	s.closed = true
	s.connected = false
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Emit sends an event if connected; it reports false when the frame was
// dropped because no connection is live.
func (s *Socket) Emit(name, chatID string, payload interface{}) bool {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return false
		}
		raw = data
	}
	frame, err := json.Marshal(Event{Name: name, ChatID: chatID, Data: raw})
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.conn == nil {
		return false
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return false
	}
	return true
}

// JoinChat subscribes to a chat room. The subscription is remembered and
// replayed after every reconnect.
func (s *Socket) JoinChat(chatID string) {
	s.mu.Lock()
	s.desiredChats[chatID] = true
	s.mu.Unlock()
	s.Emit(EventJoinChatRoom, chatID, nil)
}

// LeaveChat unsubscribes from a chat room.
func (s *Socket) LeaveChat(chatID string) {
	s.mu.Lock()
	delete(s.desiredChats, chatID)
	s.mu.Unlock()
	s.Emit(EventLeaveChatRoom, chatID, nil)
}

// Ping sends a liveness probe; the server answers with pong.
func (s *Socket) Ping() bool {
	return s.Emit(EventPing, "", nil)
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleDrop(err)
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		s.dispatch(event)
	}
}

func (s *Socket) dispatch(event Event) {
	s.mu.Lock()
	fns := append([]func(Event){}, s.handlers[event.Name]...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// handleDrop marks the socket disconnected and runs the bounded reconnect
// loop. Frames emitted meanwhile are dropped.
func (s *Socket) handleDrop(cause error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.connected = false
	s.conn = nil
	s.mu.Unlock()

	var lastErr error = cause
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		time.Sleep(reconnectDelay)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		conn, _, err := s.dialer.Dial(s.wsURL, nil)
		if err != nil {
			lastErr = err
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.connected = true
		rooms := make([]string, 0, len(s.desiredChats))
		for chatID := range s.desiredChats {
			rooms = append(rooms, chatID)
		}
		onReconnect := s.onReconnect
		s.mu.Unlock()

		// Re-joining is idempotent on the server, so a subscription that
		// survived in a lingering session is never duplicated.
		for _, chatID := range rooms {
			s.Emit(EventJoinChatRoom, chatID, nil)
		}
		if onReconnect != nil {
			onReconnect()
		}

		go s.readLoop(conn)
		return
	}

	s.mu.Lock()
	onDisconnect := s.onDisconnect
	s.mu.Unlock()
	if onDisconnect != nil {
		onDisconnect(fmt.Errorf("reconnect budget exhausted: %w", lastErr))
	}
}
