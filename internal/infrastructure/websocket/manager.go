package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"farmlink/internal/infrastructure/ratelimit"
	"farmlink/pkg/logger"
)

// Room keys. Every session is subscribed to its user room on register; chat
// rooms are joined and left explicitly while a chat view is open.
func UserRoom(userID string) string { return "user:" + userID }
func ChatRoom(chatID string) string { return "chat:" + chatID }

// Manager owns all active sessions and the room membership they belong to.
type Manager struct {
	Register   chan *Client
	Unregister chan *Client

	mu       sync.RWMutex
	sessions map[string]*Client            // session id -> client
	rooms    map[string]map[string]*Client // room key -> session id -> client

	limiter *ratelimit.RateLimiter
}

func NewManager() *Manager {
	return &Manager{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		sessions:   make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		limiter:    ratelimit.NewRateLimiter(),
	}
}

// Start runs the register/unregister loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.register(client)

			case client := <-m.Unregister:
				m.unregister(client)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) register(client *Client) {
	m.mu.Lock()
	m.sessions[client.SessionID] = client
	m.joinLocked(UserRoom(client.UserID), client)
	m.mu.Unlock()

	logger.Info("websocket: session %s registered for user %s", client.SessionID, client.UserID)
	m.sendEvent(client, NewEvent(EventConnected, "", map[string]string{"user_id": client.UserID}))
}

func (m *Manager) unregister(client *Client) {
	m.mu.Lock()
	if _, ok := m.sessions[client.SessionID]; ok {
		delete(m.sessions, client.SessionID)
		for room, members := range m.rooms {
			if _, joined := members[client.SessionID]; joined {
				delete(members, client.SessionID)
				if len(members) == 0 {
					delete(m.rooms, room)
				}
			}
		}
		if client.markClosed() {
			close(client.Send)
		}
	}
	m.mu.Unlock()

	logger.Info("websocket: session %s unregistered", client.SessionID)
}

// JoinRoom adds the session to a room. Re-joining is a no-op, so replayed
// subscriptions after a reconnect never duplicate delivery.
func (m *Manager) JoinRoom(client *Client, room string) {
	m.mu.Lock()
	m.joinLocked(room, client)
	m.mu.Unlock()
}

func (m *Manager) joinLocked(room string, client *Client) {
	members, ok := m.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		m.rooms[room] = members
	}
	members[client.SessionID] = client
}

// LeaveRoom removes the session from a room. Only the session's own
// membership can be changed through a client call.
func (m *Manager) LeaveRoom(client *Client, room string) {
	m.mu.Lock()
	if members, ok := m.rooms[room]; ok {
		delete(members, client.SessionID)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	m.mu.Unlock()
}

// RoomSize reports the number of sessions currently in a room.
func (m *Manager) RoomSize(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

// BroadcastToChat delivers an event to every session in the chat's room.
func (m *Manager) BroadcastToChat(chatID, name string, payload interface{}) {
	m.broadcast(ChatRoom(chatID), NewEvent(name, chatID, payload), "")
}

// BroadcastToChatExcept delivers to the chat room, skipping one user's
// sessions. Used for typing relays where the sender already knows.
func (m *Manager) BroadcastToChatExcept(chatID, exceptUserID, name string, payload interface{}) {
	m.broadcast(ChatRoom(chatID), NewEvent(name, chatID, payload), exceptUserID)
}

// BroadcastToUser delivers to every session in the user's room, reaching
// clients that do not have the chat room open.
func (m *Manager) BroadcastToUser(userID, name string, payload interface{}) {
	m.broadcast(UserRoom(userID), NewEvent(name, "", payload), "")
}

// BroadcastAll delivers to every connected session. Used for catalog events.
func (m *Manager) BroadcastAll(name string, payload interface{}) {
	event := NewEvent(name, "", payload)
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("websocket: failed to marshal %s event: %v", name, err)
		return
	}

	m.mu.RLock()
	clients := make([]*Client, 0, len(m.sessions))
	for _, client := range m.sessions {
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	for _, client := range clients {
		client.sendRaw(data, m)
	}
}

func (m *Manager) broadcast(room string, event Event, exceptUserID string) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("websocket: failed to marshal %s event: %v", event.Name, err)
		return
	}

	m.mu.RLock()
	clients := make([]*Client, 0, len(m.rooms[room]))
	for _, client := range m.rooms[room] {
		if exceptUserID != "" && client.UserID == exceptUserID {
			continue
		}
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	for _, client := range clients {
		client.sendRaw(data, m)
	}
}
