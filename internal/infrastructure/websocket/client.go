package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"farmlink/pkg/logger"
)

// Client is one connected session. A user may hold several sessions at once
// (one per device); rooms track sessions, not users.
type Client struct {
	SessionID string
	UserID    string
	UserName  string
	Conn      *websocket.Conn
	Send      chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(sessionID, userID, userName string, conn *websocket.Conn) *Client {
	return &Client{
		SessionID: sessionID,
		UserID:    userID,
		UserName:  userName,
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}
}

// sendRaw queues a frame without blocking. A session whose buffer is full is
// dropped rather than allowed to stall every other subscriber in the room.
func (c *Client) sendRaw(data []byte, m *Manager) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.Send <- data:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		logger.Warn("websocket: session %s send buffer full, dropping session", c.SessionID)
		if m != nil {
			go func() { m.Unregister <- c }()
		}
	}
}

// markClosed stops future queues; returns false if already closed.
func (c *Client) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	return true
}

func (m *Manager) sendEvent(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("websocket: failed to marshal %s event: %v", event.Name, err)
		return
	}
	client.sendRaw(data, m)
}

// ReadPump reads frames from the connection and dispatches them until the
// peer goes away.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket: session %s read error: %v", c.SessionID, err)
			}
			break
		}
		m.HandleClientEvent(c, data)
	}
}

// WritePump drains the send queue onto the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for data := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Warn("websocket: session %s write error: %v", c.SessionID, err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
