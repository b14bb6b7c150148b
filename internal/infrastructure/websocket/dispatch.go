package websocket

import (
	"encoding/json"

	"farmlink/pkg/logger"
)

// HandleClientEvent parses one inbound frame and reacts to it. Room joins
// and typing relays run to completion on the session's read goroutine, so
// frames from one sender are processed in arrival order.
func (m *Manager) HandleClientEvent(client *Client, data []byte) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Warn("websocket: session %s sent malformed frame: %v", client.SessionID, err)
		m.sendError(client, "invalid event format")
		return
	}

	switch event.Name {
	case EventPing:
		m.sendEvent(client, NewEvent(EventPong, "", nil))

	case EventJoinUserRoom:
		// Sessions are subscribed to their own user room on register; a
		// replayed join after reconnect is an allowed no-op. Joining another
		// user's room is not.
		var payload struct {
			UserID string `json:"user_id"`
		}
		if event.Data != nil {
			json.Unmarshal(event.Data, &payload)
		}
		if payload.UserID != "" && payload.UserID != client.UserID {
			m.sendError(client, "cannot join another user's room")
			return
		}
		m.JoinRoom(client, UserRoom(client.UserID))

	case EventJoinChatRoom:
		if event.ChatID == "" {
			m.sendError(client, "missing chat_id")
			return
		}
		m.JoinRoom(client, ChatRoom(event.ChatID))
		logger.Debug("websocket: session %s joined chat room %s", client.SessionID, event.ChatID)

	case EventLeaveChatRoom:
		if event.ChatID == "" {
			m.sendError(client, "missing chat_id")
			return
		}
		m.LeaveRoom(client, ChatRoom(event.ChatID))

	case EventTyping:
		m.relayTyping(client, event, EventUserTyping)

	case EventStopTyping:
		m.relayTyping(client, event, EventUserStopTyping)

	default:
		logger.Warn("websocket: session %s sent unknown event %q", client.SessionID, event.Name)
		m.sendError(client, "unknown event")
	}
}

// relayTyping rebroadcasts a typing state change to the chat room. The
// server does not track or expire typing state; senders own their timers.
// Typing is best-effort, so a rate-limited frame is dropped without an
// error reply.
func (m *Manager) relayTyping(client *Client, event Event, outName string) {
	if allowed, _ := m.limiter.Allow(client.UserID, "typing"); !allowed {
		logger.Debug("websocket: session %s typing relay rate limited", client.SessionID)
		return
	}

	var payload TypingPayload
	if event.Data != nil {
		json.Unmarshal(event.Data, &payload)
	}
	if payload.ChatID == "" {
		payload.ChatID = event.ChatID
	}
	if payload.ChatID == "" {
		m.sendError(client, "missing chat_id")
		return
	}

	// The session's identity always wins over whatever the frame claims.
	payload.UserID = client.UserID
	payload.UserName = client.UserName

	m.BroadcastToChatExcept(payload.ChatID, client.UserID, outName, payload)
}

func (m *Manager) sendError(client *Client, message string) {
	m.sendEvent(client, NewEvent(EventError, "", map[string]string{"error": message}))
}
