package websocket

import (
	"encoding/json"
	"time"

	"farmlink/pkg/logger"
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

// TypingPayload is the body of typing / stop-typing frames in both directions.
type TypingPayload struct {
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

func NewEvent(name, chatID string, payload interface{}) Event {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error("websocket: failed to marshal %s payload: %v", name, err)
		} else {
			raw = data
		}
	}
	return Event{
		Name:      name,
		ChatID:    chatID,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
