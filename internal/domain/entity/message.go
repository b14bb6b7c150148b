package entity

import (
	"sort"
	"time"
)

const (
	MessageTypeText        = "text"
	MessageTypeNegotiation = "negotiation"
)

type Message struct {
	ID          string       `json:"id" firestore:"id"`
	ChatID      string       `json:"chat_id" firestore:"chatId"`
	Sender      UserRef      `json:"sender" firestore:"sender"`
	Content     string       `json:"content" firestore:"content"` // may be empty for negotiation messages
	Type        string       `json:"message_type" firestore:"messageType"`
	Negotiation *Negotiation `json:"negotiation,omitempty" firestore:"negotiation,omitempty"`
	Read        bool         `json:"read" firestore:"read"`
	CreatedAt   time.Time    `json:"created_at" firestore:"createdAt"`

	// TempID echoes the client-generated id of an optimistic send so the
	// sender can match the confirmed message against its pending copy.
	// Never persisted.
	TempID string `json:"temp_id,omitempty" firestore:"-"`
}

// Less orders messages by (createdAt, id); the id tie-break keeps the order
// total when two messages share a timestamp.
func (m *Message) Less(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// SortMessages sorts a message slice into the chat's authoritative order.
func SortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Less(messages[j])
	})
}
