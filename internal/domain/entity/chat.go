package entity

import "time"

const (
	ChatTypeDirect = "direct"
	ChatTypeGroup  = "group"
)

type Chat struct {
	ID            string         `json:"id" firestore:"id"`
	Participants  []UserRef      `json:"participants" firestore:"participants"` // unique by user ID
	Type          string         `json:"chat_type" firestore:"chatType"`        // "direct", "group"
	LastMessage   string         `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time      `json:"last_message_at" firestore:"lastMessageAt"`
	UnreadCount   map[string]int `json:"unread_count" firestore:"unreadCount"` // userID -> unread messages
	CreatedAt     time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time      `json:"updated_at" firestore:"updatedAt"`

	// MemberIDs mirrors Participants for array-contains queries; maintained
	// by the repository on every write.
	MemberIDs []string `json:"-" firestore:"memberIds"`
}

func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func (c *Chat) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}

// OtherParticipant returns the counterpart in a direct chat.
func (c *Chat) OtherParticipant(userID string) (UserRef, bool) {
	for _, p := range c.Participants {
		if p.ID != userID {
			return p, true
		}
	}
	return UserRef{}, false
}
