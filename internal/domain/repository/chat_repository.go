package repository

import (
	"context"

	"farmlink/internal/domain/entity"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	// FindDirectChat looks up the direct chat for an unordered user pair.
	FindDirectChat(ctx context.Context, userA, userB string) (*entity.Chat, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error)
	Update(ctx context.Context, chat *entity.Chat) error

	// Message methods
	CreateMessage(ctx context.Context, message *entity.Message) error
	GetMessageByID(ctx context.Context, chatID, messageID string) (*entity.Message, error)
	// GetMessagesByChat returns messages in (createdAt, id) order.
	GetMessagesByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)

	// UpdateNegotiationStatus moves a negotiation message to status iff it is
	// currently pending, as one conditional update. Conflict otherwise.
	UpdateNegotiationStatus(ctx context.Context, chatID, messageID, status string) (*entity.Message, error)
	// CreateCounterOffer appends the counter message after verifying, in the
	// same transaction, that the original negotiation is still pending.
	CreateCounterOffer(ctx context.Context, chatID, originalID string, counter *entity.Message) error
}
