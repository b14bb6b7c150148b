package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/repository"
	"farmlink/pkg/errors"
	"farmlink/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{client: client}
}

func (r *firestoreChatRepository) chatDoc(chatID string) *firestore.DocumentRef {
	return r.client.Collection("chats").Doc(chatID)
}

func (r *firestoreChatRepository) messageDoc(chatID, messageID string) *firestore.DocumentRef {
	return r.chatDoc(chatID).Collection("messages").Doc(messageID)
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	chat.MemberIDs = chat.ParticipantIDs()

	if _, err := r.chatDoc(chat.ID).Set(ctx, chat); err != nil {
		return errors.Internal("Failed to create chat", err)
	}
	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.chatDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	return &chat, nil
}

func (r *firestoreChatRepository) FindDirectChat(ctx context.Context, userA, userB string) (*entity.Chat, error) {
	query := r.client.Collection("chats").
		Where("memberIds", "array-contains", userA).
		Where("chatType", "==", entity.ChatTypeDirect)

	iter := query.Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to query direct chats", err)
		}

		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("firestore: skipping malformed chat %s: %v", doc.Ref.ID, err)
			continue
		}
		if len(chat.Participants) == 2 && chat.HasParticipant(userB) {
			return &chat, nil
		}
	}

	return nil, errors.NotFound("Chat", nil)
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	query := r.client.Collection("chats").
		Where("memberIds", "array-contains", userID).
		OrderBy("lastMessageAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to fetch chats", err)
	}

	total := int64(len(allDocs))
	start, end := paginate(len(allDocs), limit, offset)

	var chats []*entity.Chat
	for i := start; i < end; i++ {
		var chat entity.Chat
		if err := allDocs[i].DataTo(&chat); err != nil {
			logger.Warn("firestore: skipping malformed chat %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		chats = append(chats, &chat)
	}

	return chats, total, nil
}

func (r *firestoreChatRepository) Update(ctx context.Context, chat *entity.Chat) error {
	chat.UpdatedAt = time.Now()
	chat.MemberIDs = chat.ParticipantIDs()

	if _, err := r.chatDoc(chat.ID).Set(ctx, chat); err != nil {
		return errors.Internal("Failed to update chat", err)
	}
	return nil
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	if _, err := r.messageDoc(message.ChatID, message.ID).Set(ctx, message); err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

func (r *firestoreChatRepository) GetMessageByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	doc, err := r.messageDoc(chatID, messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreChatRepository) GetMessagesByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.chatDoc(chatID).Collection("messages").
		OrderBy("createdAt", firestore.Asc).
		OrderBy("id", firestore.Asc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to fetch messages", err)
	}

	total := int64(len(allDocs))
	start, end := paginate(len(allDocs), limit, offset)

	var messages []*entity.Message
	for i := start; i < end; i++ {
		var message entity.Message
		if err := allDocs[i].DataTo(&message); err != nil {
			logger.Warn("firestore: skipping malformed message %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

// UpdateNegotiationStatus checks-and-sets the status inside a transaction so
// two concurrent responses to the same offer cannot both pass the pending
// check.
func (r *firestoreChatRepository) UpdateNegotiationStatus(ctx context.Context, chatID, messageID, newStatus string) (*entity.Message, error) {
	var updated *entity.Message

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.messageDoc(chatID, messageID)
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Negotiation message", err)
			}
			return errors.Internal("Failed to get negotiation message", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if err := checkPendingNegotiation(&message); err != nil {
			return err
		}

		message.Negotiation.Status = newStatus
		if err := tx.Set(ref, &message); err != nil {
			return errors.Internal("Failed to update negotiation status", err)
		}
		updated = &message
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CreateCounterOffer appends the counter message only if the original offer
// is still pending at commit time. The original is left untouched; history
// stays intact.
func (r *firestoreChatRepository) CreateCounterOffer(ctx context.Context, chatID, originalID string, counter *entity.Message) error {
	if counter.ID == "" {
		counter.ID = uuid.New().String()
	}
	if counter.CreatedAt.IsZero() {
		counter.CreatedAt = time.Now()
	}

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(r.messageDoc(chatID, originalID))
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Negotiation message", err)
			}
			return errors.Internal("Failed to get negotiation message", err)
		}

		var original entity.Message
		if err := doc.DataTo(&original); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if err := checkPendingNegotiation(&original); err != nil {
			return err
		}

		if err := tx.Set(r.messageDoc(chatID, counter.ID), counter); err != nil {
			return errors.Internal("Failed to create counter offer", err)
		}
		return nil
	})
}

func checkPendingNegotiation(message *entity.Message) error {
	if message.Type != entity.MessageTypeNegotiation || message.Negotiation == nil {
		return errors.BadRequest("Message is not a negotiation", nil)
	}
	if message.Negotiation.Status != entity.NegotiationPending {
		return errors.Conflict("Negotiation is no longer pending", nil)
	}
	return nil
}

// paginate clamps limit/offset against a fully fetched result set.
func paginate(n, limit, offset int) (int, int) {
	start := offset
	if start > n {
		start = n
	}
	end := n
	if limit > 0 && start+limit < n {
		end = start + limit
	}
	return start, end
}
