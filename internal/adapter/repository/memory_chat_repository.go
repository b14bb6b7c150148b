package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/repository"
	"farmlink/pkg/errors"
)

// memoryChatRepository is the Firestore-less implementation used in tests
// and in development mode when no project is configured. The single mutex
// makes every operation, including the negotiation check-and-set, atomic.
type memoryChatRepository struct {
	mu       sync.RWMutex
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message // chatID -> ordered log
}

func NewMemoryChatRepository() repository.ChatRepository {
	return &memoryChatRepository{
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string][]*entity.Message),
	}
}

func (r *memoryChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	chat.MemberIDs = chat.ParticipantIDs()

	r.mu.Lock()
	r.chats[chat.ID] = cloneChat(chat)
	r.mu.Unlock()
	return nil
}

func (r *memoryChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return cloneChat(chat), nil
}

func (r *memoryChatRepository) FindDirectChat(ctx context.Context, userA, userB string) (*entity.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, chat := range r.chats {
		if chat.Type == entity.ChatTypeDirect && len(chat.Participants) == 2 &&
			chat.HasParticipant(userA) && chat.HasParticipant(userB) {
			return cloneChat(chat), nil
		}
	}
	return nil, errors.NotFound("Chat", nil)
}

func (r *memoryChatRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*entity.Chat
	for _, chat := range r.chats {
		if chat.HasParticipant(userID) {
			all = append(all, cloneChat(chat))
		}
	}
	// Most recently active first, matching the Firestore ordering.
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastMessageAt.After(all[j].LastMessageAt)
	})

	total := int64(len(all))
	start, end := paginate(len(all), limit, offset)
	return all[start:end], total, nil
}

func (r *memoryChatRepository) Update(ctx context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[chat.ID]; !ok {
		return errors.NotFound("Chat", nil)
	}
	chat.UpdatedAt = time.Now()
	chat.MemberIDs = chat.ParticipantIDs()
	r.chats[chat.ID] = cloneChat(chat)
	return nil
}

func (r *memoryChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	r.mu.Lock()
	r.messages[message.ChatID] = append(r.messages[message.ChatID], cloneMessage(message))
	r.mu.Unlock()
	return nil
}

func (r *memoryChatRepository) GetMessageByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	message := r.findMessageLocked(chatID, messageID)
	if message == nil {
		return nil, errors.NotFound("Message", nil)
	}
	return cloneMessage(message), nil
}

func (r *memoryChatRepository) GetMessagesByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.messages[chatID]
	ordered := make([]*entity.Message, 0, len(log))
	for _, message := range log {
		ordered = append(ordered, cloneMessage(message))
	}
	entity.SortMessages(ordered)

	total := int64(len(ordered))
	start, end := paginate(len(ordered), limit, offset)
	return ordered[start:end], total, nil
}

func (r *memoryChatRepository) UpdateNegotiationStatus(ctx context.Context, chatID, messageID, newStatus string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	message := r.findMessageLocked(chatID, messageID)
	if message == nil {
		return nil, errors.NotFound("Negotiation message", nil)
	}
	if err := checkPendingNegotiation(message); err != nil {
		return nil, err
	}

	message.Negotiation.Status = newStatus
	return cloneMessage(message), nil
}

func (r *memoryChatRepository) CreateCounterOffer(ctx context.Context, chatID, originalID string, counter *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	original := r.findMessageLocked(chatID, originalID)
	if original == nil {
		return errors.NotFound("Negotiation message", nil)
	}
	if err := checkPendingNegotiation(original); err != nil {
		return err
	}

	if counter.ID == "" {
		counter.ID = uuid.New().String()
	}
	if counter.CreatedAt.IsZero() {
		counter.CreatedAt = time.Now()
	}
	r.messages[chatID] = append(r.messages[chatID], cloneMessage(counter))
	return nil
}

func (r *memoryChatRepository) findMessageLocked(chatID, messageID string) *entity.Message {
	for _, message := range r.messages[chatID] {
		if message.ID == messageID {
			return message
		}
	}
	return nil
}

func cloneChat(chat *entity.Chat) *entity.Chat {
	out := *chat
	out.Participants = append([]entity.UserRef(nil), chat.Participants...)
	out.MemberIDs = append([]string(nil), chat.MemberIDs...)
	out.UnreadCount = make(map[string]int, len(chat.UnreadCount))
	for k, v := range chat.UnreadCount {
		out.UnreadCount[k] = v
	}
	return &out
}

func cloneMessage(message *entity.Message) *entity.Message {
	out := *message
	if message.Negotiation != nil {
		negotiation := *message.Negotiation
		out.Negotiation = &negotiation
	}
	return &out
}
