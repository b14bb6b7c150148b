package usecase

import (
	"context"
	"fmt"
	"time"

	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/repository"
	"farmlink/internal/infrastructure/ratelimit"
	ws "farmlink/internal/infrastructure/websocket"
	"farmlink/pkg/errors"
	"farmlink/pkg/logger"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	wsManager   *ws.Manager
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	wsManager *ws.Manager,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		wsManager:   wsManager,
		rateLimiter: rateLimiter,
	}
}

type CreateChatInput struct {
	RecipientID    string
	InitialMessage string
}

type NegotiationInput struct {
	ProductName   string
	OriginalPrice float64
	ProposedPrice float64
	Quantity      int
}

type SendMessageInput struct {
	ChatID      string
	Content     string
	Type        string // "text", "negotiation"
	Negotiation *NegotiationInput
	TempID      string // client-side optimistic id, echoed back on broadcast
}

type RespondNegotiationInput struct {
	ChatID       string
	MessageID    string
	Status       string // "accepted", "rejected", "countered"
	CounterPrice float64
}

type ChatWithMessages struct {
	*entity.Chat
	Messages []*entity.Message `json:"messages"`
}

// chatListUpdate is the light payload pushed to each participant's user room
// so chat lists refresh without the chat room being open.
type chatListUpdate struct {
	ChatID        string    `json:"chat_id"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	SenderID      string    `json:"sender_id"`
	SenderName    string    `json:"sender_name"`
	MessageType   string    `json:"message_type"`
}

// messageEvent is the body of new-message and negotiation-update frames.
type messageEvent struct {
	ChatID  string          `json:"chat_id"`
	Message *entity.Message `json:"message"`
}

// CreateOrGetChat returns the existing direct chat for the pair, creating it
// on first contact. Calling it twice for the same pair yields the same chat.
func (uc *ChatUseCase) CreateOrGetChat(ctx context.Context, userID string, input CreateChatInput) (*entity.Chat, error) {
	if allowed, wait := uc.rateLimiter.Allow(userID, "create_chat"); !allowed {
		logger.Warn("CreateOrGetChat: user %s rate limited for %v", userID, wait)
		return nil, errors.TooManyRequests("Too many chat requests, slow down")
	}

	if userID == input.RecipientID {
		return nil, errors.BadRequest("Cannot start a chat with yourself", nil)
	}

	caller, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	recipient, err := uc.userRepo.GetByID(ctx, input.RecipientID)
	if err != nil {
		return nil, errors.NotFound("Recipient", err)
	}

	chat, err := uc.chatRepo.FindDirectChat(ctx, userID, input.RecipientID)
	switch {
	case err == nil:
		// Existing chat for the pair; reuse it.
	case errors.Is(err, "NOT_FOUND"):
		chat = &entity.Chat{
			Participants:  []entity.UserRef{caller.Ref(), recipient.Ref()},
			Type:          entity.ChatTypeDirect,
			UnreadCount:   make(map[string]int),
			LastMessageAt: time.Now(),
		}
		if err := uc.chatRepo.Create(ctx, chat); err != nil {
			return nil, err
		}
		uc.wsManager.BroadcastToUser(recipient.ID, ws.EventChatListUpdate, chatListUpdate{
			ChatID:        chat.ID,
			LastMessageAt: chat.LastMessageAt,
			SenderID:      caller.ID,
			SenderName:    caller.Name,
		})
	default:
		return nil, err
	}

	if input.InitialMessage != "" {
		if _, err := uc.AppendMessage(ctx, userID, SendMessageInput{
			ChatID:  chat.ID,
			Content: input.InitialMessage,
			Type:    entity.MessageTypeText,
		}); err != nil {
			return nil, err
		}
		return uc.chatRepo.GetByID(ctx, chat.ID)
	}

	return chat, nil
}

// AppendMessage validates, persists and fans out one message. The chat room
// gets the full message; every other participant's user room gets a light
// chat-list update.
func (uc *ChatUseCase) AppendMessage(ctx context.Context, userID string, input SendMessageInput) (*entity.Message, error) {
	if allowed, wait := uc.rateLimiter.Allow(userID, "send_message"); !allowed {
		logger.Warn("AppendMessage: user %s rate limited for %v", userID, wait)
		return nil, errors.TooManyRequests("Too many messages, slow down")
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("Sender is not a participant in this chat", nil)
	}

	if input.Type == "" {
		input.Type = entity.MessageTypeText
	}

	message := &entity.Message{
		ChatID:    input.ChatID,
		Content:   input.Content,
		Type:      input.Type,
		CreatedAt: time.Now(),
		TempID:    input.TempID,
	}
	for _, p := range chat.Participants {
		if p.ID == userID {
			message.Sender = p
			break
		}
	}

	switch input.Type {
	case entity.MessageTypeText:
		if input.Content == "" {
			return nil, errors.BadRequest("Message content cannot be empty", nil)
		}
	case entity.MessageTypeNegotiation:
		negotiation, err := buildNegotiation(input.Negotiation)
		if err != nil {
			return nil, err
		}
		message.Negotiation = negotiation
	default:
		return nil, errors.BadRequest("Unknown message type", nil)
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	if err := uc.touchChat(ctx, chat, message); err != nil {
		return nil, err
	}

	uc.broadcastMessage(chat, message, ws.EventNewMessage)
	return message, nil
}

// RespondToNegotiation resolves a pending offer. Accept and reject settle
// the offer in place; counter appends a fresh pending offer authored by the
// responder and leaves the original untouched, preserving the negotiation
// history.
func (uc *ChatUseCase) RespondToNegotiation(ctx context.Context, userID string, input RespondNegotiationInput) (*entity.Message, error) {
	if allowed, wait := uc.rateLimiter.Allow(userID, "respond_negotiation"); !allowed {
		logger.Warn("RespondToNegotiation: user %s rate limited for %v", userID, wait)
		return nil, errors.TooManyRequests("Too many negotiation responses, slow down")
	}

	if !entity.IsResponseStatus(input.Status) {
		return nil, errors.BadRequest("Status must be accepted, rejected or countered", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	original, err := uc.chatRepo.GetMessageByID(ctx, input.ChatID, input.MessageID)
	if err != nil {
		return nil, err
	}
	if original.Type != entity.MessageTypeNegotiation || original.Negotiation == nil {
		return nil, errors.BadRequest("Message is not a negotiation", nil)
	}
	if original.Sender.ID == userID {
		return nil, errors.Forbidden("Cannot respond to your own offer", nil)
	}

	if input.Status == entity.NegotiationCountered {
		return uc.counterOffer(ctx, chat, original, userID, input.CounterPrice)
	}

	updated, err := uc.chatRepo.UpdateNegotiationStatus(ctx, input.ChatID, input.MessageID, input.Status)
	if err != nil {
		return nil, err
	}

	uc.wsManager.BroadcastToChat(chat.ID, ws.EventNegotiationUpdate, messageEvent{
		ChatID:  chat.ID,
		Message: updated,
	})
	return updated, nil
}

// counterOffer swaps roles: the responder becomes the author of a new
// pending offer with only the price changed.
func (uc *ChatUseCase) counterOffer(ctx context.Context, chat *entity.Chat, original *entity.Message, userID string, price float64) (*entity.Message, error) {
	if price <= 0 {
		return nil, errors.BadRequest("Counter price must be positive", nil)
	}

	counter := &entity.Message{
		ChatID:      chat.ID,
		Type:        entity.MessageTypeNegotiation,
		Negotiation: original.Negotiation.Counter(price),
		CreatedAt:   time.Now(),
	}
	for _, p := range chat.Participants {
		if p.ID == userID {
			counter.Sender = p
			break
		}
	}

	if err := uc.chatRepo.CreateCounterOffer(ctx, chat.ID, original.ID, counter); err != nil {
		return nil, err
	}

	if err := uc.touchChat(ctx, chat, counter); err != nil {
		return nil, err
	}

	uc.wsManager.BroadcastToChat(chat.ID, ws.EventNegotiationUpdate, messageEvent{
		ChatID:  chat.ID,
		Message: counter,
	})
	return counter, nil
}

// touchChat refreshes the denormalized last-message cache and bumps unread
// counters for everyone except the sender. Unread keys only ever come from
// the participant set.
func (uc *ChatUseCase) touchChat(ctx context.Context, chat *entity.Chat, message *entity.Message) error {
	chat.LastMessage = previewOf(message)
	chat.LastMessageAt = message.CreatedAt
	if chat.UnreadCount == nil {
		chat.UnreadCount = make(map[string]int)
	}
	for _, p := range chat.Participants {
		if p.ID != message.Sender.ID {
			chat.UnreadCount[p.ID]++
		}
	}
	return uc.chatRepo.Update(ctx, chat)
}

func (uc *ChatUseCase) broadcastMessage(chat *entity.Chat, message *entity.Message, event string) {
	uc.wsManager.BroadcastToChat(chat.ID, event, messageEvent{
		ChatID:  chat.ID,
		Message: message,
	})

	update := chatListUpdate{
		ChatID:        chat.ID,
		LastMessage:   chat.LastMessage,
		LastMessageAt: chat.LastMessageAt,
		SenderID:      message.Sender.ID,
		SenderName:    message.Sender.Name,
		MessageType:   message.Type,
	}
	for _, p := range chat.Participants {
		if p.ID != message.Sender.ID {
			uc.wsManager.BroadcastToUser(p.ID, ws.EventChatListUpdate, update)
		}
	}
}

func (uc *ChatUseCase) GetUserChats(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	return uc.chatRepo.ListByUserID(ctx, userID, limit, offset)
}

func (uc *ChatUseCase) GetChatByID(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}
	return chat, nil
}

// GetChatWithMessages is the snapshot a client reconciles stream events
// against when opening a chat view.
func (uc *ChatUseCase) GetChatWithMessages(ctx context.Context, userID, chatID string, limit, offset int) (*ChatWithMessages, int64, error) {
	chat, err := uc.GetChatByID(ctx, userID, chatID)
	if err != nil {
		return nil, 0, err
	}

	messages, total, err := uc.chatRepo.GetMessagesByChat(ctx, chatID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return &ChatWithMessages{Chat: chat, Messages: messages}, total, nil
}

func (uc *ChatUseCase) GetChatMessages(ctx context.Context, userID, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	if _, err := uc.GetChatByID(ctx, userID, chatID); err != nil {
		return nil, 0, err
	}
	return uc.chatRepo.GetMessagesByChat(ctx, chatID, limit, offset)
}

// MarkChatAsRead zeroes the caller's unread counter. Clients call this when
// opening a chat; there is no dedicated push event for it.
func (uc *ChatUseCase) MarkChatAsRead(ctx context.Context, userID, chatID string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	if chat.UnreadCount == nil {
		chat.UnreadCount = make(map[string]int)
	}
	chat.UnreadCount[userID] = 0
	return uc.chatRepo.Update(ctx, chat)
}

// ListCandidateUsers returns users the caller could start a chat with.
func (uc *ChatUseCase) ListCandidateUsers(ctx context.Context, userID string, limit, offset int) ([]*entity.User, int64, error) {
	users, total, err := uc.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	candidates := make([]*entity.User, 0, len(users))
	for _, user := range users {
		if user.ID != userID {
			candidates = append(candidates, user)
		}
	}
	return candidates, total, nil
}

func buildNegotiation(input *NegotiationInput) (*entity.Negotiation, error) {
	if input == nil {
		return nil, errors.BadRequest("Negotiation details are required", nil)
	}
	if input.ProductName == "" {
		return nil, errors.BadRequest("Negotiation product name is required", nil)
	}
	if input.ProposedPrice <= 0 {
		return nil, errors.BadRequest("Proposed price must be positive", nil)
	}
	if input.Quantity <= 0 {
		return nil, errors.BadRequest("Quantity must be positive", nil)
	}

	return &entity.Negotiation{
		ProductName:   input.ProductName,
		OriginalPrice: input.OriginalPrice,
		ProposedPrice: input.ProposedPrice,
		Quantity:      input.Quantity,
		Status:        entity.NegotiationPending,
	}, nil
}

// previewOf renders the chat-list preview line for a message.
func previewOf(message *entity.Message) string {
	if message.Type == entity.MessageTypeNegotiation && message.Negotiation != nil {
		n := message.Negotiation
		return fmt.Sprintf("Offer: %s x%d @ %.2f", n.ProductName, n.Quantity, n.ProposedPrice)
	}
	return message.Content
}
