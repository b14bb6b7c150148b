package handler

import (
	"github.com/labstack/echo/v4"

	"farmlink/internal/usecase"
	"farmlink/pkg/response"
	"farmlink/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createChatRequest struct {
	RecipientID    string `json:"recipient_id" validate:"required"`
	InitialMessage string `json:"initial_message"`
}

type sendMessageRequest struct {
	Content     string              `json:"content"`
	Type        string              `json:"type" validate:"omitempty,oneof=text negotiation"`
	TempID      string              `json:"temp_id"`
	Negotiation *negotiationRequest `json:"negotiation"`
}

type negotiationRequest struct {
	ProductName   string  `json:"product_name" validate:"required"`
	OriginalPrice float64 `json:"original_price"`
	ProposedPrice float64 `json:"proposed_price" validate:"required,gt=0"`
	Quantity      int     `json:"quantity" validate:"required,gt=0"`
}

type respondNegotiationRequest struct {
	MessageID    string  `json:"message_id" validate:"required"`
	Status       string  `json:"status" validate:"required,oneof=accepted rejected countered"`
	CounterPrice float64 `json:"counter_price"`
}

// CreateChat starts a direct chat, or returns the existing one for the pair.
func (h *ChatHandler) CreateChat(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.CreateOrGetChat(c.Request().Context(), userID, usecase.CreateChatInput{
		RecipientID:    req.RecipientID,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, chat)
}

func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c, 20)

	chats, total, err := h.chatUseCase.GetUserChats(c.Request().Context(), userID, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, chats, total, params.Limit, params.Offset)
}

// GetChat returns one chat with its message snapshot, oldest first.
func (h *ChatHandler) GetChat(c echo.Context) error {
	userID := c.Get("uid").(string)
	chatID := c.Param("id")
	params := utils.GetPaginationParams(c, 50)

	chat, total, err := h.chatUseCase.GetChatWithMessages(c.Request().Context(), userID, chatID, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, chat, total, params.Limit, params.Offset)
}

func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	chatID := c.Param("id")
	params := utils.GetPaginationParams(c, 50)

	messages, total, err := h.chatUseCase.GetChatMessages(c.Request().Context(), userID, chatID, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, messages, total, params.Limit, params.Offset)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	chatID := c.Param("id")

	input := usecase.SendMessageInput{
		ChatID:  chatID,
		Content: req.Content,
		Type:    req.Type,
		TempID:  req.TempID,
	}
	if req.Negotiation != nil {
		input.Negotiation = &usecase.NegotiationInput{
			ProductName:   req.Negotiation.ProductName,
			OriginalPrice: req.Negotiation.OriginalPrice,
			ProposedPrice: req.Negotiation.ProposedPrice,
			Quantity:      req.Negotiation.Quantity,
		}
	}

	message, err := h.chatUseCase.AppendMessage(c.Request().Context(), userID, input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) RespondNegotiation(c echo.Context) error {
	var req respondNegotiationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	chatID := c.Param("id")

	message, err := h.chatUseCase.RespondToNegotiation(c.Request().Context(), userID, usecase.RespondNegotiationInput{
		ChatID:       chatID,
		MessageID:    req.MessageID,
		Status:       req.Status,
		CounterPrice: req.CounterPrice,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	userID := c.Get("uid").(string)
	chatID := c.Param("id")

	if err := h.chatUseCase.MarkChatAsRead(c.Request().Context(), userID, chatID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}
