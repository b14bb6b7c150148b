package handler

import (
	"github.com/labstack/echo/v4"

	"farmlink/internal/usecase"
	"farmlink/pkg/response"
	"farmlink/pkg/utils"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
	chatUseCase *usecase.ChatUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase, chatUseCase *usecase.ChatUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
		chatUseCase: chatUseCase,
	}
}

type registerProfileRequest struct {
	Name  string `json:"name" validate:"required"`
	Role  string `json:"role" validate:"required,oneof=farmer retailer consumer"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (h *UserHandler) RegisterProfile(c echo.Context) error {
	var req registerProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	user, err := h.userUseCase.RegisterProfile(c.Request().Context(), uid, usecase.RegisterProfileInput{
		Name:  req.Name,
		Role:  req.Role,
		Email: req.Email,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, user)
}

func (h *UserHandler) GetMe(c echo.Context) error {
	uid := c.Get("uid").(string)

	user, err := h.userUseCase.GetUser(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

// ListUsers returns chat candidates, everyone but the caller.
func (h *UserHandler) ListUsers(c echo.Context) error {
	uid := c.Get("uid").(string)
	params := utils.GetPaginationParams(c, 20)

	users, total, err := h.chatUseCase.ListCandidateUsers(c.Request().Context(), uid, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, users, total, params.Limit, params.Offset)
}
