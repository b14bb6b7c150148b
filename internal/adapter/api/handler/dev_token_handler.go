package handler

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"farmlink/pkg/config"
	"farmlink/pkg/response"
)

// DevTokenHandler mints HS256 tokens for local development, where no
// Firebase project is configured. Its route is only registered when
// ENVIRONMENT=development.
type DevTokenHandler struct {
	cfg *config.Config
}

func NewDevTokenHandler(cfg *config.Config) *DevTokenHandler {
	return &DevTokenHandler{cfg: cfg}
}

type devTokenRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": req.UserID,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(h.cfg.JWTExpiry) * time.Second).Unix(),
	})

	signed, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"token": signed})
}
