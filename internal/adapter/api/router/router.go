package router

import (
	"github.com/labstack/echo/v4"

	"farmlink/internal/adapter/api/handler"
	"farmlink/internal/adapter/api/middleware"
)

type Handlers struct {
	Chat      *handler.ChatHandler
	User      *handler.UserHandler
	Product   *handler.ProductHandler
	WebSocket *handler.WebSocketHandler
	Health    *handler.HealthHandler
	DevToken  *handler.DevTokenHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, development bool) {
	SetupChatRouter(e, h.Chat, authMiddleware)
	SetupUserRouter(e, h.User, authMiddleware)
	SetupProductRouter(e, h.Product, authMiddleware)
	SetupWebSocketRouter(e, h.WebSocket)
	SetupHealthRouter(e, h.Health)
	if development && h.DevToken != nil {
		SetupDevRouter(e, h.DevToken)
	}
}
