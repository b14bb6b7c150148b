package router

import (
	"github.com/labstack/echo/v4"

	"farmlink/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler) {
	e.POST("/v1/dev/token", devTokenHandler.GenerateToken)
}
