package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"farmlink/pkg/config"
)

// AuthMiddleware verifies bearer tokens. With a Firebase auth client it
// verifies ID tokens; without one (local development) it falls back to
// HS256 tokens signed with the configured secret.
type AuthMiddleware struct {
	authClient *auth.Client
	cfg        *config.Config
}

func NewAuthMiddleware(authClient *auth.Client, cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		authClient: authClient,
		cfg:        cfg,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		uid, err := m.VerifyToken(c.Request().Context(), parts[1])
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set("uid", uid)
		return next(c)
	}
}

// VerifyToken resolves a raw token to a user ID. WebSocket upgrades call
// this directly since browsers cannot set headers on the upgrade request.
func (m *AuthMiddleware) VerifyToken(ctx context.Context, token string) (string, error) {
	if m.authClient != nil {
		decoded, err := m.authClient.VerifyIDToken(ctx, token)
		if err != nil {
			return "", err
		}
		return decoded.UID, nil
	}
	return m.verifyDevToken(token)
}

func (m *AuthMiddleware) verifyDevToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.cfg.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}

	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return uid, nil
}
