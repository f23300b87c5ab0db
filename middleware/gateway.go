// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GatewayAuthMiddleware validates the Bearer token the bot gateway sends on
// server-to-server routes (registration, admin).
func GatewayAuthMiddleware(expectedToken string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			log.Warn("gateway token not configured, rejecting", zap.String("path", c.Path()))
			return errorJSON(c, fiber.StatusUnauthorized, "gateway authentication is not configured")
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Info("missing gateway authorization", zap.String("path", c.Path()))
			return errorJSON(c, fiber.StatusUnauthorized, "gateway authentication token missing")
		}

		if !gatewayTokenMatches(authHeader, expectedToken) {
			log.Warn("invalid gateway token", zap.String("path", c.Path()))
			return errorJSON(c, fiber.StatusUnauthorized, "invalid gateway authentication token")
		}
		return c.Next()
	}
}

// gatewayTokenMatches accepts both "Bearer <token>" and the raw token.
func gatewayTokenMatches(authHeader, expectedToken string) bool {
	if expectedToken == "" || authHeader == "" {
		return false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"kind": "Unauthorized", "message": message},
	})
}
