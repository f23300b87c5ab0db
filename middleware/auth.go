// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserIDKey is the fiber.Locals key holding the authenticated user id.
const UserIDKey = "user_id"

// SessionResolver turns a session token into a user id.
type SessionResolver interface {
	ResolveUserID(token string) (string, error)
}

// UserContextMiddleware authenticates the player. With trustGateway set, an
// X-User-ID header is accepted only on requests that carry the gateway token;
// everything else must present a valid Bearer session token.
func UserContextMiddleware(resolver SessionResolver, gatewayToken string, trustGateway bool, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")

		if userID := strings.TrimSpace(c.Get("X-User-ID")); userID != "" && trustGateway {
			if gatewayTokenMatches(authHeader, gatewayToken) {
				c.Locals(UserIDKey, userID)
				return c.Next()
			}
			log.Warn("X-User-ID without gateway token", zap.String("path", c.Path()))
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" || token == authHeader {
			return errorJSON(c, fiber.StatusUnauthorized, "missing session token")
		}

		userID, err := resolver.ResolveUserID(token)
		if err != nil {
			log.Debug("session rejected", zap.String("path", c.Path()), zap.Error(err))
			return errorJSON(c, fiber.StatusUnauthorized, "invalid session token")
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// UserID returns the id set by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}
