package handlers

import (
	"game-economy-service/middleware"
	"game-economy-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type registerRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	InviteCode string `json:"invite_code"`
}

// SetupUserRoutes mounts registration behind the gateway token and the profile
// behind the player session.
func SetupUserRoutes(app fiber.Router, usersService *services.UsersService, authService *services.AuthService, gateway, auth fiber.Handler, log *zap.Logger) {
	log = log.Named("http.users")

	app.Post("/users/register", gateway, func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		user, created, err := usersService.Register(c.UserContext(), req.TelegramID, req.Username, req.InviteCode)
		if err != nil {
			return fail(c, log, err)
		}
		token, err := authService.Issue(user.ID, user.TelegramID)
		if err != nil {
			return fail(c, log, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(fiber.Map{
			"user":    user,
			"created": created,
			"token":   token,
		})
	})

	app.Get("/users/me", auth, func(c *fiber.Ctx) error {
		profile, err := usersService.Profile(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return fail(c, log, err)
		}
		return c.JSON(profile)
	})
}
