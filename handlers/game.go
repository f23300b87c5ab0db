// handlers/game.go
package handlers

import (
	"game-economy-service/middleware"
	"game-economy-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupGameRoutes(app fiber.Router, gameService *services.GameService, auth fiber.Handler, log *zap.Logger) {
	log = log.Named("http.game")

	// 🔐 All round operations need a player
	secured := app.Group("/games", auth)

	secured.Post("/rounds", func(c *fiber.Ctx) error {
		round, err := gameService.StartRound(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return fail(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(round)
	})

	secured.Post("/rounds/:id/finish", func(c *fiber.Ctx) error {
		var in services.FinishInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "body must be JSON with client_score, clicks and epic_count")
		}
		res, err := gameService.FinishRound(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
		if err != nil {
			return fail(c, log, err)
		}
		return c.JSON(res)
	})
}
