package handlers

import (
	"game-economy-service/workers"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SetupAdminRoutes exposes operator views. gateway guards the whole group.
func SetupAdminRoutes(app fiber.Router, reconciler *workers.ReconciliationWorker, gateway fiber.Handler, log *zap.Logger) {
	log = log.Named("http.admin")

	admin := app.Group("/admin", gateway)
	admin.Get("/reconciliation", func(c *fiber.Ctx) error {
		unpaid, err := reconciler.Scan(c.UserContext())
		if err != nil {
			return fail(c, log, err)
		}
		return c.JSON(fiber.Map{"unpaid": unpaid, "count": len(unpaid)})
	})
}
