package handlers

import (
	"game-economy-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var kindStatus = map[services.Kind]int{
	services.KindInvalidPayload:     fiber.StatusBadRequest,
	services.KindNotFound:           fiber.StatusNotFound,
	services.KindUnauthorized:       fiber.StatusUnauthorized,
	services.KindForbiddenBlocked:   fiber.StatusForbidden,
	services.KindUserBlocked:        fiber.StatusForbidden,
	services.KindInsufficientFunds:  fiber.StatusPaymentRequired,
	services.KindNotActive:          fiber.StatusConflict,
	services.KindJoinDeadlinePassed: fiber.StatusConflict,
	services.KindEventEnded:         fiber.StatusGone,
	services.KindAlreadyFinished:    fiber.StatusConflict,
	services.KindRoundExpired:       fiber.StatusUnprocessableEntity,
	services.KindCheatDetected:      fiber.StatusForbidden,
}

// fail writes the error envelope. Untyped errors are logged and reported as Internal
// without leaking their text.
func fail(c *fiber.Ctx, log *zap.Logger, err error) error {
	kind := services.KindOf(err)
	status, ok := kindStatus[kind]
	message := err.Error()
	if !ok {
		status = fiber.StatusInternalServerError
		message = "internal error"
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"kind": kind, "message": message},
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{"kind": services.KindInvalidPayload, "message": message},
	})
}
