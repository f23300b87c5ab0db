package middleware

import (
	"strconv"
	"time"

	"game-economy-service/monitoring"

	"github.com/gofiber/fiber/v2"
)

// MetricsMiddleware records request counts and latency per route pattern.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		monitoring.HttpRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		monitoring.ResponseTimeHistogram.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}
