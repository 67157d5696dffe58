package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Logger emits one structured line per request.
func Logger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}
		if id, ok := c.Locals("request_id").(string); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		logger.Info("request", fields...)
		return err
	}
}
