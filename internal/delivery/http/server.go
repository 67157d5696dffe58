package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/pkg/errors"
	"github.com/nearyou-pipeline/internal/pkg/utils"
)

// customErrorHandler renders unhandled fiber errors in the standard
// error envelope.
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(utils.ErrorResponse{
			Error: errors.New("INTERNAL_SERVER_ERROR", err.Error(), code),
		})
	}
}
