// Package transport holds the fiber surface shared across handlers.
package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

// ErrorHandler maps domain sentinel errors to HTTP statuses so handlers
// return service errors untranslated.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)

		logger.Error("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func statusFor(err error) int {
	var fiberErr *fiber.Error

	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrClosed):
		return fiber.StatusConflict
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}
