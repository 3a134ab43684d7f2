package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
)

// ErrorHandler maps domain errors onto HTTP status codes. Handlers return
// errors; translation happens in one place.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var refErr *domain.ReferenceError
		var valErr *domain.ValidationError
		var unavail *domain.ExternalUnavailable
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &refErr),
			errors.Is(err, domain.ErrCreditNotFound),
			errors.Is(err, domain.ErrInverterNotFound):
			code = fiber.StatusNotFound
		case errors.As(err, &valErr):
			code = fiber.StatusBadRequest
		case errors.As(err, &unavail):
			code = fiber.StatusBadGateway
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
		}

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
