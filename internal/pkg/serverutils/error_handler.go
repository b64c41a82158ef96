package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors returned by downstream handlers
// into a BaseResponse JSON body with the matching status code.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := StatusFromError(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func StatusFromError(err error) (int, string) {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusUnprocessableEntity, validationErr.Message
	case errors.As(err, &notFoundErr):
		return fiber.StatusNotFound, notFoundErr.Error()
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}
