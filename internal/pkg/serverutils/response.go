package serverutils

import (
	"errors"

	"ai-docchat-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) ApiResponse {
	return ApiResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// ErrorHandlerMiddleware converts errors returned by handlers into JSON
// responses, mapping the domain sentinels onto HTTP statuses. Unrecognized
// errors become a generic 500 so internals never leak to the client.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrEmptyInput):
			status = fiber.StatusBadRequest
			message = err.Error()
		case errors.Is(err, gorm.ErrRecordNotFound):
			status = fiber.StatusNotFound
			message = "Resource not found"
		case errors.Is(err, apperr.ErrEmbeddingProvider), errors.Is(err, apperr.ErrCompletionProvider):
			status = fiber.StatusBadGateway
			message = err.Error()
		case errors.Is(err, apperr.ErrRetrievalStore):
			status = fiber.StatusServiceUnavailable
			message = err.Error()
		}

		return ctx.Status(status).JSON(ApiResponse{
			Success: false,
			Message: message,
		})
	}
}
