package serverutils

import (
	"errors"

	"docchat-be/pkg/rag/ragerr"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ErrorHandlerMiddleware translates errors bubbling out of controllers into
// the standard response envelope. Taxonomy errors map to stable status codes
// so clients can branch on them.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		var ingestionErr *ragerr.IngestionError
		if errors.As(err, &ingestionErr) {
			return ctx.Status(fiber.StatusUnprocessableEntity).
				JSON(ErrorResponse(fiber.StatusUnprocessableEntity, ingestionErr.Error()))
		}

		var embeddingErr *ragerr.EmbeddingError
		if errors.As(err, &embeddingErr) {
			return ctx.Status(fiber.StatusBadGateway).
				JSON(ErrorResponse(fiber.StatusBadGateway, "embedding backend unavailable"))
		}

		var backendErr *ragerr.CompletionBackendError
		if errors.As(err, &backendErr) {
			return ctx.Status(fiber.StatusBadGateway).
				JSON(ErrorResponse(fiber.StatusBadGateway, "completion backend unavailable"))
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.Status(fiber.StatusNotFound).
				JSON(ErrorResponse(fiber.StatusNotFound, "resource not found"))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
	}
}
