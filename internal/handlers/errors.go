package handlers

import (
	"errors"
	"net/http"

	"subsync/internal/common"
	"subsync/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respondError maps service errors to the JSON error envelope.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var (
		input       *common.ClientInputError
		provider    *services.ProviderError
		conflict    *common.ConflictError
		notFound    *common.NotFoundError
		persistence *common.PersistenceError
	)

	switch {
	case errors.As(err, &input):
		status := http.StatusBadRequest
		if input.Status != 0 {
			status = input.Status
		}
		var details map[string]any
		if input.Field != "" {
			details = map[string]any{input.Field: input.Message}
		}
		return c.JSON(status, common.CreateErrorResponse("CLIENT_ERROR", input.Message, details))
	case errors.As(err, &provider):
		logger.Warn("zotlo request failed", zap.String("operation", provider.Operation), zap.Int("http_status", provider.HTTPStatus), zap.Error(err))
		return c.JSON(provider.StatusCode(), common.CreateErrorResponse("PROVIDER_ERROR", provider.Message, provider.Details()))
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, common.CreateErrorResponse("CONFLICT", conflict.Message, conflict.Details))
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, common.CreateErrorResponse("NOT_FOUND", notFound.Error(), nil))
	case errors.As(err, &persistence):
		logger.Error("persistence failure", zap.String("op", persistence.Op), zap.Error(err))
		return common.SendServerError(c, "Internal error")
	default:
		logger.Error("unhandled error", zap.Error(err))
		return common.SendServerError(c, "Internal error")
	}
}
