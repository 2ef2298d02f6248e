package handlers

import (
	"io"
	"net/http"

	"subsync/internal/common"
	"subsync/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// WebhookHandlers receives Zotlo status notifications.
type WebhookHandlers struct {
	webhookService services.WebhookService
	logger         *zap.Logger
}

func NewWebhookHandlers(webhookService services.WebhookService, logger *zap.Logger) *WebhookHandlers {
	return &WebhookHandlers{webhookService: webhookService, logger: logger.Named("http")}
}

type WebhookResponse struct {
	Message string `json:"message"`
	Outcome string `json:"outcome"`
}

// ZotloWebhook godoc
//
//	@Summary		Zotlo subscription webhook
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	WebhookResponse
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		500	{object}	common.ErrorResponse
//	@Router			/webhook/zotlo [post]
func (h *WebhookHandlers) ZotloWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return common.SendClientError(c, "Failed to read request body")
	}

	event, err := services.ParseZotloWebhook(body)
	if err != nil {
		h.logger.Warn("rejected zotlo webhook", zap.Error(err))
		return respondError(c, h.logger, err)
	}

	result, err := h.webhookService.HandleZotloWebhook(c.Request().Context(), event)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	message := "Webhook processed"
	if result.Outcome == services.WebhookSkipped {
		message = "Already active, skipped"
	}
	return c.JSON(http.StatusOK, WebhookResponse{Message: message, Outcome: result.Outcome})
}

func (h *WebhookHandlers) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook/zotlo", h.ZotloWebhook)
}
