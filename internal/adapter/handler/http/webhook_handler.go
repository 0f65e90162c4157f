package http

import (
	"io"
	"net/http"

	"github.com/fetanpay/paylink/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	ingest *usecase.WebhookIngest
	logger *zap.Logger
}

func NewWebhookHandler(ingest *usecase.WebhookIngest, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingest: ingest,
		logger: logger,
	}
}

// Receive accepts one provider callback. The response is 200 whenever the
// delivery was durably recorded, even if downstream processing was deferred;
// providers treat any 2xx as delivered.
func (h *WebhookHandler) Receive(c echo.Context) error {
	provider := c.Param("provider")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body",
			zap.String("provider", provider),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Failed to read request body",
		})
	}

	result, err := h.ingest.Ingest(c.Request().Context(), provider, payload)
	if err != nil {
		h.logger.Warn("Webhook rejected",
			zap.String("provider", provider),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"accepted": false,
			"error":    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, result)
}
