package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/fetanpay/paylink/internal/domain/model"
	"github.com/fetanpay/paylink/internal/domain/repository"
	"github.com/fetanpay/paylink/internal/middleware/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LinkHandler struct {
	links  repository.PaymentLinkRepository
	logger *zap.Logger
}

func NewLinkHandler(links repository.PaymentLinkRepository, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		links:  links,
		logger: logger,
	}
}

type CreateLinkRequest struct {
	Title      string `json:"title" validate:"required,max=255"`
	Amount     string `json:"amount" validate:"required"`
	Currency   string `json:"currency"`
	Provider   string `json:"provider" validate:"required"`
	SingleUse  bool   `json:"single_use"`
	TTLMinutes int    `json:"ttl_minutes" validate:"omitempty,gt=0"`
}

// CreateLink mints a payment link for the authenticated merchant.
func (h *LinkHandler) CreateLink(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	merchantID, err := uuid.Parse(user.MerchantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid merchant id",
		})
	}

	var req CreateLinkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	provider := strings.ToLower(req.Provider)
	if !knownProvider(provider) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "unknown provider: " + req.Provider,
		})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid amount",
		})
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "ETB"
	}

	link := &model.PaymentLink{
		MerchantID: merchantID,
		Title:      req.Title,
		Amount:     amount,
		Currency:   currency,
		Provider:   provider,
		SingleUse:  req.SingleUse,
		Status:     model.PaymentLinkStatusActive,
	}
	if req.TTLMinutes > 0 {
		expiresAt := time.Now().Add(time.Duration(req.TTLMinutes) * time.Minute)
		link.ExpiresAt = &expiresAt
	}

	if err := h.links.Create(c.Request().Context(), link); err != nil {
		h.logger.Error("Failed to create payment link",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create payment link",
		})
	}

	h.logger.Info("Payment link created",
		zap.Int64("payment_link_id", link.ID),
		zap.String("merchant_id", merchantID.String()),
		zap.String("provider", provider))

	return c.JSON(http.StatusCreated, link)
}
