package http

import (
	"errors"
	"net/http"
	"strconv"

	domainErrors "github.com/fetanpay/paylink/internal/domain/errors"
	"github.com/fetanpay/paylink/internal/middleware/auth"
	"github.com/fetanpay/paylink/internal/usecase"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	ledger *usecase.Ledger
	logger *zap.Logger
}

func NewCheckoutHandler(ledger *usecase.Ledger, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		ledger: ledger,
		logger: logger,
	}
}

type OpenTransactionRequest struct {
	LinkID int64   `json:"link_id" validate:"required,gt=0"`
	Amount *string `json:"amount,omitempty"`
}

// OpenCheckout handles the anonymous customer checkout flow: the link id in
// the path determines the merchant.
func (h *CheckoutHandler) OpenCheckout(c echo.Context) error {
	linkID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || linkID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid payment link id",
		})
	}

	var body struct {
		Amount *string `json:"amount,omitempty"`
	}
	// Body is optional for fixed-amount links.
	_ = c.Bind(&body)

	amount, err := parseAmount(body.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid amount",
		})
	}

	return h.open(c, uuid.Nil, linkID, amount)
}

// OpenTransaction handles the merchant-initiated checkout flow.
func (h *CheckoutHandler) OpenTransaction(c echo.Context) error {
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

	var req OpenTransactionRequest
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

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid amount",
		})
	}

	return h.open(c, merchantID, req.LinkID, amount)
}

func (h *CheckoutHandler) open(c echo.Context, merchantID uuid.UUID, linkID int64, amount *decimal.Decimal) error {
	result, err := h.ledger.Open(c.Request().Context(), merchantID, linkID, amount)
	if err != nil {
		// A failed-but-settled transaction still goes back to the caller
		// with its recorded reason.
		if result != nil && result.Transaction != nil {
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error":       "Checkout initialization failed",
				"detail":      err.Error(),
				"transaction": result.Transaction,
			})
		}
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

func parseAmount(raw *string) (*decimal.Decimal, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(c echo.Context, err error) error {
	var notFound *domainErrors.NotFoundError
	if errors.As(err, &notFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}

	var notPayable *domainErrors.LinkNotPayableError
	if errors.As(err, &notPayable) {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	var notConfigured *domainErrors.NotConfiguredError
	if errors.As(err, &notConfigured) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}

	var conflict *domainErrors.ConflictingOutcomeError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	var unavailable *domainErrors.ProviderUnavailableError
	if errors.As(err, &unavailable) {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
	}

	var rejected *domainErrors.ProviderRejectedError
	if errors.As(err, &rejected) {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
}
