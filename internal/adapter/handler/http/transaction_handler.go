package http

import (
	"net/http"
	"strconv"

	"github.com/fetanpay/paylink/internal/domain/repository"
	"github.com/fetanpay/paylink/internal/middleware/auth"
	"github.com/fetanpay/paylink/internal/usecase"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	ledger     *usecase.Ledger
	reconciler *usecase.Reconciler
	receipts   repository.WebhookReceiptRepository
	logger     *zap.Logger
}

func NewTransactionHandler(ledger *usecase.Ledger, reconciler *usecase.Reconciler, receipts repository.WebhookReceiptRepository, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		ledger:     ledger,
		reconciler: reconciler,
		receipts:   receipts,
		logger:     logger,
	}
}

// GetTransaction returns one transaction owned by the caller.
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	txn, err := h.ledger.GetTransaction(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return writeDomainError(c, err)
	}

	if user.Role != auth.RoleAdmin && txn.MerchantID.String() != user.MerchantID {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "transaction not found",
		})
	}

	return c.JSON(http.StatusOK, txn)
}

// ListLinkTransactions returns a link's transactions, newest first.
func (h *TransactionHandler) ListLinkTransactions(c echo.Context) error {
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

	linkID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || linkID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid payment link id",
		})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	txns, err := h.ledger.ListLinkTransactions(c.Request().Context(), merchantID, linkID, limit)
	if err != nil {
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transactions": txns,
		"count":        len(txns),
	})
}

// ReconcileTransaction is the operator-triggered repair path for one stuck
// transaction.
func (h *TransactionHandler) ReconcileTransaction(c echo.Context) error {
	if err := auth.RequireRole(c, auth.RoleAdmin); err != nil {
		return err
	}

	reference := c.Param("reference")
	h.logger.Info("Manual reconcile requested", zap.String("reference", reference))

	diag, err := h.reconciler.ReconcileOne(c.Request().Context(), reference)
	if err != nil {
		if diag != nil {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":      err.Error(),
				"diagnostic": diag,
			})
		}
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, diag)
}

// ListUnprocessedReceipts exposes the receipt backlog for operators.
func (h *TransactionHandler) ListUnprocessedReceipts(c echo.Context) error {
	if err := auth.RequireRole(c, auth.RoleAdmin); err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 500 {
		limit = 100
	}

	receipts, err := h.receipts.ListUnprocessed(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to list unprocessed receipts",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"receipts": receipts,
		"count":    len(receipts),
	})
}
