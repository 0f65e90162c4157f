package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/fetanpay/paylink/internal/domain/model"
	"github.com/fetanpay/paylink/internal/domain/repository"
	"github.com/fetanpay/paylink/internal/infrastructure/crypto"
	infragateway "github.com/fetanpay/paylink/internal/infrastructure/gateway"
	"github.com/fetanpay/paylink/internal/middleware/auth"
	"github.com/fetanpay/paylink/internal/usecase"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProviderHandler struct {
	merchants repository.MerchantRepository
	cipher    crypto.CredentialCipher
	ledger    *usecase.Ledger
	logger    *zap.Logger
}

func NewProviderHandler(merchants repository.MerchantRepository, cipher crypto.CredentialCipher, ledger *usecase.Ledger, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{
		merchants: merchants,
		cipher:    cipher,
		ledger:    ledger,
		logger:    logger,
	}
}

type ConnectProviderRequest struct {
	Secret             string `json:"secret"`
	ProviderMerchantID string `json:"provider_merchant_id"`
}

// ConnectProvider stores the merchant's credential for one provider. The
// secret is encrypted before it reaches the database; SantimPay onboarding
// carries no secret of its own, only the provider-side merchant id.
func (h *ProviderHandler) ConnectProvider(c echo.Context) error {
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

	provider := strings.ToLower(c.Param("provider"))
	if !knownProvider(provider) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("unknown provider: %s", provider),
		})
	}

	var req ConnectProviderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
		})
	}

	cred := &model.GatewayCredential{
		MerchantID:         merchantID,
		Provider:           provider,
		ProviderMerchantID: req.ProviderMerchantID,
	}

	switch provider {
	case infragateway.ProviderSantimPay:
		if req.ProviderMerchantID == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "provider_merchant_id is required for santimpay",
			})
		}
	default:
		if req.Secret == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "secret is required",
			})
		}
		encrypted, iv, err := h.cipher.Encrypt(req.Secret)
		if err != nil {
			h.logger.Error("Failed to encrypt provider secret", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Failed to store credential",
			})
		}
		cred.EncryptedSecret = encrypted
		cred.SecretIV = iv
	}

	if err := h.merchants.SaveCredential(c.Request().Context(), cred); err != nil {
		h.logger.Error("Failed to save provider credential",
			zap.String("merchant_id", merchantID.String()),
			zap.String("provider", provider),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to store credential",
		})
	}

	h.logger.Info("Provider connected",
		zap.String("merchant_id", merchantID.String()),
		zap.String("provider", provider))

	return c.JSON(http.StatusOK, echo.Map{
		"provider": provider,
		"status":   "connected",
	})
}

// DisconnectProvider removes the merchant's credential for one provider.
func (h *ProviderHandler) DisconnectProvider(c echo.Context) error {
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

	provider := strings.ToLower(c.Param("provider"))
	if err := h.merchants.DeleteCredential(c.Request().Context(), merchantID, provider); err != nil {
		h.logger.Error("Failed to delete provider credential",
			zap.String("merchant_id", merchantID.String()),
			zap.String("provider", provider),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to disconnect provider",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"provider": provider,
		"status":   "disconnected",
	})
}

type PayoutRequest struct {
	Provider      string `json:"provider" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	Currency      string `json:"currency"`
	Destination   string `json:"destination" validate:"required"`
	PaymentMethod string `json:"payment_method"`
	Reference     string `json:"reference"`
	Reason        string `json:"reason"`
}

// Payout pushes funds out through a provider that supports transfers.
func (h *ProviderHandler) Payout(c echo.Context) error {
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

	var req PayoutRequest
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

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid amount",
		})
	}

	resp, err := h.ledger.Payout(c.Request().Context(), merchantID, strings.ToLower(req.Provider), &gateway.PayoutRequest{
		Reference:     req.Reference,
		Amount:        amount,
		Currency:      req.Currency,
		PhoneNumber:   req.Destination,
		PaymentMethod: req.PaymentMethod,
		Reason:        req.Reason,
	})
	if err != nil {
		if err == gateway.ErrNotSupported {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"error": fmt.Sprintf("provider %s does not support payouts", req.Provider),
			})
		}
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

func knownProvider(provider string) bool {
	switch provider {
	case infragateway.ProviderSantimPay, infragateway.ProviderChapa, infragateway.ProviderStripe:
		return true
	}
	return false
}
