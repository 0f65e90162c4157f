package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/fetanpay/paylink/internal/config"
	domainErrors "github.com/fetanpay/paylink/internal/domain/errors"
	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/fetanpay/paylink/internal/domain/model"
	"github.com/fetanpay/paylink/internal/domain/repository"
	"github.com/fetanpay/paylink/internal/infrastructure/crypto"
	"github.com/fetanpay/paylink/internal/infrastructure/gateway/chapa"
	"github.com/fetanpay/paylink/internal/infrastructure/gateway/santimpay"
	stripeGateway "github.com/fetanpay/paylink/internal/infrastructure/gateway/stripe"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ProviderSantimPay = "santimpay"
	ProviderChapa     = "chapa"
	ProviderStripe    = "stripe"
)

// Registry constructs gateway adapters for a merchant + provider pair,
// decrypting the stored credential on demand. Adapters are built per call and
// never pooled; credentials may change between a disconnect and reconnect.
type Registry struct {
	cfg       *config.Config
	merchants repository.MerchantRepository
	cipher    crypto.CredentialCipher
	logger    *zap.Logger
}

// NewRegistry creates a new gateway registry
func NewRegistry(cfg *config.Config, merchants repository.MerchantRepository, cipher crypto.CredentialCipher, logger *zap.Logger) *Registry {
	return &Registry{
		cfg:       cfg,
		merchants: merchants,
		cipher:    cipher,
		logger:    logger,
	}
}

// Resolve returns an adapter bound to the merchant's connection for the
// provider, or NotConfigured when the merchant has not connected it.
func (r *Registry) Resolve(ctx context.Context, merchantID uuid.UUID, provider string) (gateway.PaymentGateway, error) {
	name := strings.ToLower(strings.TrimSpace(provider))

	cred, err := r.merchants.GetCredential(ctx, merchantID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up gateway credential: %w", err)
	}
	if cred == nil {
		return nil, domainErrors.NewNotConfiguredError(merchantID, name)
	}

	switch name {
	case ProviderSantimPay:
		if r.cfg.Service.SantimPay.PrivateKey == "" {
			return nil, domainErrors.NewNotConfiguredError(merchantID, name)
		}
		if cred.ProviderMerchantID == "" {
			return nil, domainErrors.NewNotConfiguredError(merchantID, name)
		}
		return santimpay.New(r.cfg.Service.SantimPay.PrivateKey, cred.ProviderMerchantID,
			r.cfg.Service.SantimPay.BaseURL, r.logger)

	case ProviderChapa:
		secret, err := r.decryptSecret(cred)
		if err != nil {
			return nil, err
		}
		return chapa.New(secret, "", r.logger), nil

	case ProviderStripe:
		secret, err := r.decryptSecret(cred)
		if err != nil {
			return nil, err
		}
		return stripeGateway.New(secret, r.logger), nil

	default:
		return nil, domainErrors.NewNotConfiguredError(merchantID, name)
	}
}

func (r *Registry) decryptSecret(cred *model.GatewayCredential) (string, error) {
	if cred.EncryptedSecret == "" {
		return "", domainErrors.NewNotConfiguredError(cred.MerchantID, cred.Provider)
	}
	secret, err := r.cipher.Decrypt(cred.EncryptedSecret, cred.SecretIV)
	if err != nil {
		r.logger.Error("Failed to decrypt gateway credential",
			zap.String("merchant_id", cred.MerchantID.String()),
			zap.String("provider", cred.Provider))
		return "", fmt.Errorf("failed to decrypt gateway credential: %w", err)
	}
	return secret, nil
}

// ParseWebhook dispatches a raw callback payload to the provider's pure
// mapping function.
func (r *Registry) ParseWebhook(provider string, payload []byte) (*gateway.Notice, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderSantimPay:
		return santimpay.ParseWebhook(payload)
	case ProviderChapa:
		return chapa.ParseWebhook(payload)
	case ProviderStripe:
		return stripeGateway.ParseWebhook(payload)
	default:
		return nil, fmt.Errorf("unsupported webhook provider: %s", provider)
	}
}
