package repository

import (
	"context"

	"github.com/fetanpay/paylink/internal/domain/model"
	"github.com/google/uuid"
)

// MerchantRepository supplies provider connection state and encrypted
// credential material for the gateway resolver.
type MerchantRepository interface {
	// GetCredential returns nil, nil when the merchant has not connected the
	// provider.
	GetCredential(ctx context.Context, merchantID uuid.UUID, provider string) (*model.GatewayCredential, error)

	// SaveCredential inserts or replaces the merchant's connection for the
	// credential's provider.
	SaveCredential(ctx context.Context, cred *model.GatewayCredential) error

	DeleteCredential(ctx context.Context, merchantID uuid.UUID, provider string) error
}
