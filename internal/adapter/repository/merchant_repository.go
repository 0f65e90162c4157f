package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fetanpay/paylink/internal/domain/model"
	domainRepo "github.com/fetanpay/paylink/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type merchantRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(db *gorm.DB, logger *zap.Logger) domainRepo.MerchantRepository {
	return &merchantRepository{
		db:     db,
		logger: logger,
	}
}

func (r *merchantRepository) GetCredential(ctx context.Context, merchantID uuid.UUID, provider string) (*model.GatewayCredential, error) {
	var cred model.GatewayCredential

	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND provider = ?", merchantID, provider).
		First(&cred).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get gateway credential",
			zap.String("merchant_id", merchantID.String()),
			zap.String("provider", provider),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get gateway credential: %w", err)
	}

	return &cred, nil
}

// SaveCredential upserts the merchant's connection on (merchant_id, provider)
// so a reconnect replaces the stored secret.
func (r *merchantRepository) SaveCredential(ctx context.Context, cred *model.GatewayCredential) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "merchant_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"encrypted_secret", "secret_iv", "provider_merchant_id", "updated_at",
			}),
		}).
		Create(cred).Error

	if err != nil {
		r.logger.Error("Failed to save gateway credential",
			zap.String("merchant_id", cred.MerchantID.String()),
			zap.String("provider", cred.Provider),
			zap.Error(err))
		return fmt.Errorf("failed to save gateway credential: %w", err)
	}

	return nil
}

func (r *merchantRepository) DeleteCredential(ctx context.Context, merchantID uuid.UUID, provider string) error {
	result := r.db.WithContext(ctx).
		Where("merchant_id = ? AND provider = ?", merchantID, provider).
		Delete(&model.GatewayCredential{})

	if result.Error != nil {
		r.logger.Error("Failed to delete gateway credential",
			zap.String("merchant_id", merchantID.String()),
			zap.String("provider", provider),
			zap.Error(result.Error))
		return fmt.Errorf("failed to delete gateway credential: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("no %s connection found for merchant %s", provider, merchantID)
	}

	return nil
}
