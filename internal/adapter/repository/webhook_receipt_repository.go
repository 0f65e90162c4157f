package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fetanpay/paylink/internal/domain/model"
	domainRepo "github.com/fetanpay/paylink/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookReceiptRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookReceiptRepository creates a new webhook receipt repository
func NewWebhookReceiptRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WebhookReceiptRepository {
	return &webhookReceiptRepository{
		db:     db,
		logger: logger,
	}
}

func (r *webhookReceiptRepository) FindProcessed(ctx context.Context, provider, providerRef string) (*model.WebhookReceipt, error) {
	var receipt model.WebhookReceipt

	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_ref = ? AND processed = ?", provider, providerRef, true).
		First(&receipt).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to look up processed receipt",
			zap.String("provider", provider),
			zap.String("provider_ref", providerRef),
			zap.Error(err))
		return nil, fmt.Errorf("failed to look up processed receipt: %w", err)
	}

	return &receipt, nil
}

// Record inserts the receipt; the unique (provider, provider_ref) index turns
// a concurrent duplicate delivery into a no-op.
func (r *webhookReceiptRepository) Record(ctx context.Context, receipt *model.WebhookReceipt) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(receipt).Error

	if err != nil {
		r.logger.Error("Failed to record webhook receipt",
			zap.String("provider", receipt.Provider),
			zap.String("provider_ref", receipt.ProviderRef),
			zap.Error(err))
		return fmt.Errorf("failed to record webhook receipt: %w", err)
	}

	return nil
}

func (r *webhookReceiptRepository) MarkProcessed(ctx context.Context, provider, providerRef string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookReceipt{}).
		Where("provider = ? AND provider_ref = ?", provider, providerRef).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": &now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark receipt as processed",
			zap.String("provider", provider),
			zap.String("provider_ref", providerRef),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark receipt as processed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook receipt not found: %s/%s", provider, providerRef)
	}

	return nil
}

func (r *webhookReceiptRepository) MarkFailed(ctx context.Context, provider, providerRef string, procErr error) error {
	errorMsg := procErr.Error()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookReceipt{}).
		Where("provider = ? AND provider_ref = ?", provider, providerRef).
		Updates(map[string]interface{}{
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
			"last_error":          &errorMsg,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark receipt as failed",
			zap.String("provider", provider),
			zap.String("provider_ref", providerRef),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark receipt as failed: %w", result.Error)
	}

	return nil
}

func (r *webhookReceiptRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.WebhookReceipt, error) {
	var receipts []*model.WebhookReceipt

	query := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&receipts).Error; err != nil {
		r.logger.Error("Failed to list unprocessed receipts", zap.Error(err))
		return nil, fmt.Errorf("failed to list unprocessed receipts: %w", err)
	}

	return receipts, nil
}
