package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fetanpay/paylink/internal/domain/model"
	domainRepo "github.com/fetanpay/paylink/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentLinkRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentLinkRepository creates a new payment link repository
func NewPaymentLinkRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentLinkRepository {
	return &paymentLinkRepository{
		db:     db,
		logger: logger,
	}
}

func (r *paymentLinkRepository) Create(ctx context.Context, link *model.PaymentLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		r.logger.Error("Failed to create payment link",
			zap.String("merchant_id", link.MerchantID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create payment link: %w", err)
	}
	return nil
}

func (r *paymentLinkRepository) GetByID(ctx context.Context, id int64) (*model.PaymentLink, error) {
	var link model.PaymentLink

	err := r.db.WithContext(ctx).First(&link, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment link",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment link: %w", err)
	}

	return &link, nil
}

func (r *paymentLinkRepository) MarkExpired(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.PaymentLink{}).
		Where("id = ? AND status = ?", id, model.PaymentLinkStatusActive).
		Update("status", model.PaymentLinkStatusExpired)

	if result.Error != nil {
		r.logger.Error("Failed to mark payment link expired",
			zap.Int64("id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark payment link expired: %w", result.Error)
	}

	return nil
}
