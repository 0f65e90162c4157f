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
)

type transactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		r.logger.Error("Failed to create transaction",
			zap.String("reference", txn.Reference),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	var txn model.Transaction

	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&txn).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

func (r *transactionRepository) Update(ctx context.Context, txn *model.Transaction) error {
	txn.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(txn).Error; err != nil {
		r.logger.Error("Failed to update transaction",
			zap.String("reference", txn.Reference),
			zap.Error(err))
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*model.Transaction, error) {
	var txns []*model.Transaction

	query := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.TransactionStatusProcessing, updatedBefore).
		Order("updated_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&txns).Error; err != nil {
		r.logger.Error("Failed to list stuck transactions", zap.Error(err))
		return nil, fmt.Errorf("failed to list stuck transactions: %w", err)
	}

	return txns, nil
}

func (r *transactionRepository) ListByLink(ctx context.Context, linkID int64, limit int) ([]*model.Transaction, error) {
	var txns []*model.Transaction

	query := r.db.WithContext(ctx).
		Where("payment_link_id = ?", linkID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&txns).Error; err != nil {
		r.logger.Error("Failed to list link transactions",
			zap.Int64("payment_link_id", linkID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list link transactions: %w", err)
	}

	return txns, nil
}
