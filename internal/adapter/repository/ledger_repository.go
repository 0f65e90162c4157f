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

type ledgerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB, logger *zap.Logger) domainRepo.LedgerRepository {
	return &ledgerRepository{
		db:     db,
		logger: logger,
	}
}

// nonTerminalStatuses guards the conditional update: a terminal row is never
// written again, so two racing callers cannot both apply an outcome.
var nonTerminalStatuses = []model.TransactionStatus{
	model.TransactionStatusInitialized,
	model.TransactionStatusProcessing,
}

func (r *ledgerRepository) FinalizeOutcome(ctx context.Context, reference string, status model.TransactionStatus, failureReason *string, evidence model.JSONB) (*model.Transaction, bool, error) {
	if !status.IsTerminal() {
		return nil, false, fmt.Errorf("finalize requires a terminal status, got %q", status)
	}

	var txn model.Transaction
	applied := false
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     status,
			"updated_at": now,
		}
		if evidence != nil {
			updates["last_provider_response"] = evidence
		}
		if status == model.TransactionStatusSuccess {
			updates["paid_at"] = now
		}
		if failureReason != nil {
			updates["failure_reason"] = *failureReason
		}

		result := tx.Model(&model.Transaction{}).
			Where("reference = ? AND status IN ?", reference, nonTerminalStatuses).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		applied = result.RowsAffected == 1

		if err := tx.Where("reference = ?", reference).First(&txn).Error; err != nil {
			return err
		}

		if applied && status == model.TransactionStatusSuccess {
			result := tx.Model(&model.PaymentLink{}).
				Where("id = ?", txn.PaymentLinkID).
				Updates(map[string]interface{}{
					"total_collected": gorm.Expr("total_collected + ?", txn.Amount),
					"success_count":   gorm.Expr("success_count + 1"),
					"updated_at":      now,
				})
			if result.Error != nil {
				return result.Error
			}

			// Single-use links are spent by their first success.
			result = tx.Model(&model.PaymentLink{}).
				Where("id = ? AND single_use = ?", txn.PaymentLinkID, true).
				Updates(map[string]interface{}{
					"status":  model.PaymentLinkStatusExpired,
					"paid_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		r.logger.Error("Failed to finalize transaction outcome",
			zap.String("reference", reference),
			zap.String("status", string(status)),
			zap.Error(err))
		return nil, false, fmt.Errorf("failed to finalize transaction outcome: %w", err)
	}

	return &txn, applied, nil
}

func (r *ledgerRepository) RecordConflict(ctx context.Context, reference string, requested model.TransactionStatus, evidence model.JSONB) error {
	var txn model.Transaction
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load transaction for conflict record: %w", err)
	}

	meta := txn.Metadata
	if meta == nil {
		meta = model.JSONB{}
	}
	meta["conflicting_outcome"] = map[string]interface{}{
		"requested":   string(requested),
		"retained":    string(txn.Status),
		"observed_at": time.Now().UTC().Format(time.RFC3339),
		"evidence":    map[string]interface{}(evidence),
	}

	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("reference = ?", reference).
		Update("metadata", meta)
	if result.Error != nil {
		r.logger.Error("Failed to record conflicting outcome",
			zap.String("reference", reference),
			zap.Error(result.Error))
		return fmt.Errorf("failed to record conflicting outcome: %w", result.Error)
	}

	return nil
}
