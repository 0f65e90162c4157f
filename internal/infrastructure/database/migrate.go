package database

import (
	"github.com/fetanpay/paylink/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.Merchant{},
		&model.GatewayCredential{},
		&model.PaymentLink{},
		&model.Transaction{},
		&model.WebhookReceipt{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes that GORM doesn't handle
// through struct tags.
func createCustomIndexes(db *gorm.DB) error {
	// Sweep query: non-terminal transactions ordered by last update
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_transactions_stuck ON transactions (updated_at) WHERE status IN ('initialized', 'processing')`).Error; err != nil {
		return err
	}

	// Receipt backlog scan
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_receipts_unprocessed ON webhook_receipts (created_at) WHERE processed = false`).Error; err != nil {
		return err
	}

	return nil
}

// createExtensions creates required PostgreSQL extensions
func createExtensions(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return err
	}
	return nil
}
