package database

import (
	"github.com/fetanpay/paylink/internal/adapter/repository"
	domainRepo "github.com/fetanpay/paylink/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Transaction    domainRepo.TransactionRepository
	Ledger         domainRepo.LedgerRepository
	PaymentLink    domainRepo.PaymentLinkRepository
	WebhookReceipt domainRepo.WebhookReceiptRepository
	Merchant       domainRepo.MerchantRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Transaction:    repository.NewTransactionRepository(db, logger),
		Ledger:         repository.NewLedgerRepository(db, logger),
		PaymentLink:    repository.NewPaymentLinkRepository(db, logger),
		WebhookReceipt: repository.NewWebhookReceiptRepository(db, logger),
		Merchant:       repository.NewMerchantRepository(db, logger),
	}
}
