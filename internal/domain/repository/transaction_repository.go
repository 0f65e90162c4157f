package repository

import (
	"context"
	"time"

	"github.com/fetanpay/paylink/internal/domain/model"
)

// TransactionRepository persists transactions. Terminal transitions go
// through LedgerRepository.FinalizeOutcome, not Update.
type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error

	// GetByReference returns nil, nil when the reference is unknown.
	GetByReference(ctx context.Context, reference string) (*model.Transaction, error)

	// Update persists non-terminal bookkeeping changes made during open
	// (initialized -> processing, checkout URL, provider response snapshot).
	Update(ctx context.Context, txn *model.Transaction) error

	// ListStuck returns processing transactions whose last update is older
	// than updatedBefore, oldest first, bounded by limit.
	ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*model.Transaction, error)

	// ListByLink returns a link's transactions, newest first.
	ListByLink(ctx context.Context, linkID int64, limit int) ([]*model.Transaction, error)
}
