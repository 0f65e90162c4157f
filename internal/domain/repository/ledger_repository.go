package repository

import (
	"context"

	"github.com/fetanpay/paylink/internal/domain/model"
)

// LedgerRepository owns the atomic unit of work for terminal transitions:
// the conditional status update plus the payment-link aggregate bump happen
// in one database transaction.
type LedgerRepository interface {
	// FinalizeOutcome moves the referenced transaction to the given terminal
	// status if, and only if, it is still non-terminal (conditional update on
	// current status). applied=false means another caller settled the row
	// first; txn then carries the winning state. On an applied success the
	// owning link's total_collected and success_count are bumped and a
	// single-use link is marked expired with paid_at set, all in the same
	// database transaction.
	FinalizeOutcome(ctx context.Context, reference string, status model.TransactionStatus, failureReason *string, evidence model.JSONB) (txn *model.Transaction, applied bool, err error)

	// RecordConflict persists a conflicting-outcome anomaly on the
	// transaction's metadata for manual review without touching its status.
	RecordConflict(ctx context.Context, reference string, requested model.TransactionStatus, evidence model.JSONB) error
}
