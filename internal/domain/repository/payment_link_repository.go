package repository

import (
	"context"

	"github.com/fetanpay/paylink/internal/domain/model"
)

// PaymentLinkRepository reads link state for the ledger and reconciler.
// Link CRUD beyond creation lives with an external collaborator; aggregate
// counters are written only through LedgerRepository.FinalizeOutcome.
type PaymentLinkRepository interface {
	Create(ctx context.Context, link *model.PaymentLink) error

	// GetByID returns nil, nil when the link is unknown or archived.
	GetByID(ctx context.Context, id int64) (*model.PaymentLink, error)

	// MarkExpired flips a link to expired (lazy expiry when its timestamp
	// has passed).
	MarkExpired(ctx context.Context, id int64) error
}
