package repository

import (
	"context"

	"github.com/fetanpay/paylink/internal/domain/model"
)

// WebhookReceiptRepository stores inbound callback receipts. The composite
// unique index on (provider, provider_ref) is the concurrency guard against
// duplicate deliveries; no application-level lock is taken.
type WebhookReceiptRepository interface {
	// FindProcessed returns the processed receipt for the correlation id, or
	// nil, nil if none exists.
	FindProcessed(ctx context.Context, provider, providerRef string) (*model.WebhookReceipt, error)

	// Record inserts the receipt, silently keeping the existing row on a
	// duplicate correlation id.
	Record(ctx context.Context, receipt *model.WebhookReceipt) error

	// MarkProcessed flags the receipt after the ledger call succeeded.
	MarkProcessed(ctx context.Context, provider, providerRef string) error

	// MarkFailed records the processing error and bumps the attempt counter,
	// leaving the receipt eligible for redelivery or manual replay.
	MarkFailed(ctx context.Context, provider, providerRef string, procErr error) error

	// ListUnprocessed returns receipts awaiting (re)processing, oldest first.
	ListUnprocessed(ctx context.Context, limit int) ([]*model.WebhookReceipt, error)
}
