package usecase

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/fetanpay/paylink/internal/domain/errors"
	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/fetanpay/paylink/internal/domain/model"
	"github.com/fetanpay/paylink/internal/domain/repository"
	"go.uber.org/zap"
)

// OutcomeApplier is the slice of the ledger the ingestion and reconciliation
// paths drive.
type OutcomeApplier interface {
	ApplyOutcome(ctx context.Context, reference string, outcome gateway.Status, reason string, evidence model.JSONB) (*model.Transaction, error)
}

// WebhookIngest receives provider callbacks, deduplicates them against the
// receipt store and drives ledger transitions. The receipt is persisted
// before processing and marked processed only after the ledger call
// succeeded, so a crash mid-ingest costs at most one harmless reprocessing
// attempt, never a dropped confirmation.
type WebhookIngest struct {
	receipts repository.WebhookReceiptRepository
	ledger   OutcomeApplier
	parser   gateway.WebhookParser
	logger   *zap.Logger
}

// NewWebhookIngest creates a new webhook ingestion service
func NewWebhookIngest(
	receipts repository.WebhookReceiptRepository,
	ledger OutcomeApplier,
	parser gateway.WebhookParser,
	logger *zap.Logger,
) *WebhookIngest {
	return &WebhookIngest{
		receipts: receipts,
		ledger:   ledger,
		parser:   parser,
		logger:   logger,
	}
}

// IngestResult reports what happened to one delivery.
type IngestResult struct {
	Accepted  bool   `json:"accepted"`
	Duplicate bool   `json:"duplicate"`
	Reference string `json:"reference,omitempty"`
}

// Ingest processes one raw provider callback. It returns an error only for
// payloads that cannot even be recorded; processing failures are recorded on
// the receipt and still acknowledged, so the provider does not enter a
// redelivery storm; the unprocessed receipt stays eligible for redelivery
// or manual replay.
func (s *WebhookIngest) Ingest(ctx context.Context, provider string, payload []byte) (*IngestResult, error) {
	notice, err := s.parser.ParseWebhook(provider, payload)
	if err != nil {
		return nil, err
	}

	// At-most-once: a processed receipt for this correlation id means the
	// delivery already drove the ledger.
	processed, err := s.receipts.FindProcessed(ctx, provider, notice.ProviderRef)
	if err != nil {
		return nil, err
	}
	if processed != nil {
		s.logger.Debug("Duplicate webhook delivery ignored",
			zap.String("provider", provider),
			zap.String("provider_ref", notice.ProviderRef))
		return &IngestResult{Accepted: true, Duplicate: true, Reference: notice.Reference}, nil
	}

	receipt := &model.WebhookReceipt{
		Provider:    provider,
		ProviderRef: notice.ProviderRef,
		RawPayload:  model.JSONB(notice.Raw),
		Status:      string(notice.Status),
	}
	if err := s.receipts.Record(ctx, receipt); err != nil {
		// Could not durably record the delivery; this is the one case where
		// the provider must retry.
		return nil, err
	}

	reference := notice.Reference
	if reference == "" {
		reference = notice.ProviderRef
	}

	if notice.Status.IsTerminal() {
		if procErr := s.apply(ctx, reference, notice); procErr != nil {
			s.logger.Warn("Webhook processing deferred",
				zap.String("provider", provider),
				zap.String("provider_ref", notice.ProviderRef),
				zap.String("reference", reference),
				zap.Error(procErr))
			if err := s.receipts.MarkFailed(ctx, provider, notice.ProviderRef, procErr); err != nil {
				s.logger.Error("Failed to record webhook processing error", zap.Error(err))
			}
			return &IngestResult{Accepted: true, Reference: reference}, nil
		}
	}

	if err := s.receipts.MarkProcessed(ctx, provider, notice.ProviderRef); err != nil {
		// The ledger already transitioned; the receipt will be reprocessed
		// as a no-op on redelivery.
		s.logger.Error("Failed to mark webhook receipt processed",
			zap.String("provider", provider),
			zap.String("provider_ref", notice.ProviderRef),
			zap.Error(err))
	}

	return &IngestResult{Accepted: true, Reference: reference}, nil
}

// apply drives the ledger and decides which errors count as processed. A
// conflicting outcome is an anomaly the ledger already persisted; retrying
// the delivery can never resolve it, so it does not block the receipt.
func (s *WebhookIngest) apply(ctx context.Context, reference string, notice *gateway.Notice) error {
	_, err := s.ledger.ApplyOutcome(ctx, reference, notice.Status, notice.Message, model.JSONB(notice.Raw))
	if err == nil {
		return nil
	}

	var conflict *domainErrors.ConflictingOutcomeError
	if errors.As(err, &conflict) {
		return nil
	}

	return fmt.Errorf("ledger rejected webhook outcome: %w", err)
}
