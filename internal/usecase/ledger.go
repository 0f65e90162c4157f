package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainErrors "github.com/fetanpay/paylink/internal/domain/errors"
	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/fetanpay/paylink/internal/domain/model"
	"github.com/fetanpay/paylink/internal/domain/repository"
	"github.com/fetanpay/paylink/internal/pkg/messaging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// ChannelSettled and ChannelFailed carry terminal-transition events for
	// downstream consumers (notification, dashboard).
	ChannelSettled = "payments.settled"
	ChannelFailed  = "payments.failed"

	defaultInitializeTimeout = 20 * time.Second
)

// Ledger owns transaction creation and every state transition. ApplyOutcome
// is the single choke point shared by the webhook path and the
// reconciliation path.
type Ledger struct {
	transactions repository.TransactionRepository
	links        repository.PaymentLinkRepository
	ledgerRepo   repository.LedgerRepository
	resolver     gateway.Resolver
	events       messaging.Publisher
	logger       *zap.Logger

	clientURL   string
	publicURL   string
	initTimeout time.Duration
}

// NewLedger creates a new ledger. events may be nil when no broker is
// configured.
func NewLedger(
	transactions repository.TransactionRepository,
	links repository.PaymentLinkRepository,
	ledgerRepo repository.LedgerRepository,
	resolver gateway.Resolver,
	events messaging.Publisher,
	clientURL, publicURL string,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		transactions: transactions,
		links:        links,
		ledgerRepo:   ledgerRepo,
		resolver:     resolver,
		events:       events,
		logger:       logger,
		clientURL:    clientURL,
		publicURL:    publicURL,
		initTimeout:  defaultInitializeTimeout,
	}
}

// OpenResult is what a checkout caller receives: either a checkout URL on a
// processing transaction, or a failed transaction with the recorded reason.
type OpenResult struct {
	Transaction *model.Transaction `json:"transaction"`
	CheckoutURL string             `json:"checkout_url,omitempty"`
}

// SettlementEvent is published on terminal transitions.
type SettlementEvent struct {
	Reference     string          `json:"reference"`
	MerchantID    uuid.UUID       `json:"merchant_id"`
	PaymentLinkID int64           `json:"payment_link_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Provider      string          `json:"provider"`
	Status        string          `json:"status"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func newReference() string {
	return "FPL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Open creates a transaction against a payment link and initializes the
// hosted checkout. Every call deterministically ends with the transaction in
// processing or failed, never silently absent: adapter failures are caught
// and persisted as a terminal failed transaction with the reason recorded.
//
// merchantID may be uuid.Nil for anonymous customer checkout; the link then
// determines the merchant. amountOverride, when non-nil, replaces the link
// amount (open-amount links).
func (l *Ledger) Open(ctx context.Context, merchantID uuid.UUID, linkID int64, amountOverride *decimal.Decimal) (*OpenResult, error) {
	link, err := l.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment link: %w", err)
	}
	if link == nil {
		return nil, domainErrors.NewNotFoundError("payment link", fmt.Sprintf("%d", linkID))
	}
	if merchantID != uuid.Nil && link.MerchantID != merchantID {
		return nil, domainErrors.NewNotFoundError("payment link", fmt.Sprintf("%d", linkID))
	}

	now := time.Now()
	if link.Status == model.PaymentLinkStatusActive && link.IsExpired(now) {
		// Lazy expiry; the stored status catches up with the timestamp.
		if err := l.links.MarkExpired(ctx, link.ID); err != nil {
			l.logger.Warn("Failed to lazily expire payment link",
				zap.Int64("payment_link_id", link.ID),
				zap.Error(err))
		}
		return nil, domainErrors.NewLinkNotPayableError(link.ID, string(model.PaymentLinkStatusExpired))
	}
	if !link.IsPayable(now) {
		return nil, domainErrors.NewLinkNotPayableError(link.ID, string(link.Status))
	}

	// Resolve before creating anything so a misconfigured provider never
	// produces a half-open transaction.
	gw, err := l.resolver.Resolve(ctx, link.MerchantID, link.Provider)
	if err != nil {
		return nil, err
	}

	amount := link.Amount
	if amountOverride != nil && amountOverride.IsPositive() {
		amount = *amountOverride
	}

	txn := &model.Transaction{
		Reference:     newReference(),
		MerchantID:    link.MerchantID,
		PaymentLinkID: link.ID,
		Amount:        amount,
		Currency:      link.Currency,
		Provider:      gw.Name(),
		Status:        model.TransactionStatusInitialized,
	}
	if err := l.transactions.Create(ctx, txn); err != nil {
		return nil, err
	}

	initCtx, cancel := context.WithTimeout(ctx, l.initTimeout)
	defer cancel()

	resp, initErr := gw.Initialize(initCtx, &gateway.InitializeRequest{
		Reference:  txn.Reference,
		Amount:     amount,
		Currency:   link.Currency,
		Reason:     link.Title,
		SuccessURL: l.clientURL + "/pay/success",
		FailureURL: l.clientURL + "/pay/failure",
		NotifyURL:  l.publicURL + "/webhooks/" + gw.Name(),
	})
	if initErr != nil {
		return l.failOpen(ctx, txn, initErr)
	}

	txn.Status = model.TransactionStatusProcessing
	txn.CheckoutURL = &resp.CheckoutURL
	if resp.ProviderTxID != "" {
		txn.ProviderTxID = &resp.ProviderTxID
	}
	txn.LastProviderResponse = model.JSONB(resp.Raw)
	if err := l.transactions.Update(ctx, txn); err != nil {
		return nil, err
	}

	l.logger.Info("Transaction opened",
		zap.String("reference", txn.Reference),
		zap.String("provider", txn.Provider),
		zap.String("amount", amount.String()))

	return &OpenResult{Transaction: txn, CheckoutURL: resp.CheckoutURL}, nil
}

// failOpen converts an adapter initialization failure into a terminal failed
// transaction. The original error is returned alongside the settled record.
func (l *Ledger) failOpen(ctx context.Context, txn *model.Transaction, initErr error) (*OpenResult, error) {
	reason := initErr.Error()
	txn.Status = model.TransactionStatusFailed
	txn.FailureReason = &reason

	var rejected *domainErrors.ProviderRejectedError
	if errors.As(initErr, &rejected) && rejected.Raw != nil {
		txn.LastProviderResponse = model.JSONB(rejected.Raw)
	}

	if err := l.transactions.Update(ctx, txn); err != nil {
		l.logger.Error("Failed to persist failed transaction",
			zap.String("reference", txn.Reference),
			zap.Error(err))
	}

	l.logger.Warn("Checkout initialization failed",
		zap.String("reference", txn.Reference),
		zap.String("provider", txn.Provider),
		zap.Error(initErr))

	l.publishEvent(ctx, txn)

	return &OpenResult{Transaction: txn}, initErr
}

// ApplyOutcome moves a transaction to a terminal state. Repeating the same
// terminal outcome is a no-op returning the existing record; requesting a
// different terminal outcome is rejected as ConflictingOutcome and persisted
// as an anomaly for manual review. On a transition into success the payment
// link's aggregates are updated in the same database transaction.
func (l *Ledger) ApplyOutcome(ctx context.Context, reference string, outcome gateway.Status, reason string, evidence model.JSONB) (*model.Transaction, error) {
	if !outcome.IsTerminal() {
		return nil, fmt.Errorf("outcome must be terminal, got %q", outcome)
	}

	status := model.TransactionStatusFailed
	if outcome == gateway.StatusSuccess {
		status = model.TransactionStatusSuccess
	}

	txn, err := l.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domainErrors.NewNotFoundError("transaction", reference)
	}

	if txn.Status.IsTerminal() {
		if txn.Status == status {
			return txn, nil
		}
		return txn, l.flagConflict(ctx, txn, status, evidence)
	}

	var failureReason *string
	if status == model.TransactionStatusFailed && reason != "" {
		failureReason = &reason
	}

	settled, applied, err := l.ledgerRepo.FinalizeOutcome(ctx, reference, status, failureReason, evidence)
	if err != nil {
		return nil, err
	}
	if settled == nil {
		return nil, domainErrors.NewNotFoundError("transaction", reference)
	}

	if !applied {
		// Lost the race: another caller settled the row first.
		if settled.Status == status {
			return settled, nil
		}
		return settled, l.flagConflict(ctx, settled, status, evidence)
	}

	l.logger.Info("Transaction settled",
		zap.String("reference", reference),
		zap.String("status", string(status)))

	l.publishEvent(ctx, settled)

	return settled, nil
}

func (l *Ledger) flagConflict(ctx context.Context, txn *model.Transaction, requested model.TransactionStatus, evidence model.JSONB) error {
	l.logger.Error("Conflicting terminal outcome, retaining existing state",
		zap.String("reference", txn.Reference),
		zap.String("existing", string(txn.Status)),
		zap.String("requested", string(requested)))

	if err := l.ledgerRepo.RecordConflict(ctx, txn.Reference, requested, evidence); err != nil {
		l.logger.Error("Failed to persist conflict anomaly",
			zap.String("reference", txn.Reference),
			zap.Error(err))
	}

	return domainErrors.NewConflictingOutcomeError(txn.Reference, string(txn.Status), string(requested))
}

func (l *Ledger) publishEvent(ctx context.Context, txn *model.Transaction) {
	if l.events == nil {
		return
	}

	channel := ChannelFailed
	if txn.Status == model.TransactionStatusSuccess {
		channel = ChannelSettled
	}

	event := SettlementEvent{
		Reference:     txn.Reference,
		MerchantID:    txn.MerchantID,
		PaymentLinkID: txn.PaymentLinkID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Provider:      txn.Provider,
		Status:        string(txn.Status),
		OccurredAt:    time.Now(),
	}

	if err := l.events.Publish(ctx, channel, event); err != nil {
		// Best effort only; the transition already committed.
		l.logger.Warn("Failed to publish settlement event",
			zap.String("reference", txn.Reference),
			zap.Error(err))
	}
}

// GetTransaction returns a transaction by reference.
func (l *Ledger) GetTransaction(ctx context.Context, reference string) (*model.Transaction, error) {
	txn, err := l.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domainErrors.NewNotFoundError("transaction", reference)
	}
	return txn, nil
}

// ListLinkTransactions returns a link's transactions, newest first.
func (l *Ledger) ListLinkTransactions(ctx context.Context, merchantID uuid.UUID, linkID int64, limit int) ([]*model.Transaction, error) {
	link, err := l.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil || link.MerchantID != merchantID {
		return nil, domainErrors.NewNotFoundError("payment link", fmt.Sprintf("%d", linkID))
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return l.transactions.ListByLink(ctx, linkID, limit)
}

// Payout transfers funds out through a provider adapter on behalf of a
// merchant.
func (l *Ledger) Payout(ctx context.Context, merchantID uuid.UUID, provider string, req *gateway.PayoutRequest) (*gateway.PayoutResponse, error) {
	gw, err := l.resolver.Resolve(ctx, merchantID, provider)
	if err != nil {
		return nil, err
	}
	if req.Reference == "" {
		req.Reference = newReference()
	}
	return gw.Payout(ctx, req)
}
