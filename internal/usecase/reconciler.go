package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fetanpay/paylink/internal/config"
	domainErrors "github.com/fetanpay/paylink/internal/domain/errors"
	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/fetanpay/paylink/internal/domain/model"
	"github.com/fetanpay/paylink/internal/domain/repository"
	"go.uber.org/zap"
)

const timeoutReason = "no provider resolution within the reconciliation window"

// Reconciler is the background repair pass over stuck transactions: it polls
// adapters for processing transactions whose terminal state was never
// reliably delivered and converges them through the same ledger choke point
// the webhook path uses. Each run independently selects candidates; there is
// no cross-run memory beyond the transaction rows themselves.
type Reconciler struct {
	transactions repository.TransactionRepository
	links        repository.PaymentLinkRepository
	ledger       OutcomeApplier
	resolver     gateway.Resolver
	logger       *zap.Logger

	interval      time.Duration
	graceWindow   time.Duration
	ageCeiling    time.Duration
	batchSize     int
	statusRetries int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler creates a new reconciler
func NewReconciler(
	cfg config.ReconcileConfig,
	transactions repository.TransactionRepository,
	links repository.PaymentLinkRepository,
	ledger OutcomeApplier,
	resolver gateway.Resolver,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		transactions:  transactions,
		links:         links,
		ledger:        ledger,
		resolver:      resolver,
		logger:        logger,
		interval:      cfg.Interval,
		graceWindow:   cfg.GraceWindow,
		ageCeiling:    cfg.AgeCeiling,
		batchSize:     cfg.BatchSize,
		statusRetries: cfg.StatusRetries,
	}
}

// Start launches the sweep loop. Per-transaction work is abandon-safe: a
// crash mid-sweep leaves affected transactions eligible for the next run.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("Reconciliation sweep started",
			zap.Duration("interval", r.interval),
			zap.Duration("grace_window", r.graceWindow),
			zap.Duration("age_ceiling", r.ageCeiling))

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Sweep(ctx); err != nil {
					r.logger.Error("Reconciliation sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight sweep to wind down.
func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.logger.Info("Reconciliation sweep stopped")
}

// Sweep runs one repair pass. Errors on individual transactions are isolated
// so one failing reconciliation never aborts the batch.
func (r *Reconciler) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.graceWindow)
	stuck, err := r.transactions.ListStuck(ctx, cutoff, r.batchSize)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}

	r.logger.Info("Reconciling stuck transactions", zap.Int("count", len(stuck)))

	for _, txn := range stuck {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.reconcile(ctx, txn); err != nil {
			r.logger.Warn("Failed to reconcile transaction",
				zap.String("reference", txn.Reference),
				zap.Error(err))
		}
	}

	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, txn *model.Transaction) error {
	// Cheap local shortcut: a single-use link already marked paid means this
	// transaction's success confirmation was applied to the link but lost on
	// the way to the transaction, or arrived through another channel. No
	// provider round trip needed.
	link, err := r.links.GetByID(ctx, txn.PaymentLinkID)
	if err == nil && link != nil && link.SingleUse && link.PaidAt != nil {
		_, err := r.ledger.ApplyOutcome(ctx, txn.Reference, gateway.StatusSuccess, "",
			model.JSONB{"source": "link_paid_shortcut"})
		return err
	}

	gw, err := r.resolver.Resolve(ctx, txn.MerchantID, txn.Provider)
	if err != nil {
		// A disconnected provider cannot be polled; only the age ceiling can
		// settle the transaction now.
		return r.settleIfAgedOut(ctx, txn, err.Error())
	}

	result := r.fetchWithRetry(ctx, gw, txn)

	switch result.Status {
	case gateway.StatusSuccess:
		_, err := r.ledger.ApplyOutcome(ctx, txn.Reference, gateway.StatusSuccess, "", model.JSONB(result.Raw))
		return err
	case gateway.StatusFailed:
		reason := result.Message
		if reason == "" {
			reason = "provider reported failure"
		}
		_, err := r.ledger.ApplyOutcome(ctx, txn.Reference, gateway.StatusFailed, reason, model.JSONB(result.Raw))
		return err
	default:
		// Unknown: leave the transaction untouched unless it exceeded the
		// hard age ceiling, so an unreachable provider cannot block the
		// system forever.
		return r.settleIfAgedOut(ctx, txn, result.Message)
	}
}

func (r *Reconciler) settleIfAgedOut(ctx context.Context, txn *model.Transaction, detail string) error {
	if time.Since(txn.CreatedAt) < r.ageCeiling {
		return nil
	}

	r.logger.Warn("Forcing timeout on aged-out transaction",
		zap.String("reference", txn.Reference),
		zap.Time("created_at", txn.CreatedAt),
		zap.String("detail", detail))

	evidence := model.JSONB{"reason": "timeout"}
	if detail != "" {
		evidence["detail"] = detail
	}
	_, err := r.ledger.ApplyOutcome(ctx, txn.Reference, gateway.StatusFailed, timeoutReason, evidence)
	return err
}

// fetchWithRetry polls the adapter with a small bounded backoff. FetchStatus
// is an idempotent read, so retrying is safe; a result is always returned,
// degraded to unknown after the last attempt.
func (r *Reconciler) fetchWithRetry(ctx context.Context, gw gateway.PaymentGateway, txn *model.Transaction) *gateway.StatusResult {
	query := &gateway.StatusQuery{Reference: txn.Reference}
	if txn.ProviderTxID != nil {
		query.ProviderTxID = *txn.ProviderTxID
	}

	var last *gateway.StatusResult
	for attempt := 1; attempt <= r.statusRetries; attempt++ {
		result, err := gw.FetchStatus(ctx, query)
		if err == nil && result != nil {
			if result.Status.IsTerminal() {
				return result
			}
			last = result
		}

		if attempt < r.statusRetries {
			select {
			case <-ctx.Done():
				attempt = r.statusRetries
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	if last == nil {
		last = &gateway.StatusResult{Status: gateway.StatusUnknown, Message: "status poll failed"}
	}
	return last
}

// Diagnostic is the result of an operator-triggered single-transaction
// reconcile.
type Diagnostic struct {
	Reference      string                 `json:"reference"`
	LocalStatus    model.TransactionStatus `json:"local_status"`
	ProviderStatus gateway.Status         `json:"provider_status,omitempty"`
	Applied        bool                   `json:"applied"`
	Note           string                 `json:"note,omitempty"`
	Raw            map[string]interface{} `json:"raw,omitempty"`
}

// ReconcileOne repairs a single transaction on demand through the same
// resolve, poll, apply path as the sweep. Errors leave no state change; the
// diagnostic read is returned to the caller.
func (r *Reconciler) ReconcileOne(ctx context.Context, reference string) (*Diagnostic, error) {
	txn, err := r.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domainErrors.NewNotFoundError("transaction", reference)
	}

	diag := &Diagnostic{Reference: reference, LocalStatus: txn.Status}

	if txn.Status.IsTerminal() {
		diag.Note = "transaction already settled"
		return diag, nil
	}

	gw, err := r.resolver.Resolve(ctx, txn.MerchantID, txn.Provider)
	if err != nil {
		return nil, err
	}

	query := &gateway.StatusQuery{Reference: txn.Reference}
	if txn.ProviderTxID != nil {
		query.ProviderTxID = *txn.ProviderTxID
	}
	result, err := gw.FetchStatus(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("status poll failed: %w", err)
	}

	diag.ProviderStatus = result.Status
	diag.Raw = result.Raw

	if !result.Status.IsTerminal() {
		diag.Note = "provider has no definitive outcome yet"
		return diag, nil
	}

	reason := result.Message
	settled, err := r.ledger.ApplyOutcome(ctx, reference, result.Status, reason, model.JSONB(result.Raw))
	if err != nil {
		return diag, err
	}

	diag.Applied = true
	diag.LocalStatus = settled.Status
	return diag, nil
}
