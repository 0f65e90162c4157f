package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/fetanpay/paylink/internal/domain/errors"
	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/fetanpay/paylink/internal/domain/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLedger(txns *MockTransactionRepository, links *MockPaymentLinkRepository, ledgerRepo *MockLedgerRepository, resolver *MockResolver) *Ledger {
	return NewLedger(txns, links, ledgerRepo, resolver, nil, "https://pay.example.com", "https://api.example.com", zap.NewNop())
}

func activeLink(merchantID uuid.UUID) *model.PaymentLink {
	return &model.PaymentLink{
		ID:         42,
		MerchantID: merchantID,
		Title:      "Consultation fee",
		Amount:     decimal.NewFromInt(100),
		Currency:   "ETB",
		Provider:   "chapa",
		Status:     model.PaymentLinkStatusActive,
	}
}

func TestLedger_Open_Success(t *testing.T) {
	merchantID := uuid.New()
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)
	ledgerRepo := new(MockLedgerRepository)
	resolver := new(MockResolver)
	gw := new(MockGateway)

	links.On("GetByID", mock.Anything, int64(42)).Return(activeLink(merchantID), nil)
	resolver.On("Resolve", mock.Anything, merchantID, "chapa").Return(gw, nil)
	txns.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)
	gw.On("Initialize", mock.Anything, mock.AnythingOfType("*gateway.InitializeRequest")).
		Return(&gateway.InitializeResponse{
			CheckoutURL:  "https://checkout.chapa.co/pay/abc",
			ProviderTxID: "chapa-123",
		}, nil)
	txns.On("Update", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)

	ledger := newTestLedger(txns, links, ledgerRepo, resolver)

	result, err := ledger.Open(context.Background(), uuid.Nil, 42, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "https://checkout.chapa.co/pay/abc", result.CheckoutURL)
	assert.Equal(t, model.TransactionStatusProcessing, result.Transaction.Status)
	assert.Contains(t, result.Transaction.Reference, "FPL-")
	assert.Equal(t, merchantID, result.Transaction.MerchantID)

	txns.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestLedger_Open_InitializationFailureSettlesTransaction(t *testing.T) {
	merchantID := uuid.New()
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)
	ledgerRepo := new(MockLedgerRepository)
	resolver := new(MockResolver)
	gw := new(MockGateway)

	links.On("GetByID", mock.Anything, int64(42)).Return(activeLink(merchantID), nil)
	resolver.On("Resolve", mock.Anything, merchantID, "chapa").Return(gw, nil)
	txns.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)

	rejection := domainErrors.NewProviderRejectedError("chapa", "invalid_currency", "currency not supported", map[string]interface{}{"status": "failed"})
	gw.On("Initialize", mock.Anything, mock.Anything).Return(nil, rejection)
	txns.On("Update", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)

	ledger := newTestLedger(txns, links, ledgerRepo, resolver)

	result, err := ledger.Open(context.Background(), uuid.Nil, 42, nil)

	// The call fails but the transaction is never silently absent: it is
	// returned in a terminal failed state with the reason recorded.
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.TransactionStatusFailed, result.Transaction.Status)
	require.NotNil(t, result.Transaction.FailureReason)
	assert.Contains(t, *result.Transaction.FailureReason, "currency not supported")
	assert.Empty(t, result.CheckoutURL)
}

func TestLedger_Open_ResolverFailureCreatesNothing(t *testing.T) {
	merchantID := uuid.New()
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)
	ledgerRepo := new(MockLedgerRepository)
	resolver := new(MockResolver)

	links.On("GetByID", mock.Anything, int64(42)).Return(activeLink(merchantID), nil)
	resolver.On("Resolve", mock.Anything, merchantID, "chapa").
		Return(nil, domainErrors.NewNotConfiguredError(merchantID, "chapa"))

	ledger := newTestLedger(txns, links, ledgerRepo, resolver)

	_, err := ledger.Open(context.Background(), uuid.Nil, 42, nil)

	var notConfigured *domainErrors.NotConfiguredError
	require.ErrorAs(t, err, &notConfigured)
	txns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLedger_Open_ExpiredLinkRejected(t *testing.T) {
	merchantID := uuid.New()
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)
	ledgerRepo := new(MockLedgerRepository)
	resolver := new(MockResolver)

	past := time.Now().Add(-time.Hour)
	link := activeLink(merchantID)
	link.ExpiresAt = &past

	links.On("GetByID", mock.Anything, int64(42)).Return(link, nil)
	links.On("MarkExpired", mock.Anything, int64(42)).Return(nil)

	ledger := newTestLedger(txns, links, ledgerRepo, resolver)

	_, err := ledger.Open(context.Background(), uuid.Nil, 42, nil)

	var notPayable *domainErrors.LinkNotPayableError
	require.ErrorAs(t, err, &notPayable)
	links.AssertCalled(t, "MarkExpired", mock.Anything, int64(42))
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_Open_OtherMerchantsLinkHidden(t *testing.T) {
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)
	ledgerRepo := new(MockLedgerRepository)
	resolver := new(MockResolver)

	links.On("GetByID", mock.Anything, int64(42)).Return(activeLink(uuid.New()), nil)

	ledger := newTestLedger(txns, links, ledgerRepo, resolver)

	_, err := ledger.Open(context.Background(), uuid.New(), 42, nil)

	var notFound *domainErrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestLedger_ApplyOutcome_SettlesPendingTransaction(t *testing.T) {
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)
	ledgerRepo := new(MockLedgerRepository)
	resolver := new(MockResolver)
	events := new(MockPublisher)

	pending := &model.Transaction{Reference: "FPL-A", Status: model.TransactionStatusProcessing, Amount: decimal.NewFromInt(100)}
	settled := &model.Transaction{Reference: "FPL-A", Status: model.TransactionStatusSuccess, Amount: decimal.NewFromInt(100)}

	txns.On("GetByReference", mock.Anything, "FPL-A").Return(pending, nil)
	ledgerRepo.On("FinalizeOutcome", mock.Anything, "FPL-A", model.TransactionStatusSuccess, (*string)(nil), mock.Anything).
		Return(settled, true, nil)
	events.On("Publish", mock.Anything, ChannelSettled, mock.Anything).Return(nil)

	ledger := NewLedger(txns, links, ledgerRepo, resolver, events, "", "", zap.NewNop())

	got, err := ledger.ApplyOutcome(context.Background(), "FPL-A", gateway.StatusSuccess, "", nil)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusSuccess, got.Status)
	events.AssertExpectations(t)
}

func TestLedger_ApplyOutcome_RepeatedOutcomeIsNoOp(t *testing.T) {
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)
	ledgerRepo := new(MockLedgerRepository)
	resolver := new(MockResolver)

	settled := &model.Transaction{Reference: "FPL-A", Status: model.TransactionStatusSuccess}
	txns.On("GetByReference", mock.Anything, "FPL-A").Return(settled, nil)

	ledger := newTestLedger(txns, links, ledgerRepo, resolver)

	got, err := ledger.ApplyOutcome(context.Background(), "FPL-A", gateway.StatusSuccess, "", nil)
	require.NoError(t, err)
	assert.Equal(t, settled, got)

	// The aggregate update path is never reached twice.
	ledgerRepo.AssertNotCalled(t, "FinalizeOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_ApplyOutcome_ConflictRetainsExistingState(t *testing.T) {
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)
	ledgerRepo := new(MockLedgerRepository)
	resolver := new(MockResolver)

	settled := &model.Transaction{Reference: "FPL-A", Status: model.TransactionStatusFailed}
	txns.On("GetByReference", mock.Anything, "FPL-A").Return(settled, nil)
	ledgerRepo.On("RecordConflict", mock.Anything, "FPL-A", model.TransactionStatusSuccess, mock.Anything).Return(nil)

	ledger := newTestLedger(txns, links, ledgerRepo, resolver)

	got, err := ledger.ApplyOutcome(context.Background(), "FPL-A", gateway.StatusSuccess, "", model.JSONB{"event": "late success"})

	var conflict *domainErrors.ConflictingOutcomeError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "FPL-A", conflict.Reference)
	assert.Equal(t, "failed", conflict.Existing)
	assert.Equal(t, "success", conflict.Requested)

	// The stored state is untouched; callers still see the first outcome.
	assert.Equal(t, model.TransactionStatusFailed, got.Status)
	ledgerRepo.AssertCalled(t, "RecordConflict", mock.Anything, "FPL-A", model.TransactionStatusSuccess, mock.Anything)
	ledgerRepo.AssertNotCalled(t, "FinalizeOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_ApplyOutcome_LostRaceSameOutcome(t *testing.T) {
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)
	ledgerRepo := new(MockLedgerRepository)
	resolver := new(MockResolver)

	pending := &model.Transaction{Reference: "FPL-A", Status: model.TransactionStatusProcessing}
	settled := &model.Transaction{Reference: "FPL-A", Status: model.TransactionStatusSuccess}

	txns.On("GetByReference", mock.Anything, "FPL-A").Return(pending, nil)
	// applied=false: another caller settled the row between the read and the
	// conditional update.
	ledgerRepo.On("FinalizeOutcome", mock.Anything, "FPL-A", model.TransactionStatusSuccess, (*string)(nil), mock.Anything).
		Return(settled, false, nil)

	ledger := newTestLedger(txns, links, ledgerRepo, resolver)

	got, err := ledger.ApplyOutcome(context.Background(), "FPL-A", gateway.StatusSuccess, "", nil)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusSuccess, got.Status)
}

func TestLedger_ApplyOutcome_RejectsNonTerminalOutcome(t *testing.T) {
	ledger := newTestLedger(new(MockTransactionRepository), new(MockPaymentLinkRepository), new(MockLedgerRepository), new(MockResolver))

	_, err := ledger.ApplyOutcome(context.Background(), "FPL-A", gateway.StatusUnknown, "", nil)
	require.Error(t, err)
}

func TestLedger_ApplyOutcome_UnknownReference(t *testing.T) {
	txns := new(MockTransactionRepository)
	txns.On("GetByReference", mock.Anything, "FPL-MISSING").Return(nil, nil)

	ledger := newTestLedger(txns, new(MockPaymentLinkRepository), new(MockLedgerRepository), new(MockResolver))

	_, err := ledger.ApplyOutcome(context.Background(), "FPL-MISSING", gateway.StatusSuccess, "", nil)

	var notFound *domainErrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestLedger_ApplyOutcome_PublishFailureDoesNotFailTransition(t *testing.T) {
	txns := new(MockTransactionRepository)
	ledgerRepo := new(MockLedgerRepository)
	events := new(MockPublisher)

	pending := &model.Transaction{Reference: "FPL-A", Status: model.TransactionStatusProcessing}
	settled := &model.Transaction{Reference: "FPL-A", Status: model.TransactionStatusFailed}

	txns.On("GetByReference", mock.Anything, "FPL-A").Return(pending, nil)
	ledgerRepo.On("FinalizeOutcome", mock.Anything, "FPL-A", model.TransactionStatusFailed, mock.Anything, mock.Anything).
		Return(settled, true, nil)
	events.On("Publish", mock.Anything, ChannelFailed, mock.Anything).Return(errors.New("broker down"))

	ledger := NewLedger(txns, new(MockPaymentLinkRepository), ledgerRepo, new(MockResolver), events, "", "", zap.NewNop())

	got, err := ledger.ApplyOutcome(context.Background(), "FPL-A", gateway.StatusFailed, "declined", nil)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusFailed, got.Status)
}

func TestLedger_ListLinkTransactions_ClampsLimit(t *testing.T) {
	merchantID := uuid.New()
	txns := new(MockTransactionRepository)
	links := new(MockPaymentLinkRepository)

	links.On("GetByID", mock.Anything, int64(42)).Return(activeLink(merchantID), nil)
	txns.On("ListByLink", mock.Anything, int64(42), 50).Return([]*model.Transaction{}, nil)

	ledger := newTestLedger(txns, links, new(MockLedgerRepository), new(MockResolver))

	_, err := ledger.ListLinkTransactions(context.Background(), merchantID, 42, 0)
	require.NoError(t, err)
	txns.AssertCalled(t, "ListByLink", mock.Anything, int64(42), 50)
}

func TestLedger_Payout_GeneratesReference(t *testing.T) {
	merchantID := uuid.New()
	resolver := new(MockResolver)
	gw := new(MockGateway)

	resolver.On("Resolve", mock.Anything, merchantID, "santimpay").Return(gw, nil)
	gw.On("Payout", mock.Anything, mock.MatchedBy(func(req *gateway.PayoutRequest) bool {
		return req.Reference != "" && req.PhoneNumber == "0911000000"
	})).Return(&gateway.PayoutResponse{ProviderTxID: "sp-777", Status: gateway.StatusSuccess}, nil)

	ledger := newTestLedger(new(MockTransactionRepository), new(MockPaymentLinkRepository), new(MockLedgerRepository), resolver)

	resp, err := ledger.Payout(context.Background(), merchantID, "santimpay", &gateway.PayoutRequest{
		Amount:      decimal.NewFromInt(50),
		PhoneNumber: "0911000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "sp-777", resp.ProviderTxID)
	gw.AssertExpectations(t)
}
