package usecase

import (
	"context"
	"time"

	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/fetanpay/paylink/internal/domain/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*model.Transaction, error) {
	args := m.Called(ctx, updatedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByLink(ctx context.Context, linkID int64, limit int) ([]*model.Transaction, error) {
	args := m.Called(ctx, linkID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

type MockPaymentLinkRepository struct {
	mock.Mock
}

func (m *MockPaymentLinkRepository) Create(ctx context.Context, link *model.PaymentLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockPaymentLinkRepository) GetByID(ctx context.Context, id int64) (*model.PaymentLink, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentLink), args.Error(1)
}

func (m *MockPaymentLinkRepository) MarkExpired(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) FinalizeOutcome(ctx context.Context, reference string, status model.TransactionStatus, failureReason *string, evidence model.JSONB) (*model.Transaction, bool, error) {
	args := m.Called(ctx, reference, status, failureReason, evidence)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Transaction), args.Bool(1), args.Error(2)
}

func (m *MockLedgerRepository) RecordConflict(ctx context.Context, reference string, requested model.TransactionStatus, evidence model.JSONB) error {
	args := m.Called(ctx, reference, requested, evidence)
	return args.Error(0)
}

type MockWebhookReceiptRepository struct {
	mock.Mock
}

func (m *MockWebhookReceiptRepository) FindProcessed(ctx context.Context, provider, providerRef string) (*model.WebhookReceipt, error) {
	args := m.Called(ctx, provider, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookReceipt), args.Error(1)
}

func (m *MockWebhookReceiptRepository) Record(ctx context.Context, receipt *model.WebhookReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockWebhookReceiptRepository) MarkProcessed(ctx context.Context, provider, providerRef string) error {
	args := m.Called(ctx, provider, providerRef)
	return args.Error(0)
}

func (m *MockWebhookReceiptRepository) MarkFailed(ctx context.Context, provider, providerRef string, procErr error) error {
	args := m.Called(ctx, provider, providerRef, procErr)
	return args.Error(0)
}

func (m *MockWebhookReceiptRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.WebhookReceipt, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WebhookReceipt), args.Error(1)
}

type MockGateway struct {
	mock.Mock
	name string
}

func (m *MockGateway) Name() string {
	if m.name != "" {
		return m.name
	}
	return "mockpay"
}

func (m *MockGateway) Initialize(ctx context.Context, req *gateway.InitializeRequest) (*gateway.InitializeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InitializeResponse), args.Error(1)
}

func (m *MockGateway) FetchStatus(ctx context.Context, q *gateway.StatusQuery) (*gateway.StatusResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.StatusResult), args.Error(1)
}

func (m *MockGateway) Payout(ctx context.Context, req *gateway.PayoutRequest) (*gateway.PayoutResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PayoutResponse), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, merchantID uuid.UUID, provider string) (gateway.PaymentGateway, error) {
	args := m.Called(ctx, merchantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(gateway.PaymentGateway), args.Error(1)
}

type MockWebhookParser struct {
	mock.Mock
}

func (m *MockWebhookParser) ParseWebhook(provider string, payload []byte) (*gateway.Notice, error) {
	args := m.Called(provider, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Notice), args.Error(1)
}

type MockOutcomeApplier struct {
	mock.Mock
}

func (m *MockOutcomeApplier) ApplyOutcome(ctx context.Context, reference string, outcome gateway.Status, reason string, evidence model.JSONB) (*model.Transaction, error) {
	args := m.Called(ctx, reference, outcome, reason, evidence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, payload interface{}) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
