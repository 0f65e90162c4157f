package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the shared three-way outcome every provider vocabulary is
// translated into.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusUnknown covers both "provider says pending" and "could not reach
	// the provider"; callers must not treat it as a terminal outcome.
	StatusUnknown Status = "unknown"
)

// IsTerminal reports whether the status is a settled outcome.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// InitializeRequest carries everything an adapter needs to begin a hosted
// checkout for one transaction reference.
type InitializeRequest struct {
	Reference  string                 `json:"reference"`
	Amount     decimal.Decimal        `json:"amount"`
	Currency   string                 `json:"currency"`
	Reason     string                 `json:"reason"`
	SuccessURL string                 `json:"success_url"`
	FailureURL string                 `json:"failure_url"`
	NotifyURL  string                 `json:"notify_url"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// InitializeResponse is the normalized result of a checkout initialization.
type InitializeResponse struct {
	CheckoutURL  string                 `json:"checkout_url"`
	ProviderTxID string                 `json:"provider_tx_id,omitempty"`
	Raw          map[string]interface{} `json:"raw,omitempty"`
}

// StatusQuery identifies a transaction on the provider side. Reference is the
// internal correlation key; ProviderTxID is set when the provider issued its
// own id at initialization time (required by providers that cannot look up by
// merchant reference).
type StatusQuery struct {
	Reference    string `json:"reference"`
	ProviderTxID string `json:"provider_tx_id,omitempty"`
}

// StatusResult is the normalized result of a provider status poll.
type StatusResult struct {
	Status       Status                 `json:"status"`
	ProviderTxID string                 `json:"provider_tx_id,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Raw          map[string]interface{} `json:"raw,omitempty"`
}

// PayoutRequest is a provider-agnostic outbound transfer request.
type PayoutRequest struct {
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PhoneNumber   string          `json:"phone_number"`
	PaymentMethod string          `json:"payment_method"`
	Reason        string          `json:"reason"`
}

// PayoutResponse is the normalized result of a payout request.
type PayoutResponse struct {
	ProviderTxID string                 `json:"provider_tx_id,omitempty"`
	Status       Status                 `json:"status"`
	Raw          map[string]interface{} `json:"raw,omitempty"`
}

// Notice is the normalized form of one inbound provider callback, produced by
// a per-provider pure mapping function. ProviderRef is the provider's own
// correlation id used for receipt deduplication; Reference is the internal
// transaction reference when the provider echoes it back.
type Notice struct {
	ProviderRef string                 `json:"provider_ref"`
	Reference   string                 `json:"reference,omitempty"`
	Status      Status                 `json:"status"`
	Message     string                 `json:"message,omitempty"`
	Raw         map[string]interface{} `json:"raw"`
}

// ErrNotSupported is returned by adapters for capabilities the provider does
// not offer (e.g. payout).
var ErrNotSupported = errors.New("operation not supported by provider")

// PaymentGateway normalizes one external payment provider. Adapters perform
// outbound network calls only and never mutate ledger state; status
// translation is pure, transition application is the ledger's job.
type PaymentGateway interface {
	// Name returns the provider name.
	Name() string

	// Initialize begins a hosted payment for the given reference and returns
	// the checkout URL. It is not retried by callers because the provider may
	// already have created a side-effecting checkout session.
	Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error)

	// FetchStatus polls the provider-side status for a known transaction.
	// Transport failures yield StatusUnknown rather than an error so callers
	// can distinguish "provider says failed" from "could not reach provider".
	FetchStatus(ctx context.Context, q *StatusQuery) (*StatusResult, error)

	// Payout transfers funds out through the provider. Providers without the
	// capability return ErrNotSupported.
	Payout(ctx context.Context, req *PayoutRequest) (*PayoutResponse, error)
}

// Resolver constructs the adapter for a merchant + provider pair, injecting
// decrypted credential material. Resolution is stateless per call; adapters
// are never pooled because credentials may change between calls.
type Resolver interface {
	Resolve(ctx context.Context, merchantID uuid.UUID, provider string) (PaymentGateway, error)
}

// WebhookParser maps a raw provider callback payload to a normalized Notice.
type WebhookParser interface {
	ParseWebhook(provider string, payload []byte) (*Notice, error)
}
