package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionStatusInitialized TransactionStatus = "initialized"
	TransactionStatusProcessing  TransactionStatus = "processing"
	TransactionStatusSuccess     TransactionStatus = "success"
	TransactionStatusFailed      TransactionStatus = "failed"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// Transaction is one attempt to collect a payment-link amount through a
// provider. Rows are never deleted; after creation only the status, provider
// bookkeeping and timestamps change.
type Transaction struct {
	ID                   int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference            string            `gorm:"uniqueIndex;size:64;not null" json:"reference"`
	MerchantID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"merchant_id"`
	PaymentLinkID        int64             `gorm:"not null;index" json:"payment_link_id"`
	Amount               decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency             string            `gorm:"size:3;default:'ETB'" json:"currency"`
	Provider             string            `gorm:"size:32;not null" json:"provider"`
	Status               TransactionStatus `gorm:"size:20;not null;index" json:"status"`
	ProviderTxID         *string           `gorm:"column:provider_tx_id;size:128" json:"provider_tx_id,omitempty"`
	CheckoutURL          *string           `gorm:"column:checkout_url" json:"checkout_url,omitempty"`
	FailureReason        *string           `json:"failure_reason,omitempty"`
	LastProviderResponse JSONB             `gorm:"type:jsonb" json:"last_provider_response,omitempty"`
	Metadata             JSONB             `gorm:"type:jsonb" json:"metadata,omitempty"`
	PaidAt               *time.Time        `json:"paid_at,omitempty"`
	CreatedAt            time.Time         `gorm:"default:now();index" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"default:now();index" json:"updated_at"`

	// Relations
	PaymentLink *PaymentLink `gorm:"foreignKey:PaymentLinkID" json:"payment_link,omitempty"`
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}
