package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentLinkStatus represents the lifecycle state of a payment link.
// A single-use link that collected its amount is marked expired with PaidAt
// set; "paid" is not a separate status.
type PaymentLinkStatus string

const (
	PaymentLinkStatusActive   PaymentLinkStatus = "active"
	PaymentLinkStatusDisabled PaymentLinkStatus = "disabled"
	PaymentLinkStatusExpired  PaymentLinkStatus = "expired"
)

// PaymentLink is a billing intent a merchant shares with a customer.
// TotalCollected and SuccessCount are derived from the link's successful
// transactions and must only be written by the ledger's finalize path.
type PaymentLink struct {
	ID             int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	MerchantID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"merchant_id"`
	Title          string            `gorm:"size:255" json:"title"`
	Amount         decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency       string            `gorm:"size:3;default:'ETB'" json:"currency"`
	Provider       string            `gorm:"size:32;not null" json:"provider"`
	SingleUse      bool              `gorm:"default:false" json:"single_use"`
	Status         PaymentLinkStatus `gorm:"size:20;not null;default:'active';index" json:"status"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	TotalCollected decimal.Decimal   `gorm:"type:decimal(15,2);default:0" json:"total_collected"`
	SuccessCount   int               `gorm:"default:0" json:"success_count"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
	CreatedAt      time.Time         `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt    `gorm:"index" json:"-"`

	// Relations
	Transactions []Transaction `gorm:"foreignKey:PaymentLinkID" json:"transactions,omitempty"`
}

// TableName specifies the table name for GORM
func (PaymentLink) TableName() string {
	return "payment_links"
}

// IsExpired reports whether the link's expiry timestamp has passed.
func (l *PaymentLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// IsPayable reports whether a new transaction may be opened against the link.
func (l *PaymentLink) IsPayable(now time.Time) bool {
	return l.Status == PaymentLinkStatusActive && !l.IsExpired(now)
}
