package model

import (
	"time"
)

// WebhookReceipt records one inbound provider callback, keyed by the
// provider's own correlation id. The composite unique index is the sole
// idempotency guard against duplicate or replayed deliveries.
type WebhookReceipt struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider           string     `gorm:"size:32;not null;uniqueIndex:idx_receipts_provider_ref" json:"provider"`
	ProviderRef        string     `gorm:"column:provider_ref;size:128;not null;uniqueIndex:idx_receipts_provider_ref" json:"provider_ref"`
	RawPayload         JSONB      `gorm:"type:jsonb;not null" json:"raw_payload"`
	Status             string     `gorm:"size:20" json:"status"`
	Processed          bool       `gorm:"default:false;index" json:"processed"`
	ProcessingAttempts int        `gorm:"default:0" json:"processing_attempts"`
	LastError          *string    `json:"last_error,omitempty"`
	ProcessedAt        *time.Time `json:"processed_at,omitempty"`
	CreatedAt          time.Time  `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookReceipt) TableName() string {
	return "webhook_receipts"
}
