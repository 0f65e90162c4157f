package model

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is the owner of payment links and provider connections. Merchant
// lifecycle (registration, profile) is managed by an external collaborator;
// this service reads merchants and owns their gateway credentials.
type Merchant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:now()" json:"updated_at"`

	// Relations
	Credentials []GatewayCredential `gorm:"foreignKey:MerchantID" json:"credentials,omitempty"`
}

// TableName specifies the table name for GORM
func (Merchant) TableName() string {
	return "merchants"
}

// GatewayCredential holds one merchant's connection to one provider. Secret
// material is stored AES-GCM encrypted and decrypted only while building an
// adapter instance. ProviderMerchantID is the merchant's non-secret account
// id on the provider side (used by platform-credential providers).
type GatewayCredential struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MerchantID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_credentials_merchant_provider" json:"merchant_id"`
	Provider           string    `gorm:"size:32;not null;uniqueIndex:idx_credentials_merchant_provider" json:"provider"`
	EncryptedSecret    string    `gorm:"type:text" json:"-"`
	SecretIV           string    `gorm:"column:secret_iv;size:64" json:"-"`
	ProviderMerchantID string    `gorm:"column:provider_merchant_id;size:128" json:"provider_merchant_id,omitempty"`
	CreatedAt          time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (GatewayCredential) TableName() string {
	return "gateway_credentials"
}
