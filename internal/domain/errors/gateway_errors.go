package errors

import (
	"fmt"

	"github.com/google/uuid"
)

// NotConfiguredError is returned when a merchant has not connected the
// requested provider. It is checked before any checkout is created so a
// misconfigured provider never produces a half-open transaction.
type NotConfiguredError struct {
	MerchantID uuid.UUID
	Provider   string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("provider %q is not configured for merchant %s", e.Provider, e.MerchantID)
}

// NewNotConfiguredError creates a new NotConfiguredError
func NewNotConfiguredError(merchantID uuid.UUID, provider string) *NotConfiguredError {
	return &NotConfiguredError{MerchantID: merchantID, Provider: provider}
}

// ProviderUnavailableError is returned when a provider could not be reached
// (network failure or timeout).
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %q unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// NewProviderUnavailableError creates a new ProviderUnavailableError
func NewProviderUnavailableError(provider string, err error) *ProviderUnavailableError {
	return &ProviderUnavailableError{Provider: provider, Err: err}
}

// ProviderRejectedError is returned when a provider answered with a business
// error. The raw response is carried for diagnostics.
type ProviderRejectedError struct {
	Provider string
	Code     string
	Message  string
	Raw      map[string]interface{}
}

func (e *ProviderRejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider %q rejected request (%s): %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("provider %q rejected request: %s", e.Provider, e.Message)
}

// NewProviderRejectedError creates a new ProviderRejectedError
func NewProviderRejectedError(provider, code, message string, raw map[string]interface{}) *ProviderRejectedError {
	return &ProviderRejectedError{Provider: provider, Code: code, Message: message, Raw: raw}
}
