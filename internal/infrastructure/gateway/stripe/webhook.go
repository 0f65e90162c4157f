package stripe

import (
	"encoding/json"
	"fmt"

	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/shopspring/decimal"
)

var decimalHundred = decimal.NewFromInt(100)

// MapSessionStatus translates a Checkout Session's status pair into the
// shared three-way outcome. An open session is still in flight and stays
// unknown.
func MapSessionStatus(sessionStatus, paymentStatus string) gateway.Status {
	if paymentStatus == "paid" || paymentStatus == "no_payment_required" {
		return gateway.StatusSuccess
	}
	if sessionStatus == "expired" {
		return gateway.StatusFailed
	}
	return gateway.StatusUnknown
}

// ParseWebhook maps a Stripe event payload to a normalized notice. The event
// id is the correlation key; the internal reference travels as the session's
// client_reference_id. Event types other than checkout session completion or
// expiry normalize to unknown and are recorded without driving the ledger.
func ParseWebhook(payload []byte) (*gateway.Notice, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("malformed Stripe webhook payload: %w", err)
	}

	eventID, _ := raw["id"].(string)
	if eventID == "" {
		return nil, fmt.Errorf("Stripe webhook payload carries no event id")
	}
	eventType, _ := raw["type"].(string)

	var reference string
	status := gateway.StatusUnknown

	if data, ok := raw["data"].(map[string]interface{}); ok {
		if object, ok := data["object"].(map[string]interface{}); ok {
			reference, _ = object["client_reference_id"].(string)
			sessionStatus, _ := object["status"].(string)
			paymentStatus, _ := object["payment_status"].(string)

			switch eventType {
			case "checkout.session.completed", "checkout.session.async_payment_succeeded":
				status = MapSessionStatus(sessionStatus, paymentStatus)
			case "checkout.session.expired", "checkout.session.async_payment_failed":
				status = gateway.StatusFailed
			}
		}
	}

	return &gateway.Notice{
		ProviderRef: eventID,
		Reference:   reference,
		Status:      status,
		Message:     eventType,
		Raw:         raw,
	}, nil
}
