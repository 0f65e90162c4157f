package chapa

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fetanpay/paylink/internal/domain/gateway"
)

// MapStatus translates Chapa's status vocabulary into the shared three-way
// outcome.
func MapStatus(raw string) gateway.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "successful", "charged":
		return gateway.StatusSuccess
	case "failed", "cancelled", "canceled", "reversed":
		return gateway.StatusFailed
	default:
		return gateway.StatusUnknown
	}
}

// ParseWebhook maps a Chapa callback payload to a normalized notice. Chapa's
// correlation id is the merchant-chosen tx_ref, which is also the internal
// transaction reference.
func ParseWebhook(payload []byte) (*gateway.Notice, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("malformed Chapa webhook payload: %w", err)
	}

	txRef, _ := raw["tx_ref"].(string)
	if txRef == "" {
		txRef, _ = raw["trx_ref"].(string)
	}
	if txRef == "" {
		return nil, fmt.Errorf("Chapa webhook payload carries no tx_ref")
	}

	rawStatus, _ := raw["status"].(string)

	return &gateway.Notice{
		ProviderRef: txRef,
		Reference:   txRef,
		Status:      MapStatus(rawStatus),
		Message:     rawStatus,
		Raw:         raw,
	}, nil
}
