package santimpay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fetanpay/paylink/internal/domain/gateway"
)

// MapStatus translates SantimPay's status vocabulary into the shared
// three-way outcome. Unrecognized values map to unknown, never to a terminal
// state.
func MapStatus(raw string) gateway.Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "COMPLETED", "SUCCESS", "SUCCESSFUL", "PAID":
		return gateway.StatusSuccess
	case "FAILED", "DECLINED", "CANCELED", "CANCELLED", "EXPIRED":
		return gateway.StatusFailed
	default:
		return gateway.StatusUnknown
	}
}

// ParseWebhook maps a SantimPay callback payload to a normalized notice.
// SantimPay's correlation id is its own transaction id (txnId); the internal
// reference travels in thirdPartyId.
func ParseWebhook(payload []byte) (*gateway.Notice, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("malformed SantimPay webhook payload: %w", err)
	}

	txnID, _ := raw["txnId"].(string)
	if txnID == "" {
		txnID, _ = raw["TxnId"].(string)
	}
	if txnID == "" {
		return nil, fmt.Errorf("SantimPay webhook payload carries no txnId")
	}

	reference, _ := raw["thirdPartyId"].(string)
	rawStatus, _ := raw["Status"].(string)
	if rawStatus == "" {
		rawStatus, _ = raw["status"].(string)
	}

	return &gateway.Notice{
		ProviderRef: txnID,
		Reference:   reference,
		Status:      MapStatus(rawStatus),
		Message:     rawStatus,
		Raw:         raw,
	}, nil
}
