package chapa

import (
	"testing"

	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want gateway.Status
	}{
		{"success", gateway.StatusSuccess},
		{"SUCCESS", gateway.StatusSuccess},
		{"charged", gateway.StatusSuccess},
		{"failed", gateway.StatusFailed},
		{"cancelled", gateway.StatusFailed},
		{"reversed", gateway.StatusFailed},
		{"pending", gateway.StatusUnknown},
		{"", gateway.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapStatus(tt.raw))
		})
	}
}

func TestParseWebhook(t *testing.T) {
	payload := []byte(`{
		"tx_ref": "FPL-ABC",
		"status": "success",
		"amount": "100.00",
		"currency": "ETB"
	}`)

	notice, err := ParseWebhook(payload)
	require.NoError(t, err)

	// Chapa echoes the merchant reference back; it doubles as the
	// correlation id.
	assert.Equal(t, "FPL-ABC", notice.ProviderRef)
	assert.Equal(t, "FPL-ABC", notice.Reference)
	assert.Equal(t, gateway.StatusSuccess, notice.Status)
}

func TestParseWebhook_FallbackRefKey(t *testing.T) {
	payload := []byte(`{"trx_ref": "FPL-ABC", "status": "failed"}`)

	notice, err := ParseWebhook(payload)
	require.NoError(t, err)
	assert.Equal(t, "FPL-ABC", notice.ProviderRef)
	assert.Equal(t, gateway.StatusFailed, notice.Status)
}

func TestParseWebhook_MissingReference(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"status": "success"}`))
	require.Error(t, err)
}

func TestParseWebhook_MalformedJSON(t *testing.T) {
	_, err := ParseWebhook([]byte(`{]`))
	require.Error(t, err)
}
