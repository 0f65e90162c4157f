package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domainErrors "github.com/fetanpay/paylink/internal/domain/errors"
	"github.com/fetanpay/paylink/internal/domain/gateway"
	"go.uber.org/zap"
)

const (
	providerName   = "chapa"
	defaultBaseURL = "https://api.chapa.co/v1"
	requestTimeout = 15 * time.Second
)

// Gateway talks to Chapa's hosted checkout API with a per-merchant secret
// key, decrypted by the resolver for the lifetime of one call.
type Gateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
	logger    *zap.Logger
}

// New builds a Chapa gateway bound to one merchant's secret key.
func New(secretKey, baseURL string, logger *zap.Logger) *Gateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Gateway{
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: requestTimeout},
		logger:    logger,
	}
}

// Name returns the provider name
func (g *Gateway) Name() string {
	return providerName
}

func (g *Gateway) do(ctx context.Context, method, path string, body interface{}) (int, map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed map[string]interface{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			parsed = map[string]interface{}{"body": string(respBody)}
		}
	}
	return resp.StatusCode, parsed, nil
}

// Initialize begins a hosted checkout and returns the redirect URL.
func (g *Gateway) Initialize(ctx context.Context, req *gateway.InitializeRequest) (*gateway.InitializeResponse, error) {
	body := map[string]interface{}{
		"amount":       req.Amount.String(),
		"currency":     req.Currency,
		"tx_ref":       req.Reference,
		"return_url":   req.SuccessURL,
		"callback_url": req.NotifyURL,
		"customization": map[string]interface{}{
			"title": req.Reason,
		},
	}

	status, resp, err := g.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		g.logger.Error("Chapa initialize request failed",
			zap.String("reference", req.Reference),
			zap.Error(err))
		return nil, domainErrors.NewProviderUnavailableError(providerName, err)
	}

	message, _ := resp["message"].(string)
	if status != http.StatusOK || resp["status"] != "success" {
		g.logger.Warn("Chapa rejected initialize",
			zap.String("reference", req.Reference),
			zap.Int("status_code", status),
			zap.Any("response", resp))
		return nil, domainErrors.NewProviderRejectedError(providerName, "", message, resp)
	}

	data, _ := resp["data"].(map[string]interface{})
	checkoutURL, _ := data["checkout_url"].(string)
	if checkoutURL == "" {
		return nil, domainErrors.NewProviderRejectedError(providerName, "MISSING_URL",
			"initialize response carried no checkout url", resp)
	}

	return &gateway.InitializeResponse{
		CheckoutURL: checkoutURL,
		Raw:         resp,
	}, nil
}

// FetchStatus verifies the transaction by internal reference. Transport
// failures come back as StatusUnknown.
func (g *Gateway) FetchStatus(ctx context.Context, q *gateway.StatusQuery) (*gateway.StatusResult, error) {
	status, resp, err := g.do(ctx, http.MethodGet, "/transaction/verify/"+q.Reference, nil)
	if err != nil {
		g.logger.Warn("Chapa verify failed",
			zap.String("reference", q.Reference),
			zap.Error(err))
		return &gateway.StatusResult{
			Status:  gateway.StatusUnknown,
			Message: err.Error(),
		}, nil
	}

	if status != http.StatusOK {
		message, _ := resp["message"].(string)
		return &gateway.StatusResult{
			Status:  gateway.StatusUnknown,
			Message: message,
			Raw:     resp,
		}, nil
	}

	data, _ := resp["data"].(map[string]interface{})
	rawStatus, _ := data["status"].(string)
	providerTxID, _ := data["reference"].(string)

	return &gateway.StatusResult{
		Status:       MapStatus(rawStatus),
		ProviderTxID: providerTxID,
		Message:      rawStatus,
		Raw:          resp,
	}, nil
}

// Payout is not offered by this integration.
func (g *Gateway) Payout(ctx context.Context, req *gateway.PayoutRequest) (*gateway.PayoutResponse, error) {
	return nil, gateway.ErrNotSupported
}
