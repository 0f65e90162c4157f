package santimpay

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domainErrors "github.com/fetanpay/paylink/internal/domain/errors"
	"github.com/fetanpay/paylink/internal/domain/gateway"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	providerName   = "santimpay"
	defaultBaseURL = "https://services.santimpay.com/api/v1/gateway"
	requestTimeout = 15 * time.Second
)

// Gateway talks to SantimPay's hosted checkout API. Every request carries a
// short-lived ES256-signed token built from the platform private key; the
// merchant is identified by its SantimPay merchant id, which is not secret.
type Gateway struct {
	merchantID string
	privateKey *ecdsa.PrivateKey
	baseURL    string
	client     *http.Client
	logger     *zap.Logger
}

// New builds a SantimPay gateway bound to one merchant's SantimPay account.
func New(privateKeyPEM, merchantID, baseURL string, logger *zap.Logger) (*Gateway, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SantimPay private key: %w", err)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Gateway{
		merchantID: merchantID,
		privateKey: key,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}, nil
}

// Name returns the provider name
func (g *Gateway) Name() string {
	return providerName
}

func (g *Gateway) signedToken(claims jwt.MapClaims) (string, error) {
	claims["merchantId"] = g.merchantID
	claims["generated"] = time.Now().Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	return token.SignedString(g.privateKey)
}

func (g *Gateway) post(ctx context.Context, path string, body map[string]interface{}) (int, map[string]interface{}, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
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
	amount, _ := req.Amount.Float64()
	token, err := g.signedToken(jwt.MapClaims{
		"amount":        amount,
		"paymentReason": req.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign SantimPay request: %w", err)
	}

	body := map[string]interface{}{
		"id":                 req.Reference,
		"amount":             amount,
		"reason":             req.Reason,
		"merchantId":         g.merchantID,
		"signedToken":        token,
		"successRedirectUrl": req.SuccessURL,
		"failureRedirectUrl": req.FailureURL,
		"notifyUrl":          req.NotifyURL,
		"cancelRedirectUrl":  req.FailureURL,
	}

	status, resp, err := g.post(ctx, "/initiate-payment", body)
	if err != nil {
		g.logger.Error("SantimPay initiate-payment request failed",
			zap.String("reference", req.Reference),
			zap.Error(err))
		return nil, domainErrors.NewProviderUnavailableError(providerName, err)
	}

	if status != http.StatusOK {
		g.logger.Warn("SantimPay rejected initiate-payment",
			zap.String("reference", req.Reference),
			zap.Int("status_code", status),
			zap.Any("response", resp))
		code, _ := resp["code"].(string)
		message, _ := resp["message"].(string)
		return nil, domainErrors.NewProviderRejectedError(providerName, code, message, resp)
	}

	checkoutURL, _ := resp["url"].(string)
	if checkoutURL == "" {
		return nil, domainErrors.NewProviderRejectedError(providerName, "MISSING_URL",
			"initiate-payment response carried no checkout url", resp)
	}

	return &gateway.InitializeResponse{
		CheckoutURL: checkoutURL,
		Raw:         resp,
	}, nil
}

// FetchStatus polls SantimPay for the current state of a transaction by the
// internal reference. Transport failures come back as StatusUnknown.
func (g *Gateway) FetchStatus(ctx context.Context, q *gateway.StatusQuery) (*gateway.StatusResult, error) {
	token, err := g.signedToken(jwt.MapClaims{"id": q.Reference})
	if err != nil {
		return nil, fmt.Errorf("failed to sign SantimPay request: %w", err)
	}

	body := map[string]interface{}{
		"id":          q.Reference,
		"merchantId":  g.merchantID,
		"signedToken": token,
	}

	status, resp, err := g.post(ctx, "/fetch-transaction-status", body)
	if err != nil {
		g.logger.Warn("SantimPay status poll failed",
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

	rawStatus, _ := resp["Status"].(string)
	if rawStatus == "" {
		rawStatus, _ = resp["status"].(string)
	}
	providerTxID, _ := resp["txnId"].(string)

	return &gateway.StatusResult{
		Status:       MapStatus(rawStatus),
		ProviderTxID: providerTxID,
		Message:      rawStatus,
		Raw:          resp,
	}, nil
}

// Payout transfers collected funds to a mobile-money account.
func (g *Gateway) Payout(ctx context.Context, req *gateway.PayoutRequest) (*gateway.PayoutResponse, error) {
	amount, _ := req.Amount.Float64()
	token, err := g.signedToken(jwt.MapClaims{
		"amount":        amount,
		"paymentReason": req.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign SantimPay request: %w", err)
	}

	body := map[string]interface{}{
		"id":                    req.Reference,
		"amount":                amount,
		"reason":                req.Reason,
		"merchantId":            g.merchantID,
		"signedToken":           token,
		"receiverAccountNumber": req.PhoneNumber,
		"paymentMethod":         req.PaymentMethod,
	}

	status, resp, err := g.post(ctx, "/payout-transfer", body)
	if err != nil {
		return nil, domainErrors.NewProviderUnavailableError(providerName, err)
	}
	if status != http.StatusOK {
		code, _ := resp["code"].(string)
		message, _ := resp["message"].(string)
		return nil, domainErrors.NewProviderRejectedError(providerName, code, message, resp)
	}

	providerTxID, _ := resp["txnId"].(string)
	rawStatus, _ := resp["status"].(string)

	return &gateway.PayoutResponse{
		ProviderTxID: providerTxID,
		Status:       MapStatus(rawStatus),
		Raw:          resp,
	}, nil
}
