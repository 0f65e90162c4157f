package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	domainErrors "github.com/fetanpay/paylink/internal/domain/errors"
	"github.com/fetanpay/paylink/internal/domain/gateway"
	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"
)

const providerName = "stripe"

// Gateway collects card payments through Stripe hosted Checkout Sessions.
// Each instance is bound to one merchant's secret key via a dedicated client,
// never the package-global key.
type Gateway struct {
	api    *client.API
	logger *zap.Logger
}

// New builds a Stripe gateway bound to one merchant's secret key.
func New(secretKey string, logger *zap.Logger) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Gateway{
		api:    api,
		logger: logger,
	}
}

// Name returns the provider name
func (g *Gateway) Name() string {
	return providerName
}

func rawResponse(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw
}

// Initialize creates a hosted Checkout Session carrying the internal
// reference as client_reference_id. The session id is the provider-side
// correlation key for later status polls.
func (g *Gateway) Initialize(ctx context.Context, req *gateway.InitializeRequest) (*gateway.InitializeResponse, error) {
	// Stripe amounts are integer minor units.
	unitAmount := req.Amount.Mul(decimalHundred).IntPart()

	params := &stripeapi.CheckoutSessionParams{
		Params:            stripeapi.Params{Context: ctx},
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		ClientReferenceID: stripeapi.String(req.Reference),
		SuccessURL:        stripeapi.String(req.SuccessURL),
		CancelURL:         stripeapi.String(req.FailureURL),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				Quantity: stripeapi.Int64(1),
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripeapi.String(strings.ToLower(req.Currency)),
					UnitAmount: stripeapi.Int64(unitAmount),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripeapi.String(req.Reason),
					},
				},
			},
		},
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		var stripeErr *stripeapi.Error
		if errors.As(err, &stripeErr) {
			g.logger.Warn("Stripe rejected checkout session",
				zap.String("reference", req.Reference),
				zap.String("code", string(stripeErr.Code)))
			return nil, domainErrors.NewProviderRejectedError(providerName,
				string(stripeErr.Code), stripeErr.Msg, rawResponse(stripeErr))
		}
		g.logger.Error("Stripe checkout session request failed",
			zap.String("reference", req.Reference),
			zap.Error(err))
		return nil, domainErrors.NewProviderUnavailableError(providerName, err)
	}

	return &gateway.InitializeResponse{
		CheckoutURL:  session.URL,
		ProviderTxID: session.ID,
		Raw:          rawResponse(session),
	}, nil
}

// FetchStatus polls the Checkout Session recorded at initialization time.
// Stripe cannot look sessions up by client reference, so the query must
// carry the session id.
func (g *Gateway) FetchStatus(ctx context.Context, q *gateway.StatusQuery) (*gateway.StatusResult, error) {
	if q.ProviderTxID == "" {
		return &gateway.StatusResult{
			Status:  gateway.StatusUnknown,
			Message: "no stripe session id recorded for this transaction",
		}, nil
	}

	params := &stripeapi.CheckoutSessionParams{Params: stripeapi.Params{Context: ctx}}
	session, err := g.api.CheckoutSessions.Get(q.ProviderTxID, params)
	if err != nil {
		g.logger.Warn("Stripe session poll failed",
			zap.String("reference", q.Reference),
			zap.String("session_id", q.ProviderTxID),
			zap.Error(err))
		return &gateway.StatusResult{
			Status:  gateway.StatusUnknown,
			Message: err.Error(),
		}, nil
	}

	return &gateway.StatusResult{
		Status:       MapSessionStatus(string(session.Status), string(session.PaymentStatus)),
		ProviderTxID: session.ID,
		Message:      string(session.PaymentStatus),
		Raw:          rawResponse(session),
	}, nil
}

// Payout is not offered by this integration.
func (g *Gateway) Payout(ctx context.Context, req *gateway.PayoutRequest) (*gateway.PayoutResponse, error) {
	return nil, gateway.ErrNotSupported
}
