// File: internal/infra/adapters/payment/stripe_gateway.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

const (
	stripeEventSucceeded = "payment_intent.succeeded"
	stripeEventFailed    = "payment_intent.payment_failed"

	stripeSignatureHeader = "Stripe-Signature"
)

// PaymentIntentCreator is the slice of the Stripe client the gateway uses.
// *stripe.Client's V1PaymentIntents satisfies it.
type PaymentIntentCreator interface {
	Create(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
}

// StripeGateway is the card-network gateway: the browser confirms the
// PaymentIntent with Stripe.js using the client secret and Stripe reports the
// result through a signed webhook.
type StripeGateway struct {
	intents       PaymentIntentCreator
	webhookSecret string
	now           func() time.Time
}

func NewStripeGateway(secretKey, webhookSecret string) (*StripeGateway, error) {
	if secretKey == "" || webhookSecret == "" {
		return nil, errors.New("stripe secret key and webhook secret are required")
	}
	client := stripe.NewClient(secretKey, nil)
	return NewStripeGatewayWithClient(client.V1PaymentIntents, webhookSecret), nil
}

func NewStripeGatewayWithClient(intents PaymentIntentCreator, webhookSecret string) *StripeGateway {
	return &StripeGateway{intents: intents, webhookSecret: webhookSecret, now: time.Now}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) ResponseStyle() adapter.CallbackResponseStyle {
	return adapter.CallbackResponseJSON
}

// Initiate creates a PaymentIntent. The Stripe id becomes the transaction id;
// our own id travels as metadata and as the idempotency key.
func (g *StripeGateway) Initiate(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("stripe: invalid amount %d", req.Amount)
	}
	meta := map[string]string{"txn_ref": req.TransactionID}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	params := &stripe.PaymentIntentCreateParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		Metadata:    meta,
	}
	if req.PayerEmail != "" {
		params.ReceiptEmail = stripe.String(req.PayerEmail)
	}
	if req.TransactionID != "" {
		params.SetIdempotencyKey(req.TransactionID)
	}

	pi, err := g.intents.Create(ctx, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return nil, fmt.Errorf("stripe: %s (%s)", se.Code, se.Type)
		}
		return nil, fmt.Errorf("stripe: %w", err)
	}
	if pi == nil || pi.ID == "" || pi.ClientSecret == "" {
		return nil, errors.New("stripe: payment intent without id or client secret")
	}
	return &adapter.InitiateResult{
		TransactionID: pi.ID,
		Continuation: adapter.Continuation{
			Kind:         adapter.ContinuationClientSecret,
			ClientSecret: pi.ClientSecret,
		},
	}, nil
}

// VerifyCallback checks the Stripe-Signature header and maps payment intent
// events. Other event types are authentic but ignored.
func (g *StripeGateway) VerifyCallback(ctx context.Context, req adapter.CallbackRequest) (*model.GatewayCallbackEvent, error) {
	sig := req.Header.Get(stripeSignatureHeader)
	if sig == "" {
		return nil, fmt.Errorf("%w: missing signature", domain.ErrAuthenticity)
	}
	event, err := webhook.ConstructEventWithOptions(req.Body, sig, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticity, err)
	}

	var outcome model.CallbackOutcome
	switch string(event.Type) {
	case stripeEventSucceeded:
		outcome = model.CallbackOutcomeSuccess
	case stripeEventFailed:
		outcome = model.CallbackOutcomeFailure
	default:
		return nil, fmt.Errorf("%w: stripe event %s", domain.ErrEventIgnored, event.Type)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: decode payment intent: %v", domain.ErrAuthenticity, err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("%w: event without payment intent id", domain.ErrAuthenticity)
	}

	ev := &model.GatewayCallbackEvent{
		Gateway:       g.Name(),
		EventKey:      event.ID,
		TransactionID: pi.ID,
		Outcome:       outcome,
		Amount:        pi.Amount,
		RawPayload:    req.Body,
		ReceivedAt:    g.now().UTC(),
	}
	if pi.LatestCharge != nil {
		ev.GatewayRef = pi.LatestCharge.ID
	}
	if pi.LastPaymentError != nil {
		ev.ErrorCode = string(pi.LastPaymentError.Code)
	}
	return ev, nil
}
