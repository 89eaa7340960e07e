package adapter

import (
	"context"
	"net/http"
	"net/url"

	"gym-membership-billing/internal/domain/model"
)

// InitiateRequest is what a gateway needs to open a charge.
type InitiateRequest struct {
	TransactionID string // internal id; gateways that assign their own may ignore it
	Amount        int64  // minor units, > 0
	Currency      string
	Description   string
	PayerName     string
	PayerEmail    string
	PayerPhone    string
	Metadata      map[string]string
}

type ContinuationKind string

const (
	// ContinuationClientSecret: the browser confirms with the gateway's JS SDK.
	ContinuationClientSecret ContinuationKind = "client_secret"
	// ContinuationRedirectForm: the browser auto-submits a form to the hosted page.
	ContinuationRedirectForm ContinuationKind = "redirect_form"
)

// Continuation tells the browser how to finish the payment on the gateway side.
type Continuation struct {
	Kind         ContinuationKind
	ClientSecret string
	FormAction   string
	FormFields   url.Values
}

// InitiateResult carries the transaction id the callback will reference.
type InitiateResult struct {
	TransactionID string
	Continuation  Continuation
}

// CallbackRequest is the raw inbound callback, decoupled from the HTTP server.
type CallbackRequest struct {
	Header http.Header
	Form   url.Values
	Body   []byte
}

// CallbackResponseStyle is the protocol shape the gateway expects back.
type CallbackResponseStyle string

const (
	CallbackResponseRedirect CallbackResponseStyle = "redirect"
	CallbackResponseJSON     CallbackResponseStyle = "json"
)

// PaymentGateway is the hex port for payment providers. Exactly one is
// configured per deployment.
type PaymentGateway interface {
	Name() string
	ResponseStyle() CallbackResponseStyle

	// Initiate requests a charge. Errors are reported as-is; the caller wraps
	// them into domain.ErrGateway.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)

	// VerifyCallback checks authenticity and maps the callback to an event.
	// It returns domain.ErrAuthenticity for unverifiable input and
	// domain.ErrEventIgnored for authentic events the flow does not act on.
	VerifyCallback(ctx context.Context, req CallbackRequest) (*model.GatewayCallbackEvent, error)
}
