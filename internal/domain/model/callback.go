package model

import (
	"errors"
	"time"

	"gym-membership-billing/internal/domain"
)

type CallbackOutcome string

const (
	CallbackOutcomeSuccess CallbackOutcome = "success"
	CallbackOutcomeFailure CallbackOutcome = "failure"
)

// GatewayCallbackEvent is an inbound gateway notification that already passed
// the gateway's authenticity check.
type GatewayCallbackEvent struct {
	Gateway       string
	EventKey      string // dedup key for the callback log (event id or txnid+status)
	TransactionID string
	Outcome       CallbackOutcome
	Amount        int64 // minor units as reported by the gateway, 0 if not reported
	GatewayRef    string
	ErrorCode     string
	RawPayload    []byte
	ReceivedAt    time.Time
}

// CallbackLogEntry is the stored audit row for a verified callback.
type CallbackLogEntry struct {
	ID            string
	Gateway       string
	EventKey      string
	TransactionID string
	Outcome       CallbackOutcome
	Payload       []byte
	ReceivedAt    time.Time
}

// ReasonCode is the machine reason shown on the payment status page. It never
// carries raw gateway error text.
type ReasonCode string

const (
	ReasonNone               ReasonCode = ""
	ReasonPaymentDeclined    ReasonCode = "payment_declined"
	ReasonInvalidCallback    ReasonCode = "invalid_callback"
	ReasonUnknownTransaction ReasonCode = "unknown_transaction"
	ReasonNotConfirmed       ReasonCode = "not_confirmed"
	ReasonGatewayUnavailable ReasonCode = "gateway_unavailable"
	ReasonInternal           ReasonCode = "internal_error"
)

// ReasonFor maps an error from the payment flow onto a reason code.
func ReasonFor(err error) ReasonCode {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, domain.ErrAuthenticity):
		return ReasonInvalidCallback
	case errors.Is(err, domain.ErrUnknownTransaction):
		return ReasonUnknownTransaction
	case errors.Is(err, domain.ErrReconcile):
		return ReasonNotConfirmed
	case errors.Is(err, domain.ErrGateway):
		return ReasonGatewayUnavailable
	}
	return ReasonInternal
}
