package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCreated              PaymentStatus = "created"               // row exists, gateway not yet answered
	PaymentStatusAwaitingConfirmation PaymentStatus = "awaiting_confirmation" // payer is on the gateway side
	PaymentStatusConfirmed            PaymentStatus = "confirmed"             // verified success callback
	PaymentStatusFailed               PaymentStatus = "failed"                // verified failure callback
	PaymentStatusExpired              PaymentStatus = "expired"               // abandoned, closed by the sweeper
)

// IsPending reports whether a verified callback may still move the intent.
func (s PaymentStatus) IsPending() bool {
	return s == PaymentStatusCreated || s == PaymentStatusAwaitingConfirmation
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusFailed || s == PaymentStatusExpired
}

// PaymentIntent records a requested charge and everything needed to grant the
// membership once the gateway confirms it.
type PaymentIntent struct {
	ID           string // transaction id: gateway-assigned or internally generated
	Gateway      string // e.g. "stripe", "payu"
	UserID       string
	PlanID       string
	BillingCycle BillingCycle
	StartDate    time.Time
	DurationDays int
	Amount       int64 // minor units
	Currency     string
	Description  string
	PayerName    string
	PayerEmail   string
	PayerPhone   string
	Status       PaymentStatus
	GatewayRef   *string // gateway correlation id (mihpayid, charge id) after the callback
	FailureCode  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ConfirmedAt  *time.Time

	// ClientContinuationToken is handed to the payer's browser only. It is
	// neither persisted nor logged.
	ClientContinuationToken string `json:"-"`
}
