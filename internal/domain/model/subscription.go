package model

import (
	"time"

	"gym-membership-billing/internal/domain"
)

const DateLayout = "2006-01-02"

// Subscription is the membership granted for exactly one confirmed payment.
type Subscription struct {
	ID                   string
	UserID               string
	PlanID               string
	PaymentTransactionID string
	StartDate            time.Time
	EndDate              time.Time
	Amount               int64
	TotalDurationDays    int
	IsActive             bool
	CreatedAt            time.Time
}

// NewSubscription builds a subscription with EndDate = StartDate + durationDays.
// Dates are calendar dates in UTC.
func NewSubscription(id, userID, planID, txnID string, start time.Time, durationDays int, amount int64) (*Subscription, error) {
	if id == "" || userID == "" || planID == "" || txnID == "" || durationDays <= 0 || amount <= 0 || start.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	startDate := TruncateDate(start)
	return &Subscription{
		ID:                   id,
		UserID:               userID,
		PlanID:               planID,
		PaymentTransactionID: txnID,
		StartDate:            startDate,
		EndDate:              EndDate(startDate, durationDays),
		Amount:               amount,
		TotalDurationDays:    durationDays,
		IsActive:             true,
		CreatedAt:            time.Now().UTC(),
	}, nil
}

// EndDate returns start + durationDays calendar days.
func EndDate(start time.Time, durationDays int) time.Time {
	return TruncateDate(start).AddDate(0, 0, durationDays)
}

// TruncateDate drops the clock part, keeping the calendar date of t in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, domain.ErrInvalidArgument
	}
	return t, nil
}
