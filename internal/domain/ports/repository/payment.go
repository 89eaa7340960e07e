package repository

import (
	"context"
	"time"

	"gym-membership-billing/internal/domain/model"
)

// -----------------------------
// Payment intents
// -----------------------------

type PaymentIntentRepository interface {
	// Save inserts a new intent; an existing id yields domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, p *model.PaymentIntent) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentIntent, error)
	// TransitionIfPending atomically moves a created/awaiting_confirmation intent
	// to status. It reports false when another writer got there first.
	TransitionIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, gatewayRef, failureCode *string, at time.Time) (bool, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error)
	// ListConfirmedWithoutSubscription returns confirmed intents that have no
	// subscription row yet.
	ListConfirmedWithoutSubscription(ctx context.Context, tx Tx, limit int) ([]*model.PaymentIntent, error)
	SumConfirmed(ctx context.Context, tx Tx, since time.Time) (int64, error)
}

// -----------------------------
// Callback log
// -----------------------------

type CallbackLogRepository interface {
	// Append stores the entry unless (gateway, event_key) already exists.
	// It reports whether a new row was written.
	Append(ctx context.Context, tx Tx, e *model.CallbackLogEntry) (bool, error)
}
