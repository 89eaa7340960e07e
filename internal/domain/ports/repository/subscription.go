package repository

import (
	"context"

	"gym-membership-billing/internal/domain/model"
)

// SubscriptionRepository is the port for membership records.
type SubscriptionRepository interface {
	// InsertIfAbsent writes s unless a row for s.PaymentTransactionID exists.
	// On conflict it returns domain.ErrDuplicateReconcile and leaves storage untouched.
	InsertIfAbsent(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByTransactionID(ctx context.Context, tx Tx, txnID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
}
