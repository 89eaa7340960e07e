// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
	"gym-membership-billing/internal/infra/logging"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase is the read side used by account pages.
type SubscriptionUseCase interface {
	ListByUser(ctx context.Context, userID string) ([]*model.Subscription, error)
	FindByTransaction(ctx context.Context, userID, txnID string) (*model.Subscription, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, log: logger}
}

func (u *subscriptionUC) ListByUser(ctx context.Context, userID string) ([]*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ListByUser")()
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.subs.ListByUser(ctx, repository.NoTX, userID)
}

// FindByTransaction hides subscriptions owned by other users behind ErrNotFound.
func (u *subscriptionUC) FindByTransaction(ctx context.Context, userID, txnID string) (*model.Subscription, error) {
	if userID == "" || txnID == "" {
		return nil, domain.ErrInvalidArgument
	}
	s, err := u.subs.FindByTransactionID(ctx, repository.NoTX, txnID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}
