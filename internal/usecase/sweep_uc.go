// File: internal/usecase/sweep_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
	"gym-membership-billing/internal/infra/logging"
)

// Compile-time check
var _ SweepUseCase = (*sweepUC)(nil)

// SweepUseCase closes abandoned checkouts and heals confirmed payments whose
// subscription was never written.
type SweepUseCase interface {
	ExpireStale(ctx context.Context, olderThan time.Time, limit int) (int, error)
	HealUnreconciled(ctx context.Context, limit int) (int, error)
	ConfirmedRevenueSince(ctx context.Context, since time.Time) (int64, error)
}

type sweepUC struct {
	intents   repository.PaymentIntentRepository
	reconcile ReconcileUseCase
	now       func() time.Time
	log       *zerolog.Logger
}

func NewSweepUseCase(intents repository.PaymentIntentRepository, reconcile ReconcileUseCase, logger *zerolog.Logger) *sweepUC {
	return &sweepUC{intents: intents, reconcile: reconcile, now: time.Now, log: logger}
}

// ExpireStale moves pending intents created before olderThan to expired. The
// same compare-and-set as the callback path is used, so a callback that lands
// first keeps its outcome.
func (u *sweepUC) ExpireStale(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	defer logging.TraceDuration(u.log, "SweepUC.ExpireStale")()
	pending, err := u.intents.ListPendingOlderThan(ctx, repository.NoTX, olderThan, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending intents: %w", err)
	}
	n := 0
	for _, p := range pending {
		moved, err := u.intents.TransitionIfPending(ctx, repository.NoTX, p.ID, model.PaymentStatusExpired, nil, nil, u.now().UTC())
		if err != nil {
			u.log.Error().Err(err).Str("txn_id", p.ID).Msg("expire intent failed")
			continue
		}
		if moved {
			n++
			u.log.Info().Str("txn_id", p.ID).Time("created_at", p.CreatedAt).Msg("payment intent expired")
		}
	}
	return n, nil
}

func (u *sweepUC) HealUnreconciled(ctx context.Context, limit int) (int, error) {
	defer logging.TraceDuration(u.log, "SweepUC.HealUnreconciled")()
	confirmed, err := u.intents.ListConfirmedWithoutSubscription(ctx, repository.NoTX, limit)
	if err != nil {
		return 0, fmt.Errorf("list unreconciled intents: %w", err)
	}
	n := 0
	for _, p := range confirmed {
		sub, err := u.reconcile.ReconcileIntent(ctx, p)
		if err != nil {
			u.log.Error().Err(err).Str("txn_id", p.ID).Msg("heal reconcile failed")
			continue
		}
		n++
		u.log.Info().Str("txn_id", p.ID).Str("subscription_id", sub.ID).Msg("confirmed payment reconciled by sweeper")
	}
	return n, nil
}

func (u *sweepUC) ConfirmedRevenueSince(ctx context.Context, since time.Time) (int64, error) {
	return u.intents.SumConfirmed(ctx, repository.NoTX, since)
}
