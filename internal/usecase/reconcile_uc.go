// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileInput names the payment and the membership it pays for.
type ReconcileInput struct {
	TransactionID string
	UserID        string
	PlanID        string
	StartDate     time.Time
	DurationDays  int
	Amount        int64
}

type ReconcileUseCase interface {
	// Reconcile creates the single subscription for a confirmed payment. Calling it
	// again for the same transaction returns the row created the first time.
	Reconcile(ctx context.Context, in ReconcileInput) (*model.Subscription, error)
	// ReconcileIntent reconciles using the inputs recorded on the intent itself.
	ReconcileIntent(ctx context.Context, intent *model.PaymentIntent) (*model.Subscription, error)
}

type reconcileUC struct {
	intents repository.PaymentIntentRepository
	subs    repository.SubscriptionRepository
	log     *zerolog.Logger
}

func NewReconcileUseCase(intents repository.PaymentIntentRepository, subs repository.SubscriptionRepository, logger *zerolog.Logger) *reconcileUC {
	return &reconcileUC{intents: intents, subs: subs, log: logger}
}

func (u *reconcileUC) Reconcile(ctx context.Context, in ReconcileInput) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "ReconcileUC.Reconcile")()
	log := logging.With(logging.WithTxnID(ctx, in.TransactionID), u.log)

	if in.TransactionID == "" {
		return nil, fmt.Errorf("%w: missing transaction id", domain.ErrReconcile)
	}
	intent, err := u.intents.FindByID(ctx, repository.NoTX, in.TransactionID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn().Msg("reconcile for unknown transaction")
		return nil, fmt.Errorf("%w: transaction not found", domain.ErrReconcile)
	}
	if err != nil {
		return nil, fmt.Errorf("load payment intent: %w", err)
	}
	if intent.Status != model.PaymentStatusConfirmed {
		log.Warn().Str("status", string(intent.Status)).Msg("reconcile before confirmation")
		return nil, fmt.Errorf("%w: status %s", domain.ErrReconcile, intent.Status)
	}
	if err := matchIntent(intent, in); err != nil {
		log.Error().Err(err).Msg("reconcile input does not match the confirmed payment")
		return nil, err
	}

	sub, err := model.NewSubscription(uuid.NewString(), in.UserID, in.PlanID, in.TransactionID, in.StartDate, in.DurationDays, in.Amount)
	if err != nil {
		return nil, err
	}

	err = u.subs.InsertIfAbsent(ctx, repository.NoTX, sub)
	switch {
	case err == nil:
		metrics.IncReconciled("created")
		log.Info().
			Str("subscription_id", sub.ID).
			Str("start_date", sub.StartDate.Format(model.DateLayout)).
			Str("end_date", sub.EndDate.Format(model.DateLayout)).
			Msg("subscription created")
		return sub, nil
	case errors.Is(err, domain.ErrDuplicateReconcile):
		existing, ferr := u.subs.FindByTransactionID(ctx, repository.NoTX, in.TransactionID)
		if ferr != nil {
			metrics.IncReconcileError()
			return nil, fmt.Errorf("load reconciled subscription: %w", ferr)
		}
		metrics.IncReconciled("existing")
		log.Debug().Str("subscription_id", existing.ID).Msg("transaction already reconciled")
		return existing, nil
	default:
		metrics.IncReconcileError()
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
}

func (u *reconcileUC) ReconcileIntent(ctx context.Context, intent *model.PaymentIntent) (*model.Subscription, error) {
	if intent == nil {
		return nil, domain.ErrInvalidArgument
	}
	return u.Reconcile(ctx, ReconcileInput{
		TransactionID: intent.ID,
		UserID:        intent.UserID,
		PlanID:        intent.PlanID,
		StartDate:     intent.StartDate,
		DurationDays:  intent.DurationDays,
		Amount:        intent.Amount,
	})
}

// matchIntent rejects inputs that disagree with what was actually paid for.
func matchIntent(intent *model.PaymentIntent, in ReconcileInput) error {
	switch {
	case intent.UserID != in.UserID:
		return fmt.Errorf("%w: user mismatch", domain.ErrReconcile)
	case intent.PlanID != in.PlanID:
		return fmt.Errorf("%w: plan mismatch", domain.ErrReconcile)
	case intent.Amount != in.Amount:
		return fmt.Errorf("%w: amount mismatch", domain.ErrReconcile)
	case intent.DurationDays != in.DurationDays:
		return fmt.Errorf("%w: duration mismatch", domain.ErrReconcile)
	case !model.TruncateDate(intent.StartDate).Equal(model.TruncateDate(in.StartDate)):
		return fmt.Errorf("%w: start date mismatch", domain.ErrReconcile)
	}
	return nil
}
