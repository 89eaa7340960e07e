//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/usecase"
)

func TestSweepUseCase(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	intents := newMemIntentRepo(subs)
	now := time.Now().UTC()

	seed := func(id string, status model.PaymentStatus, created time.Time, confirmedAt *time.Time) {
		if err := intents.Save(ctx, nil, &model.PaymentIntent{
			ID: id, Gateway: "payu", UserID: "user-1", PlanID: "gold",
			StartDate: date(2024, 1, 1), DurationDays: 90, Amount: 49900,
			Status: status, CreatedAt: created, ConfirmedAt: confirmedAt,
		}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	recent := now.Add(-time.Hour)
	old := now.Add(-48 * time.Hour)
	seed("stale", model.PaymentStatusAwaitingConfirmation, old, nil)
	seed("fresh", model.PaymentStatusAwaitingConfirmation, recent, nil)
	seed("paid", model.PaymentStatusConfirmed, old, &recent)
	seed("paid-long-ago", model.PaymentStatusConfirmed, old, &old)

	reconcile := usecase.NewReconcileUseCase(intents, subs, newTestLogger())
	uc := usecase.NewSweepUseCase(intents, reconcile, newTestLogger())

	t.Run("expires only stale pending intents", func(t *testing.T) {
		n, err := uc.ExpireStale(ctx, now.Add(-24*time.Hour), 100)
		if err != nil {
			t.Fatalf("ExpireStale: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 expired, got %d", n)
		}
		if intents.status("stale") != model.PaymentStatusExpired || intents.status("fresh") != model.PaymentStatusAwaitingConfirmation {
			t.Errorf("unexpected statuses stale=%s fresh=%s", intents.status("stale"), intents.status("fresh"))
		}
	})

	t.Run("heals confirmed intents without a subscription", func(t *testing.T) {
		n, err := uc.HealUnreconciled(ctx, 100)
		if err != nil {
			t.Fatalf("HealUnreconciled: %v", err)
		}
		if n != 2 || subs.count() != 2 {
			t.Errorf("expected 2 healed, got %d (rows %d)", n, subs.count())
		}
		n, err = uc.HealUnreconciled(ctx, 100)
		if err != nil || n != 0 {
			t.Errorf("second pass should be a no-op, got %d %v", n, err)
		}
	})

	t.Run("sums confirmed revenue in the window", func(t *testing.T) {
		sum, err := uc.ConfirmedRevenueSince(ctx, now.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("ConfirmedRevenueSince: %v", err)
		}
		if sum != 49900 {
			t.Errorf("expected 49900, got %d", sum)
		}
	})
}
