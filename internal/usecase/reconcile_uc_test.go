//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/usecase"
)

func newReconcileFixture(t *testing.T, status model.PaymentStatus) (*memIntentRepo, *memSubRepo, usecase.ReconcileUseCase) {
	t.Helper()
	subs := newMemSubRepo()
	intents := newMemIntentRepo(subs)
	err := intents.Save(context.Background(), nil, &model.PaymentIntent{
		ID:           "TXN1",
		Gateway:      "payu",
		UserID:       "user-1",
		PlanID:       "gold",
		StartDate:    date(2024, 1, 1),
		DurationDays: 90,
		Amount:       49900,
		Status:       status,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return intents, subs, usecase.NewReconcileUseCase(intents, subs, newTestLogger())
}

func reconcileInput() usecase.ReconcileInput {
	return usecase.ReconcileInput{
		TransactionID: "TXN1",
		UserID:        "user-1",
		PlanID:        "gold",
		StartDate:     date(2024, 1, 1),
		DurationDays:  90,
		Amount:        49900,
	}
}

func TestReconcile_CreatesSubscription(t *testing.T) {
	_, subs, uc := newReconcileFixture(t, model.PaymentStatusConfirmed)

	sub, err := uc.Reconcile(context.Background(), reconcileInput())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sub.StartDate.Format(model.DateLayout) != "2024-01-01" || sub.EndDate.Format(model.DateLayout) != "2024-03-31" {
		t.Errorf("unexpected period %s..%s", sub.StartDate.Format(model.DateLayout), sub.EndDate.Format(model.DateLayout))
	}
	if sub.PaymentTransactionID != "TXN1" || sub.TotalDurationDays != 90 || !sub.IsActive {
		t.Errorf("unexpected subscription %+v", sub)
	}
	if subs.count() != 1 {
		t.Errorf("expected 1 row, got %d", subs.count())
	}
}

func TestReconcile_IsIdempotent(t *testing.T) {
	_, subs, uc := newReconcileFixture(t, model.PaymentStatusConfirmed)
	ctx := context.Background()

	first, err := uc.Reconcile(ctx, reconcileInput())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := uc.Reconcile(ctx, reconcileInput())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second call created %s, want %s", second.ID, first.ID)
	}
	if subs.count() != 1 {
		t.Errorf("expected 1 row, got %d", subs.count())
	}
}

func TestReconcile_ConcurrentCallsReturnSameRow(t *testing.T) {
	_, subs, uc := newReconcileFixture(t, model.PaymentStatusConfirmed)

	const n = 50
	var wg sync.WaitGroup
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, err := uc.Reconcile(context.Background(), reconcileInput())
			if err != nil {
				t.Errorf("call %d: %v", i, err)
				return
			}
			ids[i] = sub.ID
		}(i)
	}
	wg.Wait()
	for i := range ids {
		if ids[i] != ids[0] {
			t.Fatalf("call %d got %q, want %q", i, ids[i], ids[0])
		}
	}
	if subs.count() != 1 {
		t.Errorf("expected 1 row, got %d", subs.count())
	}
}

func TestReconcile_Preconditions(t *testing.T) {
	t.Run("not confirmed", func(t *testing.T) {
		for _, st := range []model.PaymentStatus{
			model.PaymentStatusCreated,
			model.PaymentStatusAwaitingConfirmation,
			model.PaymentStatusFailed,
			model.PaymentStatusExpired,
		} {
			_, subs, uc := newReconcileFixture(t, st)
			if _, err := uc.Reconcile(context.Background(), reconcileInput()); !errors.Is(err, domain.ErrReconcile) {
				t.Errorf("%s: expected ErrReconcile, got %v", st, err)
			}
			if subs.count() != 0 {
				t.Errorf("%s: subscription created", st)
			}
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, _, uc := newReconcileFixture(t, model.PaymentStatusConfirmed)
		in := reconcileInput()
		in.TransactionID = "TXN-NOPE"
		if _, err := uc.Reconcile(context.Background(), in); !errors.Is(err, domain.ErrReconcile) {
			t.Fatalf("expected ErrReconcile, got %v", err)
		}
	})

	t.Run("input disagrees with the payment", func(t *testing.T) {
		cases := map[string]func(in *usecase.ReconcileInput){
			"user":     func(in *usecase.ReconcileInput) { in.UserID = "user-2" },
			"plan":     func(in *usecase.ReconcileInput) { in.PlanID = "silver" },
			"amount":   func(in *usecase.ReconcileInput) { in.Amount = 100 },
			"duration": func(in *usecase.ReconcileInput) { in.DurationDays = 365 },
			"start":    func(in *usecase.ReconcileInput) { in.StartDate = date(2024, 2, 1) },
		}
		for name, mutate := range cases {
			_, subs, uc := newReconcileFixture(t, model.PaymentStatusConfirmed)
			in := reconcileInput()
			mutate(&in)
			if _, err := uc.Reconcile(context.Background(), in); !errors.Is(err, domain.ErrReconcile) {
				t.Errorf("%s: expected ErrReconcile, got %v", name, err)
			}
			if subs.count() != 0 {
				t.Errorf("%s: subscription created", name)
			}
		}
	})

	t.Run("nil intent", func(t *testing.T) {
		_, _, uc := newReconcileFixture(t, model.PaymentStatusConfirmed)
		if _, err := uc.ReconcileIntent(context.Background(), nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
