//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/usecase"
)

func TestSubscriptionUseCase(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	s, err := model.NewSubscription("sub-1", "user-1", "gold", "TXN1", date(2024, 1, 1), 90, 49900)
	if err != nil {
		t.Fatalf("NewSubscription: %v", err)
	}
	if err := subs.InsertIfAbsent(ctx, nil, s); err != nil {
		t.Fatalf("insert: %v", err)
	}
	uc := usecase.NewSubscriptionUseCase(subs, newTestLogger())

	list, err := uc.ListByUser(ctx, "user-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser = %d, %v", len(list), err)
	}
	if _, err := uc.ListByUser(ctx, ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	got, err := uc.FindByTransaction(ctx, "user-1", "TXN1")
	if err != nil || got.ID != "sub-1" {
		t.Fatalf("FindByTransaction = %+v, %v", got, err)
	}
	if _, err := uc.FindByTransaction(ctx, "user-2", "TXN1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other user's subscription should be hidden, got %v", err)
	}
}

func TestPlanUseCase(t *testing.T) {
	ctx := context.Background()
	retired := goldPlan()
	retired.ID = "retired"
	retired.IsActive = false
	uc := usecase.NewPlanUseCase(newMemPlanRepo(goldPlan(), retired), newTestLogger())

	active, err := uc.ListActive(ctx)
	if err != nil || len(active) != 1 || active[0].ID != "gold" {
		t.Fatalf("ListActive = %v, %v", active, err)
	}
	p, err := uc.Get(ctx, "retired")
	if err != nil || p.IsActive {
		t.Fatalf("Get = %+v, %v", p, err)
	}
	if _, err := uc.Get(ctx, "none"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
