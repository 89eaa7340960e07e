//go:build !integration

package payment

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
)

func TestNoopGateway(t *testing.T) {
	g := NewNoopPaymentGateway("tok")
	ctx := context.Background()

	res, err := g.Initiate(ctx, adapter.InitiateRequest{Amount: 100})
	if err != nil || res.TransactionID != "noop-1" {
		t.Fatalf("Initiate = %+v, %v", res, err)
	}
	g.FailInitiate = errors.New("down")
	if _, err := g.Initiate(ctx, adapter.InitiateRequest{Amount: 100}); err == nil {
		t.Fatal("expected FailInitiate to be returned")
	}

	ev, err := g.VerifyCallback(ctx, adapter.CallbackRequest{Form: url.Values{"sig": {"tok"}, "txnid": {"noop-1"}, "status": {"failure"}}})
	if err != nil || ev.Outcome != model.CallbackOutcomeFailure {
		t.Fatalf("VerifyCallback = %+v, %v", ev, err)
	}
	if _, err := g.VerifyCallback(ctx, adapter.CallbackRequest{Form: url.Values{"sig": {"nope"}}}); !errors.Is(err, domain.ErrAuthenticity) {
		t.Fatalf("expected ErrAuthenticity, got %v", err)
	}
}
