package payment

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is a simple in-memory gateway to use in tests. Callbacks
// are form posts authenticated by a shared token in the "sig" field.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	seq     int64
	token   string
	intents map[string]int64 // txn id -> amount

	// FailInitiate makes Initiate return this error when set.
	FailInitiate error
}

func NewNoopPaymentGateway(token string) *NoopPaymentGateway {
	return &NoopPaymentGateway{
		token:   token,
		intents: make(map[string]int64),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) ResponseStyle() adapter.CallbackResponseStyle {
	return adapter.CallbackResponseRedirect
}

func (g *NoopPaymentGateway) Initiate(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailInitiate != nil {
		return nil, g.FailInitiate
	}
	if req.Amount <= 0 {
		return nil, errors.New("noop: invalid amount")
	}
	txn := req.TransactionID
	if txn == "" {
		g.seq++
		txn = fmt.Sprintf("noop-%d", g.seq)
	}
	g.intents[txn] = req.Amount
	return &adapter.InitiateResult{
		TransactionID: txn,
		Continuation: adapter.Continuation{
			Kind:         adapter.ContinuationClientSecret,
			ClientSecret: "secret-" + txn,
		},
	}, nil
}

func (g *NoopPaymentGateway) VerifyCallback(ctx context.Context, req adapter.CallbackRequest) (*model.GatewayCallbackEvent, error) {
	sig := req.Form.Get("sig")
	if sig == "" || subtle.ConstantTimeCompare([]byte(sig), []byte(g.token)) != 1 {
		return nil, fmt.Errorf("%w: bad token", domain.ErrAuthenticity)
	}
	txn := req.Form.Get("txnid")
	var outcome model.CallbackOutcome
	switch req.Form.Get("status") {
	case "success":
		outcome = model.CallbackOutcomeSuccess
	case "failure":
		outcome = model.CallbackOutcomeFailure
	default:
		return nil, domain.ErrEventIgnored
	}
	return &model.GatewayCallbackEvent{
		Gateway:       g.Name(),
		EventKey:      txn + ":" + string(outcome),
		TransactionID: txn,
		Outcome:       outcome,
		GatewayRef:    "ref-" + txn,
		ErrorCode:     req.Form.Get("error"),
		RawPayload:    []byte(req.Form.Encode()),
		ReceivedAt:    time.Now().UTC(),
	}, nil
}
