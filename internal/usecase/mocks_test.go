//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
	"gym-membership-billing/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// =============================
// Repositories
// =============================

// ---- memIntentRepo ----

// memIntentRepo mirrors the compare-and-set semantics of the Postgres repo
// under a mutex.
type memIntentRepo struct {
	mu   sync.Mutex
	byID map[string]*model.PaymentIntent
	subs *memSubRepo // for ListConfirmedWithoutSubscription

	transitions int // successful status moves
	SaveErr     error
	FindErr     error
}

var _ repository.PaymentIntentRepository = (*memIntentRepo)(nil)

func newMemIntentRepo(subs *memSubRepo) *memIntentRepo {
	return &memIntentRepo{byID: map[string]*model.PaymentIntent{}, subs: subs}
}

func (m *memIntentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if _, ok := m.byID[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	cp.ClientContinuationToken = ""
	m.byID[p.ID] = &cp
	return nil
}

func (m *memIntentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memIntentRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, gatewayRef, failureCode *string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || !p.Status.IsPending() {
		return false, nil
	}
	p.Status = status
	p.GatewayRef = gatewayRef
	p.FailureCode = failureCode
	p.UpdatedAt = at
	if status == model.PaymentStatusConfirmed {
		t := at
		p.ConfirmedAt = &t
	}
	m.transitions++
	return true, nil
}

func (m *memIntentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	return m.filter(limit, func(p *model.PaymentIntent) bool {
		return p.Status.IsPending() && p.CreatedAt.Before(olderThan)
	}), nil
}

func (m *memIntentRepo) ListConfirmedWithoutSubscription(ctx context.Context, tx repository.Tx, limit int) ([]*model.PaymentIntent, error) {
	return m.filter(limit, func(p *model.PaymentIntent) bool {
		return p.Status == model.PaymentStatusConfirmed && !m.subs.has(p.ID)
	}), nil
}

func (m *memIntentRepo) SumConfirmed(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	var sum int64
	for _, p := range m.filter(0, func(p *model.PaymentIntent) bool {
		return p.Status == model.PaymentStatusConfirmed && p.ConfirmedAt != nil && !p.ConfirmedAt.Before(since)
	}) {
		sum += p.Amount
	}
	return sum, nil
}

func (m *memIntentRepo) filter(limit int, keep func(*model.PaymentIntent) bool) []*model.PaymentIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentIntent
	for _, p := range m.byID {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memIntentRepo) status(id string) model.PaymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		return p.Status
	}
	return ""
}

// ---- memSubRepo ----

type memSubRepo struct {
	mu    sync.Mutex
	byTxn map[string]*model.Subscription

	InsertErr error
}

var _ repository.SubscriptionRepository = (*memSubRepo)(nil)

func newMemSubRepo() *memSubRepo { return &memSubRepo{byTxn: map[string]*model.Subscription{}} }

func (m *memSubRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if _, ok := m.byTxn[s.PaymentTransactionID]; ok {
		return domain.ErrDuplicateReconcile
	}
	cp := *s
	m.byTxn[s.PaymentTransactionID] = &cp
	return nil
}

func (m *memSubRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, txnID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byTxn[txnID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.byTxn {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubRepo) has(txnID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byTxn[txnID]
	return ok
}

func (m *memSubRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byTxn)
}

// ---- memCallbackLog ----

type memCallbackLog struct {
	mu      sync.Mutex
	entries map[string]*model.CallbackLogEntry // gateway|event_key
}

var _ repository.CallbackLogRepository = (*memCallbackLog)(nil)

func newMemCallbackLog() *memCallbackLog {
	return &memCallbackLog{entries: map[string]*model.CallbackLogEntry{}}
}

func (m *memCallbackLog) Append(ctx context.Context, tx repository.Tx, e *model.CallbackLogEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := e.Gateway + "|" + e.EventKey
	if _, ok := m.entries[k]; ok {
		return false, nil
	}
	cp := *e
	m.entries[k] = &cp
	return true, nil
}

func (m *memCallbackLog) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ---- memPlanRepo ----

type memPlanRepo struct {
	byID map[string]*model.Plan
}

var _ repository.PlanRepository = (*memPlanRepo)(nil)

func newMemPlanRepo(plans ...*model.Plan) *memPlanRepo {
	m := &memPlanRepo{byID: map[string]*model.Plan{}}
	for _, p := range plans {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	var out []*model.Plan
	for _, p := range m.byID {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func goldPlan() *model.Plan {
	return &model.Plan{
		ID:              "gold",
		Name:            "Gold",
		MonthlyPrice:    19900,
		QuarterlyPrice:  49900,
		HalfYearlyPrice: 89900,
		YearlyPrice:     159900,
		IsActive:        true,
	}
}

// ---- mockTxManager ----

type noTx struct{}

type mockTxManager struct {
	mu    sync.Mutex
	calls int
}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return fn(ctx, noTx{})
}

// =============================
// Adapters
// =============================

// MockGateway records initiate calls; behavior is configurable per test.
type MockGateway struct {
	mu    sync.Mutex
	Calls []adapter.InitiateRequest

	InitiateFunc func(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error)
	VerifyFunc   func(ctx context.Context, req adapter.CallbackRequest) (*model.GatewayCallbackEvent, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) ResponseStyle() adapter.CallbackResponseStyle {
	return adapter.CallbackResponseRedirect
}

func (g *MockGateway) Initiate(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	g.mu.Lock()
	g.Calls = append(g.Calls, req)
	g.mu.Unlock()
	if g.InitiateFunc != nil {
		return g.InitiateFunc(ctx, req)
	}
	return &adapter.InitiateResult{
		TransactionID: req.TransactionID,
		Continuation:  adapter.Continuation{Kind: adapter.ContinuationClientSecret, ClientSecret: "secret-" + req.TransactionID},
	}, nil
}

func (g *MockGateway) VerifyCallback(ctx context.Context, req adapter.CallbackRequest) (*model.GatewayCallbackEvent, error) {
	if g.VerifyFunc != nil {
		return g.VerifyFunc(ctx, req)
	}
	return nil, domain.ErrAuthenticity
}
