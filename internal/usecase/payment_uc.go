// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
	"gym-membership-billing/internal/domain/ports/repository"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// CheckoutRequest carries the plan selection explicitly; nothing is read from
// session state.
type CheckoutRequest struct {
	UserID       string
	PlanID       string
	BillingCycle model.BillingCycle
	StartDate    time.Time // zero means today
	PayerName    string
	PayerEmail   string
	PayerPhone   string
}

// IntentMetadata is everything stored next to the charge so the callback can be
// reconciled from server-side state only.
type IntentMetadata struct {
	Description  string
	UserID       string
	PlanID       string
	BillingCycle model.BillingCycle
	StartDate    time.Time
	DurationDays int
	PayerName    string
	PayerEmail   string
	PayerPhone   string
}

type PaymentUseCase interface {
	// Initiate prices the selected plan and opens a charge with the gateway.
	Initiate(ctx context.Context, req CheckoutRequest) (*model.PaymentIntent, *adapter.Continuation, error)
	// CreatePaymentIntent opens a charge for amount. Gateway failures wrap
	// domain.ErrGateway and leave nothing persisted.
	CreatePaymentIntent(ctx context.Context, amount int64, meta IntentMetadata) (*model.PaymentIntent, *adapter.Continuation, error)
}

type paymentUC struct {
	intents  repository.PaymentIntentRepository
	plans    repository.PlanRepository
	gateway  adapter.PaymentGateway
	currency string
	now      func() time.Time
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	intents repository.PaymentIntentRepository,
	plans repository.PlanRepository,
	gateway adapter.PaymentGateway,
	currency string,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		intents:  intents,
		plans:    plans,
		gateway:  gateway,
		currency: strings.ToUpper(currency),
		now:      time.Now,
		log:      logger,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, req CheckoutRequest) (*model.PaymentIntent, *adapter.Continuation, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Initiate")()

	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.PlanID) == "" {
		return nil, nil, domain.ErrInvalidArgument
	}
	if strings.TrimSpace(req.PayerEmail) == "" {
		return nil, nil, fmt.Errorf("%w: payer email is required", domain.ErrInvalidArgument)
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, req.PlanID)
	if err != nil {
		return nil, nil, err
	}
	if !plan.IsActive {
		return nil, nil, fmt.Errorf("%w: plan is not on sale", domain.ErrInvalidArgument)
	}
	amount, err := plan.PriceFor(req.BillingCycle)
	if err != nil {
		return nil, nil, err
	}

	start := req.StartDate
	if start.IsZero() {
		start = u.now()
	}
	start = model.TruncateDate(start)

	return u.CreatePaymentIntent(ctx, amount, IntentMetadata{
		Description:  fmt.Sprintf("%s membership (%s)", plan.Name, req.BillingCycle),
		UserID:       req.UserID,
		PlanID:       plan.ID,
		BillingCycle: req.BillingCycle,
		StartDate:    start,
		DurationDays: req.BillingCycle.DurationDays(),
		PayerName:    strings.TrimSpace(req.PayerName),
		PayerEmail:   strings.TrimSpace(req.PayerEmail),
		PayerPhone:   strings.TrimSpace(req.PayerPhone),
	})
}

func (u *paymentUC) CreatePaymentIntent(ctx context.Context, amount int64, meta IntentMetadata) (*model.PaymentIntent, *adapter.Continuation, error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(meta.Description) == "" {
		return nil, nil, fmt.Errorf("%w: description is required", domain.ErrInvalidArgument)
	}
	if meta.DurationDays <= 0 || meta.StartDate.IsZero() {
		return nil, nil, fmt.Errorf("%w: membership period is required", domain.ErrInvalidArgument)
	}

	txnID := ulid.Make().String()
	ctx = logging.WithGateway(logging.WithUserID(ctx, meta.UserID), u.gateway.Name())
	log := logging.With(ctx, u.log)

	res, err := u.gateway.Initiate(ctx, adapter.InitiateRequest{
		TransactionID: txnID,
		Amount:        amount,
		Currency:      u.currency,
		Description:   meta.Description,
		PayerName:     meta.PayerName,
		PayerEmail:    meta.PayerEmail,
		PayerPhone:    meta.PayerPhone,
		Metadata: map[string]string{
			"user_id":       meta.UserID,
			"plan_id":       meta.PlanID,
			"billing_cycle": string(meta.BillingCycle),
		},
	})
	if err != nil {
		metrics.IncPaymentIntent(u.gateway.Name(), "gateway_error")
		log.Error().Err(err).Int64("amount", amount).Msg("gateway refused to start payment")
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	if res == nil || res.TransactionID == "" {
		metrics.IncPaymentIntent(u.gateway.Name(), "gateway_error")
		return nil, nil, fmt.Errorf("%w: empty gateway response", domain.ErrGateway)
	}

	now := u.now().UTC()
	intent := &model.PaymentIntent{
		ID:                      res.TransactionID,
		Gateway:                 u.gateway.Name(),
		UserID:                  meta.UserID,
		PlanID:                  meta.PlanID,
		BillingCycle:            meta.BillingCycle,
		StartDate:               model.TruncateDate(meta.StartDate),
		DurationDays:            meta.DurationDays,
		Amount:                  amount,
		Currency:                u.currency,
		Description:             meta.Description,
		PayerName:               meta.PayerName,
		PayerEmail:              meta.PayerEmail,
		PayerPhone:              meta.PayerPhone,
		Status:                  model.PaymentStatusAwaitingConfirmation,
		CreatedAt:               now,
		UpdatedAt:               now,
		ClientContinuationToken: res.Continuation.ClientSecret,
	}
	if err := u.intents.Save(ctx, repository.NoTX, intent); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			log.Error().Str("txn_id", intent.ID).Msg("gateway returned a transaction id already on record")
		}
		return nil, nil, fmt.Errorf("save payment intent: %w", err)
	}

	metrics.IncPaymentIntent(u.gateway.Name(), "initiated")
	log.Info().
		Str("txn_id", intent.ID).
		Str("plan_id", intent.PlanID).
		Int64("amount", amount).
		Str("payer_email", logging.Redact(meta.PayerEmail, false)).
		Msg("payment intent created")

	cont := res.Continuation
	return intent, &cont, nil
}
