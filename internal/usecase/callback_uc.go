// File: internal/usecase/callback_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
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
var _ CallbackUseCase = (*callbackUC)(nil)

// CallbackResult is what the HTTP boundary needs to answer the gateway and the payer.
type CallbackResult struct {
	TransactionID string
	Outcome       model.CallbackOutcome
	Status        model.PaymentStatus
	Subscription  *model.Subscription
	Duplicate     bool
	Ignored       bool
	Reason        model.ReasonCode
}

type CallbackUseCase interface {
	// Handle verifies a raw gateway callback and applies it. The first verified
	// terminal event per transaction wins; later ones are no-ops.
	Handle(ctx context.Context, req adapter.CallbackRequest) (*CallbackResult, error)
}

type callbackUC struct {
	gateway   adapter.PaymentGateway
	intents   repository.PaymentIntentRepository
	callbacks repository.CallbackLogRepository
	reconcile ReconcileUseCase
	txManager repository.TransactionManager
	now       func() time.Time
	log       *zerolog.Logger
}

func NewCallbackUseCase(
	gateway adapter.PaymentGateway,
	intents repository.PaymentIntentRepository,
	callbacks repository.CallbackLogRepository,
	reconcile ReconcileUseCase,
	txManager repository.TransactionManager,
	logger *zerolog.Logger,
) *callbackUC {
	return &callbackUC{
		gateway:   gateway,
		intents:   intents,
		callbacks: callbacks,
		reconcile: reconcile,
		txManager: txManager,
		now:       time.Now,
		log:       logger,
	}
}

func (u *callbackUC) Handle(ctx context.Context, req adapter.CallbackRequest) (res *CallbackResult, err error) {
	defer logging.TraceDuration(u.log, "CallbackUC.Handle")()
	gw := u.gateway.Name()
	started := time.Now()
	defer func() {
		result := callbackResultLabel(res, err)
		metrics.IncCallback(gw, result, string(reasonLabel(res, err)))
		metrics.ObserveCallback(gw, result, time.Since(started).Seconds())
	}()

	ctx = logging.WithGateway(ctx, gw)
	ev, err := u.gateway.VerifyCallback(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			logging.With(ctx, u.log).Debug().Err(err).Msg("callback ignored")
			return &CallbackResult{Ignored: true}, nil
		}
		if errors.Is(err, domain.ErrAuthenticity) {
			logging.With(ctx, u.log).Warn().Err(err).Msg("rejected unverifiable callback")
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticity, err)
	}

	ctx = logging.WithTxnID(ctx, ev.TransactionID)
	log := logging.With(ctx, u.log)

	intent, err := u.intents.FindByID(ctx, repository.NoTX, ev.TransactionID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn().Str("outcome", string(ev.Outcome)).Msg("callback for unknown transaction")
		return nil, domain.ErrUnknownTransaction
	}
	if err != nil {
		return nil, fmt.Errorf("load payment intent: %w", err)
	}
	if intent.Gateway != ev.Gateway {
		log.Warn().Str("intent_gateway", intent.Gateway).Msg("callback from a different gateway than the intent")
		return nil, domain.ErrUnknownTransaction
	}
	if ev.Amount > 0 && ev.Amount != intent.Amount {
		log.Warn().Int64("expected", intent.Amount).Int64("reported", ev.Amount).Msg("callback amount does not match intent")
		return nil, fmt.Errorf("%w: amount mismatch", domain.ErrAuthenticity)
	}

	res = &CallbackResult{TransactionID: intent.ID, Outcome: ev.Outcome}

	target := model.PaymentStatusConfirmed
	var failureCode *string
	if ev.Outcome == model.CallbackOutcomeFailure {
		target = model.PaymentStatusFailed
		code := ev.ErrorCode
		if code == "" {
			code = string(model.ReasonPaymentDeclined)
		}
		failureCode = &code
	}
	var gatewayRef *string
	if ev.GatewayRef != "" {
		ref := ev.GatewayRef
		gatewayRef = &ref
	}

	var moved bool
	err = u.txManager.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, aerr := u.callbacks.Append(ctx, tx, &model.CallbackLogEntry{
			ID:            ulid.Make().String(),
			Gateway:       ev.Gateway,
			EventKey:      ev.EventKey,
			TransactionID: ev.TransactionID,
			Outcome:       ev.Outcome,
			Payload:       ev.RawPayload,
			ReceivedAt:    ev.ReceivedAt,
		})
		if aerr != nil {
			return fmt.Errorf("append callback log: %w", aerr)
		}
		if !fresh {
			log.Debug().Str("event_key", ev.EventKey).Msg("callback event replayed")
		}
		var terr error
		moved, terr = u.intents.TransitionIfPending(ctx, tx, intent.ID, target, gatewayRef, failureCode, u.now().UTC())
		return terr
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to apply callback")
		return nil, err
	}

	if moved {
		res.Status = target
		if target == model.PaymentStatusFailed {
			metrics.IncPaymentIntent(gw, "failed")
			log.Info().Str("failure_code", *failureCode).Msg("payment failed")
			res.Reason = model.ReasonPaymentDeclined
			return res, nil
		}
		metrics.IncPaymentIntent(gw, "confirmed")
		metrics.AddPaymentRevenue(intent.Currency, intent.Amount)
		log.Info().Int64("amount", intent.Amount).Msg("payment confirmed")
		intent.Status = model.PaymentStatusConfirmed
		return u.finishConfirmed(ctx, res, intent)
	}

	return u.handleDuplicate(ctx, res, ev)
}

// handleDuplicate answers a callback that lost the race or arrived after the
// intent was already settled.
func (u *callbackUC) handleDuplicate(ctx context.Context, res *CallbackResult, ev *model.GatewayCallbackEvent) (*CallbackResult, error) {
	log := logging.With(ctx, u.log)
	res.Duplicate = true

	current, err := u.intents.FindByID(ctx, repository.NoTX, res.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("reload payment intent: %w", err)
	}
	res.Status = current.Status
	log.Info().
		Str("status", string(current.Status)).
		Str("outcome", string(ev.Outcome)).
		Msg("duplicate callback, no transition")

	switch current.Status {
	case model.PaymentStatusConfirmed:
		if ev.Outcome == model.CallbackOutcomeSuccess {
			// a previous attempt may have confirmed without reconciling
			return u.finishConfirmed(ctx, res, current)
		}
		log.Warn().Msg("failure callback after confirmation ignored")
		return res, nil
	case model.PaymentStatusFailed:
		res.Reason = model.ReasonPaymentDeclined
	case model.PaymentStatusExpired:
		if ev.Outcome == model.CallbackOutcomeSuccess {
			log.Error().Msg("success callback for an expired intent; needs manual refund or review")
		}
		res.Reason = model.ReasonNotConfirmed
	default:
		res.Reason = model.ReasonNotConfirmed
	}
	return res, nil
}

func (u *callbackUC) finishConfirmed(ctx context.Context, res *CallbackResult, intent *model.PaymentIntent) (*CallbackResult, error) {
	sub, err := u.reconcile.ReconcileIntent(ctx, intent)
	if err != nil {
		// payment stays confirmed; the sweeper retries the idempotent reconcile
		logging.With(ctx, u.log).Error().Err(err).Msg("reconcile after confirmation failed")
		res.Reason = model.ReasonFor(err)
		return res, err
	}
	res.Subscription = sub
	return res, nil
}

func callbackResultLabel(res *CallbackResult, err error) string {
	switch {
	case err != nil && res == nil:
		return "rejected"
	case err != nil:
		return "error"
	case res.Ignored:
		return "ignored"
	case res.Duplicate:
		return "duplicate"
	}
	return string(res.Status)
}

func reasonLabel(res *CallbackResult, err error) model.ReasonCode {
	if err != nil {
		return model.ReasonFor(err)
	}
	if res != nil {
		return res.Reason
	}
	return model.ReasonNone
}
