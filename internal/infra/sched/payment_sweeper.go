package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/infra/metrics"
	"gym-membership-billing/internal/infra/redis"
	"gym-membership-billing/internal/usecase"
)

const (
	revenueWindow = 30 * 24 * time.Hour
	sweeperLock   = "lock:payment_sweeper"
)

// PaymentSweeper periodically expires abandoned checkouts and re-runs reconcile
// for confirmed payments that have no subscription yet. The latter covers a
// crash or storage error between confirmation and reconcile.
type PaymentSweeper struct {
	uc         usecase.SweepUseCase
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending intent must be to expire
	batch      int
	locker     redis.Locker // nil runs every tick locally
	log        *zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPaymentSweeper(uc usecase.SweepUseCase, locker redis.Locker, interval, staleAfter time.Duration, batch int, logger *zerolog.Logger) *PaymentSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	if batch <= 0 {
		batch = 200
	}
	compLog := logger.With().Str("component", "PaymentSweeper").Logger()
	return &PaymentSweeper{
		uc:         uc,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      batch,
		locker:     locker,
		log:        &compLog,
	}
}

// Start runs the loop in a background goroutine. Calling it twice has no effect.
func (w *PaymentSweeper) Start(parent context.Context) {
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(ctx)
}

// Stop cancels the loop and waits for the current tick to finish.
func (w *PaymentSweeper) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	w.log.Info().Msg("Stopped payment sweeper")
}

func (w *PaymentSweeper) loop(ctx context.Context) {
	defer close(w.done)
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("Starting payment sweeper")

	w.Tick(ctx)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one sweep bounded by the interval. With a locker only one replica
// sweeps per tick.
func (w *PaymentSweeper) Tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	if w.locker != nil {
		token, err := w.locker.TryLock(runCtx, sweeperLock, w.interval)
		if errors.Is(err, domain.ErrLocked) {
			w.log.Debug().Msg("sweep skipped, another replica holds the lock")
			return
		}
		if err != nil {
			w.log.Warn().Err(err).Msg("sweeper lock unavailable, skipping tick")
			return
		}
		defer func() {
			if err := w.locker.Unlock(context.Background(), sweeperLock, token); err != nil {
				w.log.Warn().Err(err).Msg("sweeper unlock failed")
			}
		}()
	}

	cutoff := time.Now().Add(-w.staleAfter)
	expired, err := w.uc.ExpireStale(runCtx, cutoff, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("expire stale intents failed")
	}
	if expired > 0 {
		metrics.AddSwept("expired", expired)
		w.log.Info().Int("count", expired).Msg("stale payment intents expired")
	}

	healed, err := w.uc.HealUnreconciled(runCtx, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("heal unreconciled payments failed")
	}
	if healed > 0 {
		metrics.AddSwept("healed", healed)
		w.log.Info().Int("count", healed).Msg("confirmed payments reconciled")
	}

	revenue, err := w.uc.ConfirmedRevenueSince(runCtx, time.Now().Add(-revenueWindow))
	if err != nil {
		w.log.Warn().Err(err).Msg("confirmed revenue query failed")
		return
	}
	metrics.SetConfirmedRevenue(revenue)
}
