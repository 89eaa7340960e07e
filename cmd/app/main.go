// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership-billing/internal/config"
	"gym-membership-billing/internal/domain/ports/adapter"
	payAdapters "gym-membership-billing/internal/infra/adapters/payment"
	pg "gym-membership-billing/internal/infra/db/postgres"
	httpapi "gym-membership-billing/internal/infra/http"
	"gym-membership-billing/internal/infra/i18n"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/infra/metrics"
	red "gym-membership-billing/internal/infra/redis"
	"gym-membership-billing/internal/infra/sched"
	"gym-membership-billing/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop gateway)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go reportPoolStats(ctx, pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)
	intentRepo := pg.NewPaymentIntentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	callbackRepo := pg.NewCallbackLogRepo(pool)

	// ---- Payment gateway ----
	gateway, err := newGateway(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("gateway", cfg.Payment.Gateway).Msg("payment gateway")
	}
	logger.Info().Str("gateway", gateway.Name()).Str("currency", cfg.Payment.Currency).Msg("payment gateway ready")

	// ---- Use cases ----
	reconcileUC := usecase.NewReconcileUseCase(intentRepo, subRepo, logger)
	paymentUC := usecase.NewPaymentUseCase(intentRepo, planRepo, gateway, cfg.Payment.Currency, logger)
	callbackUC := usecase.NewCallbackUseCase(gateway, intentRepo, callbackRepo, reconcileUC, txManager, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	sweepUC := usecase.NewSweepUseCase(intentRepo, reconcileUC, logger)

	// ---- Sweeper ----
	sweeper := sched.NewPaymentSweeper(sweepUC, locker, cfg.Sweeper.Interval, cfg.Sweeper.StaleAfter, cfg.Sweeper.BatchSize, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// ---- HTTP ----
	messages, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	srv := httpapi.NewServer(cfg, httpapi.Deps{
		Payments:      paymentUC,
		Callbacks:     callbackUC,
		Subscriptions: subUC,
		Plans:         planUC,
		Limiter:       rateLimiter,
		Auth:          httpapi.NewAuthManager(cfg.Auth.HMACSecret, cfg.Auth.CookieName),
		Gateway:       gateway,
		Messages:      messages,
	}, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

func newGateway(cfg *config.Config) (adapter.PaymentGateway, error) {
	switch cfg.Payment.Gateway {
	case config.GatewayStripe:
		return payAdapters.NewStripeGateway(cfg.Payment.Stripe.SecretKey, cfg.Payment.Stripe.WebhookSecret)
	case config.GatewayPayU:
		p := cfg.Payment.PayU
		return payAdapters.NewPayUGateway(p.Key, p.Salt, p.BaseURL, p.SuccessURL, p.FailureURL)
	default:
		return payAdapters.NewNoopPaymentGateway(cfg.Payment.NoopToken), nil
	}
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pg.ReportPoolStats(pool)
		}
	}
}
