// File: internal/infra/http/server.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gym-membership-billing/internal/config"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
	"gym-membership-billing/internal/infra/i18n"
	"gym-membership-billing/internal/usecase"
)

// PlanLister is the read side of the plan catalog used by checkout pages.
type PlanLister interface {
	ListActive(ctx context.Context) ([]*model.Plan, error)
}

// Limiter counts checkout attempts per key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Deps are the use cases and adapters the routes call into.
type Deps struct {
	Payments      usecase.PaymentUseCase
	Callbacks     usecase.CallbackUseCase
	Subscriptions usecase.SubscriptionUseCase
	Plans         PlanLister
	Limiter       Limiter
	Auth          *AuthManager
	Gateway       adapter.PaymentGateway
	Messages      *i18n.Translator
}

type Server struct {
	cfg    *config.Config
	deps   Deps
	router chi.Router
	server *http.Server
	log    *zerolog.Logger
}

func NewServer(cfg *config.Config, deps Deps, logger *zerolog.Logger) *Server {
	if deps.Messages == nil {
		// the embedded English catalogue always parses
		deps.Messages, _ = i18n.NewTranslator(i18n.LocalesFS, "en")
	}
	s := &Server{cfg: cfg, deps: deps, log: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(Timeout(s.cfg.HTTP.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	gw := s.deps.Gateway
	switch gw.ResponseStyle() {
	case adapter.CallbackResponseRedirect:
		// success and failure URLs both land here; the posted status decides
		r.Post("/api/payment/success", s.handleCallback)
		r.Post("/api/payment/failure", s.handleCallback)
	default:
		r.Post("/api/payment/webhook/"+gw.Name(), s.handleCallback)
	}

	r.Get(statusPagePath(s.cfg.Payment.StatusPageURL), s.handleStatusPage)
	r.Get("/api/v1/plans", s.handleListPlans)

	r.Group(func(r chi.Router) {
		r.Use(s.deps.Auth.RequireUser)
		r.Get("/api/v1/subscriptions", s.handleListSubscriptions)
		r.Get("/api/v1/subscriptions/{txnID}", s.handleGetSubscription)

		r.Group(func(r chi.Router) {
			r.Use(s.checkoutRateLimit)
			r.Post("/api/v1/checkout", s.handleCheckoutJSON)
			r.Post("/checkout", s.handleCheckoutForm)
		})
	})
	return r
}

// Handler is the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return Chain(s.router, TraceID(s.log), RequestLog(s.log), Recover(s.log))
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTP.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.HTTP.Port).Str("gateway", s.deps.Gateway.Name()).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
